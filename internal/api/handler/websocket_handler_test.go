package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type recordingState struct {
	mu      sync.Mutex
	visible []int
}

func (s *recordingState) Snapshot() service.DashboardSnapshot {
	return service.DashboardSnapshot{Type: "dashboard", Stats: domain.DashboardStats{TotalSpaces: 3}}
}

func (s *recordingState) SetVisibleClients(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = append(s.visible, n)
}

func (s *recordingState) last() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.visible) == 0 {
		return -1, 0
	}
	return s.visible[len(s.visible)-1], len(s.visible)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWebSocketManagerTracksVisibility(t *testing.T) {
	state := &recordingState{}
	hub := NewWebSocketManager()
	hub.SetState(state)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Start(ctx)

	r := gin.New()
	r.GET("/ws", NewWebSocketHandler(hub).HandleWebSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var initial service.DashboardSnapshot
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("initial snapshot: %v", err)
	}
	if initial.Stats.TotalSpaces != 3 {
		t.Errorf("initial snapshot = %+v", initial)
	}
	waitFor(t, func() bool { n, _ := state.last(); return n == 1 }, "connected client should count as visible")

	hidden, _ := json.Marshal(map[string]any{"type": "visibility", "visible": false})
	if err := conn.WriteMessage(websocket.TextMessage, hidden); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { n, _ := state.last(); return n == 0 }, "hidden client should not count")

	hub.PublishSnapshot(service.DashboardSnapshot{Type: "dashboard", Stats: domain.DashboardStats{TotalSpaces: 4}})
	var pushed service.DashboardSnapshot
	if err := conn.ReadJSON(&pushed); err != nil || pushed.Stats.TotalSpaces != 4 {
		t.Fatalf("broadcast = %+v, %v", pushed, err)
	}

	_, calls := state.last()
	conn.Close()
	time.Sleep(50 * time.Millisecond)
	if _, after := state.last(); after != calls {
		t.Error("closing a hidden client should not change the visible count")
	}
}

func TestWebSocketManagerDropsClientOnWriteError(t *testing.T) {
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	conn := <-serverConns

	state := &recordingState{}
	hub := NewWebSocketManager()
	hub.SetState(state)
	hub.clients[conn] = true
	hub.reportVisible()

	conn.UnderlyingConn().Close()
	hub.write(conn, []byte(`{"type":"dashboard"}`))

	if _, ok := hub.clients[conn]; ok {
		t.Error("failed client should be removed")
	}
	if n, calls := state.last(); n != 0 || calls != 2 {
		t.Errorf("visible count = %d after %d reports, want 0 after 2", n, calls)
	}
}
