package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Cho phép kết nối từ mọi nguồn
	},
}

// DashboardState là phía controller mà hub cần: snapshot ban đầu và số client đang xem.
type DashboardState interface {
	Snapshot() service.DashboardSnapshot
	SetVisibleClients(n int)
}

type visibilityChange struct {
	conn    *websocket.Conn
	visible bool
}

// clientMessage là tin nhắn client gửi lên, hiện chỉ có {"type":"visibility","visible":bool}.
type clientMessage struct {
	Type    string `json:"type"`
	Visible *bool  `json:"visible"`
}

// WebSocketManager giữ các kết nối dashboard. Chỉ vòng Start ghi vào kết nối.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool // giá trị: client có đang hiển thị không
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	visibility chan visibilityChange
	broadcast  chan []byte
	state      DashboardState
	lastCount  int
	done       chan struct{}
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		visibility: make(chan visibilityChange),
		broadcast:  make(chan []byte, 16),
		lastCount:  -1,
		done:       make(chan struct{}),
	}
}

// SetState phải được gọi trước Start.
func (wsm *WebSocketManager) SetState(state DashboardState) {
	wsm.state = state
}

func (wsm *WebSocketManager) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(wsm.done)
			for client := range wsm.clients {
				client.Close()
				delete(wsm.clients, client)
			}
			wsm.reportVisible()
			return

		case client := <-wsm.register:
			wsm.clients[client] = true
			log.Printf("WebSocket client connected. Total: %d", len(wsm.clients))
			if wsm.state != nil {
				if message, err := json.Marshal(wsm.state.Snapshot()); err == nil {
					wsm.write(client, message)
				}
			}
			wsm.reportVisible()

		case client := <-wsm.unregister:
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				client.Close()
			}
			log.Printf("WebSocket client disconnected. Total: %d", len(wsm.clients))
			wsm.reportVisible()

		case change := <-wsm.visibility:
			if _, ok := wsm.clients[change.conn]; ok {
				wsm.clients[change.conn] = change.visible
				wsm.reportVisible()
			}

		case message := <-wsm.broadcast:
			for client := range wsm.clients {
				wsm.write(client, message)
			}
		}
	}
}

// PublishSnapshot đưa snapshot vào hàng đợi broadcast; bỏ qua nếu hàng đợi đầy.
func (wsm *WebSocketManager) PublishSnapshot(snapshot service.DashboardSnapshot) {
	message, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("Error marshaling dashboard snapshot: %v", err)
		return
	}

	select {
	case wsm.broadcast <- message:
	default:
		log.Println("Broadcast channel is full, dropping message")
	}
}

func (wsm *WebSocketManager) write(client *websocket.Conn, message []byte) {
	client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
		log.Printf("Error writing to WebSocket client: %v", err)
		client.Close()
		delete(wsm.clients, client)
		wsm.reportVisible()
	}
}

func (wsm *WebSocketManager) reportVisible() {
	count := 0
	for _, visible := range wsm.clients {
		if visible {
			count++
		}
	}
	if count == wsm.lastCount {
		return
	}
	wsm.lastCount = count
	if wsm.state != nil {
		wsm.state.SetVisibleClients(count)
	}
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
}

func NewWebSocketHandler(wsManager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	select {
	case h.wsManager.register <- conn:
	case <-h.wsManager.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.wsManager.unregister <- conn:
			case <-h.wsManager.done:
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				break
			}
			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "visibility" || msg.Visible == nil {
				continue
			}
			select {
			case h.wsManager.visibility <- visibilityChange{conn: conn, visible: *msg.Visible}:
			case <-h.wsManager.done:
				return
			}
		}
	}()
}
