package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/api/middleware"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/payment"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r *gin.Engine, method, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not a JSON object: %s", w.Body.String())
	}
	return out
}

type stubSpaces struct {
	deleteErr error
	deleted   []string
	spaces    []domain.ParkingSpace
}

func (s *stubSpaces) CreateParkingSpace(ctx context.Context, dto domain.ParkingSpaceDTO) (*domain.ParkingSpace, error) {
	return &domain.ParkingSpace{ID: "new", SpaceNumber: dto.SpaceNumber}, nil
}

func (s *stubSpaces) GetParkingSpaceByID(ctx context.Context, id string) (*domain.ParkingSpace, error) {
	for _, sp := range s.spaces {
		if sp.ID == id {
			return &sp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubSpaces) GetAllParkingSpaces(ctx context.Context) ([]domain.ParkingSpace, error) {
	return s.spaces, nil
}

func (s *stubSpaces) DeleteParkingSpace(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func TestDeleteParkingSpace(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantDelete bool
	}{
		{name: "missing confirmation", query: "", wantStatus: http.StatusBadRequest},
		{name: "confirmed", query: "?confirm=true", wantStatus: http.StatusOK, wantDelete: true},
		{name: "not found", query: "?confirm=true", err: repository.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "occupied", query: "?confirm=true", err: service.ErrSpaceOccupied, wantStatus: http.StatusConflict},
		{name: "history not decoupled", query: "?confirm=true", err: fmt.Errorf("%w: 2 sessions", service.ErrDecoupleFailed), wantStatus: http.StatusConflict},
		{name: "database failure", query: "?confirm=true", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spaces := &stubSpaces{deleteErr: tt.err}
			r := gin.New()
			r.DELETE("/parking-spaces/:id", NewParkingSpaceHandler(spaces).DeleteParkingSpace)

			w := perform(r, http.MethodDelete, "/parking-spaces/sp1"+tt.query, nil, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := len(spaces.deleted) == 1; got != tt.wantDelete {
				t.Errorf("deleted = %v", spaces.deleted)
			}
		})
	}
}

func TestGetParkingSpaces(t *testing.T) {
	r := gin.New()
	h := NewParkingSpaceHandler(&stubSpaces{})
	r.GET("/parking-spaces", h.GetAllParkingSpaces)
	r.GET("/parking-spaces/:id", h.GetParkingSpaceByID)

	w := perform(r, http.MethodGet, "/parking-spaces", nil, nil)
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("empty list = %d %s", w.Code, w.Body.String())
	}
	if w := perform(r, http.MethodGet, "/parking-spaces/missing", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing space status = %d", w.Code)
	}
}

type stubReconciler struct {
	err     error
	payload string
}

func (s *stubReconciler) CheckIn(ctx context.Context, spaceID, raw string) (*service.ScanResult, error) {
	s.payload = raw
	if s.err != nil {
		return nil, s.err
	}
	return &service.ScanResult{SpaceID: spaceID, SessionUpdated: true}, nil
}

func (s *stubReconciler) CheckOut(ctx context.Context, spaceID, raw string) (*service.ScanResult, error) {
	return s.CheckIn(ctx, spaceID, raw)
}

func (s *stubReconciler) DetectInconsistency(ctx context.Context, spaceID string) (*service.Inconsistency, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.Inconsistency{SpaceID: spaceID, Detected: true}, nil
}

func (s *stubReconciler) RepairOccupancy(ctx context.Context, spaceID string) error {
	return s.err
}

func TestScanHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{name: "check-in", path: "/sp1/check-in", wantStatus: http.StatusOK},
		{name: "check-out", path: "/sp1/check-out", wantStatus: http.StatusOK},
		{name: "unknown space", path: "/sp1/check-in", err: repository.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "no space id", path: "/sp1/check-out", err: service.ErrSpaceRequired, wantStatus: http.StatusBadRequest},
		{name: "failure", path: "/sp1/check-in", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &stubReconciler{err: tt.err}
			h := NewScanHandler(rec)
			r := gin.New()
			r.POST("/:id/check-in", h.CheckIn)
			r.POST("/:id/check-out", h.CheckOut)

			w := perform(r, http.MethodPost, tt.path, []byte(`{"payload":"{\"booking_id\":\"b1\"}"}`), nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if rec.payload != `{"booking_id":"b1"}` {
				t.Errorf("payload passed through = %q", rec.payload)
			}
			if tt.err == nil && decode(t, w)["success"] != true {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestConsistencyAndRepair(t *testing.T) {
	rec := &stubReconciler{}
	h := NewScanHandler(rec)
	r := gin.New()
	r.GET("/:id/consistency", h.CheckConsistency)
	r.POST("/:id/repair", h.RepairOccupancy)

	w := perform(r, http.MethodGet, "/sp1/consistency", nil, nil)
	if w.Code != http.StatusOK || decode(t, w)["detected"] != true {
		t.Errorf("consistency = %d %s", w.Code, w.Body.String())
	}
	if w := perform(r, http.MethodPost, "/sp1/repair", nil, nil); w.Code != http.StatusOK {
		t.Errorf("repair status = %d", w.Code)
	}

	rec.err = repository.ErrNotFound
	if w := perform(r, http.MethodPost, "/sp1/repair", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("repair unknown space status = %d", w.Code)
	}
}

type stubAuth struct {
	role string
	err  error
}

func (s stubAuth) Login(ctx context.Context, dto domain.LoginDTO) (*domain.AuthResponseDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.AuthResponseDTO{Token: "tok", Role: s.role, SessionStartedAt: time.Unix(100, 0)}, nil
}

type recordingSession struct {
	started []time.Time
	ended   int
}

func (s *recordingSession) StartAdminSession(start time.Time) { s.started = append(s.started, start) }
func (s *recordingSession) EndAdminSession()                  { s.ended++ }

func TestAuthHandler(t *testing.T) {
	body := []byte(`{"email":"a@b.c","password":"pw"}`)
	tests := []struct {
		name        string
		auth        stubAuth
		wantStatus  int
		wantStarted int
	}{
		{name: "admin starts a session", auth: stubAuth{role: domain.RoleAdmin}, wantStatus: http.StatusOK, wantStarted: 1},
		{name: "non-admin", auth: stubAuth{role: "user"}, wantStatus: http.StatusOK},
		{name: "bad credentials", auth: stubAuth{err: service.ErrInvalidCredentials}, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &recordingSession{}
			h := NewAuthHandler(tt.auth, session)
			r := gin.New()
			r.POST("/login", h.Login)
			r.POST("/logout", asRole(domain.RoleAdmin), h.Logout)

			w := perform(r, http.MethodPost, "/login", body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if len(session.started) != tt.wantStarted {
				t.Errorf("sessions started = %d, want %d", len(session.started), tt.wantStarted)
			}
			if tt.wantStarted == 1 && !session.started[0].Equal(time.Unix(100, 0)) {
				t.Errorf("session start = %v", session.started[0])
			}

			perform(r, http.MethodPost, "/logout", nil, nil)
			if session.ended != 1 {
				t.Errorf("logout should end the admin session")
			}
		})
	}
}

func asRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
}

func TestLogoutOnlyEndsAdminSession(t *testing.T) {
	tests := []struct {
		role      string
		wantEnded int
	}{
		{role: domain.RoleAdmin, wantEnded: 1},
		{role: "user", wantEnded: 0},
		{role: "", wantEnded: 0},
	}
	for _, tt := range tests {
		t.Run("role="+tt.role, func(t *testing.T) {
			session := &recordingSession{}
			r := gin.New()
			r.POST("/logout", asRole(tt.role), NewAuthHandler(stubAuth{}, session).Logout)

			if w := perform(r, http.MethodPost, "/logout", nil, nil); w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if session.ended != tt.wantEnded {
				t.Errorf("admin sessions ended = %d, want %d", session.ended, tt.wantEnded)
			}
		})
	}
}

type stubDashboard struct {
	snapshot  service.DashboardSnapshot
	records   []domain.ActivityRecord
	refreshes int
}

func (s *stubDashboard) Snapshot() service.DashboardSnapshot { return s.snapshot }
func (s *stubDashboard) RequestRefresh()                     { s.refreshes++ }

func (s *stubDashboard) ViewAll(kind string) ([]domain.ActivityRecord, bool) {
	if kind != "payments" {
		return nil, false
	}
	return s.records, true
}

func TestDashboardHandler(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	source := &stubDashboard{records: []domain.ActivityRecord{
		{ID: "p1", Type: domain.ActivityPayment, Time: now.Add(-5 * time.Minute)},
	}}
	h := NewDashboardHandler(source, time.UTC)
	h.now = func() time.Time { return now }
	r := gin.New()
	r.GET("/dashboard", h.GetDashboard)
	r.GET("/activity/:kind", h.ViewAll)

	w := perform(r, http.MethodGet, "/dashboard", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", w.Code)
	}
	if source.refreshes != 1 {
		t.Error("empty cache should request a refresh")
	}
	if spaces, ok := decode(t, w)["spaces"].([]any); !ok || len(spaces) != 0 {
		t.Errorf("spaces = %v", decode(t, w)["spaces"])
	}

	w = perform(r, http.MethodGet, "/activity/payments", nil, nil)
	var views []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil || len(views) != 1 {
		t.Fatalf("view all = %s", w.Body.String())
	}
	if views[0]["time_ago"] != "5 minutes ago" || views[0]["display_time"] != "2024-06-01 09:25 UTC" {
		t.Errorf("view = %v", views[0])
	}

	if w := perform(r, http.MethodGet, "/activity/devices", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown kind status = %d", w.Code)
	}
}

type stubPayments struct {
	outcome payment.WebhookOutcome
	err     error
	sig     string
	body    []byte
}

func (s *stubPayments) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://checkout.local/cs_1", nil
}

func (s *stubPayments) HandleWebhook(ctx context.Context, signature string, body []byte) (payment.WebhookOutcome, error) {
	s.sig, s.body = signature, body
	return s.outcome, s.err
}

func TestPaymentWebhook(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "recorded", wantStatus: http.StatusOK},
		{name: "bad signature", err: payment.ErrInvalidSignature, wantStatus: http.StatusUnauthorized},
		{name: "missing signature", err: payment.ErrMissingSignature, wantStatus: http.StatusUnauthorized},
		{name: "missing metadata", err: payment.ErrMissingMetadata, wantStatus: http.StatusBadRequest},
		{name: "store failure", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubPayments{outcome: payment.OutcomeRecorded, err: tt.err}
			r := gin.New()
			r.POST("/webhook", NewPaymentHandler(p).Webhook)

			body := []byte(`{"data":{"id":"evt_1"}}`)
			w := perform(r, http.MethodPost, "/webhook", body, map[string]string{payment.SignatureHeader: "t=1,v1=abc"})
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if p.sig != "t=1,v1=abc" || !bytes.Equal(p.body, body) {
				t.Errorf("signature %q and raw body should be passed through unchanged", p.sig)
			}
			if tt.err == nil && decode(t, w)["outcome"] != string(payment.OutcomeRecorded) {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestPaymentCheckout(t *testing.T) {
	p := &stubPayments{}
	r := gin.New()
	r.POST("/checkout", NewPaymentHandler(p).Checkout)
	body := []byte(`{"amount":"50.00","description":"Parking","metadata":{"session_id":"s1","user_id":"u1"}}`)

	w := perform(r, http.MethodPost, "/checkout", body, nil)
	if w.Code != http.StatusOK || decode(t, w)["checkout_url"] != "https://checkout.local/cs_1" {
		t.Errorf("checkout = %d %s", w.Code, w.Body.String())
	}

	p.err = payment.ErrInvalidAmount
	if w := perform(r, http.MethodPost, "/checkout", body, nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid amount status = %d", w.Code)
	}
	p.err = errors.New("gateway timeout")
	if w := perform(r, http.MethodPost, "/checkout", body, nil); w.Code != http.StatusBadGateway {
		t.Errorf("provider failure status = %d", w.Code)
	}
}
