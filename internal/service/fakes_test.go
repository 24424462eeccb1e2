package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

// memStore giữ dữ liệu chung cho các fake repository.
type memStore struct {
	mu       sync.Mutex
	spaces   map[string]*domain.ParkingSpace
	sessions map[string]*domain.ParkingSession
	vehicles map[string]*domain.Vehicle

	detachErr  error
	deleteErr  error
	setStatErr error

	findAllCalls int
	// findAllGate giữ FindAll lại sau khi đã chụp dữ liệu.
	findAllGate    chan struct{}
	findAllEntered chan struct{}
}

func newMemStore() *memStore {
	return &memStore{
		spaces:   make(map[string]*domain.ParkingSpace),
		sessions: make(map[string]*domain.ParkingSession),
		vehicles: make(map[string]*domain.Vehicle),
	}
}

func (m *memStore) addSpace(s domain.ParkingSpace) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces[s.ID] = &s
}

func (m *memStore) addSession(s domain.ParkingSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &s
}

func (m *memStore) space(id string) (domain.ParkingSpace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[id]
	if !ok {
		return domain.ParkingSpace{}, false
	}
	return *s, true
}

func (m *memStore) spaceFetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findAllCalls
}

func (m *memStore) session(id string) domain.ParkingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sessions[id]
}

type fakeSpaceRepo struct{ *memStore }

func (r fakeSpaceRepo) Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spaces {
		if s.SpaceNumber == space.SpaceNumber {
			return nil, repository.ErrDuplicateEntry
		}
	}
	created := *space
	if created.ID == "" {
		created.ID = fmt.Sprintf("space-%d", len(r.spaces)+1)
	}
	r.spaces[created.ID] = &created
	return &created, nil
}

func (r fakeSpaceRepo) FindByID(ctx context.Context, id string) (*domain.ParkingSpace, error) {
	s, ok := r.space(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r fakeSpaceRepo) FindAll(ctx context.Context) ([]domain.ParkingSpace, error) {
	r.mu.Lock()
	r.findAllCalls++
	out := make([]domain.ParkingSpace, 0, len(r.spaces))
	for _, s := range r.spaces {
		out = append(out, *s)
	}
	gate, entered := r.findAllGate, r.findAllEntered
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SpaceNumber < out[j].SpaceNumber })
	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-gate
	}
	return out, nil
}

func (r fakeSpaceRepo) SetOccupied(ctx context.Context, id string, vehicleID string, since time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.spaces[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsOccupied = true
	s.OccupiedSince = null.TimeFrom(since)
	if vehicleID != "" {
		s.VehicleID = null.StringFrom(vehicleID)
	}
	return nil
}

func (r fakeSpaceRepo) ClearOccupancy(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.spaces[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsOccupied = false
	s.OccupiedSince = null.Time{}
	s.VehicleID = null.String{}
	return nil
}

// Delete từ chối xóa khi còn phiên trỏ tới chỗ đỗ, giống một khóa ngoại RESTRICT.
func (r fakeSpaceRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.spaces[id]; !ok {
		return repository.ErrNotFound
	}
	for _, s := range r.sessions {
		if s.SpaceID.Valid && s.SpaceID.String == id {
			return fmt.Errorf("session %s still references space %s", s.ID, id)
		}
	}
	delete(r.spaces, id)
	return nil
}

type fakeSessionRepo struct{ *memStore }

func (r fakeSessionRepo) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	r.addSession(*session)
	return session, nil
}

func (r fakeSessionRepo) FindByID(ctx context.Context, id string) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r fakeSessionRepo) FindBySpaceID(ctx context.Context, spaceID string) ([]domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingSession
	for _, s := range r.sessions {
		if s.SpaceID.Valid && s.SpaceID.String == spaceID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeSessionRepo) FindActiveBySpaceID(ctx context.Context, spaceID string) (*domain.ParkingSession, error) {
	sessions, _ := r.FindBySpaceID(ctx, spaceID)
	for _, s := range sessions {
		if s.Status == domain.SessionCheckedIn {
			return &s, nil
		}
	}
	return nil, repository.ErrNoActiveSession
}

func (r fakeSessionRepo) SetStatus(ctx context.Context, id string, status domain.SessionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setStatErr != nil {
		return false, r.setStatErr
	}
	s, ok := r.sessions[id]
	if !ok {
		return false, nil
	}
	s.Status = status
	return true, nil
}

func (r fakeSessionRepo) SetTimestamps(ctx context.Context, id string, start *time.Time, end *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, nil
	}
	if start != nil {
		s.StartTime = *start
	}
	if end != nil {
		s.EndTime = null.TimeFrom(*end)
	}
	return true, nil
}

func (r fakeSessionRepo) DetachSpace(ctx context.Context, sessionIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detachErr != nil {
		return 0, r.detachErr
	}
	var n int64
	for _, id := range sessionIDs {
		if s, ok := r.sessions[id]; ok {
			s.SpaceID = null.String{}
			n++
		}
	}
	return n, nil
}

type fakeVehicleRepo struct{ *memStore }

func (r fakeVehicleRepo) Create(ctx context.Context, v *domain.Vehicle) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles[v.ID] = v
	return v, nil
}

func (r fakeVehicleRepo) FindByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return v, nil
}

func (r fakeVehicleRepo) FindByOwner(ctx context.Context, ownerID string) ([]domain.Vehicle, error) {
	return nil, nil
}

type fakeActivityRepo struct {
	mu        sync.Mutex
	entries   []domain.ActivityLog
	listErr   error
	listCalls int
	nextID    int
}

func (r *fakeActivityRepo) Create(ctx context.Context, entry *domain.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e := *entry
	if e.ID == "" {
		e.ID = fmt.Sprintf("log-%d", r.nextID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeActivityRepo) ListRecent(ctx context.Context, activityType string, limit int) ([]domain.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.ActivityLog
	for _, e := range r.entries {
		if activityType == "" || e.ActivityType == activityType {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeActivityRepo) FindBySpaceOrSessions(ctx context.Context, spaceID string, sessionIDs []string) ([]domain.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	var out []domain.ActivityLog
	for _, e := range r.entries {
		if (e.SpaceID.Valid && e.SpaceID.String == spaceID) || (e.SessionID.Valid && wanted[e.SessionID.String]) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) UpdateDetails(ctx context.Context, id string, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries[i].Details = details
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeActivityRepo) all() []domain.ActivityLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ActivityLog(nil), r.entries...)
}

func (r *fakeActivityRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

type fakePaymentRepo struct {
	mu        sync.Mutex
	payments  []domain.Payment
	listErr   error
	sumErr    error
	sumBlock  bool
	listCalls int
	sumCalls  int
	since     time.Time
	// listGate giữ ListRecent lại sau khi đã đọc dữ liệu, listEntered báo lúc bắt đầu chờ.
	listGate    chan struct{}
	listEntered chan struct{}
}

func (r *fakePaymentRepo) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, *p)
	return p, nil
}

func (r *fakePaymentRepo) ListRecent(ctx context.Context, limit int) ([]domain.Payment, error) {
	r.mu.Lock()
	r.listCalls++
	if r.listErr != nil {
		r.mu.Unlock()
		return nil, r.listErr
	}
	out := append([]domain.Payment(nil), r.payments...)
	gate, entered := r.listGate, r.listEntered
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-gate
	}
	return out, nil
}

func (r *fakePaymentRepo) ExistsCompleted(ctx context.Context, sessionID string, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.SessionID.String == sessionID && p.UserID == userID && p.Status == domain.PaymentCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePaymentRepo) sum(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	r.sumCalls++
	block, sumErr := r.sumBlock, r.sumErr
	r.mu.Unlock()
	if block {
		<-ctx.Done()
		return decimal.Zero, ctx.Err()
	}
	if sumErr != nil {
		return decimal.Zero, sumErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, p := range r.payments {
		if p.Status == domain.PaymentCompleted && !p.CreatedAt.Before(since) {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (r *fakePaymentRepo) SumCompleted(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, time.Time{})
}

func (r *fakePaymentRepo) SumCompletedSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	r.since = since
	r.mu.Unlock()
	return r.sum(ctx, since)
}

func (r *fakePaymentRepo) setSumErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sumErr = err
}

func (r *fakePaymentRepo) sums() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sumCalls
}

func (r *fakePaymentRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

type countingRefresher struct {
	mu sync.Mutex
	n  int
}

func (c *countingRefresher) RequestRefresh() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingRefresher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type recordingIndicator struct {
	mu        sync.Mutex
	published []domain.ParkingSpace
}

func (i *recordingIndicator) PublishOccupancy(ctx context.Context, space domain.ParkingSpace) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.published = append(i.published, space)
	return nil
}

var errBoom = errors.New("boom")

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
