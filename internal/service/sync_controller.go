package service

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
)

// ChangeSource cung cấp luồng thay đổi dòng; channel đóng khi ctx bị hủy.
type ChangeSource interface {
	Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error)
}

// SnapshotPublisher đẩy snapshot dashboard tới các client đang kết nối.
type SnapshotPublisher interface {
	PublishSnapshot(snapshot DashboardSnapshot)
}

type DashboardSnapshot struct {
	Type             string                  `json:"type"`
	Stats            domain.DashboardStats   `json:"stats"`
	Spaces           []domain.ParkingSpace   `json:"spaces"`
	RecentPayments   []domain.ActivityRecord `json:"recent_payments"`
	RecentBookings   []domain.ActivityRecord `json:"recent_bookings"`
	RecentAdmin      []domain.ActivityRecord `json:"recent_admin"`
	SessionStartedAt time.Time               `json:"session_started_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

type pendingTimer struct {
	timer *time.Timer
	seq   uint64
}

// SyncController giữ cache dashboard trong suốt phiên admin và đồng bộ nó với DB:
// sự kiện parking_spaces được vá trực tiếp, các bảng khác được gom (debounce) rồi tải lại.
type SyncController struct {
	spaces       repository.ParkingSpaceRepository
	projector    *ActivityProjector
	revenue      *RevenueService
	source       ChangeSource
	publisher    SnapshotPublisher
	debounce     map[string]time.Duration
	pollInterval time.Duration
	readTimeout  time.Duration
	now          func() time.Time

	mu           sync.Mutex
	baseCtx      context.Context
	adminActive  bool
	sessionStart time.Time
	visible      int
	subCancel    context.CancelFunc
	timers       map[string]pendingTimer
	timerSeq     uint64
	generation   uint64
	spaceList    []domain.ParkingSpace
	spacePatches uint64 // tăng mỗi lần sự kiện realtime sửa spaceList
	stats        domain.DashboardStats
	updatedAt    time.Time
}

type SyncOptions struct {
	Debounce     map[string]time.Duration
	PollInterval time.Duration
	ReadTimeout  time.Duration
}

func NewSyncController(
	spaces repository.ParkingSpaceRepository,
	projector *ActivityProjector,
	revenue *RevenueService,
	source ChangeSource,
	publisher SnapshotPublisher,
	opts SyncOptions,
) *SyncController {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 8 * time.Second
	}
	return &SyncController{
		spaces:       spaces,
		projector:    projector,
		revenue:      revenue,
		source:       source,
		publisher:    publisher,
		debounce:     opts.Debounce,
		pollInterval: opts.PollInterval,
		readTimeout:  opts.ReadTimeout,
		now:          time.Now,
		timers:       make(map[string]pendingTimer),
	}
}

// Run chạy vòng polling dự phòng cho tới khi ctx bị hủy.
func (c *SyncController) Run(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()
	c.evaluate()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.teardownLocked()
			c.mu.Unlock()
			log.Println("SyncController: đã dừng.")
			return
		case <-ticker.C:
			c.evaluate()
			c.mu.Lock()
			open := c.gateOpenLocked()
			gen, start := c.generation, c.sessionStart
			c.mu.Unlock()
			if open {
				c.refreshAll(gen, start)
			}
		}
	}
}

// StartAdminSession được gọi khi admin đăng nhập; start là mốc ưu tiên hoạt động.
func (c *SyncController) StartAdminSession(start time.Time) {
	c.mu.Lock()
	c.adminActive = true
	c.sessionStart = start.UTC()
	c.mu.Unlock()
	c.evaluate()
	c.RequestRefresh()
}

// EndAdminSession hủy đăng ký, hủy mọi timer đang chờ và xóa cache.
func (c *SyncController) EndAdminSession() {
	c.mu.Lock()
	c.adminActive = false
	c.sessionStart = time.Time{}
	c.teardownLocked()
	c.spaceList = nil
	c.stats = domain.DashboardStats{}
	c.updatedAt = time.Time{}
	c.mu.Unlock()
	c.projector.Reset()
}

// SetVisibleClients cập nhật số client dashboard đang hiển thị.
func (c *SyncController) SetVisibleClients(n int) {
	c.mu.Lock()
	c.visible = n
	c.mu.Unlock()
	c.evaluate()
}

// RequestRefresh tải lại toàn bộ cache ở nền.
func (c *SyncController) RequestRefresh() {
	c.mu.Lock()
	if !c.adminActive {
		c.mu.Unlock()
		return
	}
	gen, start := c.generation, c.sessionStart
	c.mu.Unlock()
	go c.refreshAll(gen, start)
}

func (c *SyncController) Snapshot() DashboardSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ViewAll trả về danh sách đầy đủ cho "xem tất cả": payments, bookings hoặc admin.
func (c *SyncController) ViewAll(kind string) ([]domain.ActivityRecord, bool) {
	current := c.projector.Current()
	switch kind {
	case "payments":
		return current.AllPayments, true
	case "bookings":
		return current.AllBookings, true
	case "admin":
		return current.AllAdmin, true
	}
	return nil, false
}

// Subscribed cho biết kênh realtime có đang mở không.
func (c *SyncController) Subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subCancel != nil
}

func (c *SyncController) gateOpenLocked() bool {
	return c.adminActive && c.visible > 0 && !c.sessionStart.IsZero()
}

// evaluate mở hoặc đóng kênh realtime theo điều kiện hiện tại.
func (c *SyncController) evaluate() {
	c.mu.Lock()
	open := c.gateOpenLocked()
	if !open {
		if c.subCancel != nil {
			c.teardownLocked()
			log.Println("SyncController: đã đóng kênh realtime.")
		}
		c.mu.Unlock()
		return
	}
	if c.subCancel != nil || c.source == nil {
		c.mu.Unlock()
		return
	}
	base := c.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	c.subCancel = cancel
	gen, start := c.generation, c.sessionStart
	c.mu.Unlock()

	events, err := c.source.Subscribe(ctx)
	if err != nil {
		log.Printf("SyncController: Lỗi khi mở kênh realtime, sẽ thử lại ở lượt polling sau: %v", err)
		cancel()
		c.mu.Lock()
		if c.generation == gen {
			c.subCancel = nil
		}
		c.mu.Unlock()
		return
	}
	log.Println("SyncController: đã mở kênh realtime.")
	go c.consume(gen, events)
	go c.refreshAll(gen, start)
}

func (c *SyncController) consume(gen uint64, events <-chan domain.ChangeEvent) {
	for ev := range events {
		c.handleEvent(gen, ev)
	}
}

func (c *SyncController) teardownLocked() {
	if c.subCancel != nil {
		c.subCancel()
		c.subCancel = nil
	}
	for table, p := range c.timers {
		p.timer.Stop()
		delete(c.timers, table)
	}
	c.generation++
}

func (c *SyncController) handleEvent(gen uint64, ev domain.ChangeEvent) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if ev.Table == domain.TableParkingSpaces {
		if !c.patchSpacesLocked(ev) {
			c.mu.Unlock()
			return
		}
		snapshot := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snapshot)
		return
	}
	c.armTimerLocked(ev.Table)
	c.mu.Unlock()
}

// armTimerLocked giữ tối đa một timer cho mỗi bảng; sự kiện mới đặt lại timer.
func (c *SyncController) armTimerLocked(table string) {
	delay, ok := c.debounce[table]
	if !ok {
		return
	}
	if p, exists := c.timers[table]; exists {
		p.timer.Stop()
	}
	c.timerSeq++
	seq, gen := c.timerSeq, c.generation
	c.timers[table] = pendingTimer{
		timer: time.AfterFunc(delay, func() { c.fire(gen, table, seq) }),
		seq:   seq,
	}
}

func (c *SyncController) fire(gen uint64, table string, seq uint64) {
	c.mu.Lock()
	if p, ok := c.timers[table]; ok && p.seq == seq {
		delete(c.timers, table)
	}
	if gen != c.generation || !c.gateOpenLocked() {
		c.mu.Unlock()
		return
	}
	start := c.sessionStart
	c.mu.Unlock()

	changed := c.refreshActivity(gen, start)
	if table == domain.TablePayments {
		changed = c.refreshRevenue(gen) || changed
	}
	if changed {
		c.publishIfCurrent(gen)
	}
}

func (c *SyncController) refreshAll(gen uint64, start time.Time) {
	spacesChanged := c.refreshSpaces(gen)
	activityChanged := c.refreshActivity(gen, start)
	revenueChanged := c.refreshRevenue(gen)
	if spacesChanged || activityChanged || revenueChanged {
		c.publishIfCurrent(gen)
	}
}

// refreshSpaces thay danh sách chỗ đỗ bằng kết quả đọc từ DB, trừ khi có sự kiện realtime
// đã sửa danh sách trong lúc đọc; khi đó kết quả đọc cũ hơn và bị bỏ, lượt polling sau sẽ đồng bộ lại.
func (c *SyncController) refreshSpaces(gen uint64) bool {
	c.mu.Lock()
	patches := c.spacePatches
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.context(), c.readTimeout)
	defer cancel()
	spaces, err := c.spaces.FindAll(ctx)
	if err != nil {
		log.Printf("SyncController: Lỗi khi tải danh sách chỗ đỗ: %v", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || !c.adminActive {
		return false
	}
	if c.spacePatches != patches {
		log.Println("SyncController: Bỏ danh sách chỗ đỗ vừa đọc vì đã có sự kiện realtime mới hơn.")
		return false
	}
	c.spaceList = spaces
	c.stats = domain.ComputeSpaceStats(spaces, c.stats)
	c.updatedAt = c.now().UTC()
	return true
}

func (c *SyncController) refreshActivity(gen uint64, start time.Time) bool {
	_, changed, err := c.projector.Project(c.context(), start)
	if err != nil {
		log.Printf("SyncController: Lỗi khi dựng hoạt động gần đây: %v", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return changed && gen == c.generation && c.adminActive
}

func (c *SyncController) refreshRevenue(gen uint64) bool {
	ctx := c.context()
	daily := c.revenue.Daily(ctx)
	total := c.revenue.Total(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || !c.adminActive {
		return false
	}
	if c.stats.DailyRevenue.Equal(daily) && c.stats.TotalRevenue.Equal(total) {
		return false
	}
	c.stats.DailyRevenue = daily
	c.stats.TotalRevenue = total
	c.updatedAt = c.now().UTC()
	return true
}

// patchSpacesLocked áp sự kiện parking_spaces vào danh sách trong bộ nhớ rồi tính lại thống kê.
func (c *SyncController) patchSpacesLocked(ev domain.ChangeEvent) bool {
	switch ev.Type {
	case domain.ChangeInsert, domain.ChangeUpdate:
		var space domain.ParkingSpace
		if err := json.Unmarshal(ev.New, &space); err != nil || space.ID == "" {
			log.Printf("SyncController: Bỏ qua sự kiện %s parking_spaces không đọc được: %v", ev.Type, err)
			return false
		}
		replaced := false
		for i := range c.spaceList {
			if c.spaceList[i].ID == space.ID {
				c.spaceList[i] = space
				replaced = true
				break
			}
		}
		if !replaced {
			c.spaceList = append(c.spaceList, space)
			sort.SliceStable(c.spaceList, func(i, j int) bool {
				return c.spaceList[i].SpaceNumber < c.spaceList[j].SpaceNumber
			})
		}
	case domain.ChangeDelete:
		var old struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Old, &old); err != nil || old.ID == "" {
			log.Printf("SyncController: Bỏ qua sự kiện DELETE parking_spaces không đọc được: %v", err)
			return false
		}
		kept := c.spaceList[:0]
		for _, s := range c.spaceList {
			if s.ID != old.ID {
				kept = append(kept, s)
			}
		}
		c.spaceList = kept
	default:
		return false
	}
	c.spacePatches++
	c.stats = domain.ComputeSpaceStats(c.spaceList, c.stats)
	c.updatedAt = c.now().UTC()
	return true
}

func (c *SyncController) snapshotLocked() DashboardSnapshot {
	current := c.projector.Current()
	return DashboardSnapshot{
		Type:             "dashboard",
		Stats:            c.stats,
		Spaces:           append([]domain.ParkingSpace(nil), c.spaceList...),
		RecentPayments:   current.RecentPayments,
		RecentBookings:   current.RecentBookings,
		RecentAdmin:      current.RecentAdmin,
		SessionStartedAt: c.sessionStart,
		UpdatedAt:        c.updatedAt,
	}
}

func (c *SyncController) publishIfCurrent(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || !c.adminActive {
		c.mu.Unlock()
		return
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snapshot)
}

func (c *SyncController) publish(snapshot DashboardSnapshot) {
	if c.publisher != nil {
		c.publisher.PublishSnapshot(snapshot)
	}
}

func (c *SyncController) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.baseCtx == nil {
		return context.Background()
	}
	return c.baseCtx
}
