package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"golang.org/x/sync/errgroup"
)

const RecentLimit = 4

// Projection gồm ba danh sách "gần đây" (tối đa 4) và ba danh sách "xem tất cả".
type Projection struct {
	RecentPayments []domain.ActivityRecord `json:"recent_payments"`
	RecentBookings []domain.ActivityRecord `json:"recent_bookings"`
	RecentAdmin    []domain.ActivityRecord `json:"recent_admin"`
	AllPayments    []domain.ActivityRecord `json:"-"`
	AllBookings    []domain.ActivityRecord `json:"-"`
	AllAdmin       []domain.ActivityRecord `json:"-"`
}

type ActivityProjector struct {
	payments repository.PaymentRepository
	userLog  repository.ActivityRepository
	adminLog repository.ActivityRepository
	profiles repository.ProfileRepository
	fetchCap int
	window   time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	inFlight bool
	lastRun  time.Time
	current  Projection
	// epoch tăng mỗi lần Reset; kết quả của lượt bắt đầu trước đó bị bỏ.
	epoch uint64
}

func NewActivityProjector(payments repository.PaymentRepository, userLog, adminLog repository.ActivityRepository,
	fetchCap int, window, timeout time.Duration) *ActivityProjector {
	if fetchCap <= 0 {
		fetchCap = 50
	}
	return &ActivityProjector{
		payments: payments,
		userLog:  userLog,
		adminLog: adminLog,
		fetchCap: fetchCap,
		window:   window,
		timeout:  timeout,
		now:      time.Now,
	}
}

// SetProfiles bật hiển thị tên người trả tiền trong bản ghi thanh toán.
func (p *ActivityProjector) SetProfiles(profiles repository.ProfileRepository) {
	p.profiles = profiles
}

// Project dựng lại ba danh sách. Trả về changed=false khi bị throttle, khi đang có lượt khác chạy,
// hoặc khi dữ liệu mới giống hệt dữ liệu cũ theo (id, time).
func (p *ActivityProjector) Project(ctx context.Context, sessionStart time.Time) (Projection, bool, error) {
	p.mu.Lock()
	now := p.now()
	if p.inFlight || (!p.lastRun.IsZero() && now.Sub(p.lastRun) < p.window) {
		current := p.current
		p.mu.Unlock()
		return current, false, nil
	}
	p.inFlight = true
	p.lastRun = now
	epoch := p.epoch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.epoch == epoch {
			p.inFlight = false
		}
		p.mu.Unlock()
	}()

	next, err := p.fetch(ctx, sessionStart)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch {
		return p.current, false, nil
	}
	if err != nil {
		log.Printf("ActivityProjector: Lỗi khi tải hoạt động, xóa danh sách gần đây: %v", err)
		changed := len(p.current.RecentPayments) > 0 || len(p.current.RecentBookings) > 0 || len(p.current.RecentAdmin) > 0
		p.current.RecentPayments = nil
		p.current.RecentBookings = nil
		p.current.RecentAdmin = nil
		return p.current, changed, err
	}

	changed := false
	commit := func(dst *[]domain.ActivityRecord, src []domain.ActivityRecord) {
		if !SameRecords(*dst, src) {
			*dst = src
			changed = true
		}
	}
	commit(&p.current.RecentPayments, next.RecentPayments)
	commit(&p.current.RecentBookings, next.RecentBookings)
	commit(&p.current.RecentAdmin, next.RecentAdmin)
	commit(&p.current.AllPayments, next.AllPayments)
	commit(&p.current.AllBookings, next.AllBookings)
	commit(&p.current.AllAdmin, next.AllAdmin)
	return p.current, changed, nil
}

// Current trả về kết quả đã commit gần nhất.
func (p *ActivityProjector) Current() Projection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Reset xóa cache khi phiên admin kết thúc. Lượt Project đang chạy dở sẽ không được commit
// và không chặn lượt mới.
func (p *ActivityProjector) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	p.inFlight = false
	p.current = Projection{}
	p.lastRun = time.Time{}
}

func (p *ActivityProjector) fetch(ctx context.Context, sessionStart time.Time) (Projection, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var payments []domain.Payment
	var bookings, admin []domain.ActivityLog
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookings, err = p.userLog.ListRecent(gctx, domain.ActivityBooking.String(), p.fetchCap)
		if err != nil {
			return fmt.Errorf("bookings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		payments, err = p.payments.ListRecent(gctx, p.fetchCap)
		if err != nil {
			return fmt.Errorf("payments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		admin, err = p.adminLog.ListRecent(gctx, "", p.fetchCap)
		if err != nil {
			return fmt.Errorf("admin activities: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Projection{}, err
	}

	names := p.payerNames(ctx, payments)
	paymentRecords := make([]domain.ActivityRecord, 0, len(payments))
	for _, pay := range payments {
		rec := domain.FormatPayment(pay)
		if name, ok := names[pay.UserID]; ok {
			rec = domain.WithPayer(rec, name)
		}
		paymentRecords = append(paymentRecords, rec)
	}
	bookingRecords := make([]domain.ActivityRecord, 0, len(bookings))
	for _, b := range bookings {
		bookingRecords = append(bookingRecords, domain.FormatBooking(b))
	}
	adminRecords := make([]domain.ActivityRecord, 0, len(admin))
	for _, a := range admin {
		adminRecords = append(adminRecords, domain.FormatAdmin(a))
	}

	// Thanh toán không ưu tiên theo phiên admin.
	SortByTimeDesc(paymentRecords)
	SortByTimeDesc(bookingRecords)
	SortByTimeDesc(adminRecords)
	bookingRecords = Prioritize(bookingRecords, sessionStart)
	adminRecords = Prioritize(adminRecords, sessionStart)

	return Projection{
		RecentPayments: head(paymentRecords, RecentLimit),
		RecentBookings: head(bookingRecords, RecentLimit),
		RecentAdmin:    head(adminRecords, RecentLimit),
		AllPayments:    paymentRecords,
		AllBookings:    bookingRecords,
		AllAdmin:       adminRecords,
	}, nil
}

// payerNames tra tên theo profiles.id; lỗi tra cứu thì dùng ID rút gọn.
func (p *ActivityProjector) payerNames(ctx context.Context, payments []domain.Payment) map[string]string {
	names := make(map[string]string)
	if p.profiles == nil {
		return names
	}
	for _, pay := range payments {
		if pay.UserID == "" {
			continue
		}
		if _, seen := names[pay.UserID]; seen {
			continue
		}
		profile, err := p.profiles.FindByID(ctx, pay.UserID)
		if err != nil {
			log.Printf("ActivityProjector: Không tra được tên người dùng %s: %v", pay.UserID, err)
			names[pay.UserID] = domain.ShortID(pay.UserID)
			continue
		}
		names[pay.UserID] = profile.DisplayName()
	}
	return names
}

// SortByTimeDesc sắp xếp mới nhất trước; cùng thời điểm thì theo ID để kết quả ổn định.
func SortByTimeDesc(records []domain.ActivityRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Time.Equal(records[j].Time) {
			return records[i].Time.After(records[j].Time)
		}
		return records[i].ID < records[j].ID
	})
}

// Prioritize đưa các bản ghi có time >= threshold lên trước, giữ nguyên thứ tự trong mỗi nhóm.
// threshold rỗng thì trả về bản sao không đổi.
func Prioritize(records []domain.ActivityRecord, threshold time.Time) []domain.ActivityRecord {
	out := make([]domain.ActivityRecord, 0, len(records))
	if threshold.IsZero() {
		return append(out, records...)
	}
	var older []domain.ActivityRecord
	for _, rec := range records {
		if !rec.Time.Before(threshold) {
			out = append(out, rec)
		} else {
			older = append(older, rec)
		}
	}
	return append(out, older...)
}

// SameRecords so sánh hai danh sách theo từng phần tử (id, time).
func SameRecords(a, b []domain.ActivityRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Time.Equal(b[i].Time) {
			return false
		}
	}
	return true
}

func head(records []domain.ActivityRecord, n int) []domain.ActivityRecord {
	if len(records) <= n {
		return append([]domain.ActivityRecord(nil), records...)
	}
	return append([]domain.ActivityRecord(nil), records[:n]...)
}
