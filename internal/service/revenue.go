package service

import (
	"context"
	"log"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/cache"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository"
	"github.com/shopspring/decimal"
)

// RevenueService tính doanh thu cho dashboard. Không bao giờ trả lỗi cho caller:
// doanh thu ngày lỗi thì về 0, doanh thu tổng lỗi thì dùng giá trị đã lưu lần trước.
type RevenueService struct {
	payments     repository.PaymentRepository
	store        cache.RevenueStore
	dailyTimeout time.Duration
	totalTimeout time.Duration
	now          func() time.Time
}

func NewRevenueService(payments repository.PaymentRepository, store cache.RevenueStore, dailyTimeout, totalTimeout time.Duration) *RevenueService {
	if store == nil {
		store = &cache.MemoryRevenueStore{}
	}
	return &RevenueService{
		payments:     payments,
		store:        store,
		dailyTimeout: dailyTimeout,
		totalTimeout: totalTimeout,
		now:          time.Now,
	}
}

// Daily cộng các thanh toán completed từ 0h UTC hôm nay.
func (s *RevenueService) Daily(ctx context.Context) decimal.Decimal {
	ctx, cancel := context.WithTimeout(ctx, s.dailyTimeout)
	defer cancel()

	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	daily, err := s.payments.SumCompletedSince(ctx, midnight)
	if err != nil {
		log.Printf("RevenueService: Lỗi khi tính doanh thu ngày, dùng 0: %v", err)
		return decimal.Zero
	}
	return daily
}

func (s *RevenueService) Total(ctx context.Context) decimal.Decimal {
	sumCtx, cancel := context.WithTimeout(ctx, s.totalTimeout)
	defer cancel()

	total, err := s.payments.SumCompleted(sumCtx)
	if err == nil {
		if storeErr := s.store.StoreTotal(ctx, total); storeErr != nil {
			log.Printf("RevenueService: Không lưu được doanh thu tổng: %v", storeErr)
		}
		return total
	}

	log.Printf("RevenueService: Lỗi khi tính doanh thu tổng, dùng giá trị trước: %v", err)
	prev, ok, loadErr := s.store.LoadTotal(ctx)
	if loadErr != nil {
		log.Printf("RevenueService: Không đọc được doanh thu tổng đã lưu: %v", loadErr)
		return decimal.Zero
	}
	if !ok {
		return decimal.Zero
	}
	return prev
}
