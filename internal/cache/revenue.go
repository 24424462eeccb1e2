package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const totalRevenueKey = "dashboard:total_revenue"

// RevenueStore giữ giá trị doanh thu tổng lần tính thành công gần nhất.
type RevenueStore interface {
	LoadTotal(ctx context.Context) (decimal.Decimal, bool, error)
	StoreTotal(ctx context.Context, total decimal.Decimal) error
}

// NewRevenueStore chọn Redis nếu có client, ngược lại dùng bộ nhớ.
func NewRevenueStore(client *redis.Client) RevenueStore {
	if client == nil {
		return &MemoryRevenueStore{}
	}
	return &RedisRevenueStore{client: client}
}

type RedisRevenueStore struct {
	client *redis.Client
}

func (s *RedisRevenueStore) LoadTotal(ctx context.Context) (decimal.Decimal, bool, error) {
	raw, err := s.client.Get(ctx, totalRevenueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("RedisRevenueStore.LoadTotal: %w", err)
	}
	total, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("RedisRevenueStore.LoadTotal (parse '%s'): %w", raw, err)
	}
	return total, true, nil
}

func (s *RedisRevenueStore) StoreTotal(ctx context.Context, total decimal.Decimal) error {
	if err := s.client.Set(ctx, totalRevenueKey, total.String(), 0).Err(); err != nil {
		return fmt.Errorf("RedisRevenueStore.StoreTotal: %w", err)
	}
	return nil
}

type MemoryRevenueStore struct {
	mu    sync.Mutex
	total decimal.Decimal
	set   bool
}

func (s *MemoryRevenueStore) LoadTotal(ctx context.Context) (decimal.Decimal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.set, nil
}

func (s *MemoryRevenueStore) StoreTotal(ctx context.Context, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
	s.set = true
	return nil
}
