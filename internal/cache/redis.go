package cache

import (
	"context"
	"log"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient trả về nil khi chưa cấu hình REDIS_ADDR hoặc không ping được;
// khi đó doanh thu tổng được giữ trong bộ nhớ.
func NewRedisClient(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Cảnh báo: Không kết nối được Redis tại %s: %v", cfg.RedisAddr, err)
		client.Close()
		return nil
	}
	return client
}
