package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// availabilityTTL — время жизни кэшированного снимка доступности.
// Снимок короткоживущий: помимо явной инвалидации по событиям изменения
// бронирований, устаревшие ключи быстро вытесняются сами.
const availabilityTTL = 30 * time.Second

// AvailabilityCache кэширует снимки доступных слотов в Redis. Инвалидация
// реализована через счётчик версии стримера: изменение любого бронирования
// или расписания увеличивает версию, и старые ключи перестают читаться.
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache создаёт кэш доступности поверх Redis по указанному адресу.
func NewAvailabilityCache(addr string) (*AvailabilityCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &AvailabilityCache{client: client}, nil
}

// Close закрывает соединение с Redis.
func (c *AvailabilityCache) Close() error {
	return c.client.Close()
}

func (c *AvailabilityCache) version(ctx context.Context, streamerID int64) int64 {
	ver, err := c.client.Get(ctx, fmt.Sprintf("streamer_ver:%d", streamerID)).Int64()
	if err != nil {
		return 0
	}
	return ver
}

func (c *AvailabilityCache) slotsKey(ctx context.Context, streamerID int64, date string, from, to int) string {
	return fmt.Sprintf("slots:%d:%d:%s:%02d-%02d", streamerID, c.version(ctx, streamerID), date, from, to)
}

// Get возвращает кэшированный снимок доступных часов, если он есть.
func (c *AvailabilityCache) Get(ctx context.Context, streamerID int64, date string, from, to int) ([]string, bool) {
	raw, err := c.client.Get(ctx, c.slotsKey(ctx, streamerID, date, from, to)).Bytes()
	if err != nil {
		return nil, false
	}

	var hours []string
	if err := json.Unmarshal(raw, &hours); err != nil {
		return nil, false
	}

	return hours, true
}

// Set сохраняет снимок доступных часов.
func (c *AvailabilityCache) Set(ctx context.Context, streamerID int64, date string, from, to int, hours []string) {
	raw, err := json.Marshal(hours)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.slotsKey(ctx, streamerID, date, from, to), raw, availabilityTTL)
}

// Bump инвалидирует все снимки доступности стримера.
func (c *AvailabilityCache) Bump(ctx context.Context, streamerID int64) error {
	return c.client.Incr(ctx, fmt.Sprintf("streamer_ver:%d", streamerID)).Err()
}
