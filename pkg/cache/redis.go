package cache

import (
	"context"
	"encoding/json"
	"time"

	"burnshare/pkg/storage"

	"github.com/redis/go-redis/v9"
)

const statsKey = "review_stats"

// StatsCacheInterface caches the aggregated review stats. A miss is
// (nil, nil); stale reads are acceptable.
type StatsCacheInterface interface {
	Get(ctx context.Context) (*storage.ReviewStats, error)
	Set(ctx context.Context, stats *storage.ReviewStats, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type StatsCache struct {
	client *redis.Client
}

func NewStatsCache(client *redis.Client) *StatsCache {
	return &StatsCache{client: client}
}

func (c *StatsCache) Get(ctx context.Context) (*storage.ReviewStats, error) {
	val, err := c.client.Get(ctx, statsKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stats storage.ReviewStats
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *StatsCache) Set(ctx context.Context, stats *storage.ReviewStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, data, ttl).Err()
}

func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, statsKey).Err()
}
