package cache

import (
	"context"
	"time"

	"burnshare/pkg/storage"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStatsCache is the single-process alternative to StatsCache.
type MemoryStatsCache struct {
	store *gocache.Cache
}

func NewMemoryStatsCache() *MemoryStatsCache {
	return &MemoryStatsCache{store: gocache.New(5*time.Minute, 10*time.Minute)}
}

func (c *MemoryStatsCache) Get(ctx context.Context) (*storage.ReviewStats, error) {
	value, ok := c.store.Get(statsKey)
	if !ok {
		return nil, nil
	}
	stats := *value.(*storage.ReviewStats)
	return &stats, nil
}

func (c *MemoryStatsCache) Set(ctx context.Context, stats *storage.ReviewStats, ttl time.Duration) error {
	copied := *stats
	c.store.Set(statsKey, &copied, ttl)
	return nil
}

func (c *MemoryStatsCache) Invalidate(ctx context.Context) error {
	c.store.Delete(statsKey)
	return nil
}
