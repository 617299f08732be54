package cache

import (
	"context"
	"fmt"

	"burnshare/pkg/config"

	"github.com/redis/go-redis/v9"
)

// New returns the configured stats cache and a function releasing it.
func New(ctx context.Context, conf config.Cache) (StatsCacheInterface, func() error, error) {
	switch conf.Driver {
	case "memory":
		return NewMemoryStatsCache(), func() error { return nil }, nil
	case "redis":
		opt, err := redis.ParseURL(conf.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewStatsCache(client), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported cache driver %q", conf.Driver)
}
