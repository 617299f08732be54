package storage

import (
	"context"
	"fmt"

	"burnshare/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects the configured backend and brings its schema up to date.
func Open(ctx context.Context, conf config.Database) (Storage, error) {
	var s Storage
	switch conf.Driver {
	case "memory":
		return NewMemoryStorage(), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, conf.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		s = NewPostgresStorage(pool)
	case "sqlite":
		db, err := OpenSQLite(conf.URL)
		if err != nil {
			return nil, err
		}
		s = db
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
