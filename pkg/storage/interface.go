package storage

import (
	"context"
	"errors"
	"time"
)

// ErrConflict is returned by InsertShare when the passcode or slug is
// already held by a live share.
var ErrConflict = errors.New("share credential already in use")

// ShareStorage finders return (nil, nil) when nothing matches.
type ShareStorage interface {
	InsertShare(ctx context.Context, share *Share) error
	FindLiveByPasscode(ctx context.Context, passcode string) (*Share, error)
	FindLiveBySlug(ctx context.Context, slug string) (*Share, error)
	FindByFileKey(ctx context.Context, key string) (*Share, error)
	// ClaimShare flips accessed from false to true and caps expires_at at
	// notAfter. It reports false when another caller claimed the row first.
	ClaimShare(ctx context.Context, id string, notAfter time.Time) (bool, error)
	DeleteShare(ctx context.Context, id string) error
	ListExpired(ctx context.Context, now time.Time) ([]*Share, error)
}

type ReviewStorage interface {
	CreateReview(ctx context.Context, review *Review) error
	ListReviews(ctx context.Context, filter ReviewFilter) ([]*Review, error)
	ReviewStats(ctx context.Context) (*ReviewStats, error)
}

type Storage interface {
	ShareStorage
	ReviewStorage
	Migrate(ctx context.Context) error
	Close() error
}
