package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"burnshare/pkg/cache"
	"burnshare/pkg/logging"
	"burnshare/pkg/security"
	"burnshare/pkg/storage"

	"github.com/google/uuid"
)

const (
	DefaultReviewLimit = 20
	MaxReviewLimit     = 100
)

type ReviewService struct {
	reviews  storage.ReviewStorage
	cache    cache.StatsCacheInterface
	hasher   *security.IPHasher
	logger   *logging.Logger
	statsTTL time.Duration
	now      func() time.Time
}

func NewReviewService(reviews storage.ReviewStorage, statsCache cache.StatsCacheInterface, hasher *security.IPHasher, logger *logging.Logger, statsTTL time.Duration) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		cache:    statsCache,
		hasher:   hasher,
		logger:   logger,
		statsTTL: statsTTL,
		now:      time.Now,
	}
}

type CreateReviewRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type ReviewPage struct {
	Reviews    []*storage.Review `json:"reviews"`
	Pagination Pagination        `json:"pagination"`
}

func (s *ReviewService) Create(ctx context.Context, req *CreateReviewRequest, clientIP string) (*storage.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, &ValidationError{Err: ErrInvalidRating}
	}

	var comment *string
	if req.Comment != nil {
		if trimmed := strings.TrimSpace(*req.Comment); trimmed != "" {
			comment = &trimmed
		}
	}

	review := &storage.Review{
		ID:        uuid.New().String(),
		Rating:    req.Rating,
		Comment:   comment,
		IPHash:    s.hasher.Hash(clientIP),
		CreatedAt: s.now().UTC(),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("%w: create review: %w", ErrStorage, err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn(ctx, "stats cache invalidate failed", "error", err)
	}
	return review, nil
}

// List clamps the page to [1, MaxReviewLimit] rows and a non-negative
// offset; a zero or negative limit means the default.
func (s *ReviewService) List(ctx context.Context, limit, offset int, rating *int) (*ReviewPage, error) {
	if limit <= 0 {
		limit = DefaultReviewLimit
	}
	limit = min(limit, MaxReviewLimit)
	offset = max(offset, 0)

	reviews, err := s.reviews.ListReviews(ctx, storage.ReviewFilter{Limit: limit, Offset: offset, Rating: rating})
	if err != nil {
		return nil, fmt.Errorf("%w: list reviews: %w", ErrStorage, err)
	}
	return &ReviewPage{
		Reviews:    reviews,
		Pagination: Pagination{Limit: limit, Offset: offset},
	}, nil
}

// Stats serves the aggregate from cache when it can. Cache errors only cost
// a direct query.
func (s *ReviewService) Stats(ctx context.Context) (*storage.ReviewStats, error) {
	cached, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn(ctx, "stats cache read failed", "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	stats, err := s.reviews.ReviewStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: review stats: %w", ErrStorage, err)
	}
	if err := s.cache.Set(ctx, stats, s.statsTTL); err != nil {
		s.logger.Warn(ctx, "stats cache write failed", "error", err)
	}
	return stats, nil
}
