package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage keeps shares and reviews in process. It is used for local
// development and as the fake behind service and handler tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	shares  map[string]*Share
	reviews []*Review
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{shares: make(map[string]*Share)}
}

func (m *MemoryStorage) Migrate(ctx context.Context) error { return nil }

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) InsertShare(ctx context.Context, share *Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.shares {
		if existing.Accessed {
			continue
		}
		if existing.Passcode == share.Passcode || existing.Slug == share.Slug {
			return ErrConflict
		}
	}
	if share.FileKey != nil {
		for _, existing := range m.shares {
			if existing.FileKey != nil && *existing.FileKey == *share.FileKey {
				return ErrConflict
			}
		}
	}

	stored := *share
	m.shares[share.ID] = &stored
	return nil
}

func (m *MemoryStorage) find(match func(*Share) bool) *Share {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, share := range m.shares {
		if match(share) {
			found := *share
			return &found
		}
	}
	return nil
}

func (m *MemoryStorage) FindLiveByPasscode(ctx context.Context, passcode string) (*Share, error) {
	return m.find(func(s *Share) bool { return !s.Accessed && s.Passcode == passcode }), nil
}

func (m *MemoryStorage) FindLiveBySlug(ctx context.Context, slug string) (*Share, error) {
	return m.find(func(s *Share) bool { return !s.Accessed && s.Slug == slug }), nil
}

func (m *MemoryStorage) FindByFileKey(ctx context.Context, key string) (*Share, error) {
	return m.find(func(s *Share) bool { return s.FileKey != nil && *s.FileKey == key }), nil
}

func (m *MemoryStorage) ClaimShare(ctx context.Context, id string, notAfter time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	share, ok := m.shares[id]
	if !ok || share.Accessed {
		return false, nil
	}
	share.Accessed = true
	if notAfter.Before(share.ExpiresAt) {
		share.ExpiresAt = notAfter
	}
	return true, nil
}

func (m *MemoryStorage) DeleteShare(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.shares, id)
	return nil
}

func (m *MemoryStorage) ListExpired(ctx context.Context, now time.Time) ([]*Share, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []*Share
	for _, share := range m.shares {
		if share.ExpiresAt.Before(now) {
			found := *share
			expired = append(expired, &found)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	return expired, nil
}

// Len reports the number of stored share rows, live or claimed.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shares)
}

func (m *MemoryStorage) CreateReview(ctx context.Context, review *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *review
	m.reviews = append(m.reviews, &stored)
	return nil
}

func (m *MemoryStorage) ListReviews(ctx context.Context, filter ReviewFilter) ([]*Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// newest first; insertion order breaks ties
	matched := make([]*Review, 0, len(m.reviews))
	for i := len(m.reviews) - 1; i >= 0; i-- {
		review := m.reviews[i]
		if filter.Rating != nil && review.Rating != *filter.Rating {
			continue
		}
		matched = append(matched, review)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []*Review{}, nil
	}
	end := len(matched)
	if filter.Limit >= 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}

	page := make([]*Review, 0, end-filter.Offset)
	for _, review := range matched[filter.Offset:end] {
		copied := *review
		page = append(page, &copied)
	}
	return page, nil
}

func (m *MemoryStorage) ReviewStats(ctx context.Context) (*ReviewStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := NewReviewStats()
	var sum int64
	for _, review := range m.reviews {
		stats.Total++
		sum += int64(review.Rating)
		stats.Distribution[review.Rating]++
	}
	if stats.Total > 0 {
		stats.Average = roundAverage(float64(sum) / float64(stats.Total))
	}
	return stats, nil
}
