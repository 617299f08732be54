package service

import (
	"context"
	"fmt"
	"time"

	"burnshare/pkg/logging"
	"burnshare/pkg/metrics"
)

// Sweep destroys every share past its expiry, claimed or not. One failing
// row does not stop the others; the error return is reserved for the
// listing itself.
func (s *ShareService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.shares.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%w: list expired: %w", ErrStorage, err)
	}

	removed, failed := 0, 0
	for _, share := range expired {
		if IsLive(share, now) {
			continue
		}
		if err := s.destroy(ctx, share); err != nil {
			failed++
			s.logger.Warn(ctx, "sweep delete failed", "error", err)
			continue
		}
		removed++
	}

	metrics.SweepRemoved.Add(float64(removed))
	s.logger.LogSweep(ctx, removed, failed)
	return removed, nil
}

// Sweeper runs Sweep immediately and then on every tick until ctx ends.
type Sweeper struct {
	shares   *ShareService
	interval time.Duration
	logger   *logging.Logger
}

func NewSweeper(shares *ShareService, interval time.Duration, logger *logging.Logger) *Sweeper {
	return &Sweeper{shares: shares, interval: interval, logger: logger}
}

func (w *Sweeper) Run(ctx context.Context) {
	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *Sweeper) RunOnce(ctx context.Context) int {
	ctx = logging.WithCorrelationID(ctx)
	removed, err := w.shares.Sweep(ctx)
	if err != nil {
		w.logger.Error(ctx, "sweep failed", "error", err)
	}
	return removed
}
