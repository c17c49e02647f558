// Package worker runs the engine's periodic jobs: expiry sweeping,
// consistency checking, and cold-storage archival.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// TradeSweeper cancels lapsed trades in batches.
type TradeSweeper interface {
	SweepExpired(ctx context.Context, batch int) (int, error)
}

// Sweeper ticks the trade sweeper at a fixed interval so pending trades
// whose window lapsed are cancelled even when no participant retries.
type Sweeper struct {
	trades   TradeSweeper
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(trades TradeSweeper, interval time.Duration, batch int, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		trades:   trades,
		interval: interval,
		batch:    batch,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sweeper started",
		slog.Duration("interval", s.interval),
		slog.Int("batch", s.batch),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			swept, err := s.trades.SweepExpired(ctx, s.batch)
			if err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", slog.String("error", err.Error()))
				continue
			}
			if swept > 0 {
				s.logger.InfoContext(ctx, "swept expired trades", slog.Int("count", swept))
			}
		}
	}
}
