package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/service"
)

// ConsistencyChecker is the scan the reconciliation worker drives.
type ConsistencyChecker interface {
	CheckConsistency(ctx context.Context, opts domain.ListOpts) ([]service.ConsistencyIssue, error)
}

// Reconciler periodically scans for review/payment state violations. The
// scan alerts operators on every finding; this loop only schedules it.
type Reconciler struct {
	checker  ConsistencyChecker
	interval time.Duration
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(checker ConsistencyChecker, interval time.Duration, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Reconciler{
		checker:  checker,
		interval: interval,
		logger:   logger.With(slog.String("component", "reconciler")),
	}
}

// Run blocks until ctx is cancelled, scanning once per interval.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "reconciler started", slog.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "reconciler stopped")
			return ctx.Err()
		case <-ticker.C:
			issues, err := r.checker.CheckConsistency(ctx, domain.ListOpts{Limit: 500})
			if err != nil {
				r.logger.ErrorContext(ctx, "consistency scan failed", slog.String("error", err.Error()))
				continue
			}
			if len(issues) > 0 {
				r.logger.WarnContext(ctx, "consistency violations found", slog.Int("count", len(issues)))
			}
		}
	}
}
