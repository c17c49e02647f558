package worker

import (
	"context"
	"log/slog"
	"time"
)

// ArchiveRunner is the cold-storage surface the archival worker drives.
type ArchiveRunner interface {
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
	ArchiveAudit(ctx context.Context, before time.Time) (int64, error)
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// Archival periodically ships closed trades and audit history to object
// storage and prunes archives past retention.
type Archival struct {
	archiver  ArchiveRunner
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchival creates the archival worker. retentionDays <= 0 disables
// pruning.
func NewArchival(archiver ArchiveRunner, interval time.Duration, retentionDays int, logger *slog.Logger) *Archival {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	var retention time.Duration
	if retentionDays > 0 {
		retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return &Archival{
		archiver:  archiver,
		interval:  interval,
		retention: retention,
		logger:    logger.With(slog.String("component", "archival")),
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled, archiving once per interval.
func (a *Archival) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "archival started", slog.Duration("interval", a.interval))

	for {
		select {
		case <-ctx.Done():
			a.logger.InfoContext(ctx, "archival stopped")
			return ctx.Err()
		case <-ticker.C:
			a.runOnce(ctx)
		}
	}
}

func (a *Archival) runOnce(ctx context.Context) {
	cutoff := a.now().UTC().Add(-a.interval)

	trades, err := a.archiver.ArchiveTrades(ctx, cutoff)
	if err != nil {
		a.logger.ErrorContext(ctx, "trade archive failed", slog.String("error", err.Error()))
	} else if trades > 0 {
		a.logger.InfoContext(ctx, "archived trades", slog.Int64("count", trades))
	}

	entries, err := a.archiver.ArchiveAudit(ctx, cutoff)
	if err != nil {
		a.logger.ErrorContext(ctx, "audit archive failed", slog.String("error", err.Error()))
	} else if entries > 0 {
		a.logger.InfoContext(ctx, "archived audit entries", slog.Int64("count", entries))
	}

	if a.retention > 0 {
		pruned, err := a.archiver.Prune(ctx, a.now().UTC().Add(-a.retention))
		if err != nil {
			a.logger.ErrorContext(ctx, "archive prune failed", slog.String("error", err.Error()))
		} else if pruned > 0 {
			a.logger.InfoContext(ctx, "pruned archives", slog.Int("count", pruned))
		}
	}
}
