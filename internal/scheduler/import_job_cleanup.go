package scheduler

import (
	"context"
	"time"

	"leadboard_backend/platform/logger"
)

const (
	defaultImportJobCleanupInterval = time.Hour
	defaultImportJobRetention       = 30 * 24 * time.Hour

	// staleImportAfter is how long a processing job may go without a write.
	// Anything older outlived the task timeout.
	staleImportAfter = importJobTimeout + 5*time.Minute
)

// ImportJobMaintainer is the import housekeeping run by the cleanup loop.
type ImportJobMaintainer interface {
	CleanupFinished(ctx context.Context, before time.Time) (int, error)
	FailStaleJobs(ctx context.Context, before time.Time) (int, error)
	CleanupExpiredPreviews(ctx context.Context) (int, error)
}

// ImportJobCleanup periodically fails abandoned import jobs, removes finished
// jobs past retention and deletes expired preview files.
type ImportJobCleanup struct {
	cleaner   ImportJobMaintainer
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewImportJobCleanup(cleaner ImportJobMaintainer, log *logger.Logger, interval, retention time.Duration) *ImportJobCleanup {
	if interval <= 0 {
		interval = defaultImportJobCleanupInterval
	}
	if retention <= 0 {
		retention = defaultImportJobRetention
	}

	return &ImportJobCleanup{
		cleaner:   cleaner,
		log:       log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

func (c *ImportJobCleanup) Run(ctx context.Context) {
	if c == nil || c.cleaner == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *ImportJobCleanup) cleanup(ctx context.Context) {
	now := c.now()

	if failed, err := c.cleaner.FailStaleJobs(ctx, now.Add(-staleImportAfter)); err != nil {
		c.log.Warn("stale import job sweep failed", "error", err)
	} else if failed > 0 {
		c.log.Warn("import job cleanup failed abandoned jobs", "failed", failed)
	}

	if deleted, err := c.cleaner.CleanupFinished(ctx, now.Add(-c.retention)); err != nil {
		c.log.Warn("import job cleanup failed", "error", err)
	} else if deleted > 0 {
		c.log.Info("import job cleanup deleted finished jobs", "deleted", deleted)
	}

	if removed, err := c.cleaner.CleanupExpiredPreviews(ctx); err != nil {
		c.log.Warn("expired preview cleanup failed", "error", err)
	} else if removed > 0 {
		c.log.Info("import job cleanup deleted expired preview files", "deleted", removed)
	}
}
