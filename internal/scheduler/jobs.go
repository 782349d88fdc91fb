package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type exportCleaner interface {
	Cleanup(maxAge time.Duration) (int, error)
}

type sessionPruner interface {
	PruneIdle(ttl time.Duration) int
}

type historyPruner interface {
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

// ExportCleanupJob removes exported files older than maxAge
func ExportCleanupJob(schedule string, e exportCleaner, maxAge time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "export-cleanup",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := e.Cleanup(maxAge)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("Removed old exports", zap.Int("count", n))
			}
			return nil
		},
	}
}

// SessionPruneJob forgets sessions idle for longer than ttl
func SessionPruneJob(schedule string, p sessionPruner, ttl time.Duration) Job {
	return Job{
		Name:     "session-prune",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			p.PruneIdle(ttl)
			return nil
		},
	}
}

// HistoryPruneJob deletes submission history older than retention
func HistoryPruneJob(schedule string, p historyPruner, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "history-prune",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := p.PruneBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("Pruned submission history", zap.Int64("rows", n))
			}
			return nil
		},
	}
}
