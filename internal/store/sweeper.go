package store

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often expired clips are purged.
const DefaultSweepInterval = 10 * time.Minute

// RunSweeper periodically deletes clips unused for longer than ttl. It blocks
// until ctx is canceled and then returns nil.
func RunSweeper(ctx context.Context, repo ClipRepository, ttl, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Clip sweeper started", "interval", interval, "ttl", ttl)
	for {
		select {
		case <-ticker.C:
			sweepExpiredClips(ctx, repo, ttl)
		case <-ctx.Done():
			slog.Info("Clip sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func sweepExpiredClips(ctx context.Context, repo ClipRepository, ttl time.Duration) {
	deleted, err := repo.DeleteExpiredClips(ctx, ttl)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Clip sweep interrupted by shutdown", "error", err)
			return
		}
		slog.Error("Clip sweeper failed to delete expired clips", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Clip sweeper removed expired clips", "count", deleted)
	}
}
