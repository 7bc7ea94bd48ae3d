package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunSweeper purges expired tasks every interval until ctx is done.
func RunSweeper(ctx context.Context, s Sweeper, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.PurgeExpired(ctx, now)
			if err != nil {
				logger.Error("purge expired tasks", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired tasks", zap.Int64("count", n))
			}
		}
	}
}
