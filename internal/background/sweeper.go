package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/palisadehq/palisade/internal/services"
)

// CacheSweeper periodically removes expired entries from the ban status
// cache. The cache already sweeps opportunistically when it hits its size
// bound; this keeps memory flat on quiet instances that never hit the
// bound. Ban expiry itself stays lazy and is handled at read/write time.
type CacheSweeper struct {
	cache    *services.BanStatusCache
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCacheSweeper creates a new cache sweeper
func NewCacheSweeper(cache *services.BanStatusCache, logger *slog.Logger, interval time.Duration) *CacheSweeper {
	return &CacheSweeper{
		cache:    cache,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (cs *CacheSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := cs.cache.Sweep()
			if removed > 0 {
				cs.logger.Info("ban cache sweep completed",
					slog.Int("entries_removed", removed),
					slog.Int("entries_remaining", cs.cache.Len()))
			}
		case <-cs.stopCh:
			cs.logger.Info("cache sweeper stopped")
			return
		case <-ctx.Done():
			cs.logger.Info("cache sweeper context cancelled")
			return
		}
	}
}

// Stop signals the sweeper to stop
func (cs *CacheSweeper) Stop() {
	close(cs.stopCh)
}
