package queue

import (
	"context"
	"sync"
	"time"

	"github.com/wxsales/copilot/pkg/logging"
)

// staleProcessingAfter is how long a task may sit in PROCESSING before
// the janitor assumes its worker died and fails it.
const staleProcessingAfter = 10 * time.Minute

// Janitor periodically deletes COMPLETED/SENT tasks older than the
// retention window and fails tasks orphaned in PROCESSING.
type Janitor struct {
	store     Store
	retention time.Duration
	interval  time.Duration
	logger    *logging.Logger
	wg        sync.WaitGroup
}

// NewJanitor creates a janitor sweeping every interval.
func NewJanitor(store Store, retention, interval time.Duration, logger *logging.Logger) *Janitor {
	if store == nil {
		panic("queue: store is required")
	}
	if logger == nil {
		panic("queue: logger is required")
	}
	return &Janitor{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

// Start launches the sweep loop; cancel ctx to stop and Wait to join.
func (j *Janitor) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.sweep(ctx)
			}
		}
	}()
}

// Wait blocks until the sweep loop has exited.
func (j *Janitor) Wait() {
	j.wg.Wait()
}

func (j *Janitor) sweep(ctx context.Context) {
	stale, err := j.store.FailStale(ctx, time.Now().Add(-staleProcessingAfter))
	if err != nil {
		j.logger.Warn("stale task sweep failed", "error", err)
	} else if stale > 0 {
		j.logger.Warn("failed orphaned processing tasks", "count", stale)
	}

	cutoff := time.Now().Add(-j.retention)
	purged, err := j.store.PurgeFinished(ctx, cutoff)
	if err != nil {
		j.logger.Warn("task purge failed", "error", err)
		return
	}
	if purged > 0 {
		j.logger.Info("purged finished tasks", "count", purged, "cutoff", cutoff)
	}
}
