package reply

import (
	"context"
	"sync"
	"time"

	"github.com/wxsales/copilot/internal/observability/metrics"
	"github.com/wxsales/copilot/internal/profile"
	"github.com/wxsales/copilot/internal/queue"
	"github.com/wxsales/copilot/pkg/logging"
)

const claimBatchSize = 5

// ActiveProfileSource yields the currently active expert profile.
type ActiveProfileSource interface {
	GetActive(ctx context.Context) (*profile.Profile, error)
}

// Worker polls the task queue and drives generation for each claimed
// task.
type Worker struct {
	store     queue.Store
	generator *Generator
	profiles  ActiveProfileSource
	history   *HistoryStore
	logger    *logging.Logger
	metrics   *metrics.PipelineMetrics
	interval  time.Duration
	wg        sync.WaitGroup
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

// WithPollInterval overrides the queue polling interval.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.interval = d }
}

// WithHistoryStore attaches the Redis transcript store.
func WithHistoryStore(h *HistoryStore) WorkerOption {
	return func(w *Worker) { w.history = h }
}

// WithWorkerMetrics attaches pipeline metrics.
func WithWorkerMetrics(m *metrics.PipelineMetrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates a queue worker.
func NewWorker(store queue.Store, generator *Generator, profiles ActiveProfileSource, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if store == nil {
		panic("reply: queue store is required")
	}
	if generator == nil {
		panic("reply: generator is required")
	}
	if profiles == nil {
		panic("reply: profile source is required")
	}
	if logger == nil {
		panic("reply: logger is required")
	}
	w := &Worker{
		store:     store,
		generator: generator,
		profiles:  profiles,
		logger:    logger,
		interval:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker loop; cancel ctx to stop and Wait to join.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("worker stopping")
				return
			case <-ticker.C:
				w.tick(ctx)
			}
		}
	}()
}

// Wait blocks until the worker loop has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) tick(ctx context.Context) {
	prof, err := w.profiles.GetActive(ctx)
	if err != nil {
		w.logger.Warn("active profile lookup failed", "error", err)
		return
	}
	if prof == nil {
		// Nothing to generate against; leave tasks PENDING.
		return
	}

	tasks, err := w.store.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		w.logger.Warn("claim pending failed", "error", err)
		return
	}
	for _, task := range tasks {
		w.process(ctx, task, prof)
	}
}

func (w *Worker) process(ctx context.Context, task queue.Task, prof *profile.Profile) {
	var history []Message
	if w.history != nil {
		var err error
		history, err = w.history.Load(ctx, task.SessionID, 50)
		if err != nil {
			w.logger.Warn("history load failed", "session_id", task.SessionID, "error", err)
		}
	}

	result, err := w.generator.Generate(ctx, task.SessionID, task.RawMessage, prof, history)
	if err != nil {
		w.metrics.ObserveTask(string(queue.StatusFailed))
		w.logger.Error("generation failed", "task_id", task.ID, "error", err)
		if failErr := w.store.Fail(ctx, task.ID, err.Error()); failErr != nil {
			w.logger.Error("task fail update failed", "task_id", task.ID, "error", failErr)
		}
		return
	}

	err = w.store.Complete(ctx, task.ID, queue.ReplyOptions{
		Aggressive:   result.Aggressive,
		Conservative: result.Conservative,
		Professional: result.Professional,
	})
	if err != nil {
		w.logger.Error("task complete update failed", "task_id", task.ID, "error", err)
		return
	}
	w.metrics.ObserveTask(string(queue.StatusCompleted))

	if w.history != nil {
		err = w.history.Append(ctx, task.SessionID, Message{
			Role:      RoleCustomer,
			Content:   task.RawMessage,
			Timestamp: task.CreatedAt,
		})
		if err != nil {
			w.logger.Warn("history append failed", "session_id", task.SessionID, "error", err)
		}
	}

	w.logger.Info("task completed",
		"task_id", task.ID,
		"session_id", task.SessionID,
		"tokens", result.TokensUsed,
		"cost", result.Cost)
}
