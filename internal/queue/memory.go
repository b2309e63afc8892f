package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]*Task
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory queue.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

func (s *MemoryStore) Enqueue(ctx context.Context, sessionID, customerName, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	task := &Task{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		CustomerName: customerName,
		RawMessage:   body,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.tasks[task.ID] = task
	return task.ID, nil
}

func (s *MemoryStore) ClaimPending(ctx context.Context, limit int) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make([]*Task, 0)
	for _, t := range s.tasks {
		if t.Status == StatusPending {
			pending = append(pending, t)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	claimed := make([]Task, 0, len(pending))
	for _, t := range pending {
		t.Status = StatusProcessing
		t.UpdatedAt = s.now()
		claimed = append(claimed, *t)
	}
	return claimed, nil
}

func (s *MemoryStore) Complete(ctx context.Context, taskID string, opts ReplyOptions) error {
	return s.transition(taskID, StatusCompleted, func(t *Task) {
		o := opts
		t.ReplyOptions = &o
		t.ErrorMessage = ""
	})
}

func (s *MemoryStore) Fail(ctx context.Context, taskID string, message string) error {
	return s.transition(taskID, StatusFailed, func(t *Task) {
		t.ErrorMessage = message
	})
}

func (s *MemoryStore) MarkSent(ctx context.Context, taskID string) error {
	return s.transition(taskID, StatusSent, nil)
}

// transition applies a forward state change. A missing task is a no-op:
// completing a task the janitor already purged must not fail the worker.
func (s *MemoryStore) transition(taskID string, to Status, mutate func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	if !canTransition(t.Status, to) {
		return ErrInvalidTransition
	}
	t.Status = to
	t.UpdatedAt = s.now()
	if mutate != nil {
		mutate(t)
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, taskID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (s *MemoryStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0)
	for _, t := range s.tasks {
		if t.SessionID == sessionID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) FailStale(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed int64
	for _, t := range s.tasks {
		if t.Status == StatusProcessing && t.UpdatedAt.Before(olderThan) {
			t.Status = StatusFailed
			t.ErrorMessage = staleTaskMessage
			t.UpdatedAt = s.now()
			failed++
		}
	}
	return failed, nil
}

func (s *MemoryStore) PurgeFinished(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, t := range s.tasks {
		if (t.Status == StatusCompleted || t.Status == StatusSent) && t.UpdatedAt.Before(olderThan) {
			delete(s.tasks, id)
			purged++
		}
	}
	return purged, nil
}
