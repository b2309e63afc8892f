package queue

import (
	"context"
	"errors"
	"time"
)

// Status is a task's position in its lifecycle.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusSent       Status = "SENT"
)

// ErrInvalidTransition is returned when a status change would move a
// task backward or skip a state.
var ErrInvalidTransition = errors.New("queue: invalid status transition")

// ReplyOptions holds the three generated variants attached to a
// completed task.
type ReplyOptions struct {
	Aggressive   string `json:"aggressive"`
	Conservative string `json:"conservative"`
	Professional string `json:"professional"`
}

// Task is one inbound message awaiting or carrying a generated reply.
type Task struct {
	ID           string        `json:"id"`
	SessionID    string        `json:"session_id"`
	CustomerName string        `json:"customer_name"`
	RawMessage   string        `json:"raw_message"`
	Status       Status        `json:"status"`
	ReplyOptions *ReplyOptions `json:"reply_options,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Store is the durable task queue. Enqueue never deduplicates: the
// reconciler already suppressed duplicate observations upstream.
// ClaimPending transitions claimed tasks to PROCESSING atomically so a
// second worker cannot pick them up.
type Store interface {
	Enqueue(ctx context.Context, sessionID, customerName, body string) (string, error)
	ClaimPending(ctx context.Context, limit int) ([]Task, error)
	Complete(ctx context.Context, taskID string, opts ReplyOptions) error
	Fail(ctx context.Context, taskID string, message string) error
	MarkSent(ctx context.Context, taskID string) error
	Get(ctx context.Context, taskID string) (*Task, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Task, error)
	PurgeFinished(ctx context.Context, olderThan time.Time) (int64, error)
	// FailStale marks PROCESSING tasks untouched since olderThan as
	// FAILED, so work orphaned by a dead worker becomes visible and
	// retriable without moving any task backward.
	FailStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// staleTaskMessage is the error recorded on tasks reclaimed by FailStale.
const staleTaskMessage = "processing timed out"

// canTransition encodes the forward-only state machine:
// PENDING -> PROCESSING -> COMPLETED|FAILED, COMPLETED -> SENT.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted:
		return to == StatusSent
	default:
		return false
	}
}
