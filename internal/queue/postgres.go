package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the durable Store backed by the message_tasks table.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a Postgres-backed queue store.
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("queue: db is required")
	}
	return &PostgresStore{db: db}
}

const taskColumns = `id, session_id, customer_name, raw_message, status, reply_options, error_message, created_at, updated_at`

func (s *PostgresStore) Enqueue(ctx context.Context, sessionID, customerName, body string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO message_tasks (id, session_id, customer_name, raw_message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'PENDING', now(), now())`,
		id, sessionID, customerName, body)
	if err != nil {
		return "", fmt.Errorf("queue: enqueue: %w", err)
	}
	return id, nil
}

// ClaimPending atomically flips the oldest PENDING tasks to PROCESSING
// and returns them. SKIP LOCKED keeps two workers from claiming the
// same row.
func (s *PostgresStore) ClaimPending(ctx context.Context, limit int) ([]Task, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE message_tasks SET status = 'PROCESSING', updated_at = now()
		WHERE id IN (
			SELECT id FROM message_tasks
			WHERE status = 'PENDING'
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+taskColumns,
		limit)
	if err != nil {
		return nil, fmt.Errorf("queue: claim pending: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *PostgresStore) Complete(ctx context.Context, taskID string, opts ReplyOptions) error {
	payload, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("queue: marshal reply options: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE message_tasks
		SET status = 'COMPLETED', reply_options = $2, error_message = NULL, updated_at = now()
		WHERE id = $1 AND status = 'PROCESSING'`,
		taskID, payload)
	if err != nil {
		return fmt.Errorf("queue: complete: %w", err)
	}
	return s.guardTransition(ctx, taskID, tag)
}

func (s *PostgresStore) Fail(ctx context.Context, taskID string, message string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE message_tasks
		SET status = 'FAILED', error_message = $2, updated_at = now()
		WHERE id = $1 AND status = 'PROCESSING'`,
		taskID, message)
	if err != nil {
		return fmt.Errorf("queue: fail: %w", err)
	}
	return s.guardTransition(ctx, taskID, tag)
}

func (s *PostgresStore) MarkSent(ctx context.Context, taskID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE message_tasks
		SET status = 'SENT', updated_at = now()
		WHERE id = $1 AND status = 'COMPLETED'`,
		taskID)
	if err != nil {
		return fmt.Errorf("queue: mark sent: %w", err)
	}
	return s.guardTransition(ctx, taskID, tag)
}

// guardTransition makes the guarded UPDATEs match MemoryStore: a row
// that exists in the wrong state is an invalid transition, a missing
// row (already purged) is a no-op.
func (s *PostgresStore) guardTransition(ctx context.Context, taskID string, tag pgconn.CommandTag) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM message_tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
		return fmt.Errorf("queue: check task: %w", err)
	}
	if exists {
		return ErrInvalidTransition
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, taskID string) (*Task, error) {
	row := s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM message_tasks WHERE id = $1`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: get: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]Task, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+taskColumns+` FROM message_tasks
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("queue: list by session: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *PostgresStore) FailStale(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE message_tasks
		SET status = 'FAILED', error_message = $2, updated_at = now()
		WHERE status = 'PROCESSING' AND updated_at < $1`,
		olderThan, staleTaskMessage)
	if err != nil {
		return 0, fmt.Errorf("queue: fail stale: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) PurgeFinished(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM message_tasks
		WHERE status IN ('COMPLETED', 'SENT') AND updated_at < $1`,
		olderThan)
	if err != nil {
		return 0, fmt.Errorf("queue: purge finished: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTasks(rows pgx.Rows) ([]Task, error) {
	tasks := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("queue: scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue: iterate tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*Task, error) {
	var (
		task       Task
		optionsRaw []byte
		errMsg     *string
	)
	if err := row.Scan(&task.ID, &task.SessionID, &task.CustomerName, &task.RawMessage,
		&task.Status, &optionsRaw, &errMsg, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	if len(optionsRaw) > 0 {
		var opts ReplyOptions
		if err := json.Unmarshal(optionsRaw, &opts); err != nil {
			return nil, fmt.Errorf("decode reply options: %w", err)
		}
		task.ReplyOptions = &opts
	}
	if errMsg != nil {
		task.ErrorMessage = *errMsg
	}
	return &task, nil
}
