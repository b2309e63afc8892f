package reply

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// GoldenReply is a human-approved reply promoted into the few-shot
// example pool.
type GoldenReply struct {
	ID         int64     `json:"id"`
	PromptID   int64     `json:"prompt_id"`
	Question   string    `json:"question"`
	Reply      string    `json:"reply"`
	UsageCount int       `json:"usage_count"`
	LastUsed   time.Time `json:"last_used"`
}

// GoldenStore persists golden replies, deduplicated by the
// (prompt_id, question, reply) triple.
type GoldenStore interface {
	Upsert(ctx context.Context, promptID int64, question, reply string) error
	TopByUsage(ctx context.Context, promptID int64, limit int) ([]GoldenReply, error)
}

type goldenDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresGoldenStore is the durable GoldenStore.
type PostgresGoldenStore struct {
	db goldenDB
}

// NewPostgresGoldenStore creates a Postgres-backed golden reply store.
func NewPostgresGoldenStore(db goldenDB) *PostgresGoldenStore {
	if db == nil {
		panic("reply: db is required")
	}
	return &PostgresGoldenStore{db: db}
}

// Upsert inserts the triple with usage_count 1, or bumps usage_count
// when the identical triple already exists. The unique index on
// (prompt_id, question, reply) makes this race-free.
func (s *PostgresGoldenStore) Upsert(ctx context.Context, promptID int64, question, reply string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO golden_replies (prompt_id, question, reply, usage_count, last_used)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (prompt_id, question, reply) DO UPDATE SET
			usage_count = golden_replies.usage_count + 1,
			last_used = now()`,
		promptID, question, reply)
	if err != nil {
		return fmt.Errorf("reply: upsert golden: %w", err)
	}
	return nil
}

func (s *PostgresGoldenStore) TopByUsage(ctx context.Context, promptID int64, limit int) ([]GoldenReply, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, prompt_id, question, reply, usage_count, last_used
		FROM golden_replies
		WHERE prompt_id = $1
		ORDER BY usage_count DESC, last_used DESC
		LIMIT $2`,
		promptID, limit)
	if err != nil {
		return nil, fmt.Errorf("reply: top golden: %w", err)
	}
	defer rows.Close()

	replies := make([]GoldenReply, 0)
	for rows.Next() {
		var g GoldenReply
		if err := rows.Scan(&g.ID, &g.PromptID, &g.Question, &g.Reply, &g.UsageCount, &g.LastUsed); err != nil {
			return nil, fmt.Errorf("reply: scan golden: %w", err)
		}
		replies = append(replies, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reply: iterate golden: %w", err)
	}
	return replies, nil
}
