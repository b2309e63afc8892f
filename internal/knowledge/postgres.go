package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the chunk store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ChunkStore persists embedded chunks so the index can be rebuilt on
// startup.
type ChunkStore struct {
	db DB
}

// NewChunkStore creates a Postgres-backed chunk store.
func NewChunkStore(db DB) *ChunkStore {
	if db == nil {
		panic("knowledge: db is required")
	}
	return &ChunkStore{db: db}
}

// Insert embeds nothing itself; callers store already-embedded chunks.
func (s *ChunkStore) Insert(ctx context.Context, c Chunk) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	vec, err := json.Marshal(c.Embedding)
	if err != nil {
		return "", fmt.Errorf("knowledge: marshal embedding: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO knowledge_chunks (id, scope_id, content, source, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		c.ID, c.ScopeID, c.Content, c.Source, vec)
	if err != nil {
		return "", fmt.Errorf("knowledge: insert chunk: %w", err)
	}
	return c.ID, nil
}

// LoadAll reads every chunk, typically to warm the in-memory index.
func (s *ChunkStore) LoadAll(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.Query(ctx, `SELECT id, scope_id, content, source, embedding FROM knowledge_chunks`)
	if err != nil {
		return nil, fmt.Errorf("knowledge: load chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]Chunk, 0)
	for rows.Next() {
		var (
			c   Chunk
			vec []byte
		)
		if err := rows.Scan(&c.ID, &c.ScopeID, &c.Content, &c.Source, &vec); err != nil {
			return nil, fmt.Errorf("knowledge: scan chunk: %w", err)
		}
		if err := json.Unmarshal(vec, &c.Embedding); err != nil {
			return nil, fmt.Errorf("knowledge: decode embedding: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: iterate chunks: %w", err)
	}
	return chunks, nil
}
