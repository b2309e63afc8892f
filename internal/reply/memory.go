package reply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// RelationshipStage tracks how warm a customer relationship is.
type RelationshipStage string

const (
	RelationshipCold     RelationshipStage = "cold"
	RelationshipWarm     RelationshipStage = "warm"
	RelationshipHot      RelationshipStage = "hot"
	RelationshipCustomer RelationshipStage = "customer"
	RelationshipLost     RelationshipStage = "lost"
)

// ProvidedInfo is one fact the customer disclosed, with when.
type ProvidedInfo struct {
	Info      string    `json:"info"`
	Timestamp time.Time `json:"timestamp"`
}

// CustomerMemory accumulates what the system knows about one session.
type CustomerMemory struct {
	SessionID        string            `json:"session_id"`
	Stage            RelationshipStage `json:"stage"`
	Preferences      map[string]string `json:"preferences"`
	ProvidedInfo     []ProvidedInfo    `json:"provided_info"`
	InteractionCount int               `json:"interaction_count"`
	LastIntent       string            `json:"last_intent"`
	LastObjection    string            `json:"last_objection"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// MemoryStore persists customer memory. Get never returns nil: absent
// sessions yield a default cold record.
type MemoryStore interface {
	Get(ctx context.Context, sessionID string) (*CustomerMemory, error)
	// Save upserts the full record. JSON-valued fields are replaced
	// wholesale, not deep-merged.
	Save(ctx context.Context, mem *CustomerMemory) error
	IncrementInteraction(ctx context.Context, sessionID string) error
}

func defaultMemory(sessionID string) *CustomerMemory {
	return &CustomerMemory{
		SessionID:   sessionID,
		Stage:       RelationshipCold,
		Preferences: make(map[string]string),
	}
}

// memoryDB is the subset of pgxpool.Pool the store needs.
type memoryDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresMemoryStore is the durable MemoryStore.
type PostgresMemoryStore struct {
	db memoryDB
}

// NewPostgresMemoryStore creates a Postgres-backed memory store.
func NewPostgresMemoryStore(db memoryDB) *PostgresMemoryStore {
	if db == nil {
		panic("reply: db is required")
	}
	return &PostgresMemoryStore{db: db}
}

func (s *PostgresMemoryStore) Get(ctx context.Context, sessionID string) (*CustomerMemory, error) {
	row := s.db.QueryRow(ctx, `
		SELECT session_id, stage, preferences, provided_info, interaction_count, last_intent, last_objection, updated_at
		FROM customer_memory WHERE session_id = $1`,
		sessionID)

	var (
		mem      CustomerMemory
		prefsRaw []byte
		infoRaw  []byte
	)
	err := row.Scan(&mem.SessionID, &mem.Stage, &prefsRaw, &infoRaw,
		&mem.InteractionCount, &mem.LastIntent, &mem.LastObjection, &mem.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultMemory(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reply: get memory: %w", err)
	}
	if len(prefsRaw) > 0 {
		if err := json.Unmarshal(prefsRaw, &mem.Preferences); err != nil {
			return nil, fmt.Errorf("reply: decode preferences: %w", err)
		}
	}
	if mem.Preferences == nil {
		mem.Preferences = make(map[string]string)
	}
	if len(infoRaw) > 0 {
		if err := json.Unmarshal(infoRaw, &mem.ProvidedInfo); err != nil {
			return nil, fmt.Errorf("reply: decode provided info: %w", err)
		}
	}
	return &mem, nil
}

func (s *PostgresMemoryStore) Save(ctx context.Context, mem *CustomerMemory) error {
	prefs, err := json.Marshal(mem.Preferences)
	if err != nil {
		return fmt.Errorf("reply: marshal preferences: %w", err)
	}
	info, err := json.Marshal(mem.ProvidedInfo)
	if err != nil {
		return fmt.Errorf("reply: marshal provided info: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO customer_memory (session_id, stage, preferences, provided_info, interaction_count, last_intent, last_objection, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (session_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			preferences = EXCLUDED.preferences,
			provided_info = EXCLUDED.provided_info,
			interaction_count = EXCLUDED.interaction_count,
			last_intent = EXCLUDED.last_intent,
			last_objection = EXCLUDED.last_objection,
			updated_at = now()`,
		mem.SessionID, mem.Stage, prefs, info, mem.InteractionCount, mem.LastIntent, mem.LastObjection)
	if err != nil {
		return fmt.Errorf("reply: save memory: %w", err)
	}
	return nil
}

func (s *PostgresMemoryStore) IncrementInteraction(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO customer_memory (session_id, stage, preferences, provided_info, interaction_count, last_intent, last_objection, updated_at)
		VALUES ($1, 'cold', '{}', '[]', 1, '', '', now())
		ON CONFLICT (session_id) DO UPDATE SET
			interaction_count = customer_memory.interaction_count + 1,
			updated_at = now()`,
		sessionID)
	if err != nil {
		return fmt.Errorf("reply: increment interaction: %w", err)
	}
	return nil
}
