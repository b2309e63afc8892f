package reply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Suggestion is one persisted generation result. Immutable after
// creation except for the feedback annotation fields.
type Suggestion struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	PromptID        int64     `json:"prompt_id"`
	CustomerMessage string    `json:"customer_message"`
	Aggressive      string    `json:"aggressive"`
	Conservative    string    `json:"conservative"`
	Professional    string    `json:"professional"`
	TokensUsed      int       `json:"tokens_used"`
	Cost            float64   `json:"cost"`
	SelectedType    string    `json:"selected_type,omitempty"`
	EditedContent   string    `json:"edited_content,omitempty"`
	IsSent          bool      `json:"is_sent"`
	CreatedAt       time.Time `json:"created_at"`
}

// VariantStat is how often one style was chosen.
type VariantStat struct {
	Style string `json:"style"`
	Count int    `json:"count"`
}

// SuggestionStore persists suggestions and their feedback annotations.
type SuggestionStore interface {
	Insert(ctx context.Context, s *Suggestion) (string, error)
	Get(ctx context.Context, id string) (*Suggestion, error)
	SetSelected(ctx context.Context, id, style string) error
	SetEdited(ctx context.Context, id, edited string) error
	MarkSent(ctx context.Context, id string) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Suggestion, error)
	VariantStats(ctx context.Context, sessionID string) ([]VariantStat, error)
}

type suggestionDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSuggestionStore is the durable SuggestionStore.
type PostgresSuggestionStore struct {
	db suggestionDB
}

// NewPostgresSuggestionStore creates a Postgres-backed suggestion store.
func NewPostgresSuggestionStore(db suggestionDB) *PostgresSuggestionStore {
	if db == nil {
		panic("reply: db is required")
	}
	return &PostgresSuggestionStore{db: db}
}

const suggestionColumns = `id, session_id, prompt_id, customer_message, aggressive, conservative, professional, tokens_used, cost, selected_type, edited_content, is_sent, created_at`

func (s *PostgresSuggestionStore) Insert(ctx context.Context, sg *Suggestion) (string, error) {
	if sg.ID == "" {
		sg.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_suggestions (id, session_id, prompt_id, customer_message, aggressive, conservative, professional, tokens_used, cost, selected_type, edited_content, is_sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', '', false, now())`,
		sg.ID, sg.SessionID, sg.PromptID, sg.CustomerMessage,
		sg.Aggressive, sg.Conservative, sg.Professional, sg.TokensUsed, sg.Cost)
	if err != nil {
		return "", fmt.Errorf("reply: insert suggestion: %w", err)
	}
	return sg.ID, nil
}

func (s *PostgresSuggestionStore) Get(ctx context.Context, id string) (*Suggestion, error) {
	row := s.db.QueryRow(ctx, `SELECT `+suggestionColumns+` FROM ai_suggestions WHERE id = $1`, id)
	sg, err := scanSuggestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reply: get suggestion: %w", err)
	}
	return sg, nil
}

func (s *PostgresSuggestionStore) SetSelected(ctx context.Context, id, style string) error {
	_, err := s.db.Exec(ctx, `UPDATE ai_suggestions SET selected_type = $2 WHERE id = $1`, id, style)
	if err != nil {
		return fmt.Errorf("reply: set selected: %w", err)
	}
	return nil
}

func (s *PostgresSuggestionStore) SetEdited(ctx context.Context, id, edited string) error {
	_, err := s.db.Exec(ctx, `UPDATE ai_suggestions SET edited_content = $2 WHERE id = $1`, id, edited)
	if err != nil {
		return fmt.Errorf("reply: set edited: %w", err)
	}
	return nil
}

func (s *PostgresSuggestionStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `UPDATE ai_suggestions SET is_sent = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("reply: mark sent: %w", err)
	}
	return nil
}

func (s *PostgresSuggestionStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]Suggestion, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+suggestionColumns+` FROM ai_suggestions
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("reply: list suggestions: %w", err)
	}
	defer rows.Close()

	out := make([]Suggestion, 0)
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("reply: scan suggestion: %w", err)
		}
		out = append(out, *sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reply: iterate suggestions: %w", err)
	}
	return out, nil
}

// VariantStats counts chosen styles; an empty sessionID aggregates all
// sessions.
func (s *PostgresSuggestionStore) VariantStats(ctx context.Context, sessionID string) ([]VariantStat, error) {
	rows, err := s.db.Query(ctx, `
		SELECT selected_type, count(*)
		FROM ai_suggestions
		WHERE selected_type <> '' AND ($1 = '' OR session_id = $1)
		GROUP BY selected_type
		ORDER BY count(*) DESC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("reply: variant stats: %w", err)
	}
	defer rows.Close()

	stats := make([]VariantStat, 0)
	for rows.Next() {
		var st VariantStat
		if err := rows.Scan(&st.Style, &st.Count); err != nil {
			return nil, fmt.Errorf("reply: scan stat: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reply: iterate stats: %w", err)
	}
	return stats, nil
}

func scanSuggestion(row pgx.Row) (*Suggestion, error) {
	var sg Suggestion
	if err := row.Scan(&sg.ID, &sg.SessionID, &sg.PromptID, &sg.CustomerMessage,
		&sg.Aggressive, &sg.Conservative, &sg.Professional, &sg.TokensUsed, &sg.Cost,
		&sg.SelectedType, &sg.EditedContent, &sg.IsSent, &sg.CreatedAt); err != nil {
		return nil, err
	}
	return &sg, nil
}
