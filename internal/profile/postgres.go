package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store persists expert profiles.
type Store struct {
	db DB
}

// NewStore creates a Postgres-backed profile store.
func NewStore(db DB) *Store {
	if db == nil {
		panic("profile: db is required")
	}
	return &Store{db: db}
}

const profileColumns = `id, name, role_definition, business_logic, tone_style, reply_length, emoji_usage, knowledge_base, forbidden_words, is_active, created_at, updated_at`

// Create inserts a profile (inactive by default) and returns its id.
func (s *Store) Create(ctx context.Context, p *Profile) (int64, error) {
	kb, err := json.Marshal(p.KnowledgeBase)
	if err != nil {
		return 0, fmt.Errorf("profile: marshal knowledge base: %w", err)
	}
	fw, err := json.Marshal(p.ForbiddenWords)
	if err != nil {
		return 0, fmt.Errorf("profile: marshal forbidden words: %w", err)
	}
	var id int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO expert_profiles (name, role_definition, business_logic, tone_style, reply_length, emoji_usage, knowledge_base, forbidden_words, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, now(), now())
		RETURNING id`,
		p.Name, p.RoleDefinition, p.BusinessLogic, p.ToneStyle, p.ReplyLength, p.EmojiUsage, kb, fw).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("profile: create: %w", err)
	}
	return id, nil
}

// Update replaces a profile's editable fields.
func (s *Store) Update(ctx context.Context, p *Profile) error {
	kb, err := json.Marshal(p.KnowledgeBase)
	if err != nil {
		return fmt.Errorf("profile: marshal knowledge base: %w", err)
	}
	fw, err := json.Marshal(p.ForbiddenWords)
	if err != nil {
		return fmt.Errorf("profile: marshal forbidden words: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE expert_profiles
		SET name = $2, role_definition = $3, business_logic = $4, tone_style = $5,
		    reply_length = $6, emoji_usage = $7, knowledge_base = $8, forbidden_words = $9,
		    updated_at = now()
		WHERE id = $1`,
		p.ID, p.Name, p.RoleDefinition, p.BusinessLogic, p.ToneStyle, p.ReplyLength, p.EmojiUsage, kb, fw)
	if err != nil {
		return fmt.Errorf("profile: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Get returns one profile, or nil when absent.
func (s *Store) Get(ctx context.Context, id int64) (*Profile, error) {
	row := s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM expert_profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get: %w", err)
	}
	return p, nil
}

// GetActive returns the single active profile, or nil if none is set.
func (s *Store) GetActive(ctx context.Context) (*Profile, error) {
	row := s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM expert_profiles WHERE is_active LIMIT 1`)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get active: %w", err)
	}
	return p, nil
}

// List returns all profiles, newest first.
func (s *Store) List(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.Query(ctx, `SELECT `+profileColumns+` FROM expert_profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("profile: list: %w", err)
	}
	defer rows.Close()
	profiles := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("profile: scan: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile: iterate: %w", err)
	}
	return profiles, nil
}

// Activate makes one profile active and deactivates all others in the
// same transaction, so readers never see zero or two active profiles.
func (s *Store) Activate(ctx context.Context, id int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("profile: begin activate: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE expert_profiles SET is_active = false, updated_at = now() WHERE is_active`); err != nil {
		return fmt.Errorf("profile: deactivate others: %w", err)
	}
	tag, err := tx.Exec(ctx, `UPDATE expert_profiles SET is_active = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("profile: activate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("profile: commit activate: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p     Profile
		kbRaw []byte
		fwRaw []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.RoleDefinition, &p.BusinessLogic, &p.ToneStyle,
		&p.ReplyLength, &p.EmojiUsage, &kbRaw, &fwRaw, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(kbRaw) > 0 {
		entries, err := NormalizeKnowledgeBase(kbRaw)
		if err != nil {
			return nil, err
		}
		p.KnowledgeBase = entries
	}
	if len(fwRaw) > 0 {
		words, err := NormalizeForbiddenWords(fwRaw)
		if err != nil {
			return nil, err
		}
		p.ForbiddenWords = words
	}
	return &p, nil
}
