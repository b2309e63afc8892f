package reply

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultHistoryTTL keeps a conversation transcript for one day after
// its last activity.
const DefaultHistoryTTL = 24 * time.Hour

// HistoryStore keeps a rolling per-session transcript in Redis.
type HistoryStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewHistoryStore creates a history store. A zero ttl uses the default.
func NewHistoryStore(client *redis.Client, ttl time.Duration) *HistoryStore {
	if client == nil {
		panic("reply: redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &HistoryStore{client: client, ttl: ttl, tracer: otel.Tracer("reply.history")}
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s", sessionID)
}

// Append adds messages to the transcript and refreshes its TTL.
func (s *HistoryStore) Append(ctx context.Context, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "history.Append",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("reply: marshal history message: %w", err)
		}
		values = append(values, payload)
	}
	key := historyKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reply: append history: %w", err)
	}
	return nil
}

// Load returns the most recent limit messages in chronological order.
// A limit of 0 loads everything.
func (s *HistoryStore) Load(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "history.Load",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, historyKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reply: load history: %w", err)
	}
	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("reply: decode history message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Clear drops a session's transcript.
func (s *HistoryStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("reply: clear history: %w", err)
	}
	return nil
}
