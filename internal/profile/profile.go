package profile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// KnowledgeEntry is one topic in a profile's configured knowledge base.
type KnowledgeEntry struct {
	Topic  string   `json:"topic"`
	Points []string `json:"points"`
}

// Profile is the prompt configuration for one sales persona. Exactly
// one profile is active system-wide at a time.
type Profile struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	RoleDefinition string           `json:"role_definition"`
	BusinessLogic  string           `json:"business_logic"`
	ToneStyle      string           `json:"tone_style"`
	ReplyLength    string           `json:"reply_length"`
	EmojiUsage     string           `json:"emoji_usage"`
	KnowledgeBase  []KnowledgeEntry `json:"knowledge_base"`
	ForbiddenWords []string         `json:"forbidden_words"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

var wordSplitRe = regexp.MustCompile(`[,，、;；\s]+`)

// NormalizeKnowledgeBase accepts the loose JSON shapes callers send for
// knowledge_base (plain string, list of strings, list of objects) and
// returns the one internal shape. Shape branching happens here at the
// boundary and nowhere deeper in the pipeline.
func NormalizeKnowledgeBase(raw json.RawMessage) ([]KnowledgeEntry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.TrimSpace(asString) == "" {
			return nil, nil
		}
		return []KnowledgeEntry{{Topic: "通用", Points: []string{asString}}}, nil
	}

	var asList []json.RawMessage
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, fmt.Errorf("profile: knowledge_base must be string or list: %w", err)
	}
	entries := make([]KnowledgeEntry, 0, len(asList))
	for _, item := range asList {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			entries = append(entries, KnowledgeEntry{Topic: "通用", Points: []string{s}})
			continue
		}
		var entry struct {
			Topic  string          `json:"topic"`
			Points json.RawMessage `json:"points"`
		}
		if err := json.Unmarshal(item, &entry); err != nil {
			return nil, fmt.Errorf("profile: bad knowledge_base entry: %w", err)
		}
		points, err := normalizePoints(entry.Points)
		if err != nil {
			return nil, err
		}
		entries = append(entries, KnowledgeEntry{Topic: entry.Topic, Points: points})
	}
	return entries, nil
}

func normalizePoints(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("profile: points must be string or list: %w", err)
	}
	return list, nil
}

// NormalizeForbiddenWords accepts a JSON string (delimiter-separated)
// or list of strings and returns a clean word list.
func NormalizeForbiddenWords(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return splitWords(asString), nil
	}
	var asList []string
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, fmt.Errorf("profile: forbidden_words must be string or list: %w", err)
	}
	out := make([]string, 0, len(asList))
	for _, w := range asList {
		if trimmed := strings.TrimSpace(w); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

func splitWords(s string) []string {
	parts := wordSplitRe.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
