package reply

import (
	"context"
	"strings"
	"unicode"

	"github.com/wxsales/copilot/internal/textfilter"
)

// Discourse cues that open a new topic. When one appears, everything
// before the latest cue is stale context.
var topicMarkers = []string{
	"对了", "另外", "还有", "换个话题", "问一下", "再问", "顺便问", "想了解", "咨询一下",
}

// Static vocabulary of turns worth keeping regardless of budget:
// price, timing, logistics, and comparison talk.
var highValueKeywords = []string{
	"价格", "多少钱", "费用", "优惠", "折扣", "便宜", "贵",
	"什么时候", "多久", "时间", "发货", "物流", "快递", "到货",
	"对比", "区别", "哪个好", "效果", "功效", "保质期",
}

// KeywordExtractor pulls search keywords from the current message.
// Optional collaborator; selection degrades to the static vocabulary
// when nil or failing.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, text string, limit int) ([]string, error)
}

// SelectionMetadata describes what the selector did.
type SelectionMetadata struct {
	OriginalCount   int      `json:"original_count"`
	SelectedCount   int      `json:"selected_count"`
	EstimatedTokens int      `json:"estimated_tokens"`
	TopicCut        bool     `json:"topic_cut"`
	Keywords        []string `json:"keywords"`
}

// ContextSelector trims conversation history to fit a token budget
// while keeping the turns that matter for the reply.
type ContextSelector struct {
	MaxTokens   int
	MinMessages int
	Extractor   KeywordExtractor
}

// Select filters noise, cuts to the most recent topic, and walks the
// remaining history newest-to-oldest under the token budget. Keyword
// hits are always kept. The result is chronological and never has
// fewer than min(MinMessages, len(history)) messages.
func (s ContextSelector) Select(ctx context.Context, history []Message, currentMessage string) ([]Message, SelectionMetadata) {
	meta := SelectionMetadata{OriginalCount: len(history)}
	if len(history) == 0 {
		return nil, meta
	}

	candidates := make([]Message, 0, len(history))
	for _, m := range history {
		if !textfilter.IsNoise(m.Content) {
			candidates = append(candidates, m)
		}
	}

	// Only the most recent topic survives; earlier topics are assumed
	// resolved or abandoned.
	if cut := lastTopicMarkerIndex(candidates); cut > 0 {
		candidates = candidates[cut:]
		meta.TopicCut = true
	}

	keywords := s.buildKeywords(ctx, currentMessage)
	meta.Keywords = keywords

	selected := make([]Message, 0, len(candidates))
	total := 0
	for i := len(candidates) - 1; i >= 0; i-- {
		m := candidates[i]
		cost := EstimateTokens(m.Content)
		if containsAny(m.Content, keywords) {
			selected = append(selected, m)
			total += cost
			continue
		}
		if total+cost > s.MaxTokens {
			// Budget exhausted: keep scanning older messages so keyword
			// hits still make it in, but stop adding fillers.
			continue
		}
		selected = append(selected, m)
		total += cost
	}

	// Reverse back to chronological order.
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}

	// Floor guarantee: never return fewer messages than available, up
	// to MinMessages, even when that blows the budget.
	floor := s.MinMessages
	if len(history) < floor {
		floor = len(history)
	}
	if len(selected) < floor {
		selected = append([]Message(nil), history[len(history)-floor:]...)
		total = 0
		for _, m := range selected {
			total += EstimateTokens(m.Content)
		}
	}

	meta.SelectedCount = len(selected)
	meta.EstimatedTokens = total
	return selected, meta
}

func (s ContextSelector) buildKeywords(ctx context.Context, currentMessage string) []string {
	keywords := append([]string(nil), highValueKeywords...)
	if s.Extractor == nil || strings.TrimSpace(currentMessage) == "" {
		return keywords
	}
	dynamic, err := s.Extractor.ExtractKeywords(ctx, currentMessage, 5)
	if err != nil {
		return keywords
	}
	for _, k := range dynamic {
		if k != "" && !containsString(keywords, k) {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

func lastTopicMarkerIndex(messages []Message) int {
	last := -1
	for i, m := range messages {
		for _, marker := range topicMarkers {
			if strings.Contains(m.Content, marker) {
				last = i
				break
			}
		}
	}
	if last <= 0 {
		return 0
	}
	return last
}

// EstimateTokens approximates model token cost as two tokens per CJK
// character plus one per remaining word.
func EstimateTokens(text string) int {
	cjk := 0
	var rest strings.Builder
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			cjk++
			rest.WriteByte(' ')
			continue
		}
		rest.WriteRune(r)
	}
	return 2*cjk + len(strings.Fields(rest.String()))
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
