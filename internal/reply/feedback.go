package reply

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/wxsales/copilot/pkg/logging"
)

// FeedbackAction is what the user did with a suggestion.
type FeedbackAction string

const (
	ActionAccepted FeedbackAction = "ACCEPTED"
	ActionModified FeedbackAction = "MODIFIED"
	ActionRejected FeedbackAction = "REJECTED"
)

// minGoldenLength filters out trivial replies ("好的") from the golden
// pool.
const minGoldenLength = 3

// FeedbackLearner records user reactions and promotes accepted or
// edited replies into the golden pool. This is the system's only
// learning loop.
type FeedbackLearner struct {
	suggestions SuggestionStore
	golden      GoldenStore
	logger      *logging.Logger
}

// NewFeedbackLearner creates a learner.
func NewFeedbackLearner(suggestions SuggestionStore, golden GoldenStore, logger *logging.Logger) *FeedbackLearner {
	if suggestions == nil {
		panic("reply: suggestion store is required")
	}
	if golden == nil {
		panic("reply: golden store is required")
	}
	if logger == nil {
		panic("reply: logger is required")
	}
	return &FeedbackLearner{suggestions: suggestions, golden: golden, logger: logger}
}

// RecordSelection annotates which style the user chose.
func (l *FeedbackLearner) RecordSelection(ctx context.Context, suggestionID, style string) error {
	return l.suggestions.SetSelected(ctx, suggestionID, style)
}

// RecordModification stores the user's edit and logs what kind of
// change it was.
func (l *FeedbackLearner) RecordModification(ctx context.Context, suggestionID, original, modified string) error {
	if err := l.suggestions.SetEdited(ctx, suggestionID, modified); err != nil {
		return err
	}
	l.logger.Info("suggestion modified",
		"suggestion_id", suggestionID,
		"change", AnalyzeModification(original, modified))
	return nil
}

// RecordFeedback runs the learning step. ACCEPTED or MODIFIED feedback
// with a non-trivial final text becomes a golden reply; an identical
// triple just gains usage count.
func (l *FeedbackLearner) RecordFeedback(ctx context.Context, sessionID string, promptID int64, query, original, final string, action FeedbackAction) error {
	if action == ActionRejected {
		l.logger.Debug("suggestion rejected", "session_id", sessionID)
		return nil
	}
	if utf8.RuneCountInString(strings.TrimSpace(final)) <= minGoldenLength {
		return nil
	}
	if err := l.golden.Upsert(ctx, promptID, query, final); err != nil {
		return err
	}
	l.logger.Info("golden reply recorded",
		"session_id", sessionID,
		"prompt_id", promptID,
		"action", string(action))
	return nil
}

// AnalyzeModification classifies an edit: large rewrites are content
// changes, small ones that flip politeness markers are tone changes,
// the rest are minor touch-ups.
func AnalyzeModification(original, modified string) string {
	origLen := utf8.RuneCountInString(original)
	modLen := utf8.RuneCountInString(modified)
	diff := modLen - origLen
	if diff < 0 {
		diff = -diff
	}
	if diff > 20 {
		return "content"
	}
	toneMarkers := []string{"您", "请", "哦", "呢", "啦", "~"}
	for _, marker := range toneMarkers {
		if strings.Contains(original, marker) != strings.Contains(modified, marker) {
			return "tone"
		}
	}
	return "minor"
}
