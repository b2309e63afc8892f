package listener

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedLabel is the structured form of one accessibility-tree row label.
type ParsedLabel struct {
	ContactKey  string
	UnreadCount int
	Body        string
	TimeTag     string
}

var (
	unreadRe = regexp.MustCompile(`(\d+)条未读`)
	// Trailing time token in the order the client renders them: clock
	// time, relative day, weekday, full date, short date.
	timeTagRe    = regexp.MustCompile(`\s?(\d{1,2}:\d{2}|昨天|前天|星期.|\d{4}/\d{1,2}/\d{1,2}|\d{1,2}/\d{1,2})$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

var decorations = []string{"已置顶", "消息免打扰"}

// Parse converts a raw row label into a ParsedLabel. It is a pure
// function: the same input always yields the same output. Returns nil
// for empty or whitespace-only input.
//
// The label does not say who authored the message; the reconciler
// decides that from the unread count, which is the only signal that
// stays stable across client versions.
func Parse(raw string) *ParsedLabel {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	unread := 0
	if m := unreadRe.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			unread = n
		}
	}

	text := Normalize(raw)

	timeTag := ""
	if m := timeTagRe.FindStringSubmatch(text); m != nil {
		timeTag = m[1]
		text = strings.TrimSpace(timeTagRe.ReplaceAllString(text, ""))
	}

	contactKey := text
	body := ""
	if i := strings.Index(text, " "); i >= 0 {
		contactKey = text[:i]
		body = strings.TrimSpace(text[i+1:])
	}

	return &ParsedLabel{
		ContactKey:  contactKey,
		UnreadCount: unread,
		Body:        body,
		TimeTag:     timeTag,
	}
}

// Normalize strips transient decorations (unread badge, pinned and
// do-not-disturb markers) and collapses whitespace runs. The result is
// the state identifier the reconciler diffs between polling ticks.
func Normalize(raw string) string {
	text := unreadRe.ReplaceAllString(raw, " ")
	for _, d := range decorations {
		text = strings.ReplaceAll(text, d, " ")
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
