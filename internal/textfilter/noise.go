package textfilter

import (
	"regexp"
	"strings"
)

// Patterns for chat content that carries no sales signal: emoji-only
// messages, bracketed system tokens, transfer receipts, and client
// notices. Matching messages are dropped before context selection and
// classification.
var (
	pureEmojiPattern = regexp.MustCompile(`^[\x{1F300}-\x{1F9FF}\x{1FA70}-\x{1FAFF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE00}-\x{FE0F}\x{200D}\s]+$`)
	systemTokenRe    = regexp.MustCompile(`^\[.*?\]$`)
	transferRe       = regexp.MustCompile(`^收到.*?转账`)
)

var noiseSubstrings = []string{
	"拍了拍你",
	"撤回了一条消息",
}

// IsNoise reports whether a message body should be excluded from the
// reply pipeline.
func IsNoise(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return true
	}
	if pureEmojiPattern.MatchString(trimmed) {
		return true
	}
	if systemTokenRe.MatchString(trimmed) {
		return true
	}
	if transferRe.MatchString(trimmed) {
		return true
	}
	for _, s := range noiseSubstrings {
		if strings.Contains(trimmed, s) {
			return true
		}
	}
	return false
}
