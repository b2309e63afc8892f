package textfilter

import (
	"regexp"
	"strings"
)

var (
	longDigitsRe = regexp.MustCompile(`\d{16,19}`)
	phoneRe      = regexp.MustCompile(`1[3-9]\d{9}`)
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	amountRe     = regexp.MustCompile(`[¥￥]\s?\d+(?:\.\d+)?|\d+(?:\.\d+)?\s?元`)
)

// Masker redacts sensitive substrings before text is logged or sent to
// the model. Monetary amounts are left intact unless MaskAmounts is set:
// price figures are business-critical input for reply generation, so
// masking them is an operator policy switch rather than the default.
type Masker struct {
	MaskAmounts bool
}

// Mask returns text with phone numbers, ID/bank-card digit spans, and
// email local-parts partially redacted.
func (m Masker) Mask(text string) string {
	// Longer digit spans first so a phone pattern cannot fire inside an
	// already-masked card number.
	out := longDigitsRe.ReplaceAllStringFunc(text, func(s string) string {
		return s[:4] + "****" + s[len(s)-4:]
	})
	out = phoneRe.ReplaceAllStringFunc(out, func(s string) string {
		return s[:3] + "****" + s[7:]
	})
	out = emailRe.ReplaceAllStringFunc(out, maskEmail)
	if m.MaskAmounts {
		out = amountRe.ReplaceAllString(out, "[金额]")
	}
	return out
}

func maskEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	local, domain := addr[:at], addr[at:]
	if len(local) <= 2 {
		return local[:1] + "***" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + domain
}
