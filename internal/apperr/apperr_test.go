package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrappedError(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUpstream, "model call failed", cause)
	wrapped := fmt.Errorf("generate: %w", err)

	if got := KindOf(wrapped); got != KindUpstream {
		t.Fatalf("expected upstream kind, got %v", got)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected cause to remain reachable via errors.Is")
	}
}

func TestKindOfPlainErrorDefaultsToInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected internal kind, got %v", got)
	}
}

func TestStatusAndCodeMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		code   string
		status int
	}{
		{KindValidation, "VALIDATION_ERROR", http.StatusBadRequest},
		{KindAuth, "AUTH_ERROR", http.StatusUnauthorized},
		{KindNotFound, "NOT_FOUND", http.StatusNotFound},
		{KindRateLimit, "RATE_LIMIT", http.StatusTooManyRequests},
		{KindUpstreamConfig, "API_KEY_ERROR", http.StatusInternalServerError},
		{KindUpstream, "EXTERNAL_API_ERROR", http.StatusBadGateway},
		{KindTimeout, "TIMEOUT_ERROR", http.StatusGatewayTimeout},
		{KindInternal, "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Code(tc.kind); got != tc.code {
			t.Errorf("Code(%v) = %q, want %q", tc.kind, got, tc.code)
		}
		if got := Status(tc.kind); got != tc.status {
			t.Errorf("Status(%v) = %d, want %d", tc.kind, got, tc.status)
		}
	}
}
