package reply

import (
	"context"

	"github.com/wxsales/copilot/pkg/logging"
)

// FallbackClient tries a primary model and retries once against a
// secondary provider when the primary fails. It sits below the
// per-variant failure handling: a variant only degrades after both
// providers failed.
type FallbackClient struct {
	primary   LLMClient
	secondary LLMClient
	logger    *logging.Logger
}

// NewFallbackClient wraps primary with an optional secondary. A nil
// secondary means no fallback.
func NewFallbackClient(primary, secondary LLMClient, logger *logging.Logger) *FallbackClient {
	if primary == nil {
		panic("reply: primary client is required")
	}
	if logger == nil {
		panic("reply: logger is required")
	}
	return &FallbackClient{primary: primary, secondary: secondary, logger: logger}
}

func (c *FallbackClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if c.secondary == nil || ctx.Err() != nil {
		return LLMResponse{}, err
	}
	c.logger.Warn("primary model failed, trying fallback", "error", err)
	return c.secondary.Complete(ctx, req)
}
