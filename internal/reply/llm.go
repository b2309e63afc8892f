package reply

import "context"

// LLMRequest is one chat completion call.
type LLMRequest struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// LLMResponse carries the generated text and token usage.
type LLMResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// LLMClient abstracts the hosted model. Implementations exist for
// DeepSeek and Gemini; tests inject fakes.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
