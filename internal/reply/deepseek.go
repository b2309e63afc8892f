package reply

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wxsales/copilot/internal/apperr"
)

// DeepSeekClient talks to DeepSeek's OpenAI-compatible chat endpoint.
type DeepSeekClient struct {
	client *openai.Client
	model  string
}

// NewDeepSeekClient creates a client. A missing API key is an operator
// configuration problem, reported as such.
func NewDeepSeekClient(apiKey, baseURL, model string) (*DeepSeekClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperr.New(apperr.KindUpstreamConfig, "deepseek api key is not configured")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &DeepSeekClient{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (c *DeepSeekClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return LLMResponse{}, apperr.Wrap(apperr.KindTimeout, "deepseek call timed out", err)
		}
		return LLMResponse{}, apperr.Wrap(apperr.KindUpstream, "deepseek call failed", err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, apperr.New(apperr.KindUpstream, "deepseek returned no choices")
	}
	return LLMResponse{
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// ExtractKeywords asks the model for up to limit search keywords. Any
// failure degrades to whitespace tokenization so context selection
// keeps working without the model.
func (c *DeepSeekClient) ExtractKeywords(ctx context.Context, text string, limit int) ([]string, error) {
	resp, err := c.Complete(ctx, LLMRequest{
		System:      "你是一个关键词提取工具。从用户消息中提取最关键的搜索词，最多5个，用逗号分隔输出，不要解释。",
		Messages:    []Message{{Role: RoleCustomer, Content: text}},
		Temperature: 0.1,
		MaxTokens:   60,
	})
	if err != nil {
		return fallbackKeywords(text, limit), nil
	}
	keywords := splitKeywords(resp.Content, limit)
	if len(keywords) == 0 {
		return fallbackKeywords(text, limit), nil
	}
	return keywords, nil
}

func splitKeywords(s string, limit int) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == '\n'
	})
	out := make([]string, 0, limit)
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func fallbackKeywords(text string, limit int) []string {
	out := make([]string, 0, limit)
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) > 1 {
			out = append(out, w)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
