package reply

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wxsales/copilot/internal/apperr"
	"github.com/wxsales/copilot/internal/knowledge"
	"github.com/wxsales/copilot/internal/observability/metrics"
	"github.com/wxsales/copilot/internal/profile"
	"github.com/wxsales/copilot/pkg/logging"
)

const (
	variantMaxTokens  = 600
	retrievalTopK     = 3
	retrievalMinScore = 0.4
	goldenLimit       = 5

	// Placeholder shown for a variant whose model call failed while the
	// other variants succeeded.
	failedVariantText = "生成失败，请重试该风格"
)

// Retriever is the knowledge search contract the generator consumes.
type Retriever interface {
	Search(ctx context.Context, query string, scopeID int64, topK int, minScore float64) ([]knowledge.Result, error)
}

// GenerationResult is everything one generation call produced.
// Persisted is false when the suggestion row could not be written; the
// variants are still usable but carry no id for later feedback.
type GenerationResult struct {
	SuggestionID string            `json:"suggestion_id"`
	Persisted    bool              `json:"persisted"`
	Aggressive   string            `json:"aggressive"`
	Conservative string            `json:"conservative"`
	Professional string            `json:"professional"`
	TokensUsed   int               `json:"tokens_used"`
	Cost         float64           `json:"cost"`
	Intent       IntentResult      `json:"intent"`
	Stage        Stage             `json:"stage"`
	Memory       *CustomerMemory   `json:"memory"`
	Selection    SelectionMetadata `json:"selection"`
}

// Generator runs the full reply pipeline: context selection,
// classification, memory, retrieval, prompt assembly, and the
// three-variant fan-out.
type Generator struct {
	selector    ContextSelector
	llm         LLMClient
	retriever   Retriever
	memory      MemoryStore
	golden      GoldenStore
	suggestions SuggestionStore
	cost        CostCalculator
	logger      *logging.Logger
	metrics     *metrics.PipelineMetrics
	tracer      trace.Tracer
	timeout     time.Duration
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithRetriever attaches knowledge retrieval.
func WithRetriever(r Retriever) GeneratorOption {
	return func(g *Generator) { g.retriever = r }
}

// WithKeywordExtractor attaches dynamic keyword extraction for context
// selection.
func WithKeywordExtractor(e KeywordExtractor) GeneratorOption {
	return func(g *Generator) { g.selector.Extractor = e }
}

// WithGenerationTimeout bounds the three-variant fan-out.
func WithGenerationTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

// WithGeneratorMetrics attaches pipeline metrics.
func WithGeneratorMetrics(m *metrics.PipelineMetrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// WithSelectorBudget overrides the context selector's budget.
func WithSelectorBudget(maxTokens, minMessages int) GeneratorOption {
	return func(g *Generator) {
		g.selector.MaxTokens = maxTokens
		g.selector.MinMessages = minMessages
	}
}

// NewGenerator creates a Generator.
func NewGenerator(llm LLMClient, memory MemoryStore, golden GoldenStore, suggestions SuggestionStore, logger *logging.Logger, opts ...GeneratorOption) *Generator {
	if llm == nil {
		panic("reply: llm client is required")
	}
	if memory == nil {
		panic("reply: memory store is required")
	}
	if golden == nil {
		panic("reply: golden store is required")
	}
	if suggestions == nil {
		panic("reply: suggestion store is required")
	}
	if logger == nil {
		panic("reply: logger is required")
	}
	g := &Generator{
		selector:    ContextSelector{MaxTokens: 2000, MinMessages: 3},
		llm:         llm,
		memory:      memory,
		golden:      golden,
		suggestions: suggestions,
		cost:        NewCostCalculator(),
		logger:      logger,
		tracer:      otel.Tracer("reply"),
		timeout:     45 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces the three styled reply drafts for one customer
// message. Partial variant failure degrades to a placeholder; only
// total failure returns an error (and no suggestion is persisted).
func (g *Generator) Generate(ctx context.Context, sessionID, message string, prof *profile.Profile, history []Message) (*GenerationResult, error) {
	if prof == nil {
		return nil, apperr.Validation("no active profile")
	}
	ctx, span := g.tracer.Start(ctx, "reply.Generate",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()
	started := time.Now()

	selected, selMeta := g.selector.Select(ctx, history, message)
	intent := ClassifyIntent(message)

	mem, err := g.memory.Get(ctx, sessionID)
	if err != nil {
		g.logger.Warn("memory read failed", "session_id", sessionID, "error", err)
		mem = defaultMemory(sessionID)
	}
	mem.InteractionCount++
	if intent.Intent != IntentUnknown {
		mem.LastIntent = string(intent.Intent)
	}
	if intent.Objection != ObjectionNone {
		mem.LastObjection = string(intent.Objection)
	}

	stage := ClassifyStage(message, mem.InteractionCount)

	var retrieved []knowledge.Result
	if g.retriever != nil {
		retrieved, err = g.retriever.Search(ctx, message, prof.ID, retrievalTopK, retrievalMinScore)
		if err != nil {
			// Retrieval is an enrichment, not a dependency.
			g.logger.Warn("knowledge search failed", "session_id", sessionID, "error", err)
			retrieved = nil
		}
	}

	goldenReplies, err := g.golden.TopByUsage(ctx, prof.ID, goldenLimit)
	if err != nil {
		g.logger.Warn("golden lookup failed", "prompt_id", prof.ID, "error", err)
		goldenReplies = nil
	}

	basePrompt := BuildPrompt(PromptInput{
		Profile:   prof,
		Memory:    mem,
		Stage:     stage,
		Intent:    intent,
		Knowledge: retrieved,
		Golden:    goldenReplies,
	})

	variants, tokens, err := g.fanOut(ctx, basePrompt, selected, message)
	if err != nil {
		g.metrics.ObserveGeneration("failure", time.Since(started).Seconds())
		return nil, err
	}

	cost := g.cost.Cost(tokens.prompt, tokens.completion)
	g.metrics.ObserveGeneration("success", time.Since(started).Seconds())
	g.metrics.ObserveTokens(tokens.prompt, tokens.completion)

	suggestion := &Suggestion{
		SessionID:       sessionID,
		PromptID:        prof.ID,
		CustomerMessage: message,
		Aggressive:      variants[StyleAggressive],
		Conservative:    variants[StyleConservative],
		Professional:    variants[StyleProfessional],
		TokensUsed:      tokens.prompt + tokens.completion,
		Cost:            cost,
	}
	suggestionID, err := g.suggestions.Insert(ctx, suggestion)
	if err != nil {
		g.logger.Error("suggestion persist failed", "session_id", sessionID, "error", err)
	}

	if err := g.memory.Save(ctx, mem); err != nil {
		g.logger.Warn("memory save failed", "session_id", sessionID, "error", err)
	}

	return &GenerationResult{
		SuggestionID: suggestionID,
		Persisted:    suggestionID != "",
		Aggressive:   variants[StyleAggressive],
		Conservative: variants[StyleConservative],
		Professional: variants[StyleProfessional],
		TokensUsed:   tokens.prompt + tokens.completion,
		Cost:         cost,
		Intent:       intent,
		Stage:        stage,
		Memory:       mem,
		Selection:    selMeta,
	}, nil
}

type tokenTally struct {
	prompt     int
	completion int
}

// fanOut issues the three style calls concurrently under one shared
// timeout. Each variant degrades independently; the whole call fails
// only when all three do.
func (g *Generator) fanOut(ctx context.Context, basePrompt string, selected []Message, message string) (map[Style]string, tokenTally, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	conversation := append(append([]Message(nil), selected...), Message{
		Role:      RoleCustomer,
		Content:   message,
		Timestamp: time.Now(),
	})

	type variantOutcome struct {
		content string
		tokens  tokenTally
		err     error
	}
	outcomes := make([]variantOutcome, len(Styles))

	grp, grpCtx := errgroup.WithContext(ctx)
	for i, style := range Styles {
		i, style := i, style
		grp.Go(func() error {
			resp, err := g.llm.Complete(grpCtx, LLMRequest{
				System:      basePrompt + VariantSuffix(style),
				Messages:    conversation,
				Temperature: style.Temperature(),
				MaxTokens:   variantMaxTokens,
			})
			if err != nil {
				outcomes[i] = variantOutcome{err: err}
				// A variant failure is not a group failure.
				return nil
			}
			outcomes[i] = variantOutcome{
				content: resp.Content,
				tokens:  tokenTally{prompt: resp.PromptTokens, completion: resp.CompletionTokens},
			}
			return nil
		})
	}
	_ = grp.Wait()

	variants := make(map[Style]string, len(Styles))
	var tokens tokenTally
	failures := 0
	var lastErr error
	for i, style := range Styles {
		out := outcomes[i]
		if out.err != nil {
			failures++
			lastErr = out.err
			variants[style] = failedVariantText
			g.logger.Warn("variant generation failed", "style", string(style), "error", out.err)
			continue
		}
		variants[style] = out.content
		tokens.prompt += out.tokens.prompt
		tokens.completion += out.tokens.completion
	}
	if failures == len(Styles) {
		return nil, tokenTally{}, apperr.Wrap(apperr.KindUpstream, "all reply variants failed", lastErr)
	}
	return variants, tokens, nil
}
