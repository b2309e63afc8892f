package handlers

import (
	"net/http"

	"github.com/wxsales/copilot/internal/knowledge"
	"github.com/wxsales/copilot/internal/listener"
	"github.com/wxsales/copilot/internal/profile"
	"github.com/wxsales/copilot/internal/queue"
	"github.com/wxsales/copilot/internal/reply"
	"github.com/wxsales/copilot/pkg/logging"
)

// Handlers wires the HTTP boundary to the core operations. Every
// handler is a thin wrapper: decode, call, envelope.
type Handlers struct {
	logger      *logging.Logger
	tasks       queue.Store
	profiles    *profile.Store
	generator   *reply.Generator
	suggestions reply.SuggestionStore
	learner     *reply.FeedbackLearner
	history     *reply.HistoryStore
	index       *knowledge.Index
	chunks      *knowledge.ChunkStore
	embedder    knowledge.Embedder
	labels      *listener.Buffer
}

// New creates the handler set.
func New(
	logger *logging.Logger,
	tasks queue.Store,
	profiles *profile.Store,
	generator *reply.Generator,
	suggestions reply.SuggestionStore,
	learner *reply.FeedbackLearner,
	history *reply.HistoryStore,
	index *knowledge.Index,
	chunks *knowledge.ChunkStore,
	embedder knowledge.Embedder,
	labels *listener.Buffer,
) *Handlers {
	if logger == nil {
		panic("handlers: logger is required")
	}
	return &Handlers{
		logger:      logger,
		tasks:       tasks,
		profiles:    profiles,
		generator:   generator,
		suggestions: suggestions,
		learner:     learner,
		history:     history,
		index:       index,
		chunks:      chunks,
		embedder:    embedder,
		labels:      labels,
	}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondOK(w, http.StatusOK, map[string]string{"status": "ok"})
}
