package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wxsales/copilot/internal/apperr"
	"github.com/wxsales/copilot/internal/reply"
)

// ListSuggestions returns recent suggestions for one session.
func (h *Handlers) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondErr(w, h.logger, apperr.Validation("session_id is required"))
		return
	}
	suggestions, err := h.suggestions.ListBySession(r.Context(), sessionID, 20)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, suggestions)
}

type selectRequest struct {
	Style string `json:"style"`
}

// SelectSuggestion records which style the user picked and feeds the
// dispatched reply back into the conversation transcript, so the next
// generation sees its own prior turn.
func (h *Handlers) SelectSuggestion(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	style := reply.Style(req.Style)
	switch style {
	case reply.StyleAggressive, reply.StyleConservative, reply.StyleProfessional:
	default:
		respondErr(w, h.logger, apperr.Validation("style must be aggressive, conservative, or professional"))
		return
	}

	id := chi.URLParam(r, "id")
	sg, err := h.suggestions.Get(r.Context(), id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if sg == nil {
		respondErr(w, h.logger, apperr.NotFound("suggestion not found"))
		return
	}
	if err := h.learner.RecordSelection(r.Context(), id, req.Style); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	if h.history != nil {
		if content := chosenReply(sg, style); content != "" {
			err := h.history.Append(r.Context(), sg.SessionID, reply.Message{
				Role:      reply.RoleAssistant,
				Content:   content,
				Timestamp: time.Now(),
			})
			if err != nil {
				h.logger.Warn("history append failed", "session_id", sg.SessionID, "error", err)
			}
		}
	}

	respondOK(w, http.StatusOK, map[string]string{"id": id, "selected": req.Style})
}

// chosenReply is the text the user actually dispatched: their edit if
// they made one, otherwise the selected variant.
func chosenReply(sg *reply.Suggestion, style reply.Style) string {
	if sg.EditedContent != "" {
		return sg.EditedContent
	}
	switch style {
	case reply.StyleAggressive:
		return sg.Aggressive
	case reply.StyleConservative:
		return sg.Conservative
	default:
		return sg.Professional
	}
}

type editRequest struct {
	Original string `json:"original"`
	Modified string `json:"modified"`
}

// EditSuggestion records the user's edit of a generated reply.
func (h *Handlers) EditSuggestion(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Modified) == "" {
		respondErr(w, h.logger, apperr.Validation("modified text is required"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.learner.RecordModification(r.Context(), id, req.Original, req.Modified); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]string{"id": id})
}

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	PromptID  int64  `json:"prompt_id"`
	Query     string `json:"query"`
	Original  string `json:"original"`
	Final     string `json:"final"`
	Action    string `json:"action"`
}

// RecordFeedback runs the golden-reply learning step.
func (h *Handlers) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	action := reply.FeedbackAction(req.Action)
	switch action {
	case reply.ActionAccepted, reply.ActionModified, reply.ActionRejected:
	default:
		respondErr(w, h.logger, apperr.Validation("action must be ACCEPTED, MODIFIED, or REJECTED"))
		return
	}
	err := h.learner.RecordFeedback(r.Context(), req.SessionID, req.PromptID, req.Query, req.Original, req.Final, action)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]string{"recorded": req.Action})
}

// VariantStats returns style-preference counts; session_id is optional
// and an empty value aggregates globally.
func (h *Handlers) VariantStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.suggestions.VariantStats(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, stats)
}
