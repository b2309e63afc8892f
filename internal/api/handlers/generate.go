package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/wxsales/copilot/internal/apperr"
	"github.com/wxsales/copilot/internal/reply"
)

type generateRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Generate runs the reply pipeline synchronously for one message. The
// desktop client uses this for manual regeneration; the listener path
// goes through the queue instead.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Message) == "" {
		respondErr(w, h.logger, apperr.Validation("session_id and message are required"))
		return
	}

	prof, err := h.profiles.GetActive(r.Context())
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if prof == nil {
		respondErr(w, h.logger, apperr.Validation("no active profile configured"))
		return
	}

	var history []reply.Message
	if h.history != nil {
		history, err = h.history.Load(r.Context(), req.SessionID, 50)
		if err != nil {
			h.logger.Warn("history load failed", "session_id", req.SessionID, "error", err)
		}
	}

	result, err := h.generator.Generate(r.Context(), req.SessionID, req.Message, prof, history)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	if h.history != nil {
		err = h.history.Append(r.Context(), req.SessionID, reply.Message{
			Role:      reply.RoleCustomer,
			Content:   req.Message,
			Timestamp: time.Now(),
		})
		if err != nil {
			h.logger.Warn("history append failed", "session_id", req.SessionID, "error", err)
		}
	}

	respondOK(w, http.StatusOK, result)
}
