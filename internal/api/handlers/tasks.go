package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wxsales/copilot/internal/apperr"
)

// ListTasks returns recent tasks for one session.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondErr(w, h.logger, apperr.Validation("session_id is required"))
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	tasks, err := h.tasks.ListBySession(r.Context(), sessionID, limit)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, tasks)
}

// GetTask returns one task by id.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if task == nil {
		respondErr(w, h.logger, apperr.NotFound("task not found"))
		return
	}
	respondOK(w, http.StatusOK, task)
}

// MarkTaskSent records that the user dispatched a chosen reply.
func (h *Handlers) MarkTaskSent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if task == nil {
		respondErr(w, h.logger, apperr.NotFound("task not found"))
		return
	}
	if err := h.tasks.MarkSent(r.Context(), id); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]string{"id": id, "status": "SENT"})
}
