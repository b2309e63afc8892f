package handlers

import (
	"net/http"

	"github.com/wxsales/copilot/internal/apperr"
)

type ingestLabelsRequest struct {
	Labels []string `json:"labels"`
}

// IngestLabels accepts one accessibility snapshot from the desktop
// agent. The whole snapshot replaces the previous one; the listener
// picks it up on its next tick.
func (h *Handlers) IngestLabels(w http.ResponseWriter, r *http.Request) {
	if h.labels == nil {
		respondErr(w, h.logger, apperr.New(apperr.KindUpstreamConfig, "label ingest is not enabled"))
		return
	}
	var req ingestLabelsRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	h.labels.Push(req.Labels)
	respondOK(w, http.StatusAccepted, map[string]int{"received": len(req.Labels)})
}
