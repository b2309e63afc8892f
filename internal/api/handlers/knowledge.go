package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/wxsales/copilot/internal/apperr"
	"github.com/wxsales/copilot/internal/knowledge"
)

type addChunkRequest struct {
	ScopeID int64  `json:"scope_id"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// AddChunk embeds one span of reference material and makes it
// searchable immediately. ScopeID 0 means visible to every profile.
func (h *Handlers) AddChunk(w http.ResponseWriter, r *http.Request) {
	if h.embedder == nil || h.chunks == nil || h.index == nil {
		respondErr(w, h.logger, apperr.New(apperr.KindUpstreamConfig, "embeddings are not configured"))
		return
	}
	var req addChunkRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondErr(w, h.logger, apperr.Validation("content is required"))
		return
	}

	vec, err := h.embedder.Embed(r.Context(), req.Content)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	chunk := knowledge.Chunk{
		ScopeID:   req.ScopeID,
		Content:   req.Content,
		Source:    req.Source,
		Embedding: vec,
	}
	id, err := h.chunks.Insert(r.Context(), chunk)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	chunk.ID = id
	h.index.Add(chunk)

	respondOK(w, http.StatusCreated, map[string]any{"id": id, "indexed": h.index.Len()})
}

// SearchKnowledge runs a similarity query against the in-memory index.
func (h *Handlers) SearchKnowledge(w http.ResponseWriter, r *http.Request) {
	if h.index == nil {
		respondErr(w, h.logger, apperr.New(apperr.KindUpstreamConfig, "embeddings are not configured"))
		return
	}
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondErr(w, h.logger, apperr.Validation("q is required"))
		return
	}
	var scopeID int64
	if raw := r.URL.Query().Get("scope_id"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondErr(w, h.logger, apperr.Validation("bad scope_id"))
			return
		}
		scopeID = n
	}
	topK := 5
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 20 {
			topK = n
		}
	}

	results, err := h.index.Search(r.Context(), query, scopeID, topK, 0.4)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, results)
}
