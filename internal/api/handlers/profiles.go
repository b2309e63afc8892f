package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/wxsales/copilot/internal/apperr"
	"github.com/wxsales/copilot/internal/profile"
)

// profileRequest accepts the loose JSON shapes the desktop client sends
// for knowledge_base and forbidden_words; normalization happens here at
// the boundary.
type profileRequest struct {
	Name           string          `json:"name"`
	RoleDefinition string          `json:"role_definition"`
	BusinessLogic  string          `json:"business_logic"`
	ToneStyle      string          `json:"tone_style"`
	ReplyLength    string          `json:"reply_length"`
	EmojiUsage     string          `json:"emoji_usage"`
	KnowledgeBase  json.RawMessage `json:"knowledge_base"`
	ForbiddenWords json.RawMessage `json:"forbidden_words"`
}

func (req *profileRequest) toProfile() (*profile.Profile, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	kb, err := profile.NormalizeKnowledgeBase(req.KnowledgeBase)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "bad knowledge_base", err)
	}
	fw, err := profile.NormalizeForbiddenWords(req.ForbiddenWords)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "bad forbidden_words", err)
	}
	return &profile.Profile{
		Name:           req.Name,
		RoleDefinition: req.RoleDefinition,
		BusinessLogic:  req.BusinessLogic,
		ToneStyle:      req.ToneStyle,
		ReplyLength:    req.ReplyLength,
		EmojiUsage:     req.EmojiUsage,
		KnowledgeBase:  kb,
		ForbiddenWords: fw,
	}, nil
}

// ListProfiles returns all profiles.
func (h *Handlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, profiles)
}

// GetActiveProfile returns the single active profile.
func (h *Handlers) GetActiveProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := h.profiles.GetActive(r.Context())
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if prof == nil {
		respondErr(w, h.logger, apperr.NotFound("no active profile"))
		return
	}
	respondOK(w, http.StatusOK, prof)
}

// CreateProfile inserts a new (inactive) profile.
func (h *Handlers) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	prof, err := req.toProfile()
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	id, err := h.profiles.Create(r.Context(), prof)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusCreated, map[string]int64{"id": id})
}

// UpdateProfile replaces a profile's editable fields.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondErr(w, h.logger, apperr.Validation("bad profile id"))
		return
	}
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, h.logger, err)
		return
	}
	prof, err := req.toProfile()
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	prof.ID = id
	if err := h.profiles.Update(r.Context(), prof); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondErr(w, h.logger, apperr.NotFound("profile not found"))
			return
		}
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]int64{"id": id})
}

// ActivateProfile makes one profile active and deactivates the rest.
func (h *Handlers) ActivateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondErr(w, h.logger, apperr.Validation("bad profile id"))
		return
	}
	if err := h.profiles.Activate(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondErr(w, h.logger, apperr.NotFound("profile not found"))
			return
		}
		respondErr(w, h.logger, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]int64{"active_id": id})
}
