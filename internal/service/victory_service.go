package service

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/models"
)

// VictoryService handles victories.
type VictoryService struct {
	*Deps
}

// NewVictoryService creates a new VictoryService.
func NewVictoryService(deps *Deps) *VictoryService {
	return &VictoryService{Deps: deps}
}

type victoryRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
	Emoji   string `json:"emoji" validate:"max=32"`
	Pinned  bool   `json:"pinned"`
}

type victoryPatch struct {
	Content *string `json:"content" validate:"omitempty,max=5000"`
	Emoji   *string `json:"emoji" validate:"omitempty,max=32"`
	Pinned  *bool   `json:"pinned"`
}

// ListVictories returns the victories of the effective user, pinned first.
func (s *VictoryService) ListVictories(w http.ResponseWriter, r *http.Request) {
	victories, err := s.Store.ListVictories(r.Context(), effectiveUser(r).ID)
	if err != nil {
		respondError(w, "ListVictories", "victory", err)
		return
	}
	if victories == nil {
		victories = []*models.Victory{}
	}
	httpx.WriteJSON(w, http.StatusOK, victories)
}

// CreateVictory records a victory.
func (s *VictoryService) CreateVictory(w http.ResponseWriter, r *http.Request) {
	var req victoryRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "CreateVictory", "victory", err)
		return
	}
	content, err := requiredText("content", req.Content)
	if err != nil {
		respondError(w, "CreateVictory", "victory", err)
		return
	}

	v := &models.Victory{
		UserID:  effectiveUser(r).ID,
		Content: content,
		Emoji:   req.Emoji,
		Pinned:  req.Pinned,
	}
	if err := s.Store.CreateVictory(r.Context(), v); err != nil {
		respondError(w, "CreateVictory", "victory", err)
		return
	}

	slog.Info("Victory created", "victory_id", v.ID, "user_id", v.UserID)
	httpx.WriteJSON(w, http.StatusCreated, v)
}

// UpdateVictory applies the fields present in the body.
func (s *VictoryService) UpdateVictory(w http.ResponseWriter, r *http.Request) {
	var req victoryPatch
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "UpdateVictory", "victory", err)
		return
	}

	v, err := s.Store.GetVictory(r.Context(), effectiveUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "UpdateVictory", "victory", err)
		return
	}
	if req.Content != nil {
		if v.Content, err = requiredText("content", *req.Content); err != nil {
			respondError(w, "UpdateVictory", "victory", err)
			return
		}
	}
	if req.Emoji != nil {
		v.Emoji = *req.Emoji
	}
	if req.Pinned != nil {
		v.Pinned = *req.Pinned
	}

	if err := s.Store.UpdateVictory(r.Context(), v); err != nil {
		respondError(w, "UpdateVictory", "victory", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

// DeleteVictory removes a victory.
func (s *VictoryService) DeleteVictory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Store.DeleteVictory(r.Context(), effectiveUser(r).ID, id); err != nil {
		respondError(w, "DeleteVictory", "victory", err)
		return
	}
	slog.Info("Victory deleted", "victory_id", id)
	w.WriteHeader(http.StatusNoContent)
}
