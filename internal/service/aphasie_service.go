package service

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/models"
)

// AphasieService handles speech-therapy citations and challenges.
type AphasieService struct {
	*Deps
}

// NewAphasieService creates a new AphasieService.
func NewAphasieService(deps *Deps) *AphasieService {
	return &AphasieService{Deps: deps}
}

type aphasieItemRequest struct {
	Quote   string `json:"quote" validate:"required,max=1000"`
	Meaning string `json:"meaning" validate:"max=1000"`
	Date    string `json:"date" validate:"max=100"`
	Comment string `json:"comment" validate:"max=5000"`
}

type aphasieItemPatch struct {
	Quote   *string `json:"quote" validate:"omitempty,max=1000"`
	Meaning *string `json:"meaning" validate:"omitempty,max=1000"`
	Date    *string `json:"date" validate:"omitempty,max=100"`
	Comment *string `json:"comment" validate:"omitempty,max=5000"`
}

type challengeRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

type challengePatch struct {
	Text     *string `json:"text" validate:"omitempty,max=1000"`
	Mastered *bool   `json:"mastered"`
}

// ListItems returns the citations of the effective user.
func (s *AphasieService) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.ListAphasieItems(r.Context(), effectiveUser(r).ID)
	if err != nil {
		respondError(w, "ListAphasieItems", "item", err)
		return
	}
	if items == nil {
		items = []*models.AphasieItem{}
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// GetItem returns one citation.
func (s *AphasieService) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.Store.GetAphasieItem(r.Context(), effectiveUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "GetAphasieItem", "item", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

// CreateItem records a citation.
func (s *AphasieService) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req aphasieItemRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "CreateAphasieItem", "item", err)
		return
	}
	quote, err := requiredText("quote", req.Quote)
	if err != nil {
		respondError(w, "CreateAphasieItem", "item", err)
		return
	}

	item := &models.AphasieItem{
		UserID:  effectiveUser(r).ID,
		Quote:   quote,
		Meaning: req.Meaning,
		Date:    req.Date,
		Comment: req.Comment,
	}
	if err := s.Store.CreateAphasieItem(r.Context(), item); err != nil {
		respondError(w, "CreateAphasieItem", "item", err)
		return
	}

	slog.Info("Aphasie item created", "item_id", item.ID, "user_id", item.UserID)
	httpx.WriteJSON(w, http.StatusCreated, item)
}

// UpdateItem applies the fields present in the body.
func (s *AphasieService) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req aphasieItemPatch
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "UpdateAphasieItem", "item", err)
		return
	}

	item, err := s.Store.GetAphasieItem(r.Context(), effectiveUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "UpdateAphasieItem", "item", err)
		return
	}
	if req.Quote != nil {
		if item.Quote, err = requiredText("quote", *req.Quote); err != nil {
			respondError(w, "UpdateAphasieItem", "item", err)
			return
		}
	}
	if req.Meaning != nil {
		item.Meaning = *req.Meaning
	}
	if req.Date != nil {
		item.Date = *req.Date
	}
	if req.Comment != nil {
		item.Comment = *req.Comment
	}

	if err := s.Store.UpdateAphasieItem(r.Context(), item); err != nil {
		respondError(w, "UpdateAphasieItem", "item", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

// DeleteItem removes a citation.
func (s *AphasieService) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Store.DeleteAphasieItem(r.Context(), effectiveUser(r).ID, id); err != nil {
		respondError(w, "DeleteAphasieItem", "item", err)
		return
	}
	slog.Info("Aphasie item deleted", "item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListChallenges returns the challenges of the effective user.
func (s *AphasieService) ListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := s.Store.ListChallenges(r.Context(), effectiveUser(r).ID)
	if err != nil {
		respondError(w, "ListChallenges", "challenge", err)
		return
	}
	if challenges == nil {
		challenges = []*models.AphasieChallenge{}
	}
	httpx.WriteJSON(w, http.StatusOK, challenges)
}

// CreateChallenge adds a challenge, not yet mastered.
func (s *AphasieService) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "CreateChallenge", "challenge", err)
		return
	}
	text, err := requiredText("text", req.Text)
	if err != nil {
		respondError(w, "CreateChallenge", "challenge", err)
		return
	}

	c := &models.AphasieChallenge{
		UserID: effectiveUser(r).ID,
		Text:   text,
	}
	if err := s.Store.CreateChallenge(r.Context(), c); err != nil {
		respondError(w, "CreateChallenge", "challenge", err)
		return
	}

	slog.Info("Challenge created", "challenge_id", c.ID, "user_id", c.UserID)
	httpx.WriteJSON(w, http.StatusCreated, c)
}

// UpdateChallenge edits the text or the mastered flag.
func (s *AphasieService) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengePatch
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "UpdateChallenge", "challenge", err)
		return
	}

	c, err := s.Store.GetChallenge(r.Context(), effectiveUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "UpdateChallenge", "challenge", err)
		return
	}
	if req.Text != nil {
		if c.Text, err = requiredText("text", *req.Text); err != nil {
			respondError(w, "UpdateChallenge", "challenge", err)
			return
		}
	}
	if req.Mastered != nil {
		c.SetMastered(*req.Mastered, s.now())
	}

	if err := s.Store.UpdateChallenge(r.Context(), c); err != nil {
		respondError(w, "UpdateChallenge", "challenge", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

// DeleteChallenge removes a challenge.
func (s *AphasieService) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Store.DeleteChallenge(r.Context(), effectiveUser(r).ID, id); err != nil {
		respondError(w, "DeleteChallenge", "challenge", err)
		return
	}
	slog.Info("Challenge deleted", "challenge_id", id)
	w.WriteHeader(http.StatusNoContent)
}
