package service

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/validation"
)

const dateTag = "datetime=" + models.DateLayout

// ProgressService handles daily progress entries.
type ProgressService struct {
	*Deps
}

// NewProgressService creates a new ProgressService.
func NewProgressService(deps *Deps) *ProgressService {
	return &ProgressService{Deps: deps}
}

type progressRequest struct {
	Emoji   string `json:"emoji" validate:"required,max=32"`
	Comment string `json:"comment" validate:"max=5000"`
}

func dateParam(field, value string) (string, error) {
	if err := validation.Var(field, value, dateTag); err != nil {
		return "", httpx.BadRequest("%s", err.Error())
	}
	return value, nil
}

// ListProgress returns the entries of the effective user between the
// optional ?from and ?to days, both inclusive, oldest first.
func (s *ProgressService) ListProgress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from != "" {
		if _, err := dateParam("from", from); err != nil {
			respondError(w, "ListProgress", "progress", err)
			return
		}
	}
	if to != "" {
		if _, err := dateParam("to", to); err != nil {
			respondError(w, "ListProgress", "progress", err)
			return
		}
	}

	entries, err := s.Store.ListProgress(r.Context(), effectiveUser(r).ID, from, to)
	if err != nil {
		respondError(w, "ListProgress", "progress", err)
		return
	}
	if entries == nil {
		entries = []*models.Progress{}
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

// PutProgress creates or replaces the entry of a day: 201 when created, 200 when replaced.
func (s *ProgressService) PutProgress(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam("date", chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, "PutProgress", "progress", err)
		return
	}

	var req progressRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "PutProgress", "progress", err)
		return
	}

	p := &models.Progress{
		UserID:  effectiveUser(r).ID,
		Date:    date,
		Emoji:   req.Emoji,
		Comment: req.Comment,
	}
	created, err := s.Store.UpsertProgress(r.Context(), p)
	if err != nil {
		respondError(w, "PutProgress", "progress", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	slog.Info("Progress saved", "user_id", p.UserID, "date", p.Date, "created", created)
	httpx.WriteJSON(w, status, p)
}

// DeleteProgress removes the entry of a day.
func (s *ProgressService) DeleteProgress(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam("date", chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, "DeleteProgress", "progress", err)
		return
	}
	if err := s.Store.DeleteProgress(r.Context(), effectiveUser(r).ID, date); err != nil {
		respondError(w, "DeleteProgress", "progress", err)
		return
	}
	slog.Info("Progress deleted", "date", date)
	w.WriteHeader(http.StatusNoContent)
}
