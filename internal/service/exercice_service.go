package service

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/synapso/internal/calculator"
	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/metrics"
	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/validation"
)

const (
	defaultStatsDays = 90
	maxStatsDays     = 366
)

// ExerciceService handles exercises, body parts and the completion history.
type ExerciceService struct {
	*Deps
}

// NewExerciceService creates a new ExerciceService.
func NewExerciceService(deps *Deps) *ExerciceService {
	return &ExerciceService{Deps: deps}
}

const equipmentsTag = "max=50,dive,max=100"

type exerciceRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Description     string   `json:"description" validate:"max=5000"`
	Comment         string   `json:"comment" validate:"max=5000"`
	Series          int      `json:"series" validate:"gte=0"`
	Repetitions     int      `json:"repetitions" validate:"gte=0"`
	DurationSeconds int      `json:"durationSeconds" validate:"gte=0"`
	Equipments      []string `json:"equipments" validate:"max=50,dive,max=100"`
	BodypartIDs     []string `json:"bodypartIds" validate:"max=50"`
	Pinned          bool     `json:"pinned"`
}

type exercicePatch struct {
	Name            *string   `json:"name" validate:"omitempty,max=200"`
	Description     *string   `json:"description" validate:"omitempty,max=5000"`
	Comment         *string   `json:"comment" validate:"omitempty,max=5000"`
	Series          *int      `json:"series" validate:"omitempty,gte=0"`
	Repetitions     *int      `json:"repetitions" validate:"omitempty,gte=0"`
	DurationSeconds *int      `json:"durationSeconds" validate:"omitempty,gte=0"`
	Equipments      *[]string `json:"equipments" validate:"omitempty,max=50"`
	BodypartIDs     *[]string `json:"bodypartIds" validate:"omitempty,max=50"`
}

type completeRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

type pinRequest struct {
	Pinned *bool `json:"pinned" validate:"required"`
}

// StatsResponse is the body of GET /api/history/stats.
type StatsResponse struct {
	calculator.StreakSummary
	Heatmap []calculator.DayCount `json:"heatmap"`
}

func bodypartRefs(ids []string) []models.Bodypart {
	refs := make([]models.Bodypart, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, models.Bodypart{ID: id})
	}
	return refs
}

func cleanEquipments(equipments []string) []string {
	cleaned := make([]string, 0, len(equipments))
	for _, e := range equipments {
		if e = strings.TrimSpace(e); e != "" {
			cleaned = append(cleaned, e)
		}
	}
	return cleaned
}

// withCompletion fills the derived Completed flag for the effective user.
func (s *ExerciceService) withCompletion(r *http.Request, exercices ...*models.Exercice) {
	freq := effectiveUser(r).ResetFrequency
	now := s.now()
	for _, ex := range exercices {
		ex.Completed = calculator.InPeriod(ex.CompletedAt, now, freq, s.location())
	}
}

// ListBodyparts returns every body part.
func (s *ExerciceService) ListBodyparts(w http.ResponseWriter, r *http.Request) {
	bodyparts, err := s.Store.ListBodyparts(r.Context())
	if err != nil {
		respondError(w, "ListBodyparts", "bodypart", err)
		return
	}
	if bodyparts == nil {
		bodyparts = []*models.Bodypart{}
	}
	httpx.WriteJSON(w, http.StatusOK, bodyparts)
}

// ListExercices returns the exercises of the effective user, optionally
// filtered by ?bodypart=<id>.
func (s *ExerciceService) ListExercices(w http.ResponseWriter, r *http.Request) {
	user := effectiveUser(r)
	exercices, err := s.Store.ListExercices(r.Context(), user.ID, r.URL.Query().Get("bodypart"))
	if err != nil {
		respondError(w, "ListExercices", "exercice", err)
		return
	}
	if exercices == nil {
		exercices = []*models.Exercice{}
	}
	s.withCompletion(r, exercices...)

	slog.Debug("ListExercices successful", "user_id", user.ID, "count", len(exercices))
	httpx.WriteJSON(w, http.StatusOK, exercices)
}

// GetExercice returns one exercise.
func (s *ExerciceService) GetExercice(w http.ResponseWriter, r *http.Request) {
	ex, err := s.Store.GetExercice(r.Context(), effectiveUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "GetExercice", "exercice", err)
		return
	}
	s.withCompletion(r, ex)
	httpx.WriteJSON(w, http.StatusOK, ex)
}

// CreateExercice creates an exercise for the effective user.
func (s *ExerciceService) CreateExercice(w http.ResponseWriter, r *http.Request) {
	var req exerciceRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "CreateExercice", "exercice", err)
		return
	}
	name, err := requiredText("name", req.Name)
	if err != nil {
		respondError(w, "CreateExercice", "exercice", err)
		return
	}

	ex := &models.Exercice{
		UserID:          effectiveUser(r).ID,
		Name:            name,
		Description:     req.Description,
		Comment:         req.Comment,
		Series:          req.Series,
		Repetitions:     req.Repetitions,
		DurationSeconds: req.DurationSeconds,
		Equipments:      cleanEquipments(req.Equipments),
		Bodyparts:       bodypartRefs(req.BodypartIDs),
		Pinned:          req.Pinned,
	}
	if err = s.Store.CreateExercice(r.Context(), ex); err != nil {
		respondError(w, "CreateExercice", "exercice", err)
		return
	}

	// Reload to get the body part names
	created, err := s.Store.GetExercice(r.Context(), ex.UserID, ex.ID)
	if err != nil {
		respondError(w, "CreateExercice", "exercice", err)
		return
	}

	slog.Info("Exercice created", "exercice_id", created.ID, "user_id", created.UserID)
	httpx.WriteJSON(w, http.StatusCreated, created)
}

// UpdateExercice applies the fields present in the body.
func (s *ExerciceService) UpdateExercice(w http.ResponseWriter, r *http.Request) {
	var req exercicePatch
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "UpdateExercice", "exercice", err)
		return
	}
	// Same limits as on create
	if req.Equipments != nil {
		if err := validation.Var("equipments", *req.Equipments, equipmentsTag); err != nil {
			respondError(w, "UpdateExercice", "exercice", httpx.BadRequest("%s", err.Error()))
			return
		}
	}

	ctx := r.Context()
	userID := effectiveUser(r).ID
	ex, err := s.Store.GetExercice(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "UpdateExercice", "exercice", err)
		return
	}

	if req.Name != nil {
		if ex.Name, err = requiredText("name", *req.Name); err != nil {
			respondError(w, "UpdateExercice", "exercice", err)
			return
		}
	}
	if req.Description != nil {
		ex.Description = *req.Description
	}
	if req.Comment != nil {
		ex.Comment = *req.Comment
	}
	if req.Series != nil {
		ex.Series = *req.Series
	}
	if req.Repetitions != nil {
		ex.Repetitions = *req.Repetitions
	}
	if req.DurationSeconds != nil {
		ex.DurationSeconds = *req.DurationSeconds
	}
	if req.Equipments != nil {
		ex.Equipments = cleanEquipments(*req.Equipments)
	}
	if req.BodypartIDs != nil {
		ex.Bodyparts = bodypartRefs(*req.BodypartIDs)
	}

	if err := s.Store.UpdateExercice(ctx, ex); err != nil {
		respondError(w, "UpdateExercice", "exercice", err)
		return
	}

	updated, err := s.Store.GetExercice(ctx, userID, ex.ID)
	if err != nil {
		respondError(w, "UpdateExercice", "exercice", err)
		return
	}
	s.withCompletion(r, updated)

	slog.Info("Exercice updated", "exercice_id", updated.ID)
	httpx.WriteJSON(w, http.StatusOK, updated)
}

// DeleteExercice removes an exercise and its history.
func (s *ExerciceService) DeleteExercice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Store.DeleteExercice(r.Context(), effectiveUser(r).ID, id); err != nil {
		respondError(w, "DeleteExercice", "exercice", err)
		return
	}
	slog.Info("Exercice deleted", "exercice_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// CompleteExercice marks an exercise done (or not done) for the current
// reset period of the effective user.
func (s *ExerciceService) CompleteExercice(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "CompleteExercice", "exercice", err)
		return
	}

	ctx := r.Context()
	user := effectiveUser(r)
	id := chi.URLParam(r, "id")
	now := s.now()
	periodStart := calculator.PeriodStart(now, user.ResetFrequency, s.location())

	if *req.Completed {
		recorded, err := s.Store.CompleteExercice(ctx, user.ID, id, now, periodStart)
		if err != nil {
			respondError(w, "CompleteExercice", "exercice", err)
			return
		}
		if recorded {
			metrics.ExerciceCompletions.WithLabelValues("complete").Inc()
		}
		slog.Info("Exercice completed", "exercice_id", id, "user_id", user.ID, "recorded", recorded)
	} else {
		if err := s.Store.UncompleteExercice(ctx, user.ID, id, periodStart); err != nil {
			respondError(w, "CompleteExercice", "exercice", err)
			return
		}
		metrics.ExerciceCompletions.WithLabelValues("uncomplete").Inc()
		slog.Info("Exercice uncompleted", "exercice_id", id, "user_id", user.ID)
	}

	ex, err := s.Store.GetExercice(ctx, user.ID, id)
	if err != nil {
		respondError(w, "CompleteExercice", "exercice", err)
		return
	}
	s.withCompletion(r, ex)
	httpx.WriteJSON(w, http.StatusOK, ex)
}

// PinExercice pins or unpins an exercise.
func (s *ExerciceService) PinExercice(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "PinExercice", "exercice", err)
		return
	}

	ctx := r.Context()
	userID := effectiveUser(r).ID
	id := chi.URLParam(r, "id")
	if err := s.Store.SetExercicePinned(ctx, userID, id, *req.Pinned); err != nil {
		respondError(w, "PinExercice", "exercice", err)
		return
	}

	ex, err := s.Store.GetExercice(ctx, userID, id)
	if err != nil {
		respondError(w, "PinExercice", "exercice", err)
		return
	}
	s.withCompletion(r, ex)
	httpx.WriteJSON(w, http.StatusOK, ex)
}

// ListHistory returns the completions of the effective user, newest first.
// from and to are local days, both inclusive.
func (s *ExerciceService) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var err error
	var from, to time.Time
	if v := q.Get("from"); v != "" {
		if from, err = s.parseDay("from", v); err != nil {
			respondError(w, "ListHistory", "history", err)
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = s.parseDay("to", v); err != nil {
			respondError(w, "ListHistory", "history", err)
			return
		}
		to = to.AddDate(0, 0, 1)
	}

	history, err := s.Store.ListHistory(r.Context(), effectiveUser(r).ID, from, to)
	if err != nil {
		respondError(w, "ListHistory", "history", err)
		return
	}
	if history == nil {
		history = []*models.History{}
	}
	httpx.WriteJSON(w, http.StatusOK, history)
}

// HistoryStats returns the streaks and a heatmap of the last ?days days.
func (s *ExerciceService) HistoryStats(w http.ResponseWriter, r *http.Request) {
	days := defaultStatsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxStatsDays {
			respondError(w, "HistoryStats", "history", httpx.BadRequest("days must be between 1 and %d", maxStatsDays))
			return
		}
		days = n
	}

	history, err := s.Store.ListHistory(r.Context(), effectiveUser(r).ID, time.Time{}, time.Time{})
	if err != nil {
		respondError(w, "HistoryStats", "history", err)
		return
	}

	completions := make([]time.Time, 0, len(history))
	for _, h := range history {
		completions = append(completions, h.CompletedAt)
	}

	now := s.now()
	loc := s.location()
	httpx.WriteJSON(w, http.StatusOK, StatsResponse{
		StreakSummary: calculator.Streaks(completions, now, loc),
		Heatmap:       calculator.Heatmap(completions, now.AddDate(0, 0, -(days-1)), now, loc),
	})
}
