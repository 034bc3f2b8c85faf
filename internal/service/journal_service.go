package service

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/synapso/internal/httpx"
	"github.com/mmynk/synapso/internal/models"
)

// JournalService handles journal notes and tasks.
type JournalService struct {
	*Deps
}

// NewJournalService creates a new JournalService.
func NewJournalService(deps *Deps) *JournalService {
	return &JournalService{Deps: deps}
}

type noteRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=20000"`
}

type notePatch struct {
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Content *string `json:"content" validate:"omitempty,max=20000"`
}

type taskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	DueDate     string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

type taskPatch struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	DueDate     *string `json:"dueDate"`
	Completed   *bool   `json:"completed"`
}

// ListNotes returns the notes of the effective user, newest first.
func (s *JournalService) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.Store.ListNotes(r.Context(), effectiveUser(r).ID)
	if err != nil {
		respondError(w, "ListNotes", "note", err)
		return
	}
	if notes == nil {
		notes = []*models.JournalNote{}
	}
	httpx.WriteJSON(w, http.StatusOK, notes)
}

// GetNote returns one note.
func (s *JournalService) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.Store.GetNote(r.Context(), effectiveUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "GetNote", "note", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, note)
}

// CreateNote creates a note.
func (s *JournalService) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "CreateNote", "note", err)
		return
	}

	title, err := requiredText("title", req.Title)
	if err != nil {
		respondError(w, "CreateNote", "note", err)
		return
	}

	note := &models.JournalNote{
		UserID:  effectiveUser(r).ID,
		Title:   title,
		Content: req.Content,
	}
	if err := s.Store.CreateNote(r.Context(), note); err != nil {
		respondError(w, "CreateNote", "note", err)
		return
	}

	slog.Info("Note created", "note_id", note.ID, "user_id", note.UserID)
	httpx.WriteJSON(w, http.StatusCreated, note)
}

// UpdateNote applies the fields present in the body.
func (s *JournalService) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req notePatch
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "UpdateNote", "note", err)
		return
	}

	note, err := s.Store.GetNote(r.Context(), effectiveUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "UpdateNote", "note", err)
		return
	}
	if req.Title != nil {
		if note.Title, err = requiredText("title", *req.Title); err != nil {
			respondError(w, "UpdateNote", "note", err)
			return
		}
	}
	if req.Content != nil {
		note.Content = *req.Content
	}

	if err := s.Store.UpdateNote(r.Context(), note); err != nil {
		respondError(w, "UpdateNote", "note", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, note)
}

// DeleteNote removes a note.
func (s *JournalService) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Store.DeleteNote(r.Context(), effectiveUser(r).ID, id); err != nil {
		respondError(w, "DeleteNote", "note", err)
		return
	}
	slog.Info("Note deleted", "note_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListTasks returns the tasks of the effective user.
func (s *JournalService) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.Store.ListTasks(r.Context(), effectiveUser(r).ID)
	if err != nil {
		respondError(w, "ListTasks", "task", err)
		return
	}
	if tasks == nil {
		tasks = []*models.JournalTask{}
	}
	httpx.WriteJSON(w, http.StatusOK, tasks)
}

// CreateTask creates an open task.
func (s *JournalService) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "CreateTask", "task", err)
		return
	}

	title, err := requiredText("title", req.Title)
	if err != nil {
		respondError(w, "CreateTask", "task", err)
		return
	}

	task := &models.JournalTask{
		UserID:      effectiveUser(r).ID,
		Title:       title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if err := s.Store.CreateTask(r.Context(), task); err != nil {
		respondError(w, "CreateTask", "task", err)
		return
	}

	slog.Info("Task created", "task_id", task.ID, "user_id", task.UserID)
	httpx.WriteJSON(w, http.StatusCreated, task)
}

// UpdateTask applies the fields present in the body. An empty dueDate clears it.
func (s *JournalService) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req taskPatch
	if err := httpx.Decode(w, r, &req); err != nil {
		respondError(w, "UpdateTask", "task", err)
		return
	}

	task, err := s.Store.GetTask(r.Context(), effectiveUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "UpdateTask", "task", err)
		return
	}
	if req.Title != nil {
		if task.Title, err = requiredText("title", *req.Title); err != nil {
			respondError(w, "UpdateTask", "task", err)
			return
		}
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil && *req.DueDate != "" {
		if _, err := dateParam("dueDate", *req.DueDate); err != nil {
			respondError(w, "UpdateTask", "task", err)
			return
		}
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	if req.Completed != nil {
		task.SetCompleted(*req.Completed, s.now())
	}

	if err := s.Store.UpdateTask(r.Context(), task); err != nil {
		respondError(w, "UpdateTask", "task", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task.
func (s *JournalService) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Store.DeleteTask(r.Context(), effectiveUser(r).ID, id); err != nil {
		respondError(w, "DeleteTask", "task", err)
		return
	}
	slog.Info("Task deleted", "task_id", id)
	w.WriteHeader(http.StatusNoContent)
}
