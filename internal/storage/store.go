// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/synapso/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist, or exists but
	// belongs to another user.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("record already exists")

	// ErrInvalidReference is returned when a write references a record that
	// does not exist (e.g. an unknown body part).
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// Store defines the storage operations used by the service layer.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	BodypartStore
	ExerciceStore
	HistoryStore
	JournalStore
	AphasieStore
	ProgressStore
	VictoryStore

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts a user. Returns ErrConflict when the name is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUserByName looks a user up by name, case-insensitively.
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	// UpdateUserSettings stores ResetFrequency and DominantHand.
	UpdateUserSettings(ctx context.Context, user *models.User) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	// DeleteUser removes a user and, by cascade, everything it owns.
	DeleteUser(ctx context.Context, id string) error
}

// BodypartStore persists the shared body part labels.
type BodypartStore interface {
	ListBodyparts(ctx context.Context) ([]*models.Bodypart, error)
	// CreateBodypart returns ErrConflict when the name is taken.
	CreateBodypart(ctx context.Context, bp *models.Bodypart) error
}

// ExerciceStore persists exercises. Every method is scoped by the owner's ID.
type ExerciceStore interface {
	// ListExercices returns the user's exercises, pinned first then by name.
	// A non-empty bodypartID keeps only exercises tagged with it.
	ListExercices(ctx context.Context, userID, bodypartID string) ([]*models.Exercice, error)
	GetExercice(ctx context.Context, userID, id string) (*models.Exercice, error)
	// CreateExercice returns ErrInvalidReference for unknown body parts.
	CreateExercice(ctx context.Context, ex *models.Exercice) error
	// UpdateExercice replaces the editable fields and body parts.
	UpdateExercice(ctx context.Context, ex *models.Exercice) error
	DeleteExercice(ctx context.Context, userID, id string) error
	SetExercicePinned(ctx context.Context, userID, id string, pinned bool) error

	// CompleteExercice marks the exercise completed at `at` and appends a
	// History row, unless it was already completed at or after periodStart.
	// Returns whether a new completion was recorded.
	CompleteExercice(ctx context.Context, userID, id string, at, periodStart time.Time) (bool, error)

	// UncompleteExercice clears the completion and removes the History rows
	// recorded at or after periodStart.
	UncompleteExercice(ctx context.Context, userID, id string, periodStart time.Time) error

	// ClearCompletionsBefore clears CompletedAt of the user's exercises
	// completed before periodStart. History is kept. Returns the number of
	// exercises changed.
	ClearCompletionsBefore(ctx context.Context, userID string, periodStart time.Time) (int64, error)
}

// HistoryStore reads the completion log.
type HistoryStore interface {
	// ListHistory returns completions in [from, to), newest first.
	// Zero bounds are open.
	ListHistory(ctx context.Context, userID string, from, to time.Time) ([]*models.History, error)
}

// JournalStore persists journal notes and tasks.
type JournalStore interface {
	ListNotes(ctx context.Context, userID string) ([]*models.JournalNote, error)
	GetNote(ctx context.Context, userID, id string) (*models.JournalNote, error)
	CreateNote(ctx context.Context, note *models.JournalNote) error
	UpdateNote(ctx context.Context, note *models.JournalNote) error
	DeleteNote(ctx context.Context, userID, id string) error

	ListTasks(ctx context.Context, userID string) ([]*models.JournalTask, error)
	GetTask(ctx context.Context, userID, id string) (*models.JournalTask, error)
	CreateTask(ctx context.Context, task *models.JournalTask) error
	UpdateTask(ctx context.Context, task *models.JournalTask) error
	DeleteTask(ctx context.Context, userID, id string) error
}

// AphasieStore persists speech-therapy citations and challenges.
type AphasieStore interface {
	ListAphasieItems(ctx context.Context, userID string) ([]*models.AphasieItem, error)
	GetAphasieItem(ctx context.Context, userID, id string) (*models.AphasieItem, error)
	CreateAphasieItem(ctx context.Context, item *models.AphasieItem) error
	UpdateAphasieItem(ctx context.Context, item *models.AphasieItem) error
	DeleteAphasieItem(ctx context.Context, userID, id string) error

	ListChallenges(ctx context.Context, userID string) ([]*models.AphasieChallenge, error)
	GetChallenge(ctx context.Context, userID, id string) (*models.AphasieChallenge, error)
	CreateChallenge(ctx context.Context, c *models.AphasieChallenge) error
	UpdateChallenge(ctx context.Context, c *models.AphasieChallenge) error
	DeleteChallenge(ctx context.Context, userID, id string) error
}

// ProgressStore persists daily progress entries.
type ProgressStore interface {
	// ListProgress returns entries with from <= date <= to, ascending.
	// Empty bounds are open.
	ListProgress(ctx context.Context, userID, from, to string) ([]*models.Progress, error)
	// UpsertProgress inserts or replaces the entry for (UserID, Date).
	// Returns true when a new entry was created.
	UpsertProgress(ctx context.Context, p *models.Progress) (bool, error)
	DeleteProgress(ctx context.Context, userID, date string) error
}

// VictoryStore persists victories.
type VictoryStore interface {
	ListVictories(ctx context.Context, userID string) ([]*models.Victory, error)
	GetVictory(ctx context.Context, userID, id string) (*models.Victory, error)
	CreateVictory(ctx context.Context, v *models.Victory) error
	UpdateVictory(ctx context.Context, v *models.Victory) error
	DeleteVictory(ctx context.Context, userID, id string) error
}
