package models

import "time"

// Bodypart is a shared label (e.g. "Shoulders") attached to exercises.
type Bodypart struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Exercice is a physical exercise owned by a user.
type Exercice struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	Name        string `json:"name"`
	Description string `json:"description"`
	Comment     string `json:"comment"`

	// Workout prescription. Zero means "not specified".
	Series          int `json:"series"`
	Repetitions     int `json:"repetitions"`
	DurationSeconds int `json:"durationSeconds"`

	Equipments []string   `json:"equipments"`
	Bodyparts  []Bodypart `json:"bodyparts"`

	// Pinned exercises are listed first.
	Pinned bool `json:"pinned"`

	// CompletedAt is the last completion. It is kept after the reset period ends;
	// Completed tells whether it falls in the current period.
	CompletedAt *time.Time `json:"completedAt"`

	// Completed is derived by the service layer from CompletedAt and the
	// owner's reset frequency. It is not stored.
	Completed bool `json:"completed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BodypartIDs returns the IDs of the exercise's body parts.
func (e *Exercice) BodypartIDs() []string {
	ids := make([]string, 0, len(e.Bodyparts))
	for _, bp := range e.Bodyparts {
		ids = append(ids, bp.ID)
	}
	return ids
}

// History records one completion of an exercise.
type History struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	ExerciceID string `json:"exerciceId"`

	// ExerciceName is filled when listing, for display.
	ExerciceName string `json:"exerciceName,omitempty"`

	CompletedAt time.Time `json:"completedAt"`
}
