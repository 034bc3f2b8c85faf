package models

import "time"

// JournalNote is a free-form note.
type JournalNote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JournalTask is a to-do item.
type JournalTask struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// DueDate is an optional calendar day (DateLayout), empty when unset.
	DueDate string `json:"dueDate,omitempty"`

	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetCompleted flips the completion flag, stamping or clearing CompletedAt.
func (t *JournalTask) SetCompleted(completed bool, now time.Time) {
	if completed == t.Completed {
		return
	}
	t.Completed = completed
	if completed {
		at := now.UTC().Truncate(time.Second)
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
}
