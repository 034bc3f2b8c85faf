package models

import "time"

// Progress is the daily progress entry of a user. There is at most one per
// user and calendar day.
type Progress struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Date    string `json:"date"`
	Emoji   string `json:"emoji"`
	Comment string `json:"comment"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Victory is a small win the user wants to remember.
type Victory struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Content string `json:"content"`
	Emoji   string `json:"emoji"`
	Pinned  bool   `json:"pinned"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
