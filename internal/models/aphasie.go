package models

import "time"

// AphasieItem is a citation collected during speech therapy: something the
// patient said, and what was meant.
type AphasieItem struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Quote   string `json:"quote"`
	Meaning string `json:"meaning"`

	// Date is free text ("March 2024", "2024-03-02"), as entered by the user.
	Date    string `json:"date"`
	Comment string `json:"comment"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AphasieChallenge is a word or sentence the patient is working on.
type AphasieChallenge struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Text       string     `json:"text"`
	Mastered   bool       `json:"mastered"`
	MasteredAt *time.Time `json:"masteredAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// SetMastered flips the mastered flag, stamping or clearing MasteredAt.
func (c *AphasieChallenge) SetMastered(mastered bool, now time.Time) {
	if mastered == c.Mastered {
		return
	}
	c.Mastered = mastered
	if mastered {
		at := now.UTC().Truncate(time.Second)
		c.MasteredAt = &at
	} else {
		c.MasteredAt = nil
	}
}
