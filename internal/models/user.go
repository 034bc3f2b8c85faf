package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Role is the privilege level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ResetFrequency controls when the "completed" status of an exercise expires.
type ResetFrequency string

const (
	ResetDaily  ResetFrequency = "DAILY"
	ResetWeekly ResetFrequency = "WEEKLY"
)

// DominantHand is used by the frontend to mirror exercise illustrations.
type DominantHand string

const (
	HandRight DominantHand = "RIGHT"
	HandLeft  DominantHand = "LEFT"
)

// User represents an account: a patient, a caregiver or an admin.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Name is the login name. Unique, compared case-insensitively.
	Name string `json:"name"`

	// PasswordHash is the bcrypt hash of the password. Never serialized.
	PasswordHash string `json:"-"`

	// Role grants admin features (user management, impersonation) when RoleAdmin.
	Role Role `json:"role"`

	// ResetFrequency is DAILY or WEEKLY.
	ResetFrequency ResetFrequency `json:"resetFrequency"`

	DominantHand DominantHand `json:"dominantHand"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser creates a user with default settings.
func NewUser(name, passwordHash string, role Role) *User {
	now := time.Now().UTC().Truncate(time.Second)
	if role == "" {
		role = RoleUser
	}
	return &User{
		Name:           strings.TrimSpace(name),
		PasswordHash:   passwordHash,
		Role:           role,
		ResetFrequency: ResetDaily,
		DominantHand:   HandRight,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NameKey returns the form of a login name used for uniqueness and lookups:
// trimmed, NFC-normalized and Unicode case-folded, so "Élodie" and "ÉLODIE"
// are the same account.
func NameKey(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
