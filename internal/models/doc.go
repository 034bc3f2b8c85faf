// Package models defines the core domain records for Synapso.
//
// # Records
//
// Every record except User and Bodypart belongs to exactly one user through UserID:
//   - Exercice: a physical exercise, with its body parts and its last completion
//   - History: one completion of an exercise
//   - JournalNote / JournalTask: free notes and to-do items
//   - AphasieItem / AphasieChallenge: speech-therapy citations and challenges
//   - Progress: one daily progress entry (unique per user and date)
//   - Victory: a small win worth remembering
//
// # Conventions
//
//  1. IDs are UUID strings assigned by the store when empty.
//  2. Relationships use ID strings, never pointers to other records.
//  3. Calendar days are "2006-01-02" strings; instants are time.Time.
//  4. JSON field names are camelCase, matching the web frontend.
package models

// DateLayout is the layout of calendar-day strings (Progress.Date, JournalTask.DueDate, query ranges).
const DateLayout = "2006-01-02"
