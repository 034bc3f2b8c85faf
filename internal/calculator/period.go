// Package calculator holds the date-bucketing rules of Synapso: the reset
// period of exercise completions, consecutive-day streaks and the activity heatmap.
//
// All functions are pure. Days are computed in the given location; a nil
// location means time.Local.
package calculator

import (
	"time"

	"github.com/mmynk/synapso/internal/models"
)

// PeriodStart returns the start of the reset period containing now:
// midnight of now's day for DAILY, midnight of the most recent Sunday for
// WEEKLY (today when today is Sunday). Unknown frequencies behave as DAILY.
func PeriodStart(now time.Time, freq models.ResetFrequency, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	start := StartOfDay(now, loc)
	if freq == models.ResetWeekly {
		start = start.AddDate(0, 0, -int(start.Weekday()))
	}
	return start
}

// InPeriod reports whether completedAt falls in the reset period containing now.
// A nil completion is never in period.
func InPeriod(completedAt *time.Time, now time.Time, freq models.ResetFrequency, loc *time.Location) bool {
	if completedAt == nil {
		return false
	}
	return !completedAt.Before(PeriodStart(now, freq, loc))
}

// StartOfDay returns midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ValidFrequency reports whether freq is a known reset frequency.
func ValidFrequency(freq models.ResetFrequency) bool {
	return freq == models.ResetDaily || freq == models.ResetWeekly
}
