package calculator

import (
	"sort"
	"time"

	"github.com/mmynk/synapso/internal/models"
)

// StreakSummary is the outcome of Streaks.
type StreakSummary struct {
	// Current is the number of consecutive active days ending today, or ending
	// yesterday when nothing was completed yet today.
	Current int `json:"currentStreak"`

	// Longest is the longest run of consecutive active days ever.
	Longest int `json:"longestStreak"`

	// ActiveDays is the number of distinct days with at least one completion.
	ActiveDays int `json:"activeDays"`
}

// DayCount is one cell of the heatmap.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// civil days are anchored at UTC midnight so AddDate never crosses a DST jump.
func civilDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Streaks computes streak statistics from completion instants.
func Streaks(completions []time.Time, today time.Time, loc *time.Location) StreakSummary {
	days := make(map[time.Time]bool, len(completions))
	for _, c := range completions {
		days[civilDay(c, loc)] = true
	}
	if len(days) == 0 {
		return StreakSummary{}
	}

	summary := StreakSummary{ActiveDays: len(days)}

	cursor := civilDay(today, loc)
	if !days[cursor] {
		cursor = cursor.AddDate(0, 0, -1)
	}
	for days[cursor] {
		summary.Current++
		cursor = cursor.AddDate(0, 0, -1)
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	run := 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > summary.Longest {
			summary.Longest = run
		}
	}

	return summary
}

// Heatmap counts completions per local day for every day in [from, to],
// zero-filled and in ascending order. Completions outside the range are ignored.
func Heatmap(completions []time.Time, from, to time.Time, loc *time.Location) []DayCount {
	first, last := civilDay(from, loc), civilDay(to, loc)
	if last.Before(first) {
		return []DayCount{}
	}

	counts := make(map[time.Time]int, len(completions))
	for _, c := range completions {
		counts[civilDay(c, loc)]++
	}

	var cells []DayCount
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		cells = append(cells, DayCount{Date: d.Format(models.DateLayout), Count: counts[d]})
	}
	return cells
}
