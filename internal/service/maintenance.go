package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/synapso/internal/calculator"
	"github.com/mmynk/synapso/internal/models"
)

// CompletionStore is the subset of storage.Store used by ClearStaleCompletions.
type CompletionStore interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	ClearCompletionsBefore(ctx context.Context, userID string, periodStart time.Time) (int64, error)
}

// ClearStaleCompletions clears CompletedAt on every exercise whose completion
// falls outside its owner's current reset period. History is kept.
// Returns the number of exercises changed.
func ClearStaleCompletions(ctx context.Context, store CompletionStore, now time.Time, loc *time.Location) (int64, error) {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	var total int64
	for _, u := range users {
		start := calculator.PeriodStart(now, u.ResetFrequency, loc)
		n, err := store.ClearCompletionsBefore(ctx, u.ID, start)
		if err != nil {
			return total, fmt.Errorf("failed to clear completions of %s: %w", u.ID, err)
		}
		if n > 0 {
			slog.Debug("Stale completions cleared", "user_id", u.ID, "count", n, "period_start", start)
		}
		total += n
	}
	return total, nil
}
