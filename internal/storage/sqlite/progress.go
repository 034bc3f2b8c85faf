package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

// ListProgress returns the user's entries with from <= date <= to, ascending.
// Dates are "2006-01-02" strings, so lexical order is chronological.
func (s *SQLiteStore) ListProgress(ctx context.Context, userID, from, to string) ([]*models.Progress, error) {
	query := `SELECT id, user_id, date, emoji, comment, created_at, updated_at FROM progress WHERE user_id = ?`
	args := []any{userID}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	entries := []*models.Progress{}
	for rows.Next() {
		p := &models.Progress{}
		var createdAt, updatedAt int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Date, &p.Emoji, &p.Comment, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		p.CreatedAt = fromUnix(createdAt)
		p.UpdatedAt = fromUnix(updatedAt)
		entries = append(entries, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress: %w", err)
	}
	return entries, nil
}

// UpsertProgress inserts the entry for (UserID, Date) or replaces its content.
func (s *SQLiteStore) UpsertProgress(ctx context.Context, p *models.Progress) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p.UpdatedAt = now()

	var createdAt int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM progress WHERE user_id = ? AND date = ?`, p.UserID, p.Date,
	).Scan(&p.ID, &createdAt)

	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
		p.ID = newID()
		p.CreatedAt = p.UpdatedAt
		_, err = tx.ExecContext(ctx,
			`INSERT INTO progress (id, user_id, date, emoji, comment, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.UserID, p.Date, p.Emoji, p.Comment, p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
		)
		if isForeignKeyViolation(err) {
			return false, storage.ErrInvalidReference
		}
		if err != nil {
			return false, fmt.Errorf("failed to insert progress: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("failed to read progress: %w", err)
	default:
		p.CreatedAt = fromUnix(createdAt)
		if _, err := tx.ExecContext(ctx,
			`UPDATE progress SET emoji = ?, comment = ?, updated_at = ? WHERE id = ?`,
			p.Emoji, p.Comment, p.UpdatedAt.Unix(), p.ID,
		); err != nil {
			return false, fmt.Errorf("failed to update progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// DeleteProgress removes the user's entry for a date.
func (s *SQLiteStore) DeleteProgress(ctx context.Context, userID, date string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE user_id = ? AND date = ?`, userID, date)
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return requireAffected(res)
}
