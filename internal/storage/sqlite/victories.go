package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

const victoryColumns = `id, user_id, content, emoji, pinned, created_at, updated_at`

func scanVictory(row rowScanner) (*models.Victory, error) {
	v := &models.Victory{}
	var createdAt, updatedAt int64
	if err := row.Scan(&v.ID, &v.UserID, &v.Content, &v.Emoji, &v.Pinned, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	v.CreatedAt = fromUnix(createdAt)
	v.UpdatedAt = fromUnix(updatedAt)
	return v, nil
}

// ListVictories returns pinned victories first, then newest first.
func (s *SQLiteStore) ListVictories(ctx context.Context, userID string) ([]*models.Victory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+victoryColumns+` FROM victories WHERE user_id = ? ORDER BY pinned DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list victories: %w", err)
	}
	defer rows.Close()

	victories := []*models.Victory{}
	for rows.Next() {
		v, err := scanVictory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan victory: %w", err)
		}
		victories = append(victories, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate victories: %w", err)
	}
	return victories, nil
}

// GetVictory retrieves one victory of the user.
func (s *SQLiteStore) GetVictory(ctx context.Context, userID, id string) (*models.Victory, error) {
	v, err := scanVictory(s.db.QueryRowContext(ctx,
		`SELECT `+victoryColumns+` FROM victories WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get victory: %w", err)
	}
	return v, nil
}

// CreateVictory persists a new victory.
func (s *SQLiteStore) CreateVictory(ctx context.Context, v *models.Victory) error {
	if v.ID == "" {
		v.ID = newID()
	}
	v.CreatedAt = now()
	v.UpdatedAt = v.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO victories (`+victoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.Content, v.Emoji, v.Pinned, v.CreatedAt.Unix(), v.UpdatedAt.Unix(),
	)
	if isForeignKeyViolation(err) {
		return storage.ErrInvalidReference
	}
	if err != nil {
		return fmt.Errorf("failed to insert victory: %w", err)
	}
	return nil
}

// UpdateVictory replaces the editable fields of a victory.
func (s *SQLiteStore) UpdateVictory(ctx context.Context, v *models.Victory) error {
	v.UpdatedAt = now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE victories SET content = ?, emoji = ?, pinned = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		v.Content, v.Emoji, v.Pinned, v.UpdatedAt.Unix(), v.ID, v.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update victory: %w", err)
	}
	return requireAffected(res)
}

// DeleteVictory removes a victory.
func (s *SQLiteStore) DeleteVictory(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM victories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete victory: %w", err)
	}
	return requireAffected(res)
}
