package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

const aphasieItemColumns = `id, user_id, quote, meaning, date, comment, created_at, updated_at`

func scanAphasieItem(row rowScanner) (*models.AphasieItem, error) {
	item := &models.AphasieItem{}
	var createdAt, updatedAt int64
	if err := row.Scan(
		&item.ID, &item.UserID, &item.Quote, &item.Meaning, &item.Date, &item.Comment,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	item.CreatedAt = fromUnix(createdAt)
	item.UpdatedAt = fromUnix(updatedAt)
	return item, nil
}

// ListAphasieItems returns the user's citations, newest first.
func (s *SQLiteStore) ListAphasieItems(ctx context.Context, userID string) ([]*models.AphasieItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+aphasieItemColumns+` FROM aphasie_items WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list aphasie items: %w", err)
	}
	defer rows.Close()

	items := []*models.AphasieItem{}
	for rows.Next() {
		item, err := scanAphasieItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aphasie item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aphasie items: %w", err)
	}
	return items, nil
}

// GetAphasieItem retrieves one citation of the user.
func (s *SQLiteStore) GetAphasieItem(ctx context.Context, userID, id string) (*models.AphasieItem, error) {
	item, err := scanAphasieItem(s.db.QueryRowContext(ctx,
		`SELECT `+aphasieItemColumns+` FROM aphasie_items WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aphasie item: %w", err)
	}
	return item, nil
}

// CreateAphasieItem persists a new citation.
func (s *SQLiteStore) CreateAphasieItem(ctx context.Context, item *models.AphasieItem) error {
	if item.ID == "" {
		item.ID = newID()
	}
	item.CreatedAt = now()
	item.UpdatedAt = item.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aphasie_items (`+aphasieItemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.Quote, item.Meaning, item.Date, item.Comment,
		item.CreatedAt.Unix(), item.UpdatedAt.Unix(),
	)
	if isForeignKeyViolation(err) {
		return storage.ErrInvalidReference
	}
	if err != nil {
		return fmt.Errorf("failed to insert aphasie item: %w", err)
	}
	return nil
}

// UpdateAphasieItem replaces the editable fields of a citation.
func (s *SQLiteStore) UpdateAphasieItem(ctx context.Context, item *models.AphasieItem) error {
	item.UpdatedAt = now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE aphasie_items SET quote = ?, meaning = ?, date = ?, comment = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		item.Quote, item.Meaning, item.Date, item.Comment, item.UpdatedAt.Unix(), item.ID, item.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update aphasie item: %w", err)
	}
	return requireAffected(res)
}

// DeleteAphasieItem removes a citation.
func (s *SQLiteStore) DeleteAphasieItem(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM aphasie_items WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete aphasie item: %w", err)
	}
	return requireAffected(res)
}

const challengeColumns = `id, user_id, text, mastered, mastered_at, created_at, updated_at`

func scanChallenge(row rowScanner) (*models.AphasieChallenge, error) {
	c := &models.AphasieChallenge{}
	var masteredAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(&c.ID, &c.UserID, &c.Text, &c.Mastered, &masteredAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.MasteredAt = fromNullUnix(masteredAt)
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)
	return c, nil
}

// ListChallenges returns challenges still in progress first, newest first within each group.
func (s *SQLiteStore) ListChallenges(ctx context.Context, userID string) ([]*models.AphasieChallenge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM aphasie_challenges WHERE user_id = ?
		 ORDER BY mastered, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*models.AphasieChallenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate challenges: %w", err)
	}
	return challenges, nil
}

// GetChallenge retrieves one challenge of the user.
func (s *SQLiteStore) GetChallenge(ctx context.Context, userID, id string) (*models.AphasieChallenge, error) {
	c, err := scanChallenge(s.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM aphasie_challenges WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

// CreateChallenge persists a new challenge.
func (s *SQLiteStore) CreateChallenge(ctx context.Context, c *models.AphasieChallenge) error {
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aphasie_challenges (`+challengeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Text, c.Mastered, nullUnix(c.MasteredAt), c.CreatedAt.Unix(), c.UpdatedAt.Unix(),
	)
	if isForeignKeyViolation(err) {
		return storage.ErrInvalidReference
	}
	if err != nil {
		return fmt.Errorf("failed to insert challenge: %w", err)
	}
	return nil
}

// UpdateChallenge replaces the editable fields of a challenge.
func (s *SQLiteStore) UpdateChallenge(ctx context.Context, c *models.AphasieChallenge) error {
	c.UpdatedAt = now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE aphasie_challenges SET text = ?, mastered = ?, mastered_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		c.Text, c.Mastered, nullUnix(c.MasteredAt), c.UpdatedAt.Unix(), c.ID, c.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	return requireAffected(res)
}

// DeleteChallenge removes a challenge.
func (s *SQLiteStore) DeleteChallenge(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM aphasie_challenges WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return requireAffected(res)
}
