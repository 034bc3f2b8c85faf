package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

const exerciceColumns = `e.id, e.user_id, e.name, e.description, e.comment, e.series, e.repetitions,
	e.duration_seconds, e.equipments, e.pinned, e.completed_at, e.created_at, e.updated_at`

func scanExercice(row rowScanner) (*models.Exercice, error) {
	ex := &models.Exercice{}
	var equipments string
	var completedAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(
		&ex.ID, &ex.UserID, &ex.Name, &ex.Description, &ex.Comment,
		&ex.Series, &ex.Repetitions, &ex.DurationSeconds,
		&equipments, &ex.Pinned, &completedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(equipments), &ex.Equipments); err != nil {
		return nil, fmt.Errorf("failed to decode equipments of exercice %s: %w", ex.ID, err)
	}
	if ex.Equipments == nil {
		ex.Equipments = []string{}
	}
	ex.Bodyparts = []models.Bodypart{}
	ex.CompletedAt = fromNullUnix(completedAt)
	ex.CreatedAt = fromUnix(createdAt)
	ex.UpdatedAt = fromUnix(updatedAt)
	return ex, nil
}

func encodeEquipments(equipments []string) (string, error) {
	if equipments == nil {
		equipments = []string{}
	}
	data, err := json.Marshal(equipments)
	if err != nil {
		return "", fmt.Errorf("failed to encode equipments: %w", err)
	}
	return string(data), nil
}

// ListExercices returns the user's exercises, pinned first then by name.
func (s *SQLiteStore) ListExercices(ctx context.Context, userID, bodypartID string) ([]*models.Exercice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+exerciceColumns+`
		 FROM exercices e
		 WHERE e.user_id = ?
		   AND (? = '' OR EXISTS (
		       SELECT 1 FROM exercice_bodyparts x WHERE x.exercice_id = e.id AND x.bodypart_id = ?))
		 ORDER BY e.pinned DESC, e.name COLLATE NOCASE, e.created_at`,
		userID, bodypartID, bodypartID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercices: %w", err)
	}
	defer rows.Close()

	exercices := []*models.Exercice{}
	byID := make(map[string]*models.Exercice)
	for rows.Next() {
		ex, err := scanExercice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercice: %w", err)
		}
		exercices = append(exercices, ex)
		byID[ex.ID] = ex
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exercices: %w", err)
	}
	rows.Close()

	if len(exercices) == 0 {
		return exercices, nil
	}

	// One query for the body parts of every listed exercise
	bpRows, err := s.db.QueryContext(ctx,
		`SELECT eb.exercice_id, b.id, b.name, b.color
		 FROM exercice_bodyparts eb
		 JOIN bodyparts b ON b.id = eb.bodypart_id
		 JOIN exercices e ON e.id = eb.exercice_id
		 WHERE e.user_id = ?
		 ORDER BY b.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercice bodyparts: %w", err)
	}
	defer bpRows.Close()

	for bpRows.Next() {
		var exerciceID string
		var bp models.Bodypart
		if err := bpRows.Scan(&exerciceID, &bp.ID, &bp.Name, &bp.Color); err != nil {
			return nil, fmt.Errorf("failed to scan exercice bodypart: %w", err)
		}
		if ex, ok := byID[exerciceID]; ok {
			ex.Bodyparts = append(ex.Bodyparts, bp)
		}
	}
	if err := bpRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exercice bodyparts: %w", err)
	}

	return exercices, nil
}

// GetExercice retrieves one exercise of the user, with its body parts.
func (s *SQLiteStore) GetExercice(ctx context.Context, userID, id string) (*models.Exercice, error) {
	ex, err := scanExercice(s.db.QueryRowContext(ctx,
		`SELECT `+exerciceColumns+` FROM exercices e WHERE e.id = ? AND e.user_id = ?`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exercice: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.name, b.color
		 FROM exercice_bodyparts eb JOIN bodyparts b ON b.id = eb.bodypart_id
		 WHERE eb.exercice_id = ?
		 ORDER BY b.name`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get exercice bodyparts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bp models.Bodypart
		if err := rows.Scan(&bp.ID, &bp.Name, &bp.Color); err != nil {
			return nil, fmt.Errorf("failed to scan bodypart: %w", err)
		}
		ex.Bodyparts = append(ex.Bodyparts, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bodyparts: %w", err)
	}

	return ex, nil
}

// CreateExercice persists a new exercise and its body part links.
func (s *SQLiteStore) CreateExercice(ctx context.Context, ex *models.Exercice) error {
	if ex.ID == "" {
		ex.ID = newID()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = now()
	}
	ex.UpdatedAt = ex.CreatedAt

	equipments, err := encodeEquipments(ex.Equipments)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO exercices (id, user_id, name, description, comment, series, repetitions,
		     duration_seconds, equipments, pinned, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.UserID, ex.Name, ex.Description, ex.Comment, ex.Series, ex.Repetitions,
		ex.DurationSeconds, equipments, ex.Pinned, nullUnix(ex.CompletedAt),
		ex.CreatedAt.Unix(), ex.UpdatedAt.Unix(),
	)
	if isForeignKeyViolation(err) {
		return storage.ErrInvalidReference
	}
	if err != nil {
		return fmt.Errorf("failed to insert exercice: %w", err)
	}

	if err := linkBodyparts(ctx, tx, ex.ID, ex.BodypartIDs()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// linkBodyparts inserts the (deduplicated) body part links of an exercise.
func linkBodyparts(ctx context.Context, tx *sql.Tx, exerciceID string, bodypartIDs []string) error {
	seen := make(map[string]bool, len(bodypartIDs))
	for _, bpID := range bodypartIDs {
		if seen[bpID] {
			continue
		}
		seen[bpID] = true

		_, err := tx.ExecContext(ctx,
			`INSERT INTO exercice_bodyparts (exercice_id, bodypart_id) VALUES (?, ?)`,
			exerciceID, bpID,
		)
		if isForeignKeyViolation(err) {
			return storage.ErrInvalidReference
		}
		if err != nil {
			return fmt.Errorf("failed to link bodypart: %w", err)
		}
	}
	return nil
}

// UpdateExercice replaces the editable fields and the body parts of an exercise.
// Pinned and CompletedAt have dedicated operations and are left untouched.
func (s *SQLiteStore) UpdateExercice(ctx context.Context, ex *models.Exercice) error {
	ex.UpdatedAt = now()
	equipments, err := encodeEquipments(ex.Equipments)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE exercices
		 SET name = ?, description = ?, comment = ?, series = ?, repetitions = ?,
		     duration_seconds = ?, equipments = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		ex.Name, ex.Description, ex.Comment, ex.Series, ex.Repetitions,
		ex.DurationSeconds, equipments, ex.UpdatedAt.Unix(),
		ex.ID, ex.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update exercice: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM exercice_bodyparts WHERE exercice_id = ?`, ex.ID); err != nil {
		return fmt.Errorf("failed to clear bodyparts: %w", err)
	}
	if err := linkBodyparts(ctx, tx, ex.ID, ex.BodypartIDs()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteExercice removes an exercise, its links and its history.
func (s *SQLiteStore) DeleteExercice(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exercices WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete exercice: %w", err)
	}
	return requireAffected(res)
}

// SetExercicePinned pins or unpins an exercise.
func (s *SQLiteStore) SetExercicePinned(ctx context.Context, userID, id string, pinned bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exercices SET pinned = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		pinned, now().Unix(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to pin exercice: %w", err)
	}
	return requireAffected(res)
}

// CompleteExercice records a completion unless one already exists in the period.
func (s *SQLiteStore) CompleteExercice(ctx context.Context, userID, id string, at, periodStart time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var completedAt sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT completed_at FROM exercices WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, storage.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read exercice: %w", err)
	}

	// Already completed in this period
	if completedAt.Valid && completedAt.Int64 >= periodStart.Unix() {
		return false, nil
	}

	stamp := at.UTC().Unix()
	if _, err := tx.ExecContext(ctx,
		`UPDATE exercices SET completed_at = ?, updated_at = ? WHERE id = ?`,
		stamp, stamp, id,
	); err != nil {
		return false, fmt.Errorf("failed to complete exercice: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (id, user_id, exercice_id, completed_at) VALUES (?, ?, ?, ?)`,
		newID(), userID, id, stamp,
	); err != nil {
		return false, fmt.Errorf("failed to insert history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// UncompleteExercice clears the completion and the period's history rows.
func (s *SQLiteStore) UncompleteExercice(ctx context.Context, userID, id string, periodStart time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE exercices SET completed_at = NULL, updated_at = ? WHERE id = ? AND user_id = ?`,
		now().Unix(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to uncomplete exercice: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE exercice_id = ? AND user_id = ? AND completed_at >= ?`,
		id, userID, periodStart.Unix(),
	); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ClearCompletionsBefore clears stale completions of the user's exercises.
func (s *SQLiteStore) ClearCompletionsBefore(ctx context.Context, userID string, periodStart time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exercices SET completed_at = NULL
		 WHERE user_id = ? AND completed_at IS NOT NULL AND completed_at < ?`,
		userID, periodStart.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear completions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// ListHistory returns the user's completions in [from, to), newest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, userID string, from, to time.Time) ([]*models.History, error) {
	query := `SELECT h.id, h.user_id, h.exercice_id, e.name, h.completed_at
		FROM history h JOIN exercices e ON e.id = h.exercice_id
		WHERE h.user_id = ?`
	args := []any{userID}
	if !from.IsZero() {
		query += ` AND h.completed_at >= ?`
		args = append(args, from.Unix())
	}
	if !to.IsZero() {
		query += ` AND h.completed_at < ?`
		args = append(args, to.Unix())
	}
	query += ` ORDER BY h.completed_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	history := []*models.History{}
	for rows.Next() {
		h := &models.History{}
		var completedAt int64
		if err := rows.Scan(&h.ID, &h.UserID, &h.ExerciceID, &h.ExerciceName, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.CompletedAt = fromUnix(completedAt)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return history, nil
}
