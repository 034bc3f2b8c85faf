package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

// DefaultBodyparts is the label set a fresh installation starts with.
var DefaultBodyparts = []models.Bodypart{
	{Name: "Shoulders", Color: "#f97316"},
	{Name: "Arms", Color: "#eab308"},
	{Name: "Hands", Color: "#84cc16"},
	{Name: "Back", Color: "#22c55e"},
	{Name: "Core", Color: "#14b8a6"},
	{Name: "Legs", Color: "#06b6d4"},
	{Name: "Feet", Color: "#3b82f6"},
	{Name: "Neck", Color: "#8b5cf6"},
	{Name: "Face", Color: "#d946ef"},
	{Name: "Balance", Color: "#f43f5e"},
}

// ListBodyparts returns all body parts ordered by name.
func (s *SQLiteStore) ListBodyparts(ctx context.Context) ([]*models.Bodypart, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM bodyparts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bodyparts: %w", err)
	}
	defer rows.Close()

	var bodyparts []*models.Bodypart
	for rows.Next() {
		bp := &models.Bodypart{}
		if err := rows.Scan(&bp.ID, &bp.Name, &bp.Color); err != nil {
			return nil, fmt.Errorf("failed to scan bodypart: %w", err)
		}
		bodyparts = append(bodyparts, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bodyparts: %w", err)
	}

	return bodyparts, nil
}

// CreateBodypart inserts a body part.
func (s *SQLiteStore) CreateBodypart(ctx context.Context, bp *models.Bodypart) error {
	if bp.ID == "" {
		bp.ID = newID()
	}
	bp.Name = strings.TrimSpace(bp.Name)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bodyparts (id, name, color) VALUES (?, ?, ?)`,
		bp.ID, bp.Name, bp.Color,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert bodypart: %w", err)
	}
	return nil
}

// SeedBodyparts inserts the given body parts whose names are not taken yet.
// Returns the number inserted.
func (s *SQLiteStore) SeedBodyparts(ctx context.Context, bodyparts []models.Bodypart) (int, error) {
	inserted := 0
	for _, bp := range bodyparts {
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO bodyparts (id, name, color) VALUES (?, ?, ?)`,
			newID(), bp.Name, bp.Color,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed bodypart %q: %w", bp.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}
