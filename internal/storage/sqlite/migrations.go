package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/synapso/internal/models"
)

// migration is one versioned schema change. Versions are applied in order
// and recorded in schema_migrations, so each runs exactly once per database.
// migrate, when set, runs after stmt in the same transaction for changes
// SQL alone cannot express.
type migration struct {
	version int
	name    string
	stmt    string
	migrate func(ctx context.Context, tx *sql.Tx) error
}

// migrations lists every schema change since the first release.
// IMPORTANT: never edit an applied migration, append a new one.
var migrations = []migration{
	{
		version: 1,
		name:    "users",
		stmt: `
CREATE TABLE users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL COLLATE NOCASE UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'USER',
    reset_frequency TEXT NOT NULL DEFAULT 'DAILY',
    dominant_hand TEXT NOT NULL DEFAULT 'RIGHT',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);`,
	},
	{
		version: 2,
		name:    "exercices",
		stmt: `
CREATE TABLE bodyparts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL COLLATE NOCASE UNIQUE,
    color TEXT NOT NULL DEFAULT ''
);

CREATE TABLE exercices (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    comment TEXT NOT NULL DEFAULT '',
    series INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    duration_seconds INTEGER NOT NULL DEFAULT 0,
    equipments TEXT NOT NULL DEFAULT '[]',
    pinned INTEGER NOT NULL DEFAULT 0,
    completed_at INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE exercice_bodyparts (
    exercice_id TEXT NOT NULL,
    bodypart_id TEXT NOT NULL,
    PRIMARY KEY (exercice_id, bodypart_id),
    FOREIGN KEY (exercice_id) REFERENCES exercices(id) ON DELETE CASCADE,
    FOREIGN KEY (bodypart_id) REFERENCES bodyparts(id) ON DELETE CASCADE
);

CREATE TABLE history (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    exercice_id TEXT NOT NULL,
    completed_at INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
    FOREIGN KEY (exercice_id) REFERENCES exercices(id) ON DELETE CASCADE
);

CREATE INDEX idx_exercices_user_id ON exercices(user_id);
CREATE INDEX idx_exercice_bodyparts_bodypart_id ON exercice_bodyparts(bodypart_id);
CREATE INDEX idx_history_user_completed ON history(user_id, completed_at);
CREATE INDEX idx_history_exercice_id ON history(exercice_id);`,
	},
	{
		version: 3,
		name:    "journal",
		stmt: `
CREATE TABLE journal_notes (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE journal_tasks (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    due_date TEXT NOT NULL DEFAULT '',
    completed INTEGER NOT NULL DEFAULT 0,
    completed_at INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX idx_journal_notes_user_id ON journal_notes(user_id);
CREATE INDEX idx_journal_tasks_user_id ON journal_tasks(user_id);`,
	},
	{
		version: 4,
		name:    "aphasie",
		stmt: `
CREATE TABLE aphasie_items (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    quote TEXT NOT NULL,
    meaning TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL DEFAULT '',
    comment TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE aphasie_challenges (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    text TEXT NOT NULL,
    mastered INTEGER NOT NULL DEFAULT 0,
    mastered_at INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX idx_aphasie_items_user_id ON aphasie_items(user_id);
CREATE INDEX idx_aphasie_challenges_user_id ON aphasie_challenges(user_id);`,
	},
	{
		version: 5,
		name:    "progress_victories",
		stmt: `
CREATE TABLE progress (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    date TEXT NOT NULL,
    emoji TEXT NOT NULL DEFAULT '',
    comment TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (user_id, date),
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE victories (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    content TEXT NOT NULL,
    emoji TEXT NOT NULL DEFAULT '',
    pinned INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX idx_victories_user_id ON victories(user_id);`,
	},
	{
		version: 6,
		name:    "user_name_key",
		stmt:    `ALTER TABLE users ADD COLUMN name_key TEXT NOT NULL DEFAULT '';`,
		migrate: backfillUserNameKeys,
	},
}

// backfillUserNameKeys fills users.name_key and makes it the unique key.
// The NOCASE name column only folds ASCII letters.
func backfillUserNameKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM users`)
	if err != nil {
		return fmt.Errorf("failed to read users: %w", err)
	}
	keys := map[string]string{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan user: %w", err)
		}
		keys[id] = models.NameKey(name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating users: %w", err)
	}
	rows.Close()

	for id, key := range keys {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET name_key = ? WHERE id = ?`, key, id); err != nil {
			return fmt.Errorf("failed to set name key: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `CREATE UNIQUE INDEX idx_users_name_key ON users(name_key)`); err != nil {
		return fmt.Errorf("failed to index name keys: %w", err)
	}
	return nil
}

// runMigrations applies every migration newer than the recorded version,
// each in its own transaction.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
		return fmt.Errorf("failed to apply: %w", err)
	}
	if m.migrate != nil {
		if err := m.migrate(ctx, tx); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("failed to record version: %w", err)
	}

	return tx.Commit()
}
