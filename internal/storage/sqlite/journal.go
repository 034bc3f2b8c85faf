package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/synapso/internal/models"
	"github.com/mmynk/synapso/internal/storage"
)

func scanNote(row rowScanner) (*models.JournalNote, error) {
	note := &models.JournalNote{}
	var createdAt, updatedAt int64
	if err := row.Scan(&note.ID, &note.UserID, &note.Title, &note.Content, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	note.CreatedAt = fromUnix(createdAt)
	note.UpdatedAt = fromUnix(updatedAt)
	return note, nil
}

// ListNotes returns the user's notes, most recently updated first.
func (s *SQLiteStore) ListNotes(ctx context.Context, userID string) ([]*models.JournalNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at
		 FROM journal_notes WHERE user_id = ? ORDER BY updated_at DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []*models.JournalNote{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// GetNote retrieves one note of the user.
func (s *SQLiteStore) GetNote(ctx context.Context, userID, id string) (*models.JournalNote, error) {
	note, err := scanNote(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at
		 FROM journal_notes WHERE id = ? AND user_id = ?`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// CreateNote persists a new note.
func (s *SQLiteStore) CreateNote(ctx context.Context, note *models.JournalNote) error {
	if note.ID == "" {
		note.ID = newID()
	}
	note.CreatedAt = now()
	note.UpdatedAt = note.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_notes (id, user_id, title, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		note.ID, note.UserID, note.Title, note.Content, note.CreatedAt.Unix(), note.UpdatedAt.Unix(),
	)
	if isForeignKeyViolation(err) {
		return storage.ErrInvalidReference
	}
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// UpdateNote replaces the title and content of a note.
func (s *SQLiteStore) UpdateNote(ctx context.Context, note *models.JournalNote) error {
	note.UpdatedAt = now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE journal_notes SET title = ?, content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		note.Title, note.Content, note.UpdatedAt.Unix(), note.ID, note.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return requireAffected(res)
}

// DeleteNote removes a note.
func (s *SQLiteStore) DeleteNote(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journal_notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return requireAffected(res)
}

const taskColumns = `id, user_id, title, description, due_date, completed, completed_at, created_at, updated_at`

func scanTask(row rowScanner) (*models.JournalTask, error) {
	task := &models.JournalTask{}
	var completedAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description, &task.DueDate,
		&task.Completed, &completedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	task.CompletedAt = fromNullUnix(completedAt)
	task.CreatedAt = fromUnix(createdAt)
	task.UpdatedAt = fromUnix(updatedAt)
	return task, nil
}

// ListTasks returns open tasks first (by due date, undated last), then completed ones.
func (s *SQLiteStore) ListTasks(ctx context.Context, userID string) ([]*models.JournalTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM journal_tasks WHERE user_id = ?
		 ORDER BY completed, due_date = '', due_date, created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.JournalTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// GetTask retrieves one task of the user.
func (s *SQLiteStore) GetTask(ctx context.Context, userID, id string) (*models.JournalTask, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM journal_tasks WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// CreateTask persists a new task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.JournalTask) error {
	if task.ID == "" {
		task.ID = newID()
	}
	task.CreatedAt = now()
	task.UpdatedAt = task.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Description, task.DueDate,
		task.Completed, nullUnix(task.CompletedAt), task.CreatedAt.Unix(), task.UpdatedAt.Unix(),
	)
	if isForeignKeyViolation(err) {
		return storage.ErrInvalidReference
	}
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// UpdateTask replaces every editable field of a task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task *models.JournalTask) error {
	task.UpdatedAt = now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE journal_tasks
		 SET title = ?, description = ?, due_date = ?, completed = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, task.DueDate, task.Completed, nullUnix(task.CompletedAt),
		task.UpdatedAt.Unix(), task.ID, task.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireAffected(res)
}

// DeleteTask removes a task.
func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journal_tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireAffected(res)
}
