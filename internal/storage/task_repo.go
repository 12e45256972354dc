package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type TaskRepo struct {
	db DBTX
}

func NewTaskRepo(db DBTX) *TaskRepo {
	return &TaskRepo{db: db}
}

// WithTx returns a repo bound to tx.
func (r *TaskRepo) WithTx(tx *sql.Tx) *TaskRepo {
	return &TaskRepo{db: tx}
}

const taskColumns = `id, owner_id, name, description, priority, completed, created_at, completed_at,
	recur_type, recur_interval, recur_days, next_due, source_id`

func (r *TaskRepo) Insert(ctx context.Context, t Task) error {
	if t.ID == "" || t.OwnerID == "" {
		return errors.New("task insert: id and owner are required")
	}
	var daysJSON *string
	if len(t.RecurDays) > 0 {
		data, err := json.Marshal(t.RecurDays)
		if err != nil {
			return fmt.Errorf("marshal recur days: %w", err)
		}
		s := string(data)
		daysJSON = &s
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OwnerID, t.Name, t.Description, t.Priority, boolToInt(t.Completed),
		t.CreatedAt.UTC(), utcPtr(t.CompletedAt),
		t.RecurType, t.RecurInterval, daysJSON, utcPtr(t.NextDue), t.SourceID)
	if err != nil {
		return fmt.Errorf("task insert: %w", err)
	}
	return nil
}

// Get returns the task with the given id, or nil if there is none.
// It does not check ownership; mutating calls do.
func (r *TaskRepo) Get(ctx context.Context, id string) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTaskRow(row)
}

// ListByOwner returns the owner's tasks, newest first.
func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID string) ([]Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`, ownerID)
}

// ListDueCandidates returns the owner's completed recurring tasks that have
// not spawned a successor yet. Due-ness is left to the caller.
func (r *TaskRepo) ListDueCandidates(ctx context.Context, ownerID string) ([]Task, error) {
	return r.list(ctx, `
		SELECT `+prefixed("t.", taskColumns)+`
		FROM tasks t
		LEFT JOIN task_lineage l ON l.source_id = t.id
		WHERE t.owner_id = ? AND t.completed = 1 AND t.recur_type IS NOT NULL
			AND t.next_due IS NOT NULL AND l.source_id IS NULL
		ORDER BY t.created_at ASC, t.rowid ASC
	`, ownerID)
}

func (r *TaskRepo) list(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task list rows: %w", err)
	}
	return out, nil
}

// authorize loads the task and checks it belongs to ownerID.
func (r *TaskRepo) authorize(ctx context.Context, id, ownerID string) (*Task, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if t.OwnerID != ownerID {
		return nil, fmt.Errorf("task %s: %w", id, ErrPermissionDenied)
	}
	return t, nil
}

// Update applies the non-nil fields of u to the owner's task.
func (r *TaskRepo) Update(ctx context.Context, id, ownerID string, u TaskUpdate) error {
	if _, err := r.authorize(ctx, id, ownerID); err != nil {
		return err
	}
	if u.empty() {
		return nil
	}

	var sets []string
	var args []any
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *u.Priority)
	}
	args = append(args, id, ownerID)

	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? AND owner_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("task update: %w", err)
	}
	return nil
}

// MarkCompleted flips completed to true. It reports false when the task was
// already completed, leaving the row untouched.
func (r *TaskRepo) MarkCompleted(ctx context.Context, id, ownerID string, completedAt time.Time) (bool, error) {
	if _, err := r.authorize(ctx, id, ownerID); err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET completed = 1, completed_at = ?
		WHERE id = ? AND owner_id = ? AND completed = 0
	`, completedAt.UTC(), id, ownerID)
	if err != nil {
		return false, fmt.Errorf("task mark completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("task mark completed rows: %w", err)
	}
	return n == 1, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := r.authorize(ctx, id, ownerID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("task delete: %w", err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(row scanner) (*Task, error) {
	var (
		t             Task
		description   sql.NullString
		completed     int
		completedAt   sql.NullTime
		recurType     sql.NullString
		recurInterval sql.NullInt64
		recurDays     sql.NullString
		nextDue       sql.NullTime
		sourceID      sql.NullString
	)

	if err := row.Scan(
		&t.ID, &t.OwnerID, &t.Name, &description, &t.Priority, &completed, &t.CreatedAt, &completedAt,
		&recurType, &recurInterval, &recurDays, &nextDue, &sourceID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("task scan: %w", err)
	}

	t.Completed = completed != 0
	t.CreatedAt = t.CreatedAt.UTC()
	if description.Valid {
		v := description.String
		t.Description = &v
	}
	if completedAt.Valid {
		v := completedAt.Time.UTC()
		t.CompletedAt = &v
	}
	if recurType.Valid {
		v := recurType.String
		t.RecurType = &v
	}
	if recurInterval.Valid {
		v := int(recurInterval.Int64)
		t.RecurInterval = &v
	}
	if recurDays.Valid && recurDays.String != "" {
		if err := json.Unmarshal([]byte(recurDays.String), &t.RecurDays); err != nil {
			return nil, fmt.Errorf("unmarshal recur days: %w", err)
		}
	}
	if nextDue.Valid {
		v := nextDue.Time.UTC()
		t.NextDue = &v
	}
	if sourceID.Valid {
		v := sourceID.String
		t.SourceID = &v
	}
	return &t, nil
}
