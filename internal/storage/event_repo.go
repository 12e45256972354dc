package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type EventRepo struct {
	db DBTX
}

func NewEventRepo(db DBTX) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) WithTx(tx *sql.Tx) *EventRepo {
	return &EventRepo{db: tx}
}

func (r *EventRepo) Insert(ctx context.Context, e LevelEvent) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO level_events (user_id, task_id, old_level, new_level, old_rank, new_rank, xp_gained, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.UserID, e.TaskID, e.OldLevel, e.NewLevel, e.OldRank, e.NewRank, e.XPGained, e.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("level event insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("level event last insert id: %w", err)
	}
	return id, nil
}

// ListByUser returns the user's level events, newest first. limit <= 0 means all.
func (r *EventRepo) ListByUser(ctx context.Context, userID string, limit int) ([]LevelEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, task_id, old_level, new_level, old_rank, new_rank, xp_gained, created_at
		FROM level_events
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("level event list: %w", err)
	}
	defer rows.Close()

	var out []LevelEvent
	for rows.Next() {
		var (
			e      LevelEvent
			taskID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &taskID, &e.OldLevel, &e.NewLevel, &e.OldRank, &e.NewRank, &e.XPGained, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("level event scan: %w", err)
		}
		if taskID.Valid {
			v := taskID.String
			e.TaskID = &v
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("level event rows: %w", err)
	}
	return out, nil
}
