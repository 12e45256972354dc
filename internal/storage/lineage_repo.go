package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LineageRepo records which instance each completed recurring task spawned.
type LineageRepo struct {
	db DBTX
}

func NewLineageRepo(db DBTX) *LineageRepo {
	return &LineageRepo{db: db}
}

func (r *LineageRepo) WithTx(tx *sql.Tx) *LineageRepo {
	return &LineageRepo{db: tx}
}

// Claim records that sourceID spawned spawnedID. It reports false when the
// source already has a successor; the existing row is kept.
func (r *LineageRepo) Claim(ctx context.Context, sourceID, spawnedID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO task_lineage (source_id, spawned_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO NOTHING
	`, sourceID, spawnedID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("lineage claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("lineage claim rows: %w", err)
	}
	return n == 1, nil
}

// Successor returns the id spawned from sourceID, or "" if none.
func (r *LineageRepo) Successor(ctx context.Context, sourceID string) (string, error) {
	row := r.db.QueryRowContext(ctx, `SELECT spawned_id FROM task_lineage WHERE source_id = ?`, sourceID)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lineage get: %w", err)
	}
	return id, nil
}
