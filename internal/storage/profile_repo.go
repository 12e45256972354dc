package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type ProfileRepo struct {
	db DBTX
}

func NewProfileRepo(db DBTX) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) WithTx(tx *sql.Tx) *ProfileRepo {
	return &ProfileRepo{db: tx}
}

// Get returns the profile for userID, or nil if there is none.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, level, current_xp, required_xp, rank, version, created_at, updated_at
		FROM profiles WHERE user_id = ?
	`, userID)

	var p Profile
	if err := row.Scan(&p.UserID, &p.Level, &p.CurrentXP, &p.RequiredXP, &p.Rank, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile get: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// GetOrCreate returns the stored profile, inserting initial if none exists.
func (r *ProfileRepo) GetOrCreate(ctx context.Context, initial Profile, now time.Time) (*Profile, error) {
	p, err := r.Get(ctx, initial.UserID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, level, current_xp, required_xp, rank, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, initial.UserID, initial.Level, initial.CurrentXP, initial.RequiredXP, initial.Rank, now.UTC(), now.UTC())
	if err != nil {
		return nil, fmt.Errorf("profile insert: %w", err)
	}
	return r.Get(ctx, initial.UserID)
}

// Update writes p's progress fields if the stored version still equals
// p.Version, then bumps p.Version. A stale version yields ErrConflict.
func (r *ProfileRepo) Update(ctx context.Context, p *Profile, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET level = ?, current_xp = ?, required_xp = ?, rank = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?
	`, p.Level, p.CurrentXP, p.RequiredXP, p.Rank, now.UTC(), p.UserID, p.Version)
	if err != nil {
		return fmt.Errorf("profile update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("profile update rows: %w", err)
	}
	if n == 0 {
		existing, err := r.Get(ctx, p.UserID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("profile %s: %w", p.UserID, ErrNotFound)
		}
		return fmt.Errorf("profile %s at version %d: %w", p.UserID, p.Version, ErrConflict)
	}
	p.Version++
	p.UpdatedAt = now.UTC()
	return nil
}
