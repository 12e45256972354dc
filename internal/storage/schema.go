package storage

import (
	"context"
	"database/sql"
	"fmt"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			level INTEGER NOT NULL DEFAULT 1,
			current_xp INTEGER NOT NULL DEFAULT 0,
			required_xp INTEGER NOT NULL DEFAULT 100,
			rank TEXT NOT NULL DEFAULT 'E',
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			priority TEXT NOT NULL DEFAULT 'normal',

			completed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			completed_at DATETIME,

			recur_type TEXT,
			recur_interval INTEGER,
			recur_days TEXT,
			next_due DATETIME,

			source_id TEXT
		);`,
		// Level-up history, one row per ApplyXP call that gained levels.
		`CREATE TABLE IF NOT EXISTS level_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			task_id TEXT,
			old_level INTEGER NOT NULL,
			new_level INTEGER NOT NULL,
			old_rank TEXT NOT NULL,
			new_rank TEXT NOT NULL,
			xp_gained INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		// A completed instance spawns at most one successor.
		`CREATE TABLE IF NOT EXISTS task_lineage (
			source_id TEXT PRIMARY KEY,
			spawned_id TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner_created ON tasks(owner_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner_completed ON tasks(owner_id, completed);`,
		`CREATE INDEX IF NOT EXISTS idx_level_events_user_created ON level_events(user_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
