package root

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crach-ad/crachToDo/internal/engine"
	"github.com/crach-ad/crachToDo/internal/storage"
)

func (a *app) openDB(ctx context.Context) (*sql.DB, func(), error) {
	path, err := storage.ResolveDBPath(a.cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	a.log.Debug("database opened")
	cleanup := func() {
		_ = db.Close()
	}
	return db, cleanup, nil
}

// openService wires the engine service from config. reg may be nil.
func (a *app) openService(ctx context.Context, reg prometheus.Registerer) (*engine.Service, func(), error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	db, cleanup, err := a.openDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc := engine.NewService(db,
		engine.WithLogger(a.log),
		engine.WithLocation(loc),
		engine.WithMetrics(engine.NewMetrics(reg)),
		engine.WithSpawnCacheSize(a.cfg.Sweep.CacheSize),
	)
	return svc, cleanup, nil
}

// resolveTaskID accepts a full id or a unique prefix of one of the user's
// tasks, as printed by `arise list`.
func (a *app) resolveTaskID(ctx context.Context, svc *engine.Service, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", &engine.ValidationError{Field: "id", Reason: "is required"}
	}
	tasks, err := svc.ListTasks(ctx, a.cfg.UserID)
	if err != nil {
		return "", err
	}
	var match string
	for _, t := range tasks {
		if t.ID == arg {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, arg) {
			if match != "" {
				return "", &engine.ValidationError{Field: "id", Reason: "prefix " + arg + " is ambiguous"}
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("task %s: %w", arg, storage.ErrNotFound)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
