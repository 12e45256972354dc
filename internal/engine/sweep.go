package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crach-ad/crachToDo/internal/storage"
)

// SpawnNext materializes the next instance of a completed recurring task if
// it is due. It returns nil when nothing was spawned, either because the task
// is not due or because its successor already exists.
func (s *Service) SpawnNext(ctx context.Context, t Task) (*Task, error) {
	return s.spawnNext(ctx, t, s.now())
}

func (s *Service) spawnNext(ctx context.Context, t Task, now time.Time) (*Task, error) {
	if _, ok := s.spawned.Get(t.ID); ok {
		return nil, nil
	}
	next, err := MaterializeNextInstance(t, now)
	if err != nil || next == nil {
		return nil, err
	}

	claimed := false
	err = storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ok, err := s.lineage.WithTx(tx).Claim(ctx, t.ID, next.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		claimed = true
		return s.tasks.WithTx(tx).Insert(ctx, fromTask(*next))
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		existing, err := s.lineage.Successor(ctx, t.ID)
		if err == nil && existing != "" {
			s.spawned.Add(t.ID, existing)
		}
		return nil, nil
	}

	s.spawned.Add(t.ID, next.ID)
	s.metrics.Materialized.Inc()
	s.log.Info("recurring task spawned",
		zap.String("owner", t.OwnerID),
		zap.String("source", t.ID),
		zap.String("task", next.ID),
		zap.Time("next_due", *next.Recurring.NextDue),
	)
	s.broker.Publish(storage.TasksTopic(t.OwnerID))
	return next, nil
}

type SweepResult struct {
	Checked int
	Spawned []Task
	// Skipped counts tasks whose descriptor could not be advanced.
	Skipped int
}

// SweepRecurring is the clock-tick evaluation: every completed recurring task
// of ownerID whose nextDue has passed spawns its next instance, once.
func (s *Service) SweepRecurring(ctx context.Context, ownerID string) (*SweepResult, error) {
	if err := requireID("owner", ownerID); err != nil {
		return nil, err
	}
	now := s.now()

	rows, err := s.tasks.ListDueCandidates(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{}
	for _, row := range rows {
		t := s.toTask(row)
		if !IsDue(t, now) {
			continue
		}
		res.Checked++

		next, err := s.spawnNext(ctx, t, now)
		if err != nil {
			if isValidation(err) {
				res.Skipped++
				s.log.Warn("recurrence not advanced", zap.String("task", t.ID), zap.Error(err))
				continue
			}
			return res, fmt.Errorf("sweep task %s: %w", t.ID, err)
		}
		if next != nil {
			res.Spawned = append(res.Spawned, *next)
		}
	}
	return res, nil
}

// Sweeper runs SweepRecurring for one owner on a fixed interval.
type Sweeper struct {
	svc      *Service
	ownerID  string
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(svc *Service, ownerID string, interval time.Duration) (*Sweeper, error) {
	if err := requireID("owner", ownerID); err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, invalid("interval", "must be > 0, got %s", interval)
	}
	return &Sweeper{svc: svc, ownerID: ownerID, interval: interval, log: svc.log}, nil
}

// Run sweeps immediately and then on every tick until ctx is done.
// onSweep, when non-nil, observes each result.
func (w *Sweeper) Run(ctx context.Context, onSweep func(*SweepResult)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		res, err := w.svc.SweepRecurring(ctx, w.ownerID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("sweep failed", zap.String("owner", w.ownerID), zap.Error(err))
		} else if onSweep != nil {
			onSweep(res)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
