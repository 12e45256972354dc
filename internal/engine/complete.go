package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/crach-ad/crachToDo/internal/storage"
)

// maxProfileAttempts bounds retries after a lost profile compare-and-swap.
const maxProfileAttempts = 3

type CompleteResult struct {
	TaskID       string
	XPAwarded    int
	Before       UserProgress
	After        UserProgress
	LeveledUp    bool
	LevelsGained int
	// PreviousRank is set only when this completion changed the rank.
	PreviousRank *Rank
	// Spawned is the next instance of a recurring task, when it was already due.
	Spawned *Task
}

func (r CompleteResult) RankChanged() bool {
	return r.PreviousRank != nil
}

// CompleteTask marks the owner's task completed and awards its XP to the
// owner's profile. The completion, the profile write and the history entry
// commit together; a profile changed concurrently is re-read and retried.
func (s *Service) CompleteTask(ctx context.Context, ownerID, taskID string) (*CompleteResult, error) {
	if err := requireID("owner", ownerID); err != nil {
		return nil, err
	}
	now := s.now()

	var (
		res  *CompleteResult
		task Task
		err  error
	)
	for attempt := 1; ; attempt++ {
		res, task, err = s.completeOnce(ctx, ownerID, taskID, now)
		if err == nil || !errors.Is(err, storage.ErrConflict) || attempt == maxProfileAttempts {
			break
		}
		s.metrics.ProfileConflicts.Inc()
		s.log.Warn("profile write conflict, retrying",
			zap.String("user", ownerID),
			zap.String("task", taskID),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.XPAwarded.Add(float64(res.XPAwarded))
	fields := []zap.Field{
		zap.String("user", ownerID),
		zap.String("task", taskID),
		zap.Int("xp", res.XPAwarded),
		zap.Int("level", res.After.Level),
		zap.String("rank", string(res.After.Rank)),
	}
	if res.LeveledUp {
		s.metrics.LevelUps.Add(float64(res.LevelsGained))
		s.log.Info("level up", append(fields, zap.Int("levels_gained", res.LevelsGained))...)
	} else {
		s.log.Debug("task completed", fields...)
	}
	if res.PreviousRank != nil {
		s.metrics.RankUps.Add(float64(res.After.Rank.index() - res.PreviousRank.index()))
		s.log.Info("rank up", zap.String("user", ownerID), zap.String("from", string(*res.PreviousRank)), zap.String("to", string(res.After.Rank)))
	}

	s.broker.Publish(storage.TasksTopic(ownerID))
	s.broker.Publish(storage.ProfileTopic(ownerID))

	spawned, err := s.spawnNext(ctx, task, now)
	if err != nil {
		// The completion itself is committed; a bad descriptor only stops
		// the lineage.
		if !isValidation(err) {
			return res, err
		}
		s.log.Warn("recurrence not advanced", zap.String("task", taskID), zap.Error(err))
	}
	res.Spawned = spawned
	return res, nil
}

func (s *Service) completeOnce(ctx context.Context, ownerID, taskID string, now time.Time) (*CompleteResult, Task, error) {
	var (
		res  *CompleteResult
		task Task
	)
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		profiles := s.profiles.WithTx(tx)

		changed, err := tasks.MarkCompleted(ctx, taskID, ownerID, now)
		if err != nil {
			return err
		}
		if !changed {
			return AlreadyCompletedError{TaskID: taskID}
		}
		row, err := tasks.Get(ctx, taskID)
		if err != nil {
			return err
		}
		if row == nil {
			return storage.ErrNotFound
		}
		task = s.toTask(*row)

		p, err := profiles.GetOrCreate(ctx, initialProfile(ownerID), now)
		if err != nil {
			return err
		}
		before := toProgress(p)
		xp := TaskXP(task.Priority, task.Recurring != nil)
		applied, err := ApplyXP(before, xp)
		if err != nil {
			return err
		}

		p.Level = applied.State.Level
		p.CurrentXP = applied.State.CurrentXP
		p.RequiredXP = applied.State.RequiredXP
		p.Rank = string(applied.State.Rank)
		if err := profiles.Update(ctx, p, now); err != nil {
			return err
		}

		if applied.LeveledUp {
			id := taskID
			if _, err := s.events.WithTx(tx).Insert(ctx, storage.LevelEvent{
				UserID:    ownerID,
				TaskID:    &id,
				OldLevel:  before.Level,
				NewLevel:  applied.State.Level,
				OldRank:   string(before.Rank),
				NewRank:   string(applied.State.Rank),
				XPGained:  xp,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		res = &CompleteResult{
			TaskID:       taskID,
			XPAwarded:    xp,
			Before:       before,
			After:        applied.State,
			LeveledUp:    applied.LeveledUp,
			LevelsGained: applied.LevelsGained,
			PreviousRank: applied.PreviousRank,
		}
		return nil
	})
	if err != nil {
		return nil, Task{}, err
	}
	return res, task, nil
}
