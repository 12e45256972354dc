package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/crach-ad/crachToDo/internal/storage"
)

// SubscribeTasks streams the owner's task list: once immediately, then after
// every committed change made through this service. The channel closes when
// ctx is done. Snapshots are re-read on delivery, so a slow reader skips
// intermediate states rather than stalling writers.
func (s *Service) SubscribeTasks(ctx context.Context, ownerID string) <-chan []Task {
	return subscribe(ctx, s, storage.TasksTopic(ownerID), func(ctx context.Context) ([]Task, error) {
		return s.ListTasks(ctx, ownerID)
	})
}

// SubscribeProgress streams the user's progress the same way. Nothing is sent
// until the profile exists.
func (s *Service) SubscribeProgress(ctx context.Context, userID string) <-chan UserProgress {
	return subscribe(ctx, s, storage.ProfileTopic(userID), func(ctx context.Context) (UserProgress, error) {
		return s.Progress(ctx, userID)
	})
}

func subscribe[T any](ctx context.Context, s *Service, topic string, load func(context.Context) (T, error)) <-chan T {
	out := make(chan T)
	signal, cancel := s.broker.Subscribe(topic)

	go func() {
		defer close(out)
		defer cancel()

		push := func() bool {
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				s.log.Debug("subscription load failed", zap.String("topic", topic), zap.Error(err))
				return true
			}
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !push() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signal:
				if !ok || !push() {
					return
				}
			}
		}
	}()
	return out
}
