package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crach-ad/crachToDo/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func newTestService(t *testing.T, path string, opts ...Option) (*Service, *fakeClock) {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &fakeClock{now: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewService(db, opts...), clock
}

func TestEnsureProfileStartsAtE(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx := context.Background()

	_, err := svc.Progress(ctx, "u1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	p, err := svc.EnsureProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, NewUserProgress(), p)

	again, err := svc.EnsureProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestAddTaskValidation(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateTaskInput
	}{
		{"empty name", CreateTaskInput{Name: "   "}},
		{"bad priority", CreateTaskInput{Name: "x", Priority: "asap"}},
		{"bad recurrence", CreateTaskInput{Name: "x", Recurring: &RecurrenceInput{Type: "hourly"}}},
		{"custom without interval", CreateTaskInput{Name: "x", Recurring: &RecurrenceInput{Type: "custom"}}},
		{"weekday out of range", CreateTaskInput{Name: "x", Recurring: &RecurrenceInput{Type: "weekly", Days: []int{9}}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.AddTask(ctx, "u1", c.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}

	_, err := svc.AddTask(ctx, "", CreateTaskInput{Name: "x"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestAddTaskRecurringInitialDue(t *testing.T) {
	svc, clock := newTestService(t, openTestDB(t))
	ctx := context.Background()
	now := clock.Now() // Wednesday

	weekly, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "Gym", Recurring: &RecurrenceInput{Type: "weekly"}})
	require.NoError(t, err)
	assert.Equal(t, []int{int(time.Wednesday)}, weekly.Recurring.Days)
	assert.True(t, weekly.Recurring.NextDue.Equal(now.AddDate(0, 0, 7)))

	custom, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "Plants", Recurring: &RecurrenceInput{Type: "custom", Interval: 3}})
	require.NoError(t, err)
	assert.True(t, custom.Recurring.NextDue.Equal(now.Add(72*time.Hour)))

	got, err := svc.GetTask(ctx, "u1", custom.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Recurring)
	assert.Equal(t, RecurrenceCustom, got.Recurring.Type)
	assert.Equal(t, 3, *got.Recurring.Interval)
	assert.True(t, got.Recurring.NextDue.Equal(*custom.Recurring.NextDue))
}

func TestListTasksNewestFirstAndOwnerScoped(t *testing.T) {
	svc, clock := newTestService(t, openTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		_, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: name})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}
	_, err := svc.AddTask(ctx, "u2", CreateTaskInput{Name: "other"})
	require.NoError(t, err)

	tasks, err := svc.ListTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "third", tasks[0].Name)
	assert.Equal(t, "first", tasks[2].Name)
}

func TestCompleteTaskAwardsXP(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx := context.Background()

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "Write report", Priority: "high"})
	require.NoError(t, err)

	res, err := svc.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, res.XPAwarded)
	assert.Equal(t, NewUserProgress(), res.Before)
	assert.Equal(t, progress(1, 20, 100, RankE), res.After)
	assert.False(t, res.LeveledUp)
	assert.Nil(t, res.Spawned)

	p, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, res.After, p)

	got, err := svc.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	require.NotNil(t, got.CompletedAt)
}

func TestCompleteTaskTwiceFails(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx := context.Background()

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "once"})
	require.NoError(t, err)
	_, err = svc.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)

	_, err = svc.CompleteTask(ctx, "u1", task.ID)
	var already AlreadyCompletedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, task.ID, already.TaskID)

	p, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.CurrentXP, "second completion must not award XP")
}

func TestOwnershipChecks(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx := context.Background()

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "mine"})
	require.NoError(t, err)

	_, err = svc.CompleteTask(ctx, "u2", task.ID)
	require.ErrorIs(t, err, storage.ErrPermissionDenied)
	require.ErrorIs(t, svc.DeleteTask(ctx, "u2", task.ID), storage.ErrPermissionDenied)
	_, err = svc.GetTask(ctx, "u2", task.ID)
	require.ErrorIs(t, err, storage.ErrPermissionDenied)

	_, err = svc.CompleteTask(ctx, "u1", "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, svc.DeleteTask(ctx, "u1", task.ID))
	_, err = svc.GetTask(ctx, "u1", task.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func setProgress(t *testing.T, svc *Service, userID string, want UserProgress) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, userID)
	require.NoError(t, err)
	p, err := svc.ProfileRepo().Get(ctx, userID)
	require.NoError(t, err)
	p.Level, p.CurrentXP, p.RequiredXP, p.Rank = want.Level, want.CurrentXP, want.RequiredXP, string(want.Rank)
	require.NoError(t, svc.ProfileRepo().Update(ctx, p, time.Now()))
}

func TestCompleteTaskLevelUpRecordsHistory(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx := context.Background()
	setProgress(t, svc, "u1", progress(9, 90, 100, RankE))

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "Boss fight", Priority: "urgent"})
	require.NoError(t, err)

	res, err := svc.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, progress(10, 30, 120, RankD), res.After)
	require.True(t, res.RankChanged())
	assert.Equal(t, RankE, *res.PreviousRank)

	events, err := svc.History(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, 9, e.OldLevel)
	assert.Equal(t, 10, e.NewLevel)
	assert.Equal(t, "E", e.OldRank)
	assert.Equal(t, "D", e.NewRank)
	assert.Equal(t, 40, e.XPGained)
	require.NotNil(t, e.TaskID)
	assert.Equal(t, task.ID, *e.TaskID)
}

func TestUpdateTaskChangesReward(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx := context.Background()

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "draft", Priority: "low"})
	require.NoError(t, err)

	name, prio := "final", "urgent"
	require.NoError(t, svc.UpdateTask(ctx, "u1", task.ID, UpdateTaskInput{Name: &name, Priority: &prio}))

	empty := " "
	var ve *ValidationError
	require.ErrorAs(t, svc.UpdateTask(ctx, "u1", task.ID, UpdateTaskInput{Name: &empty}), &ve)

	res, err := svc.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, res.XPAwarded)

	got, err := svc.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Name)
}

func TestRecurringSpawnWaitsForDue(t *testing.T) {
	path := openTestDB(t)
	svc, clock := newTestService(t, path)
	ctx := context.Background()
	start := clock.Now()

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "Stretch", Recurring: &RecurrenceInput{Type: "daily"}})
	require.NoError(t, err)

	res, err := svc.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, res.XPAwarded, "recurring tasks earn double")
	assert.Nil(t, res.Spawned, "not due yet")

	sweep, err := svc.SweepRecurring(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sweep.Spawned)

	clock.Advance(24 * time.Hour)
	sweep, err = svc.SweepRecurring(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sweep.Spawned, 1)
	next := sweep.Spawned[0]
	assert.Equal(t, "Stretch", next.Name)
	assert.False(t, next.Completed)
	require.NotNil(t, next.SourceID)
	assert.Equal(t, task.ID, *next.SourceID)
	assert.True(t, next.Recurring.NextDue.Equal(start.Add(48*time.Hour)))

	// Idempotent in this process and across a fresh service on the same DB.
	sweep, err = svc.SweepRecurring(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sweep.Spawned)

	other, otherClock := newTestService(t, path)
	otherClock.Advance(48 * time.Hour)
	sweep, err = other.SweepRecurring(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sweep.Spawned)

	tasks, err := svc.ListTasks(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestCompletingOverdueRecurringSpawnsImmediately(t *testing.T) {
	svc, clock := newTestService(t, openTestDB(t))
	ctx := context.Background()

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "Journal", Recurring: &RecurrenceInput{Type: "daily"}})
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)

	res, err := svc.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Spawned)
	assert.Equal(t, task.ID, *res.Spawned.SourceID)

	sweep, err := svc.SweepRecurring(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sweep.Spawned)
}

func TestConcurrentCompletionsDoNotLoseXP(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx := context.Background()

	const n = 12
	ids := make([]string, n)
	for i := range ids {
		task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "chore", Priority: "urgent"})
		require.NoError(t, err)
		ids[i] = task.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.CompleteTask(ctx, "u1", id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// 12 * 40 = 480 XP: 100 + 120 + 144 = 364 spent reaching L4, 116 left.
	p, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, progress(4, 116, 172, RankE), p)
}

func TestMetricsCountAwards(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc, clock := newTestService(t, openTestDB(t), WithMetrics(m))
	ctx := context.Background()
	setProgress(t, svc, "u1", progress(1, 95, 100, RankE))

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "a", Recurring: &RecurrenceInput{Type: "daily"}})
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	_, err = svc.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)

	assert.Equal(t, 20.0, testutil.ToFloat64(m.XPAwarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LevelUps))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RankUps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Materialized))

	n, err := testutil.GatherAndCount(reg, "arise_xp_awarded_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSubscribeTasks(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := svc.SubscribeTasks(ctx, "u1")
	first := receive(t, ch)
	assert.Empty(t, first)

	_, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "ping"})
	require.NoError(t, err)

	second := receive(t, ch)
	require.Len(t, second, 1)
	assert.Equal(t, "ping", second[0].Name)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, svc.Broker().Subscribers(storage.TasksTopic("u1")))
}

func TestSubscribeProgress(t *testing.T) {
	svc, _ := newTestService(t, openTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := svc.EnsureProfile(ctx, "u1")
	require.NoError(t, err)
	ch := svc.SubscribeProgress(ctx, "u1")
	assert.Equal(t, NewUserProgress(), receive(t, ch))

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "x"})
	require.NoError(t, err)
	_, err = svc.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)

	assert.Equal(t, 10, receive(t, ch).CurrentXP)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for subscription")
	}
	var zero T
	return zero
}

func TestSweeperRun(t *testing.T) {
	svc, clock := newTestService(t, openTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task, err := svc.AddTask(ctx, "u1", CreateTaskInput{Name: "Water", Recurring: &RecurrenceInput{Type: "custom", Interval: 2}})
	require.NoError(t, err)
	_, err = svc.CompleteTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)

	_, err = NewSweeper(svc, "u1", 0)
	require.Error(t, err)

	w, err := NewSweeper(svc, "u1", 10*time.Millisecond)
	require.NoError(t, err)

	spawned := make(chan int, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(res *SweepResult) {
			select {
			case spawned <- len(res.Spawned):
			default:
			}
		})
	}()

	assert.Equal(t, 1, <-spawned)
	assert.Equal(t, 0, <-spawned)
	cancel()
	require.NoError(t, <-done)
}

func TestIsValidation(t *testing.T) {
	assert.True(t, isValidation(invalid("x", "bad")))
	assert.False(t, isValidation(errors.New("plain")))
}
