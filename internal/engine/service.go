package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/crach-ad/crachToDo/internal/storage"
)

// Clock supplies "now". The engines never read the system clock themselves.
type Clock func() time.Time

const defaultSpawnCacheSize = 1024

type Service struct {
	db       *sql.DB
	tasks    *storage.TaskRepo
	profiles *storage.ProfileRepo
	events   *storage.EventRepo
	lineage  *storage.LineageRepo
	broker   *storage.Broker

	log      *zap.Logger
	metrics  *Metrics
	clock    Clock
	loc      *time.Location
	validate *validator.Validate

	spawnCacheSize int
	// spawned remembers source task ids already claimed in this process.
	spawned *lru.Cache[string, string]
}

type Option func(*Service)

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithBroker(b *storage.Broker) Option { return func(s *Service) { s.broker = b } }

// WithLocation sets the zone used for weekday and month arithmetic.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func WithSpawnCacheSize(n int) Option { return func(s *Service) { s.spawnCacheSize = n } }

func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:             db,
		tasks:          storage.NewTaskRepo(db),
		profiles:       storage.NewProfileRepo(db),
		events:         storage.NewEventRepo(db),
		lineage:        storage.NewLineageRepo(db),
		broker:         storage.NewBroker(),
		log:            zap.NewNop(),
		clock:          time.Now,
		loc:            time.UTC,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		spawnCacheSize: defaultSpawnCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.spawnCacheSize <= 0 {
		s.spawnCacheSize = defaultSpawnCacheSize
	}
	// lru.New only fails on a non-positive size.
	s.spawned, _ = lru.New[string, string](s.spawnCacheSize)
	return s
}

func (s *Service) ProfileRepo() *storage.ProfileRepo { return s.profiles }
func (s *Service) Broker() *storage.Broker           { return s.broker }
func (s *Service) Location() *time.Location          { return s.loc }

func (s *Service) now() time.Time {
	return s.clock().In(s.loc)
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func initialProfile(userID string) storage.Profile {
	p := NewUserProgress()
	return storage.Profile{
		UserID:     userID,
		Level:      p.Level,
		CurrentXP:  p.CurrentXP,
		RequiredXP: p.RequiredXP,
		Rank:       string(p.Rank),
	}
}

// EnsureProfile returns the user's progress, creating the starting profile
// on first use.
func (s *Service) EnsureProfile(ctx context.Context, userID string) (UserProgress, error) {
	if err := requireID("user", userID); err != nil {
		return UserProgress{}, err
	}
	p, err := s.profiles.GetOrCreate(ctx, initialProfile(userID), s.now())
	if err != nil {
		return UserProgress{}, err
	}
	return toProgress(p), nil
}

// Progress reads the user's progress. A missing profile is storage.ErrNotFound.
func (s *Service) Progress(ctx context.Context, userID string) (UserProgress, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return UserProgress{}, err
	}
	if p == nil {
		return UserProgress{}, storage.ErrNotFound
	}
	return toProgress(p), nil
}

// ListTasks returns the owner's tasks, newest first.
func (s *Service) ListTasks(ctx context.Context, ownerID string) ([]Task, error) {
	rows, err := s.tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.toTask(r))
	}
	return out, nil
}

// GetTask returns one of the owner's tasks.
func (s *Service) GetTask(ctx context.Context, ownerID, taskID string) (*Task, error) {
	row, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, storage.ErrNotFound
	}
	if row.OwnerID != ownerID {
		return nil, storage.ErrPermissionDenied
	}
	t := s.toTask(*row)
	return &t, nil
}

// History returns the user's level-up events, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]storage.LevelEvent, error) {
	return s.events.ListByUser(ctx, userID, limit)
}

func (s *Service) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := s.tasks.Delete(ctx, taskID, ownerID); err != nil {
		return err
	}
	s.log.Debug("task deleted", zap.String("owner", ownerID), zap.String("task", taskID))
	s.broker.Publish(storage.TasksTopic(ownerID))
	return nil
}

func (s *Service) toTask(r storage.Task) Task {
	t := Task{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
		Priority:  parseStoredPriority(r.Priority),
		Completed: r.Completed,
		CreatedAt: r.CreatedAt.In(s.loc),
		SourceID:  r.SourceID,
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.CompletedAt != nil {
		v := r.CompletedAt.In(s.loc)
		t.CompletedAt = &v
	}
	if r.IsRecurring() {
		rec := Recurrence{
			Type:     RecurrenceType(*r.RecurType),
			Interval: r.RecurInterval,
			Days:     r.RecurDays,
		}
		if r.NextDue != nil {
			v := r.NextDue.In(s.loc)
			rec.NextDue = &v
		}
		t.Recurring = &rec
	}
	return t
}

func fromTask(t Task) storage.Task {
	r := storage.Task{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Name:        t.Name,
		Priority:    string(t.Priority),
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
		SourceID:    t.SourceID,
	}
	if t.Description != "" {
		d := t.Description
		r.Description = &d
	}
	if t.Recurring != nil {
		typ := string(t.Recurring.Type)
		r.RecurType = &typ
		r.RecurInterval = t.Recurring.Interval
		r.RecurDays = t.Recurring.Days
		r.NextDue = t.Recurring.NextDue
	}
	return r
}

func toProgress(p *storage.Profile) UserProgress {
	return UserProgress{
		Level:      p.Level,
		CurrentXP:  p.CurrentXP,
		RequiredXP: p.RequiredXP,
		Rank:       Rank(p.Rank),
	}
}

func isValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
