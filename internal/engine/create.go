package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crach-ad/crachToDo/internal/storage"
)

type CreateTaskInput struct {
	Name        string           `validate:"required,max=200"`
	Description string           `validate:"max=2000"`
	Priority    string           `validate:"max=16"`
	Recurring   *RecurrenceInput `validate:"omitempty"`
}

type RecurrenceInput struct {
	Type string `validate:"required"`
	// Interval in days, custom schedules only.
	Interval int `validate:"gte=0,lte=3650"`
	// Days are weekday numbers (0 = Sunday), weekly schedules only.
	Days []int `validate:"omitempty,max=7,dive,gte=0,lte=6"`
}

func (s *Service) validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Field:  strings.ToLower(fe.Field()),
			Reason: "failed '" + fe.Tag() + "' check",
		}
	}
	return invalid("", "%v", err)
}

// buildRecurrence turns user input into a descriptor with its first due
// moment. A weekly schedule without days repeats on the creation weekday.
func (s *Service) buildRecurrence(in RecurrenceInput, now time.Time) (Recurrence, error) {
	typ, err := ParseRecurrenceType(in.Type)
	if err != nil {
		return Recurrence{}, err
	}

	rec := Recurrence{Type: typ}
	switch typ {
	case RecurrenceCustom:
		if in.Interval > 0 {
			v := in.Interval
			rec.Interval = &v
		}
	case RecurrenceWeekly:
		rec.Days = normalizeDays(in.Days)
		if len(rec.Days) == 0 {
			rec.Days = []int{int(now.Weekday())}
		}
	}

	due, err := InitialDue(rec, now)
	if err != nil {
		return Recurrence{}, err
	}
	rec.NextDue = &due
	return rec, nil
}

// AddTask creates a pending task for ownerID.
func (s *Service) AddTask(ctx context.Context, ownerID string, in CreateTaskInput) (*Task, error) {
	if err := requireID("owner", ownerID); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return nil, s.validationError(err)
	}

	prio, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		Priority:    prio,
		CreatedAt:   now,
	}
	if in.Recurring != nil {
		rec, err := s.buildRecurrence(*in.Recurring, now)
		if err != nil {
			return nil, err
		}
		t.Recurring = &rec
	}

	if err := s.tasks.Insert(ctx, fromTask(t)); err != nil {
		return nil, err
	}
	s.log.Debug("task added",
		zap.String("owner", ownerID),
		zap.String("task", t.ID),
		zap.String("priority", string(t.Priority)),
		zap.Bool("recurring", t.Recurring != nil),
	)
	s.broker.Publish(storage.TasksTopic(ownerID))
	return &t, nil
}
