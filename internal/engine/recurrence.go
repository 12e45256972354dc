package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const day = 24 * time.Hour

func normalizeDays(days []int) []int {
	if len(days) == 0 {
		return nil
	}
	seen := map[int]bool{}
	out := make([]int, 0, len(days))
	for _, d := range days {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

func (r Recurrence) Validate() error {
	if !r.Type.IsValid() {
		return invalid("recurring.type", "unknown recurrence %q", r.Type)
	}
	if r.Type == RecurrenceCustom && r.Interval == nil {
		return invalid("recurring.interval", "required for custom recurrence")
	}
	if r.Interval != nil && *r.Interval < 1 {
		return invalid("recurring.interval", "must be >= 1 day, got %d", *r.Interval)
	}
	for _, d := range r.Days {
		if d < 0 || d > 6 {
			return invalid("recurring.days", "weekday %d out of range 0-6", d)
		}
	}
	return nil
}

// NextOccurrence computes the due moment following referenceDue.
//
//   - daily:   exactly 24h later, regardless of DST or calendar boundaries.
//   - weekly:  the next listed weekday strictly after referenceDue's weekday,
//     wrapping into the following week; 7 days later when no days are listed.
//   - monthly: same day next month, clamped to the month's last day.
//   - custom:  Interval days later, as whole 24h periods.
//
// Weekday and month arithmetic use referenceDue's location.
func NextOccurrence(r Recurrence, referenceDue time.Time) (time.Time, error) {
	if err := r.Validate(); err != nil {
		return time.Time{}, err
	}

	switch r.Type {
	case RecurrenceDaily:
		return referenceDue.Add(day), nil
	case RecurrenceWeekly:
		days := normalizeDays(r.Days)
		if len(days) == 0 {
			return referenceDue.Add(7 * day), nil
		}
		return referenceDue.AddDate(0, 0, daysUntilNextWeekday(int(referenceDue.Weekday()), days)), nil
	case RecurrenceMonthly:
		return addMonthClamped(referenceDue), nil
	case RecurrenceCustom:
		return referenceDue.Add(time.Duration(*r.Interval) * day), nil
	default:
		return time.Time{}, invalid("recurring.type", "unknown recurrence %q", r.Type)
	}
}

// daysUntilNextWeekday expects days sorted ascending and non-empty.
func daysUntilNextWeekday(current int, days []int) int {
	for _, d := range days {
		if d > current {
			return d - current
		}
	}
	return 7 - current + days[0]
}

// addMonthClamped moves t one calendar month forward. Dates that do not exist
// in the target month (Jan 31 -> Feb 31) land on its last day instead of
// spilling into the month after.
func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	firstOfNext := time.Date(y, m+1, 1, hh, mm, ss, t.Nanosecond(), t.Location())
	last := daysIn(firstOfNext.Year(), firstOfNext.Month(), t.Location())
	if d > last {
		d = last
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// InitialDue is the first due moment of a freshly created recurring task.
// The same rules apply with now as the reference.
func InitialDue(r Recurrence, now time.Time) (time.Time, error) {
	return NextOccurrence(r, now)
}

// IsDue reports whether a completed recurring task is ready to spawn its
// next instance at now.
func IsDue(t Task, now time.Time) bool {
	if !t.Completed || t.Recurring == nil || t.Recurring.NextDue == nil {
		return false
	}
	return !t.Recurring.NextDue.After(now)
}

// MaterializeNextInstance builds the next pending instance of a completed
// recurring task. It returns nil when the task is not due yet: recurrence only
// fires once nextDue has passed, not merely on completion. The source task is
// left untouched.
func MaterializeNextInstance(t Task, now time.Time) (*Task, error) {
	if !IsDue(t, now) {
		return nil, nil
	}

	rec := t.Recurring.Clone()
	next, err := NextOccurrence(rec, *t.Recurring.NextDue)
	if err != nil {
		return nil, err
	}
	rec.NextDue = &next

	source := t.ID
	return &Task{
		ID:          uuid.NewString(),
		OwnerID:     t.OwnerID,
		Name:        t.Name,
		Description: t.Description,
		Priority:    t.Priority,
		Completed:   false,
		CreatedAt:   now,
		Recurring:   &rec,
		SourceID:    &source,
	}, nil
}
