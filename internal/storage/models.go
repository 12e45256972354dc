package storage

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConflict means a compare-and-swap write lost to a concurrent update.
	ErrConflict = errors.New("concurrent update conflict")
)

type Profile struct {
	UserID     string
	Level      int
	CurrentXP  int
	RequiredXP int
	Rank       string
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Task struct {
	ID          string
	OwnerID     string
	Name        string
	Description *string
	Priority    string
	Completed   bool
	CreatedAt   time.Time
	CompletedAt *time.Time

	RecurType     *string
	RecurInterval *int
	RecurDays     []int
	NextDue       *time.Time

	SourceID *string
}

// IsRecurring reports whether the row carries a schedule descriptor.
func (t Task) IsRecurring() bool {
	return t.RecurType != nil && *t.RecurType != ""
}

// TaskUpdate lists the mutable fields of a task; nil fields are left as is.
type TaskUpdate struct {
	Name        *string
	Description *string
	Priority    *string
}

func (u TaskUpdate) empty() bool {
	return u.Name == nil && u.Description == nil && u.Priority == nil
}

type LevelEvent struct {
	ID        int64
	UserID    string
	TaskID    *string
	OldLevel  int
	NewLevel  int
	OldRank   string
	NewRank   string
	XPGained  int
	CreatedAt time.Time
}
