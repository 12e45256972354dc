package engine

import "time"

type Rank string

const (
	RankE   Rank = "E"
	RankD   Rank = "D"
	RankC   Rank = "C"
	RankB   Rank = "B"
	RankA   Rank = "A"
	RankS   Rank = "S"
	RankSS  Rank = "SS"
	RankSSS Rank = "SSS"
)

// Ranks lists every rank from lowest to highest.
var Ranks = []Rank{RankE, RankD, RankC, RankB, RankA, RankS, RankSS, RankSSS}

func (r Rank) index() int {
	for i, v := range Ranks {
		if v == r {
			return i
		}
	}
	return -1
}

func (r Rank) IsValid() bool {
	return r.index() >= 0
}

// Next returns the rank one step above r. The second result is false at the
// top of the ladder or for an unknown rank.
func (r Rank) Next() (Rank, bool) {
	i := r.index()
	if i < 0 || i == len(Ranks)-1 {
		return r, false
	}
	return Ranks[i+1], true
}

// Less reports whether r is strictly below other.
func (r Rank) Less(other Rank) bool {
	return r.index() < other.index()
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// DefaultPriority is used when a task carries no priority.
const DefaultPriority Priority = PriorityNormal

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceCustom  RecurrenceType = "custom"
)

func (t RecurrenceType) IsValid() bool {
	switch t {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceCustom:
		return true
	default:
		return false
	}
}

// Recurrence is the schedule descriptor attached to a recurring task.
// Interval is only meaningful for custom schedules (days), Days only for
// weekly ones (0 = Sunday).
type Recurrence struct {
	Type     RecurrenceType `yaml:"type"`
	Interval *int           `yaml:"interval,omitempty"`
	Days     []int          `yaml:"days,omitempty"`
	NextDue  *time.Time     `yaml:"next_due,omitempty"`
}

// Clone returns a deep copy so callers can advance NextDue without aliasing.
func (r Recurrence) Clone() Recurrence {
	out := Recurrence{Type: r.Type}
	if r.Interval != nil {
		v := *r.Interval
		out.Interval = &v
	}
	if r.Days != nil {
		out.Days = append([]int(nil), r.Days...)
	}
	if r.NextDue != nil {
		v := *r.NextDue
		out.NextDue = &v
	}
	return out
}

type Task struct {
	ID          string      `yaml:"id"`
	OwnerID     string      `yaml:"owner_id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Priority    Priority    `yaml:"priority"`
	Completed   bool        `yaml:"completed"`
	CreatedAt   time.Time   `yaml:"created_at"`
	CompletedAt *time.Time  `yaml:"completed_at,omitempty"`
	Recurring   *Recurrence `yaml:"recurring,omitempty"`
	// SourceID is the completed instance this task was materialized from.
	SourceID *string `yaml:"source_id,omitempty"`
}

// UserProgress is the XP/level/rank state of one user.
type UserProgress struct {
	Level      int  `yaml:"level"`
	CurrentXP  int  `yaml:"current_xp"`
	RequiredXP int  `yaml:"required_xp"`
	Rank       Rank `yaml:"rank"`
}

const (
	StartingLevel      = 1
	StartingRequiredXP = 100
	StartingRank       = RankE
)

// NewUserProgress returns the state every new profile starts with.
func NewUserProgress() UserProgress {
	return UserProgress{
		Level:      StartingLevel,
		CurrentXP:  0,
		RequiredXP: StartingRequiredXP,
		Rank:       StartingRank,
	}
}
