package engine

import "math"

const (
	// RankUpEvery is the level step at which rank advances.
	RankUpEvery = 10

	// MaxXPDelta bounds a single award. It keeps the level loop short.
	MaxXPDelta = 1_000_000

	// MaxRequiredXP is the largest threshold NextRequiredXP can grow
	// without overflowing int.
	MaxRequiredXP = math.MaxInt / 6
)

// BaseXP is the award for completing a task of the given priority.
var BaseXP = map[Priority]int{
	PriorityLow:    5,
	PriorityNormal: 10,
	PriorityHigh:   20,
	PriorityUrgent: 40,
}

// TaskXP returns the XP a completed task instance is worth.
// Recurring instances earn double.
func TaskXP(p Priority, recurring bool) int {
	xp, ok := BaseXP[p]
	if !ok {
		xp = BaseXP[DefaultPriority]
	}
	if recurring {
		xp *= 2
	}
	return xp
}

// NextRequiredXP grows a level threshold by 20%, rounded down.
// Integer math keeps floor exact where float 1.2 would not.
func NextRequiredXP(required int) int {
	return required * 6 / 5
}

// XPResult is the outcome of ApplyXP.
type XPResult struct {
	State        UserProgress
	LeveledUp    bool
	LevelsGained int
	// PreviousRank is the rank before this call, set only if rank changed.
	PreviousRank *Rank
}

// RankChanged reports whether the call advanced the rank.
func (r XPResult) RankChanged() bool {
	return r.PreviousRank != nil
}

func (s UserProgress) Validate() error {
	if s.Level < 1 {
		return invalid("level", "must be >= 1, got %d", s.Level)
	}
	if s.RequiredXP <= 0 {
		return invalid("requiredXP", "must be > 0, got %d", s.RequiredXP)
	}
	if s.RequiredXP > MaxRequiredXP {
		return invalid("requiredXP", "%d exceeds cap %d", s.RequiredXP, MaxRequiredXP)
	}
	if s.CurrentXP < 0 {
		return invalid("currentXP", "must be >= 0, got %d", s.CurrentXP)
	}
	if s.CurrentXP >= s.RequiredXP {
		return invalid("currentXP", "%d is not below requiredXP %d", s.CurrentXP, s.RequiredXP)
	}
	if !s.Rank.IsValid() {
		return invalid("rank", "unknown rank %q", s.Rank)
	}
	return nil
}

// ApplyXP adds delta XP to state, cascading through as many level-ups as the
// total covers. Each level that lands on a multiple of RankUpEvery advances
// rank one step, capped at the top rank.
func ApplyXP(state UserProgress, delta int) (XPResult, error) {
	if err := state.Validate(); err != nil {
		return XPResult{}, err
	}
	if delta < 0 {
		return XPResult{}, invalid("xpDelta", "must be >= 0, got %d", delta)
	}
	if delta > MaxXPDelta {
		return XPResult{}, invalid("xpDelta", "%d exceeds cap %d", delta, MaxXPDelta)
	}

	next := state
	next.CurrentXP += delta

	res := XPResult{}
	for next.CurrentXP >= next.RequiredXP {
		if next.RequiredXP > MaxRequiredXP {
			return XPResult{}, invalid("requiredXP", "cannot grow past %d", MaxRequiredXP)
		}
		next.Level++
		next.CurrentXP -= next.RequiredXP
		next.RequiredXP = NextRequiredXP(next.RequiredXP)
		res.LevelsGained++

		if next.Level%RankUpEvery == 0 {
			if r, ok := next.Rank.Next(); ok {
				next.Rank = r
			}
		}
	}

	res.State = next
	res.LeveledUp = res.LevelsGained > 0
	if next.Rank != state.Rank {
		prev := state.Rank
		res.PreviousRank = &prev
	}
	return res, nil
}
