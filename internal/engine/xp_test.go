package engine

import (
	"errors"
	"testing"
)

func progress(level, cur, req int, rank Rank) UserProgress {
	return UserProgress{Level: level, CurrentXP: cur, RequiredXP: req, Rank: rank}
}

func TestNewUserProgress(t *testing.T) {
	p := NewUserProgress()
	if p != progress(1, 0, 100, RankE) {
		t.Fatalf("NewUserProgress()=%+v, want L1 0/100 E", p)
	}
}

func TestTaskXP(t *testing.T) {
	cases := []struct {
		p         Priority
		recurring bool
		want      int
	}{
		{PriorityLow, false, 5},
		{PriorityNormal, false, 10},
		{PriorityHigh, false, 20},
		{PriorityUrgent, false, 40},
		{PriorityLow, true, 10},
		{PriorityUrgent, true, 80},
		{Priority("bogus"), false, 10},
	}
	for _, c := range cases {
		if got := TaskXP(c.p, c.recurring); got != c.want {
			t.Fatalf("TaskXP(%q, %v)=%d, want %d", c.p, c.recurring, got, c.want)
		}
	}
}

func TestNextRequiredXPFloors(t *testing.T) {
	want := []int{100, 120, 144, 172, 206, 247}
	req := want[0]
	for i := 1; i < len(want); i++ {
		req = NextRequiredXP(req)
		if req != want[i] {
			t.Fatalf("step %d: required=%d, want %d", i, req, want[i])
		}
	}
}

func TestApplyXPNoLevelUp(t *testing.T) {
	res, err := ApplyXP(NewUserProgress(), 10)
	if err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if res.State != progress(1, 10, 100, RankE) {
		t.Fatalf("state=%+v", res.State)
	}
	if res.LeveledUp || res.LevelsGained != 0 || res.RankChanged() {
		t.Fatalf("unexpected flags: %+v", res)
	}
}

func TestApplyXPZeroDeltaIsNoop(t *testing.T) {
	in := progress(4, 33, 172, RankE)
	res, err := ApplyXP(in, 0)
	if err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if res.State != in || res.LeveledUp {
		t.Fatalf("zero delta changed state: %+v", res)
	}
}

func TestApplyXPExactThreshold(t *testing.T) {
	res, err := ApplyXP(progress(1, 90, 100, RankE), 10)
	if err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if res.State != progress(2, 0, 120, RankE) {
		t.Fatalf("state=%+v, want L2 0/120", res.State)
	}
	if !res.LeveledUp || res.LevelsGained != 1 {
		t.Fatalf("flags=%+v", res)
	}
}

func TestApplyXPMultiLevelCascade(t *testing.T) {
	res, err := ApplyXP(progress(1, 95, 100, RankE), 250)
	if err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if res.State != progress(3, 125, 144, RankE) {
		t.Fatalf("state=%+v, want L3 125/144 E", res.State)
	}
	if res.LevelsGained != 2 {
		t.Fatalf("LevelsGained=%d, want 2", res.LevelsGained)
	}
}

func TestApplyXPRankBoundary(t *testing.T) {
	res, err := ApplyXP(progress(9, 0, 100, RankE), 100)
	if err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if res.State != progress(10, 0, 120, RankD) {
		t.Fatalf("state=%+v, want L10 0/120 D", res.State)
	}
	if !res.RankChanged() || *res.PreviousRank != RankE {
		t.Fatalf("PreviousRank=%v, want E", res.PreviousRank)
	}
}

func TestApplyXPCrossesTwoRanks(t *testing.T) {
	// 10+12+14+16+19+22+26+31+37+44+52 = 283 takes L9 to L20.
	res, err := ApplyXP(progress(9, 0, 10, RankE), 283)
	if err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if res.State != progress(20, 0, 62, RankC) {
		t.Fatalf("state=%+v, want L20 0/62 C", res.State)
	}
	if res.LevelsGained != 11 {
		t.Fatalf("LevelsGained=%d, want 11", res.LevelsGained)
	}
	if *res.PreviousRank != RankE {
		t.Fatalf("PreviousRank=%s, want E", *res.PreviousRank)
	}
}

func TestApplyXPRankCeiling(t *testing.T) {
	res, err := ApplyXP(progress(79, 0, 100, RankSSS), 100)
	if err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if res.State.Level != 80 || res.State.Rank != RankSSS {
		t.Fatalf("state=%+v, want L80 SSS", res.State)
	}
	if res.RankChanged() {
		t.Fatalf("rank should not change at the ceiling")
	}
}

func TestApplyXPNonBoundaryLevelKeepsRank(t *testing.T) {
	res, err := ApplyXP(progress(10, 0, 100, RankD), 100)
	if err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if res.State.Level != 11 || res.State.Rank != RankD {
		t.Fatalf("state=%+v, want L11 D", res.State)
	}
}

func TestApplyXPRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		state UserProgress
		delta int
	}{
		{"negative delta", NewUserProgress(), -1},
		{"delta over cap", NewUserProgress(), MaxXPDelta + 1},
		{"level zero", progress(0, 0, 100, RankE), 1},
		{"current at required", progress(1, 100, 100, RankE), 1},
		{"negative current", progress(1, -1, 100, RankE), 1},
		{"zero required", progress(1, 0, 0, RankE), 1},
		{"unknown rank", progress(1, 0, 100, Rank("Z")), 1},
		{"required over cap", progress(1, MaxRequiredXP, MaxRequiredXP+1, RankE), 1},
	}
	for _, c := range cases {
		_, err := ApplyXP(c.state, c.delta)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: err=%v, want ValidationError", c.name, err)
		}
	}
}

func TestApplyXPAtRequiredCap(t *testing.T) {
	res, err := ApplyXP(progress(1, MaxRequiredXP-1, MaxRequiredXP, RankE), 1)
	if err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if res.LevelsGained != 1 || res.State.CurrentXP != 0 {
		t.Fatalf("state=%+v, want one level-up to 0 XP", res.State)
	}
	if res.State.RequiredXP < MaxRequiredXP {
		t.Fatalf("requiredXP shrank to %d", res.State.RequiredXP)
	}

	_, err = ApplyXP(res.State, 1)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err=%v, want ValidationError past the cap", err)
	}
}

func TestApplyXPDoesNotMutateInput(t *testing.T) {
	in := progress(1, 95, 100, RankE)
	if _, err := ApplyXP(in, 250); err != nil {
		t.Fatalf("ApplyXP: %v", err)
	}
	if in != progress(1, 95, 100, RankE) {
		t.Fatalf("input mutated: %+v", in)
	}
}

func TestApplyXPInvariantHolds(t *testing.T) {
	state := NewUserProgress()
	for i := 0; i < 500; i++ {
		res, err := ApplyXP(state, 37)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		state = res.State
		if err := state.Validate(); err != nil {
			t.Fatalf("step %d: invariant broken: %v", i, err)
		}
		wantRank := Ranks[min(state.Level/RankUpEvery, len(Ranks)-1)]
		if state.Rank != wantRank {
			t.Fatalf("step %d: level %d rank %s, want %s", i, state.Level, state.Rank, wantRank)
		}
	}
}

func TestRankNext(t *testing.T) {
	if r, ok := RankE.Next(); !ok || r != RankD {
		t.Fatalf("E.Next()=%s,%v", r, ok)
	}
	if _, ok := RankSSS.Next(); ok {
		t.Fatalf("SSS.Next() should report false")
	}
	if !RankA.Less(RankS) || RankS.Less(RankA) {
		t.Fatalf("Less ordering wrong")
	}
}
