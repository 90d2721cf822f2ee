package negotiation

import (
	"testing"

	"github.com/dtorcivia/meetquorum/internal/schedule"
)

func newTestConsensus() *ConsensusEngine {
	return NewConsensusEngine(newTestModel(), DefaultConsensusConfig)
}

func scoredSlot(hour, minute int, pref float64) schedule.TimeSlot {
	s := utcSlot(hour, minute, 30)
	s.PreferenceScore = pref
	return s
}

func TestIntersectRequiresUnanimity(t *testing.T) {
	engine := newTestConsensus()
	alice := mustParticipant(t, "alice@example.com", nil)
	bob := mustParticipant(t, "bob@example.com", nil)
	participants := []*schedule.Participant{alice, bob}

	shared := scoredSlot(10, 0, 0.8)
	aliceOnly := scoredSlot(14, 0, 0.8)

	candidates := map[string][]schedule.TimeSlot{
		"alice@example.com": {shared, aliceOnly},
		"bob@example.com":   {shared},
	}

	ranked := engine.Intersect(participants, candidates, schedule.UrgencyMedium)
	if len(ranked) != 1 {
		t.Fatalf("len(ranked) = %d, want 1 common slot", len(ranked))
	}
	if ranked[0].Key() != shared.Key() {
		t.Errorf("kept %s, want the shared slot", ranked[0].Start.Format("15:04"))
	}
}

func TestIntersectExactIdentity(t *testing.T) {
	engine := newTestConsensus()
	alice := mustParticipant(t, "alice@example.com", nil)
	bob := mustParticipant(t, "bob@example.com", nil)
	participants := []*schedule.Participant{alice, bob}

	// Same start, different ends: not the same slot.
	short := scoredSlot(10, 0, 0.8)
	long := schedule.NewSlot(short.Start, 60)
	long.PreferenceScore = 0.8

	candidates := map[string][]schedule.TimeSlot{
		"alice@example.com": {short},
		"bob@example.com":   {long},
	}

	if ranked := engine.Intersect(participants, candidates, schedule.UrgencyMedium); len(ranked) != 0 {
		t.Errorf("len(ranked) = %d, want 0 for mismatched intervals", len(ranked))
	}
}

func TestIntersectAdmissionThreshold(t *testing.T) {
	alice := mustParticipant(t, "alice@example.com", nil)
	bob := mustParticipant(t, "bob@example.com", nil)
	participants := []*schedule.Participant{alice, bob}

	// Candidate average preference 0.15: below the standard admission floor
	// of 0.2, above the urgent floor of 0.1.
	weak := scoredSlot(10, 0, 0.15)
	candidates := map[string][]schedule.TimeSlot{
		"alice@example.com": {weak},
		"bob@example.com":   {weak},
	}

	engine := newTestConsensus()
	if ranked := engine.Intersect(participants, candidates, schedule.UrgencyMedium); len(ranked) != 0 {
		t.Errorf("standard tier admitted a slot below the floor")
	}
	if ranked := engine.Intersect(participants, candidates, schedule.UrgencyUrgent); len(ranked) != 1 {
		t.Errorf("urgent tier should admit the slot via the lower floor")
	}
}

func TestIntersectDeterministicOrder(t *testing.T) {
	alice := mustParticipant(t, "alice@example.com", nil)
	bob := mustParticipant(t, "bob@example.com", nil)
	participants := []*schedule.Participant{alice, bob}

	// Several equally scored candidates; map iteration order must not leak
	// into the result.
	var shared []schedule.TimeSlot
	for _, hour := range []int{14, 10, 15, 9} {
		shared = append(shared, scoredSlot(hour, 0, 0.8))
	}
	candidates := map[string][]schedule.TimeSlot{
		"alice@example.com": shared,
		"bob@example.com":   shared,
	}

	engine := newTestConsensus()
	first := engine.Intersect(participants, candidates, schedule.UrgencyMedium)
	for i := 0; i < 20; i++ {
		again := engine.Intersect(participants, candidates, schedule.UrgencyMedium)
		if len(again) != len(first) {
			t.Fatalf("run %d: length changed", i)
		}
		for j := range again {
			if again[j].Key() != first[j].Key() {
				t.Fatalf("run %d: order changed at %d", i, j)
			}
		}
	}
}

func TestIntersectRescoresSlots(t *testing.T) {
	alice := mustParticipant(t, "alice@example.com", nil)
	participants := []*schedule.Participant{alice}

	// The candidate carries a stale preference; intersection re-evaluates.
	stale := scoredSlot(10, 0, 0.95)
	candidates := map[string][]schedule.TimeSlot{
		"alice@example.com": {stale},
	}

	ranked := newTestConsensus().Intersect(participants, candidates, schedule.UrgencyMedium)
	if len(ranked) != 1 {
		t.Fatalf("len(ranked) = %d, want 1", len(ranked))
	}
	got := ranked[0]
	if got.ConsensusScore != 0.8 {
		t.Errorf("ConsensusScore = %v, want fresh evaluation of 0.8", got.ConsensusScore)
	}
	if got.TimezoneFairness != 1.0 {
		t.Errorf("TimezoneFairness = %v, want 1.0 for a core business hour", got.TimezoneFairness)
	}
	// standard rank: 0.8*0.7 + 1.0*0.3
	if diff := got.OverallScore - 0.86; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("OverallScore = %v, want 0.86", got.OverallScore)
	}
	// The input slot must be untouched.
	if stale.ConsensusScore != 0 {
		t.Error("input slot was mutated")
	}
}

func TestUrgencyBonus(t *testing.T) {
	tests := []struct {
		hour    int
		urgency schedule.Urgency
		want    float64
	}{
		{10, schedule.UrgencyUrgent, 0.3},
		{7, schedule.UrgencyUrgent, 0.3},
		{20, schedule.UrgencyUrgent, 0.3},
		{6, schedule.UrgencyUrgent, 0.1},
		{21, schedule.UrgencyUrgent, 0.1},
		{10, schedule.UrgencyHigh, 0.2},
		{8, schedule.UrgencyHigh, 0.1},
		{10, schedule.UrgencyMedium, 0},
	}
	for _, tt := range tests {
		if got := urgencyBonus(tt.hour, tt.urgency); got != tt.want {
			t.Errorf("urgencyBonus(%d, %v) = %v, want %v", tt.hour, tt.urgency, got, tt.want)
		}
	}
}

func TestFairnessBand(t *testing.T) {
	tests := []struct {
		hour int
		want float64
	}{
		{9, 1.0},
		{16, 1.0},
		{8, 0.8},
		{17, 0.8},
		{7, 0.6},
		{18, 0.6},
		{6, 0.2},
		{22, 0.2},
	}
	for _, tt := range tests {
		if got := fairnessBand(tt.hour); got != tt.want {
			t.Errorf("fairnessBand(%d) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestIntersectEmptyInput(t *testing.T) {
	engine := newTestConsensus()
	if got := engine.Intersect(nil, nil, schedule.UrgencyMedium); got != nil {
		t.Error("nil input should yield nil")
	}

	alice := mustParticipant(t, "alice@example.com", nil)
	empty := map[string][]schedule.TimeSlot{"alice@example.com": nil}
	if got := engine.Intersect([]*schedule.Participant{alice}, empty, schedule.UrgencyMedium); len(got) != 0 {
		t.Errorf("empty candidates should yield no slots, got %d", len(got))
	}
}
