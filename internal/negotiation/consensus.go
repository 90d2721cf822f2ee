package negotiation

import (
	"sort"

	"github.com/dtorcivia/meetquorum/internal/schedule"
)

// ConsensusConfig tunes the intersection and ranking pass.
type ConsensusConfig struct {
	// AdmissionThreshold is the minimum average preference a common slot
	// needs to stay in play. The urgent tier uses the lower value; raising
	// urgency never raises an admission threshold.
	AdmissionThreshold       float64
	UrgentAdmissionThreshold float64

	// Standard-tier ranking weights. Elevated tiers replace the fairness
	// weighting with an additive urgency bonus instead (see rank).
	ConsensusWeight float64
	FairnessWeight  float64

	MaxResults int
}

// DefaultConsensusConfig mirrors the shipped configuration defaults.
var DefaultConsensusConfig = ConsensusConfig{
	AdmissionThreshold:       0.2,
	UrgentAdmissionThreshold: 0.1,
	ConsensusWeight:          0.7,
	FairnessWeight:           0.3,
	MaxResults:               10,
}

// ConsensusEngine intersects per-participant candidate lists and ranks the
// slots every participant can hold.
type ConsensusEngine struct {
	model *DecisionModel
	cfg   ConsensusConfig
}

// NewConsensusEngine creates a consensus engine on top of a decision model.
func NewConsensusEngine(model *DecisionModel, cfg ConsensusConfig) *ConsensusEngine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &ConsensusEngine{model: model, cfg: cfg}
}

// Intersect returns the ranked common slots. A slot is common only when the
// exact (start, end) pair appears in every participant's candidate list,
// which is sound because all participants enumerate with the same stride in
// the same target timezone. Admitted slots are re-scored with a fresh
// proposal evaluation per participant; the returned slots are new values.
func (e *ConsensusEngine) Intersect(participants []*schedule.Participant, candidates map[string][]schedule.TimeSlot, urgency schedule.Urgency) []schedule.TimeSlot {
	if len(participants) == 0 || len(candidates) == 0 {
		return nil
	}

	// Per-participant lookup of candidate preference by exact slot identity.
	byParticipant := make(map[string]map[schedule.SlotKey]float64, len(candidates))
	union := make(map[schedule.SlotKey]schedule.TimeSlot)
	for email, slots := range candidates {
		lookup := make(map[schedule.SlotKey]float64, len(slots))
		for _, s := range slots {
			lookup[s.Key()] = s.PreferenceScore
			union[s.Key()] = s
		}
		byParticipant[email] = lookup
	}

	admission := e.cfg.AdmissionThreshold
	if urgency == schedule.UrgencyUrgent {
		admission = e.cfg.UrgentAdmissionThreshold
	}

	var common []schedule.TimeSlot
	for key, slot := range union {
		total := 0.0
		holders := 0
		for _, p := range participants {
			lookup, ok := byParticipant[p.Email]
			if !ok {
				break
			}
			pref, ok := lookup[key]
			if !ok {
				break
			}
			total += pref
			holders++
		}
		if holders != len(participants) {
			continue
		}
		if total/float64(holders) < admission {
			continue
		}
		common = append(common, slot)
	}

	// Map iteration order is random; fix chronological order before scoring
	// so ties rank deterministically.
	sort.Slice(common, func(i, j int) bool {
		if !common[i].Start.Equal(common[j].Start) {
			return common[i].Start.Before(common[j].Start)
		}
		return common[i].End.Before(common[j].End)
	})

	ranked := make([]schedule.TimeSlot, 0, len(common))
	for _, slot := range common {
		ranked = append(ranked, e.score(participants, slot, urgency))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallScore > ranked[j].OverallScore
	})

	if len(ranked) > e.cfg.MaxResults {
		ranked = ranked[:e.cfg.MaxResults]
	}
	return ranked
}

// score produces a freshly scored copy of the slot.
func (e *ConsensusEngine) score(participants []*schedule.Participant, slot schedule.TimeSlot, urgency schedule.Urgency) schedule.TimeSlot {
	var prefTotal, fairTotal float64
	for _, p := range participants {
		d := e.model.Evaluate(p, slot, urgency)
		score := d.PreferenceScore
		// Under urgent pressure a willing participant counts as at least
		// moderately satisfied, so accommodation is not drowned out by low
		// raw preference.
		if urgency == schedule.UrgencyUrgent && d.Outcome.Agreeable() && score < 0.6 {
			score = 0.6
		}
		prefTotal += score
		fairTotal += fairnessBand(slot.Start.In(p.Location).Hour())
	}

	n := float64(len(participants))
	scored := slot
	scored.ConsensusScore = prefTotal / n
	scored.TimezoneFairness = fairTotal / n
	scored.OverallScore = e.rank(scored, urgency)
	return scored
}

// rank combines the component scores into the ordering key. The standard
// tier weighs consensus against timezone fairness; elevated tiers instead
// add an hour-of-day urgency bonus on top of consensus, rewarding any slot
// that is at all workable when time matters more than comfort.
func (e *ConsensusEngine) rank(slot schedule.TimeSlot, urgency schedule.Urgency) float64 {
	if !urgency.Elevated() {
		return slot.ConsensusScore*e.cfg.ConsensusWeight + slot.TimezoneFairness*e.cfg.FairnessWeight
	}
	return slot.ConsensusScore + urgencyBonus(slot.Start.Hour(), urgency)
}

// urgencyBonus rewards slots inside progressively wider hour bands as the
// tier escalates.
func urgencyBonus(hour int, urgency schedule.Urgency) float64 {
	switch urgency {
	case schedule.UrgencyUrgent:
		if hour >= 7 && hour <= 20 {
			return 0.3
		}
		return 0.1
	case schedule.UrgencyHigh:
		if hour >= 9 && hour <= 18 {
			return 0.2
		}
		return 0.1
	default:
		return 0
	}
}

// fairnessBand scores how reasonable a local start hour is for one
// participant: 1.0 for core business hours, stepping down toward 0.2 at the
// fringes.
func fairnessBand(hour int) float64 {
	switch {
	case hour >= 9 && hour < 17:
		return 1.0
	case hour >= 8 && hour < 18:
		return 0.8
	case hour >= 7 && hour < 19:
		return 0.6
	default:
		return 0.2
	}
}
