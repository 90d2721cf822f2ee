package schedule

import "fmt"

// Scorer computes a participant's preference score for a slot start time.
// The score is in [0, 1]. The strategy is injectable so the formula can be
// swapped by configuration without touching the engines.
type Scorer interface {
	Score(p *Participant, start TimeSlot) float64
}

// CanonicalScoring is the single scoring formula shipped with the engine:
//
//	score = 0.5
//	+0.3 when the local start hour falls in a preferred period band
//	     (morning 9-12, afternoon 13-17, evening 17-20)
//	-0.3 when the start falls in the lunch band (12-14) and the
//	     participant avoids lunch meetings
//	result = clamp01(score * (0.7 + 0.6*seniority_weight))
//
// Earlier revisions of this system carried two divergent formulas in
// parallel modules; this is the unified one, selected via
// negotiation.scoring_strategy.
type CanonicalScoring struct{}

// Score implements Scorer.
func (CanonicalScoring) Score(p *Participant, slot TimeSlot) float64 {
	hour := slot.Start.In(p.Location).Hour()
	score := 0.5

	switch {
	case p.Profile.prefers(PeriodMorning) && hour >= 9 && hour < 12:
		score += 0.3
	case p.Profile.prefers(PeriodAfternoon) && hour >= 13 && hour < 17:
		score += 0.3
	case p.Profile.prefers(PeriodEvening) && hour >= 17 && hour < 20:
		score += 0.3
	}

	if p.Profile.AvoidLunch && hour >= 12 && hour < 14 {
		score -= 0.3
	}

	score *= 0.7 + 0.6*p.Profile.SeniorityWeight

	return clamp01(score)
}

// ScorerByName resolves a configured scoring strategy name.
func ScorerByName(name string) (Scorer, error) {
	switch name {
	case "", "canonical":
		return CanonicalScoring{}, nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", name)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
