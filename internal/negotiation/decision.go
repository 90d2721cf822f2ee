package negotiation

import (
	"fmt"
	"time"

	"github.com/dtorcivia/meetquorum/internal/schedule"
)

// Outcome is a participant's verdict on a proposed slot.
type Outcome string

const (
	Accept            Outcome = "ACCEPT"
	ConditionalAccept Outcome = "CONDITIONAL_ACCEPT"
	Reject            Outcome = "REJECT"
)

// Agreeable reports whether the outcome counts toward accommodation.
func (o Outcome) Agreeable() bool {
	return o == Accept || o == ConditionalAccept
}

// Reason codes attached to decisions.
const (
	ReasonScheduleConflict = "schedule_conflict"
	ReasonOffHours         = "off_hours_accommodation"
	ReasonPreference       = "preference_based"
	ReasonEvaluationFailed = "evaluation_failed"
)

// Decision is one participant's evaluation of one proposed slot.
type Decision struct {
	Participant     string
	Outcome         Outcome
	Reason          string
	PreferenceScore float64
	Reasoning       string
}

// AuditLine renders the decision as a human-readable audit-trail entry.
func (d Decision) AuditLine() string {
	return fmt.Sprintf("%s: %s (%.2f) - %s", d.Participant, d.Outcome, d.PreferenceScore, d.Reasoning)
}

// Thresholds are the preference-score cut lines for decisions.
type Thresholds struct {
	Accept      float64
	Conditional float64
}

// DefaultThresholds is the canonical cut: >=0.6 accept, >=0.3 conditional.
var DefaultThresholds = Thresholds{Accept: 0.6, Conditional: 0.3}

// conditionalOffHoursScore is the reduced score recorded when a participant
// accommodates an off-hours slot under elevated urgency.
const conditionalOffHoursScore = 0.2

// DecisionModel evaluates concrete proposed slots for a participant and
// produces that participant's alternatives.
type DecisionModel struct {
	avail          *schedule.AvailabilityEngine
	scorer         schedule.Scorer
	thresholds     Thresholds
	offHoursProbes []int
}

// NewDecisionModel creates a decision model. offHoursProbes are the local
// hours tried outside the working window when an elevated-urgency search
// comes up short.
func NewDecisionModel(avail *schedule.AvailabilityEngine, scorer schedule.Scorer, thresholds Thresholds, offHoursProbes []int) *DecisionModel {
	if len(offHoursProbes) == 0 {
		offHoursProbes = []int{7, 8, 18}
	}
	return &DecisionModel{
		avail:          avail,
		scorer:         scorer,
		thresholds:     thresholds,
		offHoursProbes: offHoursProbes,
	}
}

// Evaluate decides whether the participant can attend the proposed slot.
// Conflicts are checked first; an off-hours-only conflict under elevated
// urgency becomes a conditional accept with a reduced score. Otherwise the
// preference score drives the outcome.
func (m *DecisionModel) Evaluate(p *schedule.Participant, slot schedule.TimeSlot, urgency schedule.Urgency) Decision {
	if schedule.Conflicts(slot, p.Calendar, p.Profile.BufferMinutes) {
		kind, label := schedule.ClassifyConflict(slot, p.Calendar, p.Profile.BufferMinutes)
		if label == "" {
			label = "meeting conflict"
		}

		if kind == schedule.ConflictOffHours && urgency.Elevated() {
			return Decision{
				Participant:     p.Email,
				Outcome:         ConditionalAccept,
				Reason:          ReasonOffHours,
				PreferenceScore: conditionalOffHoursScore,
				Reasoning:       fmt.Sprintf("Can accommodate this %s request outside normal hours", urgency),
			}
		}

		return Decision{
			Participant: p.Email,
			Outcome:     Reject,
			Reason:      ReasonScheduleConflict,
			Reasoning:   "Cannot attend - " + label,
		}
	}

	score := m.scorer.Score(p, slot)
	hour := slot.Start.In(p.Location).Hour()

	var outcome Outcome
	var reasoning string
	switch {
	case score >= m.thresholds.Accept:
		outcome = Accept
		if hour >= 9 && hour < 12 {
			reasoning = "Perfect timing - this works great with my morning schedule"
		} else {
			reasoning = "This time works excellently with my preferences"
		}
	case score >= m.thresholds.Conditional:
		outcome = ConditionalAccept
		reasoning = "This time is workable for me"
	default:
		outcome = Reject
		switch {
		case hour < 9:
			reasoning = "Too early for my schedule preferences"
		case hour > 17:
			reasoning = "Too late in the day for me"
		default:
			reasoning = "This time doesn't align well with my preferences"
		}
	}

	return Decision{
		Participant:     p.Email,
		Outcome:         outcome,
		Reason:          ReasonPreference,
		PreferenceScore: score,
		Reasoning:       reasoning,
	}
}

// SuggestAlternatives returns the participant's candidate slots for the
// target date. Under elevated urgency, if fewer than three standard slots
// exist, a small fixed set of off-hours starts is probed through the same
// conflict check and appended with a flat reduced preference.
func (m *DecisionModel) SuggestAlternatives(p *schedule.Participant, date time.Time, durationMinutes, strideMinutes int, urgency schedule.Urgency) []schedule.TimeSlot {
	slots := m.avail.FindSlots(p, date, durationMinutes, strideMinutes)

	if !urgency.Elevated() || len(slots) >= 3 {
		return slots
	}

	loc := date.Location()
	y, mo, d := date.Date()
	for _, hour := range m.offHoursProbes {
		start := time.Date(y, mo, d, hour, 0, 0, 0, loc)
		probe := schedule.NewSlot(start, durationMinutes)
		if schedule.Conflicts(probe, p.Calendar, p.Profile.BufferMinutes) {
			continue
		}
		probe.PreferenceScore = 0.4
		slots = append(slots, probe)
	}

	return slots
}
