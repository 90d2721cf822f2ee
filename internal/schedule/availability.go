package schedule

import (
	"sort"
	"time"
)

// AvailabilityEngine enumerates conflict-free candidate slots for one
// participant on one day and ranks them by preference.
type AvailabilityEngine struct {
	scorer          Scorer
	windowStartHour int
	windowEndHour   int
	maxSlots        int
}

// NewAvailabilityEngine creates an engine with the given working-hours
// window (local wall-clock hours) and result cap.
func NewAvailabilityEngine(scorer Scorer, windowStartHour, windowEndHour, maxSlots int) *AvailabilityEngine {
	if maxSlots <= 0 {
		maxSlots = 10
	}
	return &AvailabilityEngine{
		scorer:          scorer,
		windowStartHour: windowStartHour,
		windowEndHour:   windowEndHour,
		maxSlots:        maxSlots,
	}
}

// FindSlots steps through the participant's working window on the target
// date at the given stride and returns conflict-free slots sorted by
// preference score (descending, earlier start breaking ties), truncated to
// the engine's cap. An empty result is a valid outcome, not an error.
//
// The date carries the negotiation's target timezone; all participants are
// enumerated against the same instants so consensus intersection can rely
// on exact timestamp equality.
func (e *AvailabilityEngine) FindSlots(p *Participant, date time.Time, durationMinutes, strideMinutes int) []TimeSlot {
	if durationMinutes <= 0 || strideMinutes <= 0 {
		return nil
	}

	windowStart, windowEnd := e.workingWindow(p, date)
	stride := time.Duration(strideMinutes) * time.Minute
	duration := time.Duration(durationMinutes) * time.Minute

	var slots []TimeSlot
	for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(stride) {
		slot := NewSlot(start, durationMinutes)
		if Conflicts(slot, p.Calendar, p.Profile.BufferMinutes) {
			continue
		}
		slot.PreferenceScore = e.scorer.Score(p, slot)
		slots = append(slots, slot)
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].PreferenceScore > slots[j].PreferenceScore
	})

	if len(slots) > e.maxSlots {
		slots = slots[:e.maxSlots]
	}
	return slots
}

// workingWindow returns the enumeration bounds for the target date.
// The default window is [windowStartHour, windowEndHour) local. Off-hours
// boundary events compress the window once from each side: one ending
// before noon raises the start, one beginning after noon lowers the end.
// They never fragment the day into multiple free intervals.
func (e *AvailabilityEngine) workingWindow(p *Participant, date time.Time) (time.Time, time.Time) {
	loc := date.Location()
	y, m, d := date.Date()

	start := time.Date(y, m, d, e.windowStartHour, 0, 0, 0, loc)
	end := time.Date(y, m, d, e.windowEndHour, 0, 0, 0, loc)

	for _, ev := range p.Calendar {
		if !ev.IsOffHours() {
			continue
		}

		evStart := ev.Start.In(loc)
		evEnd := ev.End.In(loc)

		if sameDate(evEnd, date) && evEnd.Hour() <= 12 && evEnd.After(start) {
			start = evEnd
		}
		if sameDate(evStart, date) && evStart.Hour() >= 12 && evStart.Before(end) {
			end = evStart
		}
	}

	return start, end
}

func sameDate(t, date time.Time) bool {
	ty, tm, td := t.Date()
	dy, dm, dd := date.Date()
	return ty == dy && tm == dm && td == dd
}
