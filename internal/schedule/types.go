// Package schedule provides the calendar data model, conflict detection,
// and per-participant slot search.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Urgency is the priority tier of a meeting request. It gates which
// escalation stages run and the admission thresholds they use.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyUrgent
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyMedium:
		return "medium"
	case UrgencyHigh:
		return "high"
	case UrgencyUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// ParseUrgency converts a string to an Urgency. Unknown values map to medium.
func ParseUrgency(s string) Urgency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return UrgencyLow
	case "medium":
		return UrgencyMedium
	case "high":
		return UrgencyHigh
	case "urgent":
		return UrgencyUrgent
	default:
		return UrgencyMedium
	}
}

// Elevated reports whether the tier unlocks off-hours accommodation.
func (u Urgency) Elevated() bool {
	return u == UrgencyHigh || u == UrgencyUrgent
}

// offHoursMarker identifies synthetic boundary events that mark non-working
// time on a participant's calendar.
const offHoursMarker = "Off Hours"

// CalendarEvent is an immutable, owner-scoped fact retrieved from a
// participant's calendar. It is read-only input to the negotiation.
type CalendarEvent struct {
	Start        time.Time `json:"StartTime"`
	End          time.Time `json:"EndTime"`
	Summary      string    `json:"Summary"`
	Attendees    []string  `json:"Attendees,omitempty"`
	NumAttendees int       `json:"NumAttendees"`
}

// IsOffHours reports whether the event is a synthetic off-hours boundary
// rather than a real meeting.
func (e CalendarEvent) IsOffHours() bool {
	return strings.Contains(e.Summary, offHoursMarker)
}

// overlaps reports whether [start, end) intersects the event interval.
// Both sides are instants, so the comparison is timezone independent.
func (e CalendarEvent) overlaps(start, end time.Time) bool {
	return !(end.Before(e.Start) || end.Equal(e.Start) ||
		start.After(e.End) || start.Equal(e.End))
}

// Period is a named part of the working day a participant may prefer.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

// PreferenceProfile captures a participant's scheduling preferences.
type PreferenceProfile struct {
	PreferredPeriods  []Period
	BufferMinutes     int
	AvoidLunch        bool
	SeniorityWeight   float64
	MaxMeetingMinutes int
	Timezone          string
}

// prefers reports whether the profile lists the given period.
func (p PreferenceProfile) prefers(period Period) bool {
	for _, pp := range p.PreferredPeriods {
		if pp == period {
			return true
		}
	}
	return false
}

// Participant is one meeting invitee with a calendar and preferences.
// Participants are constructed fresh per negotiation request and never
// mutated afterwards.
type Participant struct {
	Email    string
	Location *time.Location
	Profile  PreferenceProfile
	Calendar []CalendarEvent
}

// NewParticipant builds a participant, resolving the profile timezone and
// ordering the calendar by start time.
func NewParticipant(email string, profile PreferenceProfile, events []CalendarEvent) (*Participant, error) {
	if email == "" {
		return nil, fmt.Errorf("participant email is required")
	}

	tz := profile.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q for %s: %w", tz, email, err)
	}

	ordered := make([]CalendarEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	return &Participant{
		Email:    email,
		Location: loc,
		Profile:  profile,
		Calendar: ordered,
	}, nil
}

// TimeSlot is a candidate start/end interval with derived scores.
// Slots are immutable once scored; re-scored slots are new values.
type TimeSlot struct {
	Start            time.Time
	End              time.Time
	PreferenceScore  float64
	ConsensusScore   float64
	TimezoneFairness float64
	OverallScore     float64
}

// NewSlot builds an unscored slot of the given duration.
func NewSlot(start time.Time, durationMinutes int) TimeSlot {
	return TimeSlot{
		Start: start,
		End:   start.Add(time.Duration(durationMinutes) * time.Minute),
	}
}

// SlotKey identifies a slot by its exact instant pair. Used for the
// unanimity intersection, which relies on all participants searching with
// the same stride and target timezone.
type SlotKey struct {
	Start int64
	End   int64
}

// Key returns the slot's identity for exact-equality intersection.
func (s TimeSlot) Key() SlotKey {
	return SlotKey{Start: s.Start.UnixNano(), End: s.End.UnixNano()}
}
