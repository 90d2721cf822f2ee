package schedule

import "time"

// OffHoursBufferMinutes is the fixed buffer applied around synthetic
// "Off Hours" boundary events. Real meetings use the participant-configured
// buffer instead; the asymmetry keeps boundary events from eating into the
// working window more than a few minutes while still protecting real
// meetings with proper transition time.
const OffHoursBufferMinutes = 5

// Conflicts reports whether the slot (expanded by the per-event buffer)
// overlaps any calendar event. A slot conflicts with an event unless it ends
// at least buffer minutes before the event starts, or starts at least buffer
// minutes after the event ends. Instant comparison makes the test timezone
// independent.
func Conflicts(slot TimeSlot, events []CalendarEvent, bufferMinutes int) bool {
	for _, ev := range events {
		if conflictsWith(slot, ev, bufferMinutes) {
			return true
		}
	}
	return false
}

func conflictsWith(slot TimeSlot, ev CalendarEvent, bufferMinutes int) bool {
	buffer := time.Duration(bufferMinutes) * time.Minute
	if ev.IsOffHours() {
		buffer = OffHoursBufferMinutes * time.Minute
	}

	bufferedStart := slot.Start.Add(-buffer)
	bufferedEnd := slot.End.Add(buffer)

	clearBefore := bufferedEnd.Before(ev.Start) || bufferedEnd.Equal(ev.Start)
	clearAfter := bufferedStart.After(ev.End) || bufferedStart.Equal(ev.End)

	return !(clearBefore || clearAfter)
}

// ConflictKind classifies what a slot collides with, for reason strings.
type ConflictKind int

const (
	ConflictNone ConflictKind = iota
	ConflictMeeting
	ConflictOffHours
)

// ClassifyConflict returns the kind of conflict a slot has against the
// calendar and a label naming the blocking event. When both a real meeting
// and an off-hours boundary collide, the meeting wins: off-hours
// accommodation only applies when the boundary is the sole obstacle.
func ClassifyConflict(slot TimeSlot, events []CalendarEvent, bufferMinutes int) (ConflictKind, string) {
	kind := ConflictNone
	label := ""

	for _, ev := range events {
		if !conflictsWith(slot, ev, bufferMinutes) {
			continue
		}
		if !ev.IsOffHours() {
			return ConflictMeeting, "conflicts with " + ev.Summary
		}
		if kind == ConflictNone {
			kind = ConflictOffHours
			label = "outside working hours"
		}
	}

	return kind, label
}
