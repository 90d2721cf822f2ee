// Package calendar retrieves participant calendars from an external
// provider and caches them for the duration of one negotiation.
package calendar

import (
	"context"
	"time"

	"github.com/dtorcivia/meetquorum/internal/schedule"
)

// Source fetches one participant's events overlapping [start, end). The
// returned events are sorted by start time. Implementations must be safe
// for concurrent use.
type Source interface {
	Fetch(ctx context.Context, email string, start, end time.Time) ([]schedule.CalendarEvent, error)
}

// Static serves events from a fixed in-memory map keyed by participant
// email. Used in tests and for file-seeded deployments.
type Static struct {
	Events map[string][]schedule.CalendarEvent
}

// Fetch implements Source. Events outside [start, end) are filtered out.
func (s *Static) Fetch(_ context.Context, email string, start, end time.Time) ([]schedule.CalendarEvent, error) {
	var out []schedule.CalendarEvent
	for _, ev := range s.Events[email] {
		if ev.End.After(start) && ev.Start.Before(end) {
			out = append(out, ev)
		}
	}
	return out, nil
}
