package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dtorcivia/meetquorum/internal/schedule"
)

func day(hour, min int) time.Time {
	return time.Date(2026, 9, 3, hour, min, 0, 0, time.UTC)
}

func TestStaticFetchFiltersWindow(t *testing.T) {
	src := &Static{Events: map[string][]schedule.CalendarEvent{
		"alice@example.com": {
			{Start: day(8, 0), End: day(9, 0), Summary: "before"},
			{Start: day(10, 0), End: day(11, 0), Summary: "inside"},
			{Start: day(17, 30), End: day(18, 30), Summary: "straddles end"},
			{Start: day(18, 0), End: day(19, 0), Summary: "after"},
		},
	}}

	events, err := src.Fetch(context.Background(), "alice@example.com", day(9, 0), day(18, 0))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Summary != "inside" || events[1].Summary != "straddles end" {
		t.Errorf("wrong events kept: %v", events)
	}
}

func TestStaticFetchUnknownParticipant(t *testing.T) {
	src := &Static{}
	events, err := src.Fetch(context.Background(), "nobody@example.com", day(9, 0), day(18, 0))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len(events) = %d, want 0", len(events))
	}
}

// countingSource records how many fetches reach the underlying provider.
type countingSource struct {
	calls  int
	events []schedule.CalendarEvent
	err    error
}

func (c *countingSource) Fetch(_ context.Context, _ string, _, _ time.Time) ([]schedule.CalendarEvent, error) {
	c.calls++
	return c.events, c.err
}

func TestCacheMemoizes(t *testing.T) {
	under := &countingSource{events: []schedule.CalendarEvent{
		{Start: day(10, 0), End: day(11, 0), Summary: "standup"},
	}}
	cache := NewCache(under)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		events, err := cache.Fetch(ctx, "alice@example.com", day(9, 0), day(18, 0))
		if err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
		if len(events) != 1 {
			t.Fatalf("Fetch %d: len = %d", i, len(events))
		}
	}
	if under.calls != 1 {
		t.Errorf("provider calls = %d, want 1", under.calls)
	}

	// A different window is a different entry.
	if _, err := cache.Fetch(ctx, "alice@example.com", day(9, 0), day(12, 0)); err != nil {
		t.Fatal(err)
	}
	if under.calls != 2 {
		t.Errorf("provider calls = %d, want 2 after new window", under.calls)
	}

	// So is a different participant.
	if _, err := cache.Fetch(ctx, "bob@example.com", day(9, 0), day(18, 0)); err != nil {
		t.Fatal(err)
	}
	if under.calls != 3 {
		t.Errorf("provider calls = %d, want 3 after new participant", under.calls)
	}
}

func TestCacheMemoizesErrors(t *testing.T) {
	under := &countingSource{err: errors.New("provider unavailable")}
	cache := NewCache(under)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cache.Fetch(ctx, "alice@example.com", day(9, 0), day(18, 0)); err == nil {
			t.Fatalf("Fetch %d: expected error", i)
		}
	}
	if under.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (failures are not retried mid-request)", under.calls)
	}
}
