package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/dtorcivia/meetquorum/internal/schedule"
)

// Cache memoizes fetches for the lifetime of one negotiation so every
// stage sees the same snapshot of each participant's calendar. Create a
// fresh Cache per request; never share one across requests.
type Cache struct {
	source Source

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

type cacheKey struct {
	email string
	start int64
	end   int64
}

type cacheEntry struct {
	events []schedule.CalendarEvent
	err    error
}

// NewCache wraps a source with request-scoped memoization.
func NewCache(source Source) *Cache {
	return &Cache{
		source:  source,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// Fetch implements Source. Errors are cached too: a provider that failed
// once during a negotiation is not retried mid-request.
func (c *Cache) Fetch(ctx context.Context, email string, start, end time.Time) ([]schedule.CalendarEvent, error) {
	key := cacheKey{email: email, start: start.UnixNano(), end: end.UnixNano()}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return entry.events, entry.err
	}
	c.mu.Unlock()

	events, err := c.source.Fetch(ctx, email, start, end)

	c.mu.Lock()
	c.entries[key] = cacheEntry{events: events, err: err}
	c.mu.Unlock()

	return events, err
}
