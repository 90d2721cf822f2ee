// Package negotiation implements participant decision making, consensus
// ranking, and the staged protocol that turns calendars and preferences
// into a confirmed slot or a documented failure.
package negotiation

import (
	"fmt"
	"sync"
)

// Trail is the append-only audit log for one negotiation. It is created
// fresh per request and threaded explicitly through every stage, so nothing
// leaks across requests and tests stay deterministic. Lines are never
// reordered or mutated after append.
type Trail struct {
	mu    sync.Mutex
	lines []string
}

// NewTrail creates an empty trail.
func NewTrail() *Trail {
	return &Trail{}
}

// Record appends one formatted line.
func (t *Trail) Record(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the recorded lines in append order.
func (t *Trail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}
