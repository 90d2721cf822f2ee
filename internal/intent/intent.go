// Package intent extracts a normalized meeting request from free-form
// email text: target date, optional explicit time, duration, urgency, and
// meeting type.
package intent

import (
	"context"
	"time"

	"github.com/dtorcivia/meetquorum/internal/schedule"
)

// Meeting type labels.
const (
	TypeStandup  = "standup"
	TypeReview   = "review"
	TypePlanning = "planning"
	TypeOther    = "other"
)

// Intent is the normalized extraction result. SuggestedTime is nil when the
// text names no explicit clock time; callers must then skip requested-time
// evaluation and go straight to the availability search.
type Intent struct {
	SuggestedDate   time.Time
	SuggestedTime   *time.Time
	DurationMinutes int
	Urgency         schedule.Urgency
	MeetingType     string
}

// Extractor turns raw text into an Intent. reference is the timestamp the
// text was written at; all relative dates ("tomorrow", "next thursday")
// resolve against it.
type Extractor interface {
	Extract(ctx context.Context, rawText string, reference time.Time) (Intent, error)
}

// Classifier maps free text to an urgency level. It is injectable so the
// default keyword rules can be swapped for an oracle-backed classifier.
type Classifier func(text string) schedule.Urgency
