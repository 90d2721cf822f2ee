package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dtorcivia/meetquorum/internal/schedule"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// DefaultDurationMinutes is assumed when the text names no duration.
const DefaultDurationMinutes = 30

var (
	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(am|pm)`),
		regexp.MustCompile(`(?i)(\d{1,2})\s*(am|pm)`),
	}

	durationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*(minutes?|mins?)`),
		regexp.MustCompile(`(?i)(\d+)\s*(hours?|hrs?)`),
		regexp.MustCompile(`(?i)(\d+)-(minute|hour)`),
	}

	weekdayNames = map[string]time.Weekday{
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
		"sunday":    time.Sunday,
	}

	urgentKeywords = []string{"urgent", "asap", "immediately", "emergency", "critical", "rush"}
	highKeywords   = []string{"important", "priority", "soon", "deadline", "time-sensitive"}
	lowKeywords    = []string{"when convenient", "sometime", "no rush", "flexible"}
)

// RuleExtractor extracts intent with regexes and keyword matching. It never
// fails: every field has a sensible default, so it also serves as the
// fallback when the oracle extractor cannot produce valid JSON.
type RuleExtractor struct {
	// Classify overrides the keyword urgency classifier when set.
	Classify Classifier
}

// Extract implements Extractor. The error is always nil.
func (r RuleExtractor) Extract(_ context.Context, rawText string, reference time.Time) (Intent, error) {
	lower := strings.ToLower(rawText)

	classify := r.Classify
	if classify == nil {
		classify = ClassifyKeywords
	}

	date := extractDate(lower, reference)
	return Intent{
		SuggestedDate:   date,
		SuggestedTime:   extractTime(rawText, date),
		DurationMinutes: extractDuration(rawText),
		Urgency:         classify(lower),
		MeetingType:     extractMeetingType(lower),
	}, nil
}

// extractDate resolves relative date references against the reference day.
// Precedence: tomorrow, today, next week, "next <weekday>", bare weekday,
// then the default next business day.
func extractDate(lower string, reference time.Time) time.Time {
	base := util.Midnight(reference)

	if strings.Contains(lower, "tomorrow") {
		return base.AddDate(0, 0, 1)
	}
	if strings.Contains(lower, "today") {
		return base
	}
	if strings.Contains(lower, "next week") {
		return base.AddDate(0, 0, daysUntilNextMonday(base.Weekday()))
	}

	hasNext := strings.Contains(lower, "next")
	for name, wd := range weekdayNames {
		if strings.Contains(lower, "next "+name) {
			return base.AddDate(0, 0, daysUntilWeekday(base.Weekday(), wd))
		}
		if !hasNext && containsWord(lower, name) {
			return base.AddDate(0, 0, daysUntilWeekday(base.Weekday(), wd))
		}
	}

	// No date reference: next business day.
	switch base.Weekday() {
	case time.Friday:
		return base.AddDate(0, 0, 3)
	case time.Saturday:
		return base.AddDate(0, 0, 2)
	default:
		return base.AddDate(0, 0, 1)
	}
}

// daysUntilWeekday returns the offset to the next occurrence of target,
// rolling a full week forward when the reference day already is the target.
func daysUntilWeekday(current, target time.Weekday) int {
	// time.Weekday counts Sunday=0; shift to Monday=0 so weekend math
	// matches the ISO week.
	c := (int(current) + 6) % 7
	t := (int(target) + 6) % 7
	if t > c {
		return t - c
	}
	return 7 - c + t
}

func daysUntilNextMonday(current time.Weekday) int {
	c := (int(current) + 6) % 7
	return 7 - c
}

func containsWord(s, word string) bool {
	idx := strings.Index(s, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(s[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(s) || !isLetter(s[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(s[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// extractTime returns the first explicit clock time in the text, placed on
// the target date, or nil when no time is named.
func extractTime(rawText string, date time.Time) *time.Time {
	for _, pattern := range timePatterns {
		m := pattern.FindStringSubmatch(rawText)
		if m == nil {
			continue
		}

		hour, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		minute := 0
		period := m[len(m)-1]
		if len(m) == 4 {
			minute, err = strconv.Atoi(m[2])
			if err != nil {
				continue
			}
		}

		switch strings.ToLower(period) {
		case "pm":
			if hour != 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		if hour > 23 || minute > 59 {
			continue
		}

		y, mo, d := date.Date()
		t := time.Date(y, mo, d, hour, minute, 0, 0, date.Location())
		return &t
	}
	return nil
}

func extractDuration(rawText string) int {
	for _, pattern := range durationPatterns {
		m := pattern.FindStringSubmatch(rawText)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		if strings.Contains(strings.ToLower(m[2]), "hour") || strings.Contains(strings.ToLower(m[2]), "hr") {
			return n * 60
		}
		return n
	}
	return DefaultDurationMinutes
}

// ClassifyKeywords is the default urgency Classifier.
func ClassifyKeywords(text string) schedule.Urgency {
	lower := strings.ToLower(text)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return schedule.UrgencyUrgent
		}
	}
	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return schedule.UrgencyHigh
		}
	}
	for _, kw := range lowKeywords {
		if strings.Contains(lower, kw) {
			return schedule.UrgencyLow
		}
	}
	return schedule.UrgencyMedium
}

func extractMeetingType(lower string) string {
	switch {
	case containsAny(lower, "standup", "daily", "scrum"):
		return TypeStandup
	case containsAny(lower, "review", "retrospective", "demo"):
		return TypeReview
	case containsAny(lower, "planning", "brainstorm", "strategy"):
		return TypePlanning
	default:
		return TypeOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
