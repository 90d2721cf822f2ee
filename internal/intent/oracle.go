package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dtorcivia/meetquorum/internal/oracle"
	"github.com/dtorcivia/meetquorum/internal/schedule"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// OracleExtractor asks the reasoning oracle to extract intent as JSON and
// falls back to rule-based extraction whenever the oracle fails or returns
// something unusable. It therefore never fails either.
type OracleExtractor struct {
	orc       oracle.Oracle
	fallback  RuleExtractor
	maxTokens int
}

// NewOracleExtractor creates an extractor backed by the given oracle.
func NewOracleExtractor(orc oracle.Oracle, maxTokens int) *OracleExtractor {
	if maxTokens <= 0 {
		maxTokens = 120
	}
	return &OracleExtractor{orc: orc, maxTokens: maxTokens}
}

type oracleIntent struct {
	SuggestedDate   string `json:"suggested_date"`
	SuggestedTime   string `json:"suggested_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Urgency         string `json:"urgency"`
	MeetingType     string `json:"meeting_type"`
}

// Extract implements Extractor.
func (e *OracleExtractor) Extract(ctx context.Context, rawText string, reference time.Time) (Intent, error) {
	if e.orc == nil {
		return e.fallback.Extract(ctx, rawText, reference)
	}

	prompt := fmt.Sprintf(`Extract meeting details from this email sent on %s (%s):
"%s"

Calculate the actual meeting date based on relative references.

Return exactly this JSON format:
{
    "suggested_date": "YYYY-MM-DD",
    "suggested_time": "HH:MM",
    "duration_minutes": 30,
    "urgency": "medium",
    "meeting_type": "discussion"
}

Omit suggested_time if no explicit time is mentioned. Only return valid JSON, no other text.`,
		reference.Format("2006-01-02"), reference.Weekday(), rawText)

	resp, err := e.orc.Complete(ctx, prompt, e.maxTokens)
	if err != nil {
		util.Warn("Intent extraction via oracle failed, using rules", "error", err)
		return e.fallback.Extract(ctx, rawText, reference)
	}

	parsed, ok := parseOracleIntent(resp)
	if !ok {
		util.Warn("Oracle intent response unusable, using rules")
		return e.fallback.Extract(ctx, rawText, reference)
	}

	date, err := time.ParseInLocation("2006-01-02", parsed.SuggestedDate, reference.Location())
	if err != nil {
		util.Warn("Oracle intent has invalid date, using rules", "date", parsed.SuggestedDate)
		return e.fallback.Extract(ctx, rawText, reference)
	}

	out := Intent{
		SuggestedDate:   date,
		DurationMinutes: parsed.DurationMinutes,
		Urgency:         schedule.ParseUrgency(parsed.Urgency),
		MeetingType:     parsed.MeetingType,
	}
	if out.DurationMinutes <= 0 {
		out.DurationMinutes = DefaultDurationMinutes
	}
	if out.MeetingType == "" {
		out.MeetingType = TypeOther
	}

	if parsed.SuggestedTime != "" {
		if clock, err := time.Parse("15:04", parsed.SuggestedTime); err == nil {
			y, m, d := date.Date()
			t := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, reference.Location())
			out.SuggestedTime = &t
		}
	}

	return out, nil
}

// parseOracleIntent digs the JSON object out of a possibly fenced or
// chatty completion.
func parseOracleIntent(resp string) (oracleIntent, bool) {
	clean := strings.TrimSpace(resp)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return oracleIntent{}, false
	}

	var parsed oracleIntent
	if err := json.Unmarshal([]byte(clean[start:end+1]), &parsed); err != nil {
		return oracleIntent{}, false
	}
	if parsed.SuggestedDate == "" {
		return oracleIntent{}, false
	}
	return parsed, true
}
