// Package engine coordinates one scheduling request end to end: intent
// extraction, participant assembly, calendar retrieval, negotiation,
// persistence, and outcome delivery.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dtorcivia/meetquorum/internal/calendar"
	"github.com/dtorcivia/meetquorum/internal/config"
	"github.com/dtorcivia/meetquorum/internal/history"
	"github.com/dtorcivia/meetquorum/internal/intent"
	"github.com/dtorcivia/meetquorum/internal/negotiation"
	"github.com/dtorcivia/meetquorum/internal/schedule"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// WebhookClient delivers terminal negotiation outcomes.
type WebhookClient interface {
	Deliver(ctx context.Context, result *negotiation.Result) error
	Enabled() bool
}

// ScheduleInput is one normalized scheduling request after transport
// decoding.
type ScheduleInput struct {
	RequestID     string
	From          string
	Attendees     []string
	Subject       string
	EmailContent  string
	ReferenceTime time.Time
	Location      string
}

// ScheduleOutcome bundles the negotiation result with what the engine
// derived along the way.
type ScheduleOutcome struct {
	Result       *negotiation.Result
	Intent       intent.Intent
	Participants []string
	TargetDate   time.Time
}

// Engine orchestrates scheduling requests.
type Engine struct {
	config        *config.Config
	source        calendar.Source
	extractor     intent.Extractor
	protocol      *negotiation.Protocol
	historyRepo   *history.Repository
	deliveryQueue *DeliveryQueue

	targetLoc *time.Location
}

// NewEngine creates a new engine instance. historyRepo may be nil when
// persistence is disabled.
func NewEngine(
	cfg *config.Config,
	source calendar.Source,
	extractor intent.Extractor,
	protocol *negotiation.Protocol,
	historyRepo *history.Repository,
	webhookClient WebhookClient,
) *Engine {
	e := &Engine{
		config:      cfg,
		source:      source,
		extractor:   extractor,
		protocol:    protocol,
		historyRepo: historyRepo,
		targetLoc:   util.LoadLocation(cfg.Scheduling.Timezone),
	}
	e.deliveryQueue = NewDeliveryQueue(1, webhookClient)
	return e
}

// Start starts the outcome delivery workers.
func (e *Engine) Start(ctx context.Context) {
	e.deliveryQueue.Start(ctx)
}

// Stop gracefully stops the delivery workers.
func (e *Engine) Stop() {
	e.deliveryQueue.Stop()
}

// Schedule runs one complete negotiation. It always returns an outcome for
// valid input; only malformed requests produce an error.
func (e *Engine) Schedule(ctx context.Context, input *ScheduleInput) (*ScheduleOutcome, error) {
	if err := e.validate(input); err != nil {
		return nil, err
	}

	if input.RequestID == "" {
		input.RequestID = util.GenerateRequestID()
	}

	reference := input.ReferenceTime.In(e.targetLoc)
	extracted, err := e.extractor.Extract(ctx, input.EmailContent, reference)
	if err != nil {
		return nil, fmt.Errorf("intent extraction failed: %w", err)
	}

	targetDate := time.Date(
		extracted.SuggestedDate.Year(), extracted.SuggestedDate.Month(), extracted.SuggestedDate.Day(),
		0, 0, 0, 0, e.targetLoc)

	util.Info("Scheduling request received",
		"request_id", input.RequestID,
		"participants", len(input.Attendees)+1,
		"target_date", targetDate.Format("2006-01-02"),
		"urgency", extracted.Urgency.String(),
		"meeting_type", extracted.MeetingType,
	)

	participants, err := e.buildParticipants(ctx, input, targetDate)
	if err != nil {
		return nil, err
	}

	var emails []string
	for _, p := range participants {
		emails = append(emails, p.Email)
	}

	negCtx, cancel := context.WithTimeout(ctx, e.config.Negotiation.Timeout)
	defer cancel()

	req := &negotiation.Request{
		ID:              input.RequestID,
		Participants:    participants,
		Date:            targetDate,
		RequestedStart:  extracted.SuggestedTime,
		DurationMinutes: extracted.DurationMinutes,
		StrideMinutes:   e.config.Scheduling.StrideMinutes,
		Urgency:         extracted.Urgency,
		Context:         util.TruncateString(util.SanitizeString(input.EmailContent), 500),
	}

	result := e.protocol.Negotiate(negCtx, req)

	if e.historyRepo != nil {
		if err := e.historyRepo.Create(ctx, result, targetDate, extracted.DurationMinutes, emails); err != nil {
			util.Error("Failed to persist negotiation", "request_id", input.RequestID, "error", err)
		}
	}

	e.deliveryQueue.Enqueue(result)

	util.Info("Negotiation finished",
		"request_id", input.RequestID,
		"success", result.Success,
		"stage", result.Stage,
		"consensus_score", result.ConsensusScore,
	)

	return &ScheduleOutcome{
		Result:       result,
		Intent:       extracted,
		Participants: emails,
		TargetDate:   targetDate,
	}, nil
}

// GetNegotiation retrieves a persisted negotiation by request ID.
func (e *Engine) GetNegotiation(ctx context.Context, id string) (*history.Record, error) {
	if e.historyRepo == nil {
		return nil, history.ErrNotFound
	}
	return e.historyRepo.GetByID(ctx, id)
}

// ListNegotiations returns recent persisted negotiations.
func (e *Engine) ListNegotiations(ctx context.Context, limit int) ([]history.Record, error) {
	if e.historyRepo == nil {
		return nil, nil
	}
	return e.historyRepo.ListRecent(ctx, limit)
}

func (e *Engine) validate(input *ScheduleInput) error {
	if input.EmailContent == "" {
		return fmt.Errorf("email content: %w", util.ErrEmptyField)
	}
	if err := util.ValidateEmail(input.From); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	if len(input.Attendees) == 0 {
		return fmt.Errorf("attendees: %w", util.ErrEmptyField)
	}
	if err := util.ValidateEmails(input.Attendees); err != nil {
		return err
	}
	return util.ValidateAttendeeCount(len(input.Attendees)+1, 50)
}

// buildParticipants assembles the sender and all attendees with their
// configured profiles and a fresh per-request calendar snapshot.
func (e *Engine) buildParticipants(ctx context.Context, input *ScheduleInput, targetDate time.Time) ([]*schedule.Participant, error) {
	emails := dedupe(append([]string{input.From}, input.Attendees...))

	windowStart := targetDate.AddDate(0, 0, -e.config.Scheduling.CalendarLookbackDays)
	windowEnd := targetDate.AddDate(0, 0, 1+e.config.Scheduling.CalendarLookaheadDays)

	cache := calendar.NewCache(e.source)
	calendars := make([][]schedule.CalendarEvent, len(emails))
	var wg sync.WaitGroup
	for i, email := range emails {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			events, err := cache.Fetch(ctx, email, windowStart, windowEnd)
			if err != nil {
				// A participant whose calendar cannot be read is treated as
				// free; the decision model still applies their preferences.
				util.Warn("Calendar fetch failed, treating participant as free",
					"participant", email, "error", err)
				return
			}
			calendars[i] = events
		}(i, email)
	}
	wg.Wait()

	participants := make([]*schedule.Participant, 0, len(emails))
	for i, email := range emails {
		p, err := schedule.NewParticipant(email, e.profileFor(email), calendars[i])
		if err != nil {
			return nil, fmt.Errorf("failed to build participant %s: %w", email, err)
		}
		participants = append(participants, p)
	}
	return participants, nil
}

// profileFor resolves a participant's preference profile from configuration,
// falling back to domain timezone mapping and engine defaults.
func (e *Engine) profileFor(email string) schedule.PreferenceProfile {
	profile := schedule.PreferenceProfile{
		PreferredPeriods: []schedule.Period{schedule.PeriodMorning, schedule.PeriodAfternoon},
		BufferMinutes:    e.config.Scheduling.DefaultBufferMinutes,
		AvoidLunch:       true,
		SeniorityWeight:  0.5,
		Timezone:         e.config.Scheduling.Timezone,
	}

	if tz, ok := e.config.DomainTimezones[util.EmailDomain(email)]; ok {
		profile.Timezone = tz
	}

	cfg, ok := e.config.Participants[email]
	if !ok {
		return profile
	}

	if len(cfg.PreferredPeriods) > 0 {
		periods := make([]schedule.Period, 0, len(cfg.PreferredPeriods))
		for _, p := range cfg.PreferredPeriods {
			periods = append(periods, schedule.Period(p))
		}
		profile.PreferredPeriods = periods
	}
	if cfg.BufferMinutes != nil {
		profile.BufferMinutes = *cfg.BufferMinutes
	}
	profile.AvoidLunch = cfg.AvoidLunch
	if cfg.SeniorityWeight > 0 {
		profile.SeniorityWeight = cfg.SeniorityWeight
	}
	if cfg.MaxMeetingMinutes > 0 {
		profile.MaxMeetingMinutes = cfg.MaxMeetingMinutes
	}
	if cfg.Timezone != "" {
		profile.Timezone = cfg.Timezone
	}
	return profile
}

func dedupe(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	var out []string
	for _, e := range emails {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
