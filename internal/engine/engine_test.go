package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtorcivia/meetquorum/internal/calendar"
	"github.com/dtorcivia/meetquorum/internal/config"
	"github.com/dtorcivia/meetquorum/internal/intent"
	"github.com/dtorcivia/meetquorum/internal/negotiation"
	"github.com/dtorcivia/meetquorum/internal/schedule"
)

// nullWebhook satisfies WebhookClient without delivering anything.
type nullWebhook struct{}

func (nullWebhook) Deliver(context.Context, *negotiation.Result) error { return nil }
func (nullWebhook) Enabled() bool                                      { return false }

func testEngineConfig() *config.Config {
	return &config.Config{
		Scheduling: config.SchedulingConfig{
			WindowStartHour:       9,
			WindowEndHour:         18,
			StrideMinutes:         30,
			MaxSlots:              10,
			DefaultBufferMinutes:  15,
			Timezone:              "UTC",
			CalendarLookbackDays:  1,
			CalendarLookaheadDays: 1,
		},
		Negotiation: config.NegotiationConfig{
			UrgentRetryThreshold: 0.8,
			EscalationThreshold:  0.7,
			EscalationHour:       7,
			FanOut:               4,
			Timeout:              10 * time.Second,
		},
		Participants:    map[string]config.ParticipantConfig{},
		DomainTimezones: map[string]string{},
	}
}

func newTestEngine(cfg *config.Config, source calendar.Source) *Engine {
	avail := schedule.NewAvailabilityEngine(schedule.CanonicalScoring{}, 9, 18, 10)
	model := negotiation.NewDecisionModel(avail, schedule.CanonicalScoring{}, negotiation.DefaultThresholds, nil)
	consensus := negotiation.NewConsensusEngine(model, negotiation.DefaultConsensusConfig)
	protocol := negotiation.NewProtocol(model, consensus, nil, negotiation.DefaultProtocolConfig)
	return NewEngine(cfg, source, intent.RuleExtractor{}, protocol, nil, nullWebhook{})
}

func validInput() *ScheduleInput {
	return &ScheduleInput{
		RequestID:     "eng-1",
		From:          "alice@example.com",
		Attendees:     []string{"bob@example.com"},
		Subject:       "Sync",
		EmailContent:  "Can we meet tomorrow at 10:00 AM for 30 minutes?",
		ReferenceTime: time.Date(2026, 9, 2, 11, 0, 0, 0, time.UTC),
	}
}

func TestScheduleValidatesInput(t *testing.T) {
	eng := newTestEngine(testEngineConfig(), &calendar.Static{})
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*ScheduleInput)
	}{
		{"empty content", func(in *ScheduleInput) { in.EmailContent = "" }},
		{"bad sender", func(in *ScheduleInput) { in.From = "not-an-email" }},
		{"no attendees", func(in *ScheduleInput) { in.Attendees = nil }},
		{"bad attendee", func(in *ScheduleInput) { in.Attendees = []string{"broken"} }},
		{"too many attendees", func(in *ScheduleInput) {
			in.Attendees = nil
			for i := 0; i < 50; i++ {
				in.Attendees = append(in.Attendees, fmt.Sprintf("p%d@example.com", i))
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			if _, err := eng.Schedule(ctx, in); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestScheduleHappyPath(t *testing.T) {
	eng := newTestEngine(testEngineConfig(), &calendar.Static{})

	outcome, err := eng.Schedule(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if !outcome.Result.Success {
		t.Fatalf("Success = false: %s", outcome.Result.FailureReason)
	}
	if got := outcome.TargetDate.Format("2006-01-02"); got != "2026-09-03" {
		t.Errorf("TargetDate = %s, want 2026-09-03", got)
	}
	if outcome.Intent.DurationMinutes != 30 {
		t.Errorf("DurationMinutes = %d", outcome.Intent.DurationMinutes)
	}
	if outcome.Result.Slot == nil || outcome.Result.Slot.Start.Hour() != 10 {
		t.Errorf("Slot = %v, want the requested 10:00", outcome.Result.Slot)
	}
}

func TestScheduleDedupesParticipants(t *testing.T) {
	eng := newTestEngine(testEngineConfig(), &calendar.Static{})

	in := validInput()
	in.Attendees = []string{"bob@example.com", "alice@example.com", "bob@example.com"}

	outcome, err := eng.Schedule(context.Background(), in)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(outcome.Participants) != 2 {
		t.Errorf("Participants = %v, want sender plus one attendee", outcome.Participants)
	}
}

func TestScheduleGeneratesRequestID(t *testing.T) {
	eng := newTestEngine(testEngineConfig(), &calendar.Static{})

	in := validInput()
	in.RequestID = ""

	outcome, err := eng.Schedule(context.Background(), in)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if outcome.Result.RequestID == "" {
		t.Error("no request ID generated")
	}
}

func TestProfileFor(t *testing.T) {
	cfg := testEngineConfig()
	cfg.DomainTimezones["remote.example.org"] = "America/New_York"
	buffer := 30
	cfg.Participants["carol@example.com"] = config.ParticipantConfig{
		PreferredPeriods: []string{"afternoon"},
		BufferMinutes:    &buffer,
		SeniorityWeight:  0.9,
		Timezone:         "Europe/London",
	}
	eng := newTestEngine(cfg, &calendar.Static{})

	def := eng.profileFor("unknown@example.com")
	if def.BufferMinutes != 15 || def.Timezone != "UTC" || !def.AvoidLunch {
		t.Errorf("default profile = %+v", def)
	}
	if len(def.PreferredPeriods) != 2 {
		t.Errorf("default periods = %v", def.PreferredPeriods)
	}

	domain := eng.profileFor("dave@remote.example.org")
	if domain.Timezone != "America/New_York" {
		t.Errorf("domain timezone = %q", domain.Timezone)
	}

	carol := eng.profileFor("carol@example.com")
	if carol.BufferMinutes != 30 {
		t.Errorf("BufferMinutes = %d", carol.BufferMinutes)
	}
	if carol.SeniorityWeight != 0.9 {
		t.Errorf("SeniorityWeight = %v", carol.SeniorityWeight)
	}
	if carol.Timezone != "Europe/London" {
		t.Errorf("Timezone = %q", carol.Timezone)
	}
	if len(carol.PreferredPeriods) != 1 || carol.PreferredPeriods[0] != schedule.PeriodAfternoon {
		t.Errorf("PreferredPeriods = %v", carol.PreferredPeriods)
	}
}

// countingWebhook records deliveries for queue tests.
type countingWebhook struct {
	calls int32
}

func (c *countingWebhook) Deliver(context.Context, *negotiation.Result) error {
	atomic.AddInt32(&c.calls, 1)
	return nil
}
func (c *countingWebhook) Enabled() bool { return true }

func TestDeliveryQueue(t *testing.T) {
	hook := &countingWebhook{}
	q := NewDeliveryQueue(1, hook)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue(&negotiation.Result{RequestID: "q-1"})
	q.Enqueue(&negotiation.Result{RequestID: "q-2"})

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&hook.calls) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := atomic.LoadInt32(&hook.calls); got != 2 {
		t.Errorf("deliveries = %d, want 2", got)
	}
	q.Stop()
}

func TestDeliveryQueueDisabled(t *testing.T) {
	q := NewDeliveryQueue(1, nullWebhook{})
	q.Enqueue(&negotiation.Result{RequestID: "q-3"})
	if q.Pending() != 0 {
		t.Error("disabled queue buffered an outcome")
	}
}
