package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dtorcivia/meetquorum/internal/calendar"
	"github.com/dtorcivia/meetquorum/internal/config"
	"github.com/dtorcivia/meetquorum/internal/engine"
	"github.com/dtorcivia/meetquorum/internal/intent"
	"github.com/dtorcivia/meetquorum/internal/negotiation"
	"github.com/dtorcivia/meetquorum/internal/schedule"
	"github.com/dtorcivia/meetquorum/internal/webhook"
)

func testConfig() *config.Config {
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

func testServer(t *testing.T, source calendar.Source) *httptest.Server {
	t.Helper()
	cfg := testConfig()

	avail := schedule.NewAvailabilityEngine(schedule.CanonicalScoring{}, 9, 18, 10)
	model := negotiation.NewDecisionModel(avail, schedule.CanonicalScoring{}, negotiation.DefaultThresholds, nil)
	consensus := negotiation.NewConsensusEngine(model, negotiation.DefaultConsensusConfig)
	protocol := negotiation.NewProtocol(model, consensus, nil, negotiation.DefaultProtocolConfig)

	eng := engine.NewEngine(cfg, source, intent.RuleExtractor{}, protocol, nil,
		webhook.NewClient(&config.WebhookConfig{}))

	srv := httptest.NewServer(New(cfg, nil, eng).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postSchedule(t *testing.T, srv *httptest.Server, body string) (*http.Response, ScheduleResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/schedule", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST /api/schedule: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded ScheduleResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, decoded
}

const scheduleBody = `{
	"Request_id": "test-1",
	"Datetime": "02-09-2026T11:00:00",
	"Location": "Bengaluru",
	"From": "alice@example.com",
	"Attendees": [{"email": "bob@example.com"}],
	"Subject": "Project Sync",
	"EmailContent": "Let's meet tomorrow at 10:00 AM for 30 minutes to discuss the launch."
}`

func TestScheduleRequestedTimeHeld(t *testing.T) {
	srv := testServer(t, &calendar.Static{})

	resp, got := postSchedule(t, srv, scheduleBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if !got.Success {
		t.Fatalf("Success = false, error %q", got.Error)
	}
	if got.RequestID != "test-1" {
		t.Errorf("Request_id = %q", got.RequestID)
	}
	if got.From != "alice@example.com" || got.Subject != "Project Sync" {
		t.Error("request fields not echoed")
	}
	if got.DurationMins != 30 {
		t.Errorf("Duration_mins = %d, want 30", got.DurationMins)
	}
	if got.EventStart == nil || *got.EventStart != "2026-09-03T10:00:00Z" {
		t.Errorf("EventStart = %v, want the requested time on the next day", got.EventStart)
	}
	if got.EventEnd == nil || *got.EventEnd != "2026-09-03T10:30:00Z" {
		t.Errorf("EventEnd = %v", got.EventEnd)
	}
	if len(got.MetaData.AgentReasoningSummary) == 0 {
		t.Error("expected a populated reasoning summary")
	}
}

func TestScheduleNegotiatesAroundConflict(t *testing.T) {
	busy := calendar.Static{Events: map[string][]schedule.CalendarEvent{
		"bob@example.com": {{
			Start:   time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC),
			End:     time.Date(2026, 9, 3, 11, 0, 0, 0, time.UTC),
			Summary: "board meeting",
		}},
	}}
	srv := testServer(t, &busy)

	resp, got := postSchedule(t, srv, scheduleBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !got.Success {
		t.Fatalf("Success = false, error %q", got.Error)
	}
	if got.EventStart == nil {
		t.Fatal("EventStart = nil")
	}
	start, err := time.Parse(time.RFC3339, *got.EventStart)
	if err != nil {
		t.Fatalf("EventStart %q: %v", *got.EventStart, err)
	}
	if start.Hour() == 10 && start.Minute() == 0 {
		t.Error("conflicting requested time was kept")
	}
}

func TestScheduleValidation(t *testing.T) {
	srv := testServer(t, &calendar.Static{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"bad sender", strings.Replace(scheduleBody, "alice@example.com", "not-an-email", 1)},
		{"no attendees", strings.Replace(scheduleBody, `[{"email": "bob@example.com"}]`, `[]`, 1)},
		{"empty content", strings.Replace(scheduleBody,
			"Let's meet tomorrow at 10:00 AM for 30 minutes to discuss the launch.", "", 1)},
		{"bad datetime", strings.Replace(scheduleBody, "02-09-2026T11:00:00", "soonish", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := postSchedule(t, srv, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestGetNegotiationNotFound(t *testing.T) {
	srv := testServer(t, &calendar.Static{})

	resp, err := http.Get(srv.URL + "/api/negotiations/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != "NEGOTIATION_NOT_FOUND" {
		t.Errorf("error code = %q", body.Error.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t, &calendar.Static{})

	for _, path := range []string{"/health", "/api/health"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := testServer(t, &calendar.Static{})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}
