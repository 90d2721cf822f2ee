package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/dtorcivia/meetquorum/internal/schedule"
)

// GoogleSource fetches events from Google Calendar. Each participant has a
// stored OAuth token at <tokenDir>/<email>.json; the participant's primary
// calendar is queried with recurring events expanded.
type GoogleSource struct {
	oauthConfig *oauth2.Config
	tokenDir    string
	maxResults  int64
}

// GoogleConfig holds what GoogleSource needs from the application config.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	TokenDir     string
	MaxResults   int
}

// NewGoogleSource creates a Google Calendar source.
func NewGoogleSource(cfg GoogleConfig) *GoogleSource {
	maxResults := int64(cfg.MaxResults)
	if maxResults <= 0 {
		maxResults = 100
	}
	return &GoogleSource{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{gcal.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		tokenDir:   cfg.TokenDir,
		maxResults: maxResults,
	}
}

// Fetch implements Source.
func (g *GoogleSource) Fetch(ctx context.Context, email string, start, end time.Time) ([]schedule.CalendarEvent, error) {
	token, err := g.loadToken(email)
	if err != nil {
		return nil, fmt.Errorf("no calendar credentials for %s: %w", email, err)
	}

	service, err := gcal.NewService(ctx,
		option.WithTokenSource(g.oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	resp, err := service.Events.List("primary").
		Context(ctx).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(g.maxResults).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", email, err)
	}

	events := make([]schedule.CalendarEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		ev, ok := convertEvent(item)
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

func (g *GoogleSource) loadToken(email string) (*oauth2.Token, error) {
	path := filepath.Join(g.tokenDir, tokenFileName(email))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	return &token, nil
}

func tokenFileName(email string) string {
	// Emails are path-hostile; keep the mapping readable but safe.
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(email)
	return safe + ".json"
}

// convertEvent maps an API event onto the internal representation.
// All-day and cancelled events carry no usable interval and are dropped.
func convertEvent(item *gcal.Event) (schedule.CalendarEvent, bool) {
	if item.Status == "cancelled" || item.Start == nil || item.End == nil {
		return schedule.CalendarEvent{}, false
	}
	if item.Start.DateTime == "" || item.End.DateTime == "" {
		return schedule.CalendarEvent{}, false
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return schedule.CalendarEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil || !end.After(start) {
		return schedule.CalendarEvent{}, false
	}

	var attendees []string
	for _, a := range item.Attendees {
		if a.Email != "" {
			attendees = append(attendees, a.Email)
		}
	}

	return schedule.CalendarEvent{
		Start:        start,
		End:          end,
		Summary:      item.Summary,
		Attendees:    attendees,
		NumAttendees: len(attendees),
	}, true
}
