package server

import (
	"fmt"
	"time"

	"github.com/dtorcivia/meetquorum/internal/engine"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// Attendee is one invitee in the scheduling request wire format.
type Attendee struct {
	Email string `json:"email"`
}

// ScheduleRequest is the inbound wire format. Field names follow the email
// relay that produces these payloads.
type ScheduleRequest struct {
	RequestID    string     `json:"Request_id"`
	Datetime     string     `json:"Datetime"`
	Location     string     `json:"Location"`
	From         string     `json:"From"`
	Attendees    []Attendee `json:"Attendees"`
	Subject      string     `json:"Subject"`
	EmailContent string     `json:"EmailContent"`
}

// MetaData carries the human-readable negotiation summary.
type MetaData struct {
	AgentReasoningSummary []string `json:"agent_reasoning_summary"`
}

// ScheduleResponse echoes the request and adds the negotiated event. A
// failed negotiation has null EventStart/EventEnd and a populated Error.
type ScheduleResponse struct {
	RequestID    string     `json:"Request_id"`
	Datetime     string     `json:"Datetime"`
	Location     string     `json:"Location"`
	From         string     `json:"From"`
	Attendees    []Attendee `json:"Attendees"`
	Subject      string     `json:"Subject"`
	EmailContent string     `json:"EmailContent"`
	EventStart   *string    `json:"EventStart"`
	EventEnd     *string    `json:"EventEnd"`
	DurationMins int        `json:"Duration_mins"`
	Success      bool       `json:"Success"`
	MetaData     MetaData   `json:"MetaData"`
	Error        string     `json:"error,omitempty"`
}

// referenceTimeLayouts are the accepted Datetime formats, tried in order.
var referenceTimeLayouts = []string{
	time.RFC3339,
	"02-01-2006T15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-01-2006",
}

// toInput converts the wire request into the engine's normalized input.
func (r *ScheduleRequest) toInput(loc *time.Location) (*engine.ScheduleInput, error) {
	reference, err := parseReferenceTime(r.Datetime, loc)
	if err != nil {
		return nil, err
	}

	attendees := make([]string, 0, len(r.Attendees))
	for _, a := range r.Attendees {
		attendees = append(attendees, a.Email)
	}

	return &engine.ScheduleInput{
		RequestID:     r.RequestID,
		From:          r.From,
		Attendees:     attendees,
		Subject:       r.Subject,
		EmailContent:  r.EmailContent,
		ReferenceTime: reference,
		Location:      r.Location,
	}, nil
}

func parseReferenceTime(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Now().In(loc), nil
	}
	for _, layout := range referenceTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized Datetime %q", raw)
}

// buildResponse assembles the outbound wire format from the engine outcome.
func buildResponse(req *ScheduleRequest, outcome *engine.ScheduleOutcome) *ScheduleResponse {
	resp := &ScheduleResponse{
		RequestID:    outcome.Result.RequestID,
		Datetime:     req.Datetime,
		Location:     req.Location,
		From:         req.From,
		Attendees:    req.Attendees,
		Subject:      req.Subject,
		EmailContent: req.EmailContent,
		DurationMins: outcome.Intent.DurationMinutes,
		Success:      outcome.Result.Success,
		MetaData:     MetaData{AgentReasoningSummary: outcome.Result.Trail},
	}

	if outcome.Result.Success && outcome.Result.Slot != nil {
		start := util.FormatRFC3339(outcome.Result.Slot.Start)
		end := util.FormatRFC3339(outcome.Result.Slot.End)
		resp.EventStart = &start
		resp.EventEnd = &end
	} else {
		resp.Error = outcome.Result.FailureReason
		if resp.Error == "" {
			resp.Error = "no available time slot found"
		}
	}

	return resp
}
