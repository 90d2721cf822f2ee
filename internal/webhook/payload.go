package webhook

import "time"

// Payload is the outcome notification delivered after a negotiation
// reaches a terminal state.
type Payload struct {
	Event          string     `json:"event"`
	RequestID      string     `json:"request_id"`
	Success        bool       `json:"success"`
	Stage          string     `json:"stage"`
	Urgency        string     `json:"urgency"`
	EventStart     *time.Time `json:"event_start,omitempty"`
	EventEnd       *time.Time `json:"event_end,omitempty"`
	ConsensusScore float64    `json:"consensus_score"`
	Reasoning      string     `json:"reasoning,omitempty"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	Timestamp      string     `json:"timestamp"`
}

// Event types for webhooks.
const (
	EventNegotiationCompleted = "negotiation.completed"
	EventNegotiationFailed    = "negotiation.failed"
)
