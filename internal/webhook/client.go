// Package webhook delivers negotiation outcomes to a configured endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dtorcivia/meetquorum/internal/config"
	"github.com/dtorcivia/meetquorum/internal/negotiation"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// Client delivers outcome webhooks.
type Client struct {
	config     *config.WebhookConfig
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient(cfg *config.WebhookConfig) *Client {
	timeout := 30 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled returns whether the webhook client is configured.
func (c *Client) Enabled() bool {
	return c.config.Enabled && c.config.URL != ""
}

// Deliver sends the outcome of a finished negotiation. Delivery is
// best-effort: after the retry budget the error is returned and the
// negotiation result stands regardless.
func (c *Client) Deliver(ctx context.Context, result *negotiation.Result) error {
	if !c.Enabled() {
		return nil
	}

	event := EventNegotiationCompleted
	if !result.Success {
		event = EventNegotiationFailed
	}

	payload := Payload{
		Event:          event,
		RequestID:      result.RequestID,
		Success:        result.Success,
		Stage:          result.Stage,
		Urgency:        result.Urgency.String(),
		ConsensusScore: result.ConsensusScore,
		Reasoning:      result.Reasoning,
		FailureReason:  result.FailureReason,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
	if result.Slot != nil {
		payload.EventStart = &result.Slot.Start
		payload.EventEnd = &result.Slot.End
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var lastErr error
	maxAttempts := c.config.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoffSeconds := attempt * 2
			if attempt-1 < len(c.config.RetryBackoff) {
				backoffSeconds = c.config.RetryBackoff[attempt-1]
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(backoffSeconds) * time.Second):
			}
		}

		err := c.doDelivery(ctx, data)
		if err == nil {
			util.Info("Webhook delivered successfully",
				"request_id", result.RequestID,
				"stage", result.Stage,
			)
			return nil
		}

		lastErr = err
		util.Warn("Webhook delivery failed",
			"attempt", attempt+1,
			"error", err,
		)
	}

	return lastErr
}

// doDelivery performs the actual HTTP request.
func (c *Client) doDelivery(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.config.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MeetQuorum/1.0")

	if c.config.Secret != "" {
		signature := util.ComputeHMAC(data, c.config.Secret)
		req.Header.Set("X-MeetQuorum-Signature", signature)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
