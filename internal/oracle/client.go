package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dtorcivia/meetquorum/internal/util"
)

// Client talks to an OpenAI-compatible completions endpoint (vLLM or
// similar). Calls are bounded by the configured timeout and retried a small
// fixed number of times before the error is surfaced to the caller.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	maxRetries  int
	httpClient  *http.Client
}

// NewClient creates a completions client.
func NewClient(baseURL, model string, timeout time.Duration, maxRetries int, temperature float64) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		maxRetries:  maxRetries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop,omitempty"`
	Stream      bool     `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete implements Oracle.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := completionRequest{
		Model:       c.model,
		Prompt:      fmt.Sprintf("User: %s\n\nAssistant:", prompt),
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
		TopP:        0.9,
		Stop:        []string{"\nUser:", "User:"},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}

		text, err := c.doCompletion(ctx, data)
		if err == nil {
			return text, nil
		}

		lastErr = err
		util.Warn("Oracle completion failed",
			"attempt", attempt+1,
			"error", err,
		)
	}

	return "", lastErr
}

func (c *Client) doCompletion(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("invalid completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	return parsed.Choices[0].Text, nil
}
