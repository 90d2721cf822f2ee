package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req struct {
			Model     string `json:"model"`
			Prompt    string `json:"prompt"`
			MaxTokens int    `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if req.MaxTokens != 50 {
			t.Errorf("max_tokens = %d", req.MaxTokens)
		}
		if req.Prompt != "User: pick one\n\nAssistant:" {
			t.Errorf("prompt = %q", req.Prompt)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]string{{"text": " 1"}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-model", 5*time.Second, 0, 0.1)
	got, err := c.Complete(context.Background(), "pick one", 50)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != " 1" {
		t.Errorf("got %q", got)
	}
}

func TestClientRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]string{{"text": "ok"}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-model", 5*time.Second, 2, 0.1)
	got, err := c.Complete(context.Background(), "hello", 10)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestClientExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-model", 5*time.Second, 1, 0.1)
	if _, err := c.Complete(context.Background(), "hello", 10); err == nil {
		t.Error("expected error after retry budget")
	}
}

func TestClientEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-model", 5*time.Second, 0, 0.1)
	if _, err := c.Complete(context.Background(), "hello", 10); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestFixedOracle(t *testing.T) {
	f := &Fixed{Responses: []string{"a", "b"}}
	ctx := context.Background()

	for i, want := range []string{"a", "b", "b"} {
		got, err := f.Complete(ctx, "prompt", 10)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != want {
			t.Errorf("call %d = %q, want %q", i, got, want)
		}
	}

	empty := &Fixed{}
	if got, _ := empty.Complete(ctx, "prompt", 10); got != "" {
		t.Errorf("empty Fixed returned %q", got)
	}
}
