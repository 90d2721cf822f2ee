package util

import (
	"errors"
	"testing"
	"time"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr error
	}{
		{"alice@example.com", nil},
		{"Alice Smith <alice@example.com>", nil},
		{"", ErrEmptyField},
		{"not-an-email", ErrInvalidEmail},
		{"@example.com", ErrInvalidEmail},
	}
	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateEmail(%q) = %v, want %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestValidateEmails(t *testing.T) {
	if err := ValidateEmails([]string{"a@x.com", "b@x.com"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateEmails([]string{"a@x.com", "bad"}); err == nil {
		t.Error("expected error for bad address in list")
	}
}

func TestEmailDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"alice@Example.COM", "example.com"},
		{"bob@corp.example.org", "corp.example.org"},
		{"no-domain", ""},
		{"two@ats@here", ""},
	}
	for _, tt := range tests {
		if got := EmailDomain(tt.email); got != tt.want {
			t.Errorf("EmailDomain(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestValidateTimeRange(t *testing.T) {
	start := time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC)
	if err := ValidateTimeRange(start, start.Add(30*time.Minute)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateTimeRange(start, start); !errors.Is(err, ErrEndBeforeStart) {
		t.Errorf("equal times: err = %v", err)
	}
	if err := ValidateTimeRange(start, start.Add(-time.Minute)); !errors.Is(err, ErrEndBeforeStart) {
		t.Errorf("reversed range: err = %v", err)
	}
}

func TestValidateDuration(t *testing.T) {
	if err := ValidateDuration(480, 0); err != nil {
		t.Errorf("no limit: %v", err)
	}
	if err := ValidateDuration(60, 120); err != nil {
		t.Errorf("within limit: %v", err)
	}
	if err := ValidateDuration(121, 120); !errors.Is(err, ErrDurationTooLong) {
		t.Errorf("over limit: err = %v", err)
	}
}

func TestValidateAttendeeCount(t *testing.T) {
	if err := ValidateAttendeeCount(100, 0); err != nil {
		t.Errorf("no limit: %v", err)
	}
	if err := ValidateAttendeeCount(11, 10); !errors.Is(err, ErrTooManyAttendees) {
		t.Errorf("over limit: err = %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  world  ", "hello world"},
		{"one\t\ttwo\nthree", "one two three"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.in); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := TruncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
