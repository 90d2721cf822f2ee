// Package util provides input validation utilities.
package util

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Validation errors
var (
	ErrEmptyField       = fmt.Errorf("field cannot be empty")
	ErrInvalidEmail     = fmt.Errorf("invalid email address")
	ErrEndBeforeStart   = fmt.Errorf("end time must be after start time")
	ErrDurationTooLong  = fmt.Errorf("meeting duration exceeds maximum allowed")
	ErrTooManyAttendees = fmt.Errorf("too many attendees")
)

// ValidateEmail checks if a string is a valid email address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmptyField
	}

	_, err := mail.ParseAddress(email)
	if err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// ValidateEmails validates a list of email addresses.
func ValidateEmails(emails []string) error {
	for _, email := range emails {
		if err := ValidateEmail(email); err != nil {
			return fmt.Errorf("invalid email %q: %w", email, err)
		}
	}
	return nil
}

// EmailDomain returns the lowercased domain of an email address, or ""
// when the address has no domain part.
func EmailDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}

// ValidateTimeRange validates start and end times.
func ValidateTimeRange(start, end time.Time) error {
	if !end.After(start) {
		return ErrEndBeforeStart
	}
	return nil
}

// ValidateDuration checks if duration is within limits.
func ValidateDuration(durationMinutes, maxMinutes int) error {
	if maxMinutes <= 0 {
		return nil // No limit
	}
	if durationMinutes > maxMinutes {
		return fmt.Errorf("%w: %d exceeds %d minutes", ErrDurationTooLong, durationMinutes, maxMinutes)
	}
	return nil
}

// ValidateAttendeeCount checks if attendee count is within limits.
func ValidateAttendeeCount(count, max int) error {
	if max <= 0 {
		return nil // No limit
	}
	if count > max {
		return fmt.Errorf("%w: %d exceeds maximum of %d", ErrTooManyAttendees, count, max)
	}
	return nil
}

// SanitizeString removes leading/trailing whitespace and normalizes internal whitespace.
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
}

// TruncateString truncates a string to max length, adding ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
