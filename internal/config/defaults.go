// Package config provides default values for configuration.
package config

import "time"

// Server defaults
const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8080
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 60 * time.Second
)

// Database defaults
const (
	DefaultDataDir       = "/data"
	DefaultBusyTimeoutMs = 5000
)

// Scheduling defaults
const (
	DefaultWindowStartHour       = 9
	DefaultWindowEndHour         = 18
	DefaultStrideMinutes         = 30
	DefaultMaxSlots              = 10
	DefaultBufferMinutes         = 15
	DefaultTimezone              = "Asia/Kolkata"
	DefaultCalendarLookbackDays  = 1
	DefaultCalendarLookaheadDays = 1
)

// Negotiation defaults
const (
	DefaultUrgentRetryThreshold = 0.8
	DefaultEscalationThreshold  = 0.7
	DefaultEscalationHour       = 7
	DefaultFanOut               = 4
	DefaultNegotiationTimeout   = 45 * time.Second
)

// Oracle defaults
const (
	DefaultOracleModel       = "meta-llama/Meta-Llama-3.1-8B-Instruct"
	DefaultOracleTimeout     = 15 * time.Second
	DefaultOracleMaxRetries  = 2
	DefaultOracleTemperature = 0.1
)

// Retention defaults
const (
	DefaultRetentionDays   = 90
	DefaultCleanupInterval = 1 * time.Hour
)

// Logging defaults
const (
	DefaultLogLevel = "info"
)
