// Package config handles configuration loading from environment variables and optional YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Google      GoogleConfig
	Oracle      OracleConfig
	Scheduling  SchedulingConfig
	Negotiation NegotiationConfig
	Webhook     WebhookConfig
	Retention   RetentionConfig
	Logging     LoggingConfig

	// Participants maps email to a preference profile. Populated from the
	// YAML config file only; unknown participants get defaults.
	Participants map[string]ParticipantConfig

	// DomainTimezones maps an email domain (e.g. "example.de") to an IANA
	// timezone for participants without an explicit profile.
	DomainTimezones map[string]string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path          string
	WALMode       bool
	BusyTimeoutMs int
}

// GoogleConfig holds Google Calendar access settings.
type GoogleConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	TokenDir     string
	MaxResults   int
}

// OracleConfig holds reasoning-oracle settings.
type OracleConfig struct {
	Enabled     bool
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

// SchedulingConfig holds availability-search settings.
type SchedulingConfig struct {
	WindowStartHour       int
	WindowEndHour         int
	StrideMinutes         int
	MaxSlots              int
	DefaultBufferMinutes  int
	Timezone              string
	CalendarLookbackDays  int
	CalendarLookaheadDays int
}

// NegotiationConfig holds escalation and consensus settings.
type NegotiationConfig struct {
	UrgentRetryThreshold float64
	EscalationThreshold  float64
	EscalationHour       int
	FanOut               int
	Timeout              time.Duration
	ScoringStrategy      string
}

// WebhookConfig holds outcome-delivery webhook settings.
type WebhookConfig struct {
	Enabled        bool
	URL            string
	Secret         string
	TimeoutSeconds int
	MaxRetries     int
	RetryBackoff   []int
}

// RetentionConfig holds history retention settings.
type RetentionConfig struct {
	NegotiationDays int
	CleanupInterval time.Duration
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level         string
	Format        string
	IncludeCaller bool
}

// ParticipantConfig is one participant's preference profile as configured.
type ParticipantConfig struct {
	PreferredPeriods  []string `yaml:"preferred_periods"`
	BufferMinutes     *int     `yaml:"buffer_minutes"`
	AvoidLunch        bool     `yaml:"avoid_lunch"`
	SeniorityWeight   float64  `yaml:"seniority_weight"`
	MaxMeetingMinutes int      `yaml:"max_meeting_minutes"`
	Timezone          string   `yaml:"timezone"`
}

// Load reads configuration from environment variables with defaults, then
// overlays the optional YAML config file.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Server = ServerConfig{
		Host:         getEnv("HOST", DefaultHost),
		Port:         getEnvInt("PORT", DefaultPort),
		ReadTimeout:  getEnvDuration("READ_TIMEOUT", DefaultReadTimeout),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", DefaultWriteTimeout),
	}

	cfg.Database = DatabaseConfig{
		Path:          getEnv("DATA_DIR", DefaultDataDir) + "/meetquorum.db",
		WALMode:       getEnvBool("DB_WAL_MODE", true),
		BusyTimeoutMs: getEnvInt("DB_BUSY_TIMEOUT_MS", DefaultBusyTimeoutMs),
	}

	cfg.Google = GoogleConfig{
		Enabled:      getEnvBool("GOOGLE_CALENDAR_ENABLED", false),
		ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		TokenDir:     getEnv("GOOGLE_TOKEN_DIR", getEnv("DATA_DIR", DefaultDataDir)+"/tokens"),
		MaxResults:   getEnvInt("GOOGLE_MAX_RESULTS", 100),
	}

	cfg.Oracle = OracleConfig{
		Enabled:     getEnvBool("ORACLE_ENABLED", false),
		BaseURL:     getEnv("ORACLE_BASE_URL", "http://localhost:8000/v1"),
		Model:       getEnv("ORACLE_MODEL", DefaultOracleModel),
		Timeout:     getEnvDuration("ORACLE_TIMEOUT", DefaultOracleTimeout),
		MaxRetries:  getEnvInt("ORACLE_MAX_RETRIES", DefaultOracleMaxRetries),
		Temperature: DefaultOracleTemperature,
	}

	cfg.Scheduling = SchedulingConfig{
		WindowStartHour:       getEnvInt("WINDOW_START_HOUR", DefaultWindowStartHour),
		WindowEndHour:         getEnvInt("WINDOW_END_HOUR", DefaultWindowEndHour),
		StrideMinutes:         getEnvInt("STRIDE_MINUTES", DefaultStrideMinutes),
		MaxSlots:              DefaultMaxSlots,
		DefaultBufferMinutes:  getEnvInt("DEFAULT_BUFFER_MINUTES", DefaultBufferMinutes),
		Timezone:              getEnv("SCHEDULING_TIMEZONE", DefaultTimezone),
		CalendarLookbackDays:  DefaultCalendarLookbackDays,
		CalendarLookaheadDays: DefaultCalendarLookaheadDays,
	}

	cfg.Negotiation = NegotiationConfig{
		UrgentRetryThreshold: DefaultUrgentRetryThreshold,
		EscalationThreshold:  DefaultEscalationThreshold,
		EscalationHour:       DefaultEscalationHour,
		FanOut:               getEnvInt("NEGOTIATION_FAN_OUT", DefaultFanOut),
		Timeout:              getEnvDuration("NEGOTIATION_TIMEOUT", DefaultNegotiationTimeout),
		ScoringStrategy:      getEnv("SCORING_STRATEGY", "canonical"),
	}

	cfg.Webhook = WebhookConfig{
		Enabled:        getEnvBool("WEBHOOK_ENABLED", false),
		URL:            getEnv("WEBHOOK_URL", ""),
		Secret:         getEnv("WEBHOOK_SECRET", ""),
		TimeoutSeconds: 10,
		MaxRetries:     3,
		RetryBackoff:   []int{1, 5, 15},
	}

	cfg.Retention = RetentionConfig{
		NegotiationDays: getEnvInt("RETENTION_DAYS", DefaultRetentionDays),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", DefaultCleanupInterval),
	}

	cfg.Logging = LoggingConfig{
		Level:         getEnv("LOG_LEVEL", DefaultLogLevel),
		Format:        getEnv("LOG_FORMAT", "json"),
		IncludeCaller: getEnvBool("LOG_INCLUDE_CALLER", false),
	}

	cfg.Participants = make(map[string]ParticipantConfig)
	cfg.DomainTimezones = make(map[string]string)

	if err := loadConfigFile(cfg, GetConfigFilePath()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration fields are coherent.
func (c *Config) Validate() error {
	if c.Scheduling.WindowStartHour < 0 || c.Scheduling.WindowStartHour > 23 {
		return fmt.Errorf("window start hour %d out of range", c.Scheduling.WindowStartHour)
	}
	if c.Scheduling.WindowEndHour <= c.Scheduling.WindowStartHour || c.Scheduling.WindowEndHour > 24 {
		return fmt.Errorf("window end hour %d must be after start hour %d",
			c.Scheduling.WindowEndHour, c.Scheduling.WindowStartHour)
	}
	if c.Scheduling.StrideMinutes <= 0 {
		return fmt.Errorf("stride minutes must be positive")
	}
	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("invalid scheduling timezone %q: %w", c.Scheduling.Timezone, err)
	}
	if c.Google.Enabled && (c.Google.ClientID == "" || c.Google.ClientSecret == "") {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required when Google Calendar is enabled")
	}
	if c.Retention.NegotiationDays <= 0 {
		return fmt.Errorf("retention days must be positive")
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("WEBHOOK_URL is required when the outcome webhook is enabled")
	}
	for email, p := range c.Participants {
		if p.Timezone != "" {
			if _, err := time.LoadLocation(p.Timezone); err != nil {
				return fmt.Errorf("invalid timezone %q for participant %s: %w", p.Timezone, email, err)
			}
		}
	}
	for domain, tz := range c.DomainTimezones {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("invalid timezone %q for domain %s: %w", tz, domain, err)
		}
	}
	return nil
}

// GetConfigFilePath returns the path to the config file based on environment variables.
func GetConfigFilePath() string {
	dataDir := getEnv("DATA_DIR", DefaultDataDir)
	return getEnv("CONFIG_FILE", filepath.Join(dataDir, "config.yaml"))
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
