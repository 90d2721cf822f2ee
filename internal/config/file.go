package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type fileDuration time.Duration

func (d *fileDuration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!int" {
			var seconds int64
			if err := value.Decode(&seconds); err != nil {
				return err
			}
			*d = fileDuration(time.Duration(seconds) * time.Second)
			return nil
		}
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		*d = fileDuration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration type")
	}
}

// ConfigFile mirrors Config with pointer fields so absent keys leave the
// env-derived value untouched.
type ConfigFile struct {
	Server      *ServerConfigFile      `yaml:"server"`
	Database    *DatabaseConfigFile    `yaml:"database"`
	Google      *GoogleConfigFile      `yaml:"google"`
	Oracle      *OracleConfigFile      `yaml:"oracle"`
	Scheduling  *SchedulingConfigFile  `yaml:"scheduling"`
	Negotiation *NegotiationConfigFile `yaml:"negotiation"`
	Webhook     *WebhookConfigFile     `yaml:"webhook"`
	Retention   *RetentionConfigFile   `yaml:"retention"`
	Logging     *LoggingConfigFile     `yaml:"logging"`

	Participants    map[string]ParticipantConfig `yaml:"participants"`
	DomainTimezones map[string]string            `yaml:"domain_timezones"`
}

type ServerConfigFile struct {
	Host         *string       `yaml:"host"`
	Port         *int          `yaml:"port"`
	ReadTimeout  *fileDuration `yaml:"read_timeout"`
	WriteTimeout *fileDuration `yaml:"write_timeout"`
}

type DatabaseConfigFile struct {
	Path          *string `yaml:"path"`
	WALMode       *bool   `yaml:"wal_mode"`
	BusyTimeoutMs *int    `yaml:"busy_timeout_ms"`
}

type GoogleConfigFile struct {
	Enabled      *bool   `yaml:"enabled"`
	ClientID     *string `yaml:"client_id"`
	ClientSecret *string `yaml:"client_secret"`
	TokenDir     *string `yaml:"token_dir"`
	MaxResults   *int    `yaml:"max_results"`
}

type OracleConfigFile struct {
	Enabled     *bool         `yaml:"enabled"`
	BaseURL     *string       `yaml:"base_url"`
	Model       *string       `yaml:"model"`
	Timeout     *fileDuration `yaml:"timeout"`
	MaxRetries  *int          `yaml:"max_retries"`
	Temperature *float64      `yaml:"temperature"`
}

type SchedulingConfigFile struct {
	WindowStartHour       *int    `yaml:"window_start_hour"`
	WindowEndHour         *int    `yaml:"window_end_hour"`
	StrideMinutes         *int    `yaml:"stride_minutes"`
	MaxSlots              *int    `yaml:"max_slots"`
	DefaultBufferMinutes  *int    `yaml:"default_buffer_minutes"`
	Timezone              *string `yaml:"timezone"`
	CalendarLookbackDays  *int    `yaml:"calendar_lookback_days"`
	CalendarLookaheadDays *int    `yaml:"calendar_lookahead_days"`
}

type NegotiationConfigFile struct {
	UrgentRetryThreshold *float64      `yaml:"urgent_retry_threshold"`
	EscalationThreshold  *float64      `yaml:"escalation_threshold"`
	EscalationHour       *int          `yaml:"escalation_hour"`
	FanOut               *int          `yaml:"fan_out"`
	Timeout              *fileDuration `yaml:"timeout"`
	ScoringStrategy      *string       `yaml:"scoring_strategy"`
}

type WebhookConfigFile struct {
	Enabled        *bool   `yaml:"enabled"`
	URL            *string `yaml:"url"`
	Secret         *string `yaml:"secret"`
	TimeoutSeconds *int    `yaml:"timeout_seconds"`
	MaxRetries     *int    `yaml:"max_retries"`
	RetryBackoff   *[]int  `yaml:"retry_backoff"`
}

type RetentionConfigFile struct {
	NegotiationDays *int          `yaml:"negotiation_days"`
	CleanupInterval *fileDuration `yaml:"cleanup_interval"`
}

type LoggingConfigFile struct {
	Level         *string `yaml:"level"`
	Format        *string `yaml:"format"`
	IncludeCaller *bool   `yaml:"include_caller"`
}

func loadConfigFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	applyConfigFile(cfg, &file)
	return nil
}

func applyConfigFile(cfg *Config, file *ConfigFile) {
	if cfg == nil || file == nil {
		return
	}

	if file.Server != nil {
		if file.Server.Host != nil {
			cfg.Server.Host = *file.Server.Host
		}
		if file.Server.Port != nil {
			cfg.Server.Port = *file.Server.Port
		}
		if file.Server.ReadTimeout != nil {
			cfg.Server.ReadTimeout = time.Duration(*file.Server.ReadTimeout)
		}
		if file.Server.WriteTimeout != nil {
			cfg.Server.WriteTimeout = time.Duration(*file.Server.WriteTimeout)
		}
	}

	if file.Database != nil {
		if file.Database.Path != nil {
			cfg.Database.Path = filepath.Clean(*file.Database.Path)
		}
		if file.Database.WALMode != nil {
			cfg.Database.WALMode = *file.Database.WALMode
		}
		if file.Database.BusyTimeoutMs != nil {
			cfg.Database.BusyTimeoutMs = *file.Database.BusyTimeoutMs
		}
	}

	if file.Google != nil {
		if file.Google.Enabled != nil {
			cfg.Google.Enabled = *file.Google.Enabled
		}
		if file.Google.ClientID != nil {
			cfg.Google.ClientID = *file.Google.ClientID
		}
		if file.Google.ClientSecret != nil {
			cfg.Google.ClientSecret = *file.Google.ClientSecret
		}
		if file.Google.TokenDir != nil {
			cfg.Google.TokenDir = filepath.Clean(*file.Google.TokenDir)
		}
		if file.Google.MaxResults != nil {
			cfg.Google.MaxResults = *file.Google.MaxResults
		}
	}

	if file.Oracle != nil {
		if file.Oracle.Enabled != nil {
			cfg.Oracle.Enabled = *file.Oracle.Enabled
		}
		if file.Oracle.BaseURL != nil {
			cfg.Oracle.BaseURL = *file.Oracle.BaseURL
		}
		if file.Oracle.Model != nil {
			cfg.Oracle.Model = *file.Oracle.Model
		}
		if file.Oracle.Timeout != nil {
			cfg.Oracle.Timeout = time.Duration(*file.Oracle.Timeout)
		}
		if file.Oracle.MaxRetries != nil {
			cfg.Oracle.MaxRetries = *file.Oracle.MaxRetries
		}
		if file.Oracle.Temperature != nil {
			cfg.Oracle.Temperature = *file.Oracle.Temperature
		}
	}

	if file.Scheduling != nil {
		if file.Scheduling.WindowStartHour != nil {
			cfg.Scheduling.WindowStartHour = *file.Scheduling.WindowStartHour
		}
		if file.Scheduling.WindowEndHour != nil {
			cfg.Scheduling.WindowEndHour = *file.Scheduling.WindowEndHour
		}
		if file.Scheduling.StrideMinutes != nil {
			cfg.Scheduling.StrideMinutes = *file.Scheduling.StrideMinutes
		}
		if file.Scheduling.MaxSlots != nil {
			cfg.Scheduling.MaxSlots = *file.Scheduling.MaxSlots
		}
		if file.Scheduling.DefaultBufferMinutes != nil {
			cfg.Scheduling.DefaultBufferMinutes = *file.Scheduling.DefaultBufferMinutes
		}
		if file.Scheduling.Timezone != nil {
			cfg.Scheduling.Timezone = *file.Scheduling.Timezone
		}
		if file.Scheduling.CalendarLookbackDays != nil {
			cfg.Scheduling.CalendarLookbackDays = *file.Scheduling.CalendarLookbackDays
		}
		if file.Scheduling.CalendarLookaheadDays != nil {
			cfg.Scheduling.CalendarLookaheadDays = *file.Scheduling.CalendarLookaheadDays
		}
	}

	if file.Negotiation != nil {
		if file.Negotiation.UrgentRetryThreshold != nil {
			cfg.Negotiation.UrgentRetryThreshold = *file.Negotiation.UrgentRetryThreshold
		}
		if file.Negotiation.EscalationThreshold != nil {
			cfg.Negotiation.EscalationThreshold = *file.Negotiation.EscalationThreshold
		}
		if file.Negotiation.EscalationHour != nil {
			cfg.Negotiation.EscalationHour = *file.Negotiation.EscalationHour
		}
		if file.Negotiation.FanOut != nil {
			cfg.Negotiation.FanOut = *file.Negotiation.FanOut
		}
		if file.Negotiation.Timeout != nil {
			cfg.Negotiation.Timeout = time.Duration(*file.Negotiation.Timeout)
		}
		if file.Negotiation.ScoringStrategy != nil {
			cfg.Negotiation.ScoringStrategy = *file.Negotiation.ScoringStrategy
		}
	}

	if file.Webhook != nil {
		if file.Webhook.Enabled != nil {
			cfg.Webhook.Enabled = *file.Webhook.Enabled
		}
		if file.Webhook.URL != nil {
			cfg.Webhook.URL = *file.Webhook.URL
		}
		if file.Webhook.Secret != nil {
			cfg.Webhook.Secret = *file.Webhook.Secret
		}
		if file.Webhook.TimeoutSeconds != nil {
			cfg.Webhook.TimeoutSeconds = *file.Webhook.TimeoutSeconds
		}
		if file.Webhook.MaxRetries != nil {
			cfg.Webhook.MaxRetries = *file.Webhook.MaxRetries
		}
		if file.Webhook.RetryBackoff != nil {
			cfg.Webhook.RetryBackoff = *file.Webhook.RetryBackoff
		}
	}

	if file.Retention != nil {
		if file.Retention.NegotiationDays != nil {
			cfg.Retention.NegotiationDays = *file.Retention.NegotiationDays
		}
		if file.Retention.CleanupInterval != nil {
			cfg.Retention.CleanupInterval = time.Duration(*file.Retention.CleanupInterval)
		}
	}

	if file.Logging != nil {
		if file.Logging.Level != nil {
			cfg.Logging.Level = *file.Logging.Level
		}
		if file.Logging.Format != nil {
			cfg.Logging.Format = *file.Logging.Format
		}
		if file.Logging.IncludeCaller != nil {
			cfg.Logging.IncludeCaller = *file.Logging.IncludeCaller
		}
	}

	for email, p := range file.Participants {
		cfg.Participants[email] = p
	}
	for domain, tz := range file.DomainTimezones {
		cfg.DomainTimezones[domain] = tz
	}
}
