// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// RetellConfig provides settings for the Retell calling provider.
type RetellConfig interface {
	GetRetellAPIKey() string
	GetRetellAgentID() string
	GetRetellFromNumber() string
	IsRetellEnabled() bool
}

// CalendlyConfig provides settings for the Calendly scheduling provider.
type CalendlyConfig interface {
	GetCalendlyToken() string
	GetCalendlyEventType() string
	GetCalendlyWebhookSecret() string
	GetCalendlyTimezone() string
	IsCalendlyEnabled() bool
}

// SchedulerConfig provides settings for the asynq delayed-task scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// CallPolicyConfig provides settings for the outbound call scheduling policy.
type CallPolicyConfig interface {
	GetCallDelay() time.Duration
	GetDuplicateWindow() time.Duration
	GetBookingSiteURL() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	CORSAllowAll          bool
	CORSOrigins           []string
	RetellAPIKey          string
	RetellAgentID         string
	RetellFromNumber      string
	CalendlyToken         string
	CalendlyEventType     string
	CalendlyWebhookSecret string
	CalendlyTimezone      string
	RedisURL              string
	AsynqQueueName        string
	AsynqConcurrency      int
	CallDelay             time.Duration
	DuplicateWindow       time.Duration
	BookingSiteURL        string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// RetellConfig implementation
func (c *Config) GetRetellAPIKey() string     { return c.RetellAPIKey }
func (c *Config) GetRetellAgentID() string    { return c.RetellAgentID }
func (c *Config) GetRetellFromNumber() string { return c.RetellFromNumber }
func (c *Config) IsRetellEnabled() bool {
	return c.RetellAPIKey != "" && c.RetellFromNumber != ""
}

// CalendlyConfig implementation
func (c *Config) GetCalendlyToken() string         { return c.CalendlyToken }
func (c *Config) GetCalendlyEventType() string     { return c.CalendlyEventType }
func (c *Config) GetCalendlyWebhookSecret() string { return c.CalendlyWebhookSecret }
func (c *Config) GetCalendlyTimezone() string      { return c.CalendlyTimezone }
func (c *Config) IsCalendlyEnabled() bool {
	return c.CalendlyToken != "" && c.CalendlyEventType != ""
}

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// CallPolicyConfig implementation
func (c *Config) GetCallDelay() time.Duration       { return c.CallDelay }
func (c *Config) GetDuplicateWindow() time.Duration { return c.DuplicateWindow }
func (c *Config) GetBookingSiteURL() string         { return c.BookingSiteURL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		RetellAPIKey:          getEnv("RETELL_API_KEY", ""),
		RetellAgentID:         getEnv("RETELL_AGENT_ID", ""),
		RetellFromNumber:      getEnv("RETELL_PHONE_NUMBER", ""),
		CalendlyToken:         getEnv("CALENDLY_PAT", ""),
		CalendlyEventType:     getEnv("CALENDLY_EVENT_TYPE", ""),
		CalendlyWebhookSecret: getEnv("CALENDLY_WEBHOOK_SECRET", ""),
		CalendlyTimezone:      getEnv("CALENDLY_TIMEZONE", "America/Chicago"),
		RedisURL:              getEnv("REDIS_URL", ""),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		CallDelay:             mustDuration(getEnv("CALL_DELAY", "3m")),
		DuplicateWindow:       mustDuration(getEnv("DUPLICATE_WINDOW", "24h")),
		BookingSiteURL:        getEnv("BOOKING_SITE_URL", "https://epiclead.ai"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CallDelay <= 0 {
		cfg.CallDelay = 3 * time.Minute
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 24 * time.Hour
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
