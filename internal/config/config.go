// Package config loads and validates the process configuration from
// environment variables.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rezkam/taskhub/internal/env"
)

// Config holds the full application configuration. Fields without an
// env value keep their zero value; defaults are applied in Load.
type Config struct {
	// Server
	HTTPPort string `env:"HTTP_PORT"`
	Env      string `env:"APP_ENV"` // dev, prod

	// Durable store
	DatabaseURL     string        `env:"DATABASE_URL"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns  int           `env:"DB_MAX_IDLE_CONNS"`
	DBConnLifetime  time.Duration `env:"DB_CONN_MAX_LIFETIME"`

	// Event log
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	// Identity
	JWTSecret     string `env:"JWT_SECRET"`
	JWTExpiryDays int    `env:"JWT_EXPIRY_DAYS"`

	// Reminder scheduler. The interval accepts a Go duration string
	// ("10m") or a bare minute count ("10"); older deployments used the
	// latter. The overdue toggle is a string so an unset variable is
	// distinguishable from an explicit "false".
	ReminderInterval      string `env:"REMINDER_CHECK_INTERVAL"`
	ReminderEnableOverdue string `env:"REMINDER_ENABLE_OVERDUE"`

	// Resolved from ReminderInterval in Load.
	ReminderCheckInterval time.Duration

	// Cross-site
	FrontendURL string `env:"FRONTEND_URL"`

	// Observability
	OTelEnabled   bool   `env:"OTEL_ENABLED"`
	OTelCollector string `env:"OTEL_COLLECTOR"`
}

// Load parses environment variables into a Config, applies defaults,
// and validates the result. Missing required values (database URL, JWT
// secret) are boot failures, not runtime surprises.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.ReminderInterval != "" {
		interval, err := parseInterval(cfg.ReminderInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid REMINDER_CHECK_INTERVAL %q: %w", cfg.ReminderInterval, err)
		}
		cfg.ReminderCheckInterval = interval
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseInterval reads a Go duration string ("10m") or a bare integer
// minute count ("10").
func parseInterval(s string) (time.Duration, error) {
	if minutes, err := strconv.Atoi(s); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}
	return time.ParseDuration(s)
}

func (c *Config) applyDefaults() {
	if c.HTTPPort == "" {
		c.HTTPPort = "8080"
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.JWTExpiryDays <= 0 {
		c.JWTExpiryDays = 30
	}
	if c.ReminderCheckInterval <= 0 {
		c.ReminderCheckInterval = 10 * time.Minute
	}
	if c.FrontendURL == "" {
		c.FrontendURL = "http://localhost:3000"
	}
	if c.OTelCollector == "" {
		c.OTelCollector = "localhost:4318"
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// OverdueEnabled resolves the overdue-reminder toggle, defaulting to on.
func (c *Config) OverdueEnabled() bool {
	return c.ReminderEnableOverdue != "false"
}

// JWTExpiry returns the configured token lifetime.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryDays) * 24 * time.Hour
}
