package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret  string `env:"JWT_SECRET,required"        validate:"required,min=32"`
	LinkSecret string `env:"LOGIN_LINK_SECRET,required" validate:"required,min=32"`

	LinkLifetimeSec     int      `env:"LOGIN_LINK_LIFETIME_SEC"        envDefault:"600"  validate:"min=1"`
	LinkMaxUses         int      `env:"LOGIN_LINK_MAX_USES"            envDefault:"1"    validate:"min=0"`
	LinkRoute           string   `env:"LOGIN_LINK_ROUTE"               envDefault:"login_check" validate:"required"`
	SignatureProperties []string `env:"LOGIN_LINK_SIGNATURE_PROPERTIES" envSeparator:"," envDefault:"email,passwordHash"`

	UsageRetentionSec int    `env:"USAGE_RETENTION_SEC" envDefault:"3600" validate:"min=1"`
	PurgeSchedule     string `env:"PURGE_SCHEDULE"      envDefault:"@hourly"`

	BaseURL      string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// The counter must outlive any link it gates, otherwise a link could
	// regain uses while still valid.
	if cfg.UsageRetentionSec <= cfg.LinkLifetimeSec {
		return nil, fmt.Errorf("USAGE_RETENTION_SEC (%d) must exceed LOGIN_LINK_LIFETIME_SEC (%d)",
			cfg.UsageRetentionSec, cfg.LinkLifetimeSec)
	}

	return cfg, nil
}

func (c *Config) LinkLifetime() time.Duration {
	return time.Duration(c.LinkLifetimeSec) * time.Second
}

func (c *Config) UsageRetention() time.Duration {
	return time.Duration(c.UsageRetentionSec) * time.Second
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
