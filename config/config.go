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

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	APIURL        string `env:"API_URL" envDefault:"http://localhost:4000" validate:"required,url"`
	APITimeoutSec int    `env:"API_TIMEOUT_SEC" envDefault:"15" validate:"min=1,max=120"`
	LoginPath     string `env:"LOGIN_PATH" envDefault:"/login" validate:"required,startswith=/"`

	CookieName        string `env:"COOKIE_NAME" envDefault:"accessToken" validate:"required"`
	RefreshCookieName string `env:"REFRESH_COOKIE_NAME" envDefault:"refreshToken" validate:"required"`
	CookieSecure      bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieDomain      string `env:"COOKIE_DOMAIN"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000" validate:"min=1,dive,url"`

	FlowStore         string `env:"FLOW_STORE" envDefault:"memory" validate:"oneof=memory redis"`
	RedisURL          string `env:"REDIS_URL" validate:"required_if=FlowStore redis"`
	FlowTTLSec        int    `env:"FLOW_TTL_SEC" envDefault:"900" validate:"min=60,max=86400"`
	OTPSendsPerMinute int    `env:"OTP_SENDS_PER_MINUTE" envDefault:"5" validate:"min=1,max=600"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps LOG_LEVEL onto an slog level.
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

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSec) * time.Second
}

// upstreamCallsPerStep is the most marketplace calls one flow step makes
// (verify then reset, or verify then finalize).
const upstreamCallsPerStep = 2

const stepLockMargin = 10 * time.Second

// StepLockTTL outlives the slowest possible flow step, so a shared step lock
// never expires while its holder is still waiting on the API.
func (c *Config) StepLockTTL() time.Duration {
	return upstreamCallsPerStep*c.APITimeout() + stepLockMargin
}

func (c *Config) FlowTTL() time.Duration {
	return time.Duration(c.FlowTTLSec) * time.Second
}
