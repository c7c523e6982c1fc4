package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/engine"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/submit"
)

const (
	// DefaultWriteTimeout applies when server.write_timeout is unset.
	DefaultWriteTimeout = 30 * time.Second

	// responseMargin is reserved after the registry call for writing the reply.
	responseMargin = 500 * time.Millisecond
)

// Config represents the complete application configuration.
// Layer 1: in-code defaults (Defaults)
// Layer 2: user overrides (~/.config/crptdoc/config.yaml or --config)
// Layer 3: .env file, environment variables and runtime overrides
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
	Workers   int             `mapstructure:"workers"`
}

// APIConfig points the client at the registry.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig bounds outbound calls: RequestLimit per TimeAmount x TimeUnit.
type RateLimitConfig struct {
	TimeUnit     string `mapstructure:"time_unit"`
	TimeAmount   int64  `mapstructure:"time_amount"`
	RequestLimit int    `mapstructure:"request_limit"`
}

// Unit resolves the configured time unit.
func (c RateLimitConfig) Unit() (time.Duration, error) {
	return engine.ParseTimeUnit(c.TimeUnit)
}

// NewGate builds the shared gate described by the configuration.
func (c RateLimitConfig) NewGate(opts ...engine.GateOption) (*engine.Gate, error) {
	unit, err := c.Unit()
	if err != nil {
		return nil, err
	}
	return engine.NewGateForUnit(unit, c.TimeAmount, c.RequestLimit, opts...)
}

// JournalConfig selects where submission outcomes are recorded.
type JournalConfig struct {
	// Driver is one of libsql, redis or none
	Driver    string      `mapstructure:"driver"`
	Path      string      `mapstructure:"path"`
	URL       string      `mapstructure:"url"`
	AuthToken string      `mapstructure:"auth_token"`
	Redis     RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the redis journal.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// Journal drivers.
const (
	JournalLibsql = "libsql"
	JournalRedis  = "redis"
	JournalNone   = "none"
)

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// InboundRPS throttles API clients per remote address; zero disables it
	InboundRPS   float64 `mapstructure:"inbound_rps"`
	InboundBurst int     `mapstructure:"inbound_burst"`
}

// LoggingConfig contains logging configuration
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return core.Errorf(core.KindConfig, "validate config", "config is nil")
	}

	if _, err := c.RateLimit.Unit(); err != nil {
		return err
	}
	if c.RateLimit.TimeAmount < 1 {
		return core.Errorf(core.KindConfig, "validate config", "rate_limit.time_amount must be at least 1, got %d", c.RateLimit.TimeAmount)
	}
	if c.RateLimit.RequestLimit < 1 {
		return core.Errorf(core.KindConfig, "validate config", "rate_limit.request_limit must be at least 1, got %d", c.RateLimit.RequestLimit)
	}
	if c.API.Timeout < 0 {
		return core.Errorf(core.KindConfig, "validate config", "api.timeout must not be negative")
	}

	switch strings.ToLower(strings.TrimSpace(c.Journal.Driver)) {
	case "", JournalLibsql, JournalRedis, JournalNone:
	default:
		return core.Errorf(core.KindConfig, "validate config", "unsupported journal driver %q", c.Journal.Driver)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return core.Errorf(core.KindConfig, "validate config", "server.port out of range: %d", c.Server.Port)
	}
	if c.Server.WriteTimeout < 0 {
		return core.Errorf(core.KindConfig, "validate config", "server.write_timeout must not be negative")
	}
	if c.GateWaitBudget() <= 0 {
		return core.Errorf(core.KindConfig, "validate config",
			"server.write_timeout (%s) must exceed api.timeout (%s) by more than %s",
			c.writeTimeout(), c.apiTimeout(), responseMargin)
	}
	if c.Server.InboundRPS < 0 || c.Server.InboundBurst < 0 {
		return core.Errorf(core.KindConfig, "validate config", "server inbound throttle must not be negative")
	}
	if c.Workers < 0 {
		return core.Errorf(core.KindConfig, "validate config", "workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// GateWaitBudget is how long a served request may queue at the rate gate and
// still finish its registry call and reply before the write deadline.
func (c *Config) GateWaitBudget() time.Duration {
	return c.writeTimeout() - c.apiTimeout() - responseMargin
}

func (c *Config) writeTimeout() time.Duration {
	if c.Server.WriteTimeout > 0 {
		return c.Server.WriteTimeout
	}
	return DefaultWriteTimeout
}

func (c *Config) apiTimeout() time.Duration {
	if c.API.Timeout > 0 {
		return c.API.Timeout
	}
	return submit.DefaultTimeout
}

// String hides the token.
func (c APIConfig) String() string {
	token := "unset"
	if strings.TrimSpace(c.Token) != "" {
		token = "set"
	}
	return fmt.Sprintf("base_url=%s token=%s timeout=%s", c.BaseURL, token, c.Timeout)
}
