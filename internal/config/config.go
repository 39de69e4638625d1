// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Env       string `envconfig:"APP_ENV" default:"development"`
	Port      int    `envconfig:"APP_PORT" default:"8080"`
	DB        DBConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Analytics AnalyticsConfig
	Limiter   RateLimiterConfig

	// PipelineDefaultsFile optionally points at a YAML file overriding the
	// stages every new job starts with.
	PipelineDefaultsFile string `envconfig:"PIPELINE_DEFAULTS_FILE"`
}

// DBConfig configures the PostgreSQL pool
type DBConfig struct {
	URL             string        `envconfig:"DATABASE_URL" required:"true"`
	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"20"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"15m"`
}

// RedisConfig configures the analytics cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// AnalyticsConfig tunes the aggregation service
type AnalyticsConfig struct {
	CacheTTL       time.Duration `envconfig:"ANALYTICS_CACHE_TTL" default:"5m"`
	SLADefaultDays float64       `envconfig:"SLA_DEFAULT_DAYS" default:"7"`
}

// RateLimiterConfig configures per-client request limiting
type RateLimiterConfig struct {
	Enabled   bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RPS       float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst     int     `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Whitelist string  `envconfig:"RATE_LIMIT_WHITELIST"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Env] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Env)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", c.Port)
	}
	if c.DB.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	if c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DB.MinConns, c.DB.MaxConns)
	}
	if err := c.JWT.normalize(); err != nil {
		return err
	}
	if c.Analytics.SLADefaultDays <= 0 {
		return fmt.Errorf("SLA_DEFAULT_DAYS must be positive, got: %v", c.Analytics.SLADefaultDays)
	}
	if c.Analytics.CacheTTL <= 0 {
		return fmt.Errorf("ANALYTICS_CACHE_TTL must be positive, got: %v", c.Analytics.CacheTTL)
	}
	if c.Limiter.RPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be non-negative")
	}
	if c.Limiter.Burst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1")
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// CacheEnabled reports whether a Redis address is configured.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != ""
}
