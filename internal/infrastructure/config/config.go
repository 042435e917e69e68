package config

import (
	"fmt"
	"net"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	Render    RenderConfig
	Guard     GuardConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Script    ScriptConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RenderConfig controls the deferred render pass.
type RenderConfig struct {
	Delay time.Duration `envconfig:"RENDER_DELAY" default:"50ms"`
}

// GuardConfig controls the per-button failure breaker.
type GuardConfig struct {
	MaxFailures uint32        `envconfig:"GUARD_MAX_FAILURES" default:"5"`
	Cooldown    time.Duration `envconfig:"GUARD_COOLDOWN" default:"30s"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// StorageConfig locates the files the server loads at startup.
type StorageConfig struct {
	BlueprintDir    string `envconfig:"BLUEPRINT_DIR" default:"menus"`
	LanguageFile    string `envconfig:"LANGUAGE_FILE" default:"lang.yml"`
	PermissionsFile string `envconfig:"PERMISSIONS_FILE" default:"permissions.yml"`
	Watch           bool   `envconfig:"WATCH_FILES" default:"true"`
}

// ScriptConfig bounds scripted buttons.
type ScriptConfig struct {
	Enabled  bool          `envconfig:"SCRIPTS_ENABLED" default:"true"`
	Timeout  time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"250ms"`
	PoolSize int           `envconfig:"SCRIPT_POOL_SIZE" default:"4"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Render.Delay < 0 {
		return fmt.Errorf("render delay must not be negative, got %s", c.Render.Delay)
	}
	if c.Guard.MaxFailures == 0 {
		return fmt.Errorf("guard max failures must be positive")
	}
	if c.Script.Enabled && (c.Script.Timeout <= 0 || c.Script.PoolSize <= 0) {
		return fmt.Errorf("scripts need a positive timeout and pool size, got %s/%d",
			c.Script.Timeout, c.Script.PoolSize)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit needs positive rps and burst, got %d/%d",
			c.RateLimit.RequestsPerSecond, c.RateLimit.Burst)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level: "info",
		},
		Render: RenderConfig{
			Delay: 50 * time.Millisecond,
		},
		Guard: GuardConfig{
			MaxFailures: 5,
			Cooldown:    30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
		Storage: StorageConfig{
			BlueprintDir:    "menus",
			LanguageFile:    "lang.yml",
			PermissionsFile: "permissions.yml",
			Watch:           true,
		},
		Script: ScriptConfig{
			Enabled:  true,
			Timeout:  250 * time.Millisecond,
			PoolSize: 4,
		},
	}
}
