// Package config loads process settings from the environment (optionally
// seeded from a .env file) and the operator's JSON user configuration that
// carries the license, WordPress sites and API keys.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the process-level settings read from the environment.
type Config struct {
	// Server settings
	Host string `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port string `envconfig:"APP_PORT" default:"8080"`
	Env  string `envconfig:"APP_ENV" default:"development"` // "development", "production", "testing"

	// ConfigPath points at the JSON user configuration.
	ConfigPath string `envconfig:"CONFIG_PATH" default:"user-config.json"`

	// APIToken, when set, is required as a bearer token on /api routes.
	APIToken   string `envconfig:"API_TOKEN"`
	CORSOrigin string `envconfig:"CORS_ORIGIN"`

	// PostgreSQL for generation history. Empty disables persistence.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Valkey (Redis-compatible) for counters and catalog caching.
	ValkeyHost     string `envconfig:"VALKEY_HOST"`
	ValkeyPort     string `envconfig:"VALKEY_PORT" default:"6379"`
	ValkeyPassword string `envconfig:"VALKEY_PASSWORD"`

	// S3-compatible archive for generated articles.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"fsn1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"autoblog-archive"`

	// AI provider selection. Keys live in the user configuration.
	AIProvider    string `envconfig:"AI_PROVIDER" default:"openai"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	ClaudeBaseURL string `envconfig:"CLAUDE_BASE_URL"`

	// Catalog
	DMMBaseURL      string        `envconfig:"DMM_BASE_URL" default:"https://api.dmm.com/affiliate/v3/ItemList"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"10m"`

	// Batch and schedule
	BatchDelay   time.Duration `envconfig:"BATCH_DELAY" default:"5s"`
	ScheduleSpec string        `envconfig:"SCHEDULE_SPEC" default:"0 * * * *"`

	// Per-call timeouts.
	AITimeout        time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	CatalogTimeout   time.Duration `envconfig:"CATALOG_TIMEOUT" default:"10s"`
	WordPressTimeout time.Duration `envconfig:"WORDPRESS_TIMEOUT" default:"30s"`

	RateLimit int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`
}

// Load reads a .env file when one exists and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Env == "production" && cfg.APIToken == "" {
		return nil, fmt.Errorf("API_TOKEN must be set in production")
	}
	return &cfg, nil
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ValkeyEnabled reports whether a Valkey host is configured.
func (c *Config) ValkeyEnabled() bool {
	return c.ValkeyHost != ""
}
