package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"achievekit/adapters/digest"
	"achievekit/adapters/redis"
	"achievekit/adapters/sqlx"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"ACHIEVEKIT_ENV"`
	Profile     string      `json:"profile" env:"ACHIEVEKIT_PROFILE"`

	// Server configuration
	Server ServerConfig `json:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Security configuration
	Security SecurityConfig `json:"security"`

	// Integrity hashing of persisted fields
	Integrity IntegrityConfig `json:"integrity"`

	// Achievement definitions
	Catalog CatalogConfig `json:"catalog"`

	// Outbound event delivery
	Webhook WebhookConfig `json:"webhook"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"ACHIEVEKIT_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"ACHIEVEKIT_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"ACHIEVEKIT_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"ACHIEVEKIT_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"ACHIEVEKIT_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"ACHIEVEKIT_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"ACHIEVEKIT_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"ACHIEVEKIT_SERVER_SHUTDOWN_TIMEOUT"`
	// StatsInterval, when positive, logs an analytics snapshot at this interval.
	StatsInterval time.Duration `json:"stats_interval,omitempty" env:"ACHIEVEKIT_SERVER_STATS_INTERVAL"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter   string       `json:"adapter" env:"ACHIEVEKIT_STORAGE_ADAPTER"`
	Namespace string       `json:"namespace,omitempty" env:"ACHIEVEKIT_STORAGE_NAMESPACE"`
	Redis     redis.Config `json:"redis,omitempty"`
	SQL       sqlx.Config  `json:"sql,omitempty"`
	File      FileConfig   `json:"file,omitempty"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"ACHIEVEKIT_STORAGE_FILE_PATH"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"ACHIEVEKIT_LOG_LEVEL"`
	Format     string            `json:"format" env:"ACHIEVEKIT_LOG_FORMAT"`
	Output     string            `json:"output" env:"ACHIEVEKIT_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" env:"ACHIEVEKIT_LOG_ATTRIBUTES"`
}

// IntegrityConfig selects the digest used for persisted field hashes.
type IntegrityConfig struct {
	Algorithm string `json:"algorithm" env:"ACHIEVEKIT_INTEGRITY_ALGORITHM"`
}

// CatalogConfig points at a YAML or JSON definition file. An empty path
// selects the built-in demo catalogue.
type CatalogConfig struct {
	Path string `json:"path,omitempty" env:"ACHIEVEKIT_CATALOG_PATH"`
}

// WebhookConfig lists endpoints receiving unlock and tamper events.
type WebhookConfig struct {
	Endpoints []string      `json:"endpoints,omitempty" env:"ACHIEVEKIT_WEBHOOK_ENDPOINTS"`
	Secret    string        `json:"secret,omitempty" env:"ACHIEVEKIT_WEBHOOK_SECRET"`
	Timeout   time.Duration `json:"timeout" env:"ACHIEVEKIT_WEBHOOK_TIMEOUT"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"ACHIEVEKIT_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" env:"ACHIEVEKIT_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" env:"ACHIEVEKIT_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int           `json:"burst_size" env:"ACHIEVEKIT_SECURITY_RATE_LIMIT_BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" env:"ACHIEVEKIT_SECURITY_RATE_LIMIT_CLEANUP"`
}

// Validate validates security settings.
func (s SecurityConfig) Validate() error {
	var errs []string
	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Sprintf("api_keys[%d] is empty", i))
		}
	}
	return joinErrs(errs)
}

// Load builds the configuration from defaults and ACHIEVEKIT_* variables.
func Load() (*Config, error) {
	return finish(DefaultConfig())
}

// LoadFromFile reads a JSON configuration file over the defaults. Environment
// variables still take precedence over file values.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// validateConfigPath accepts only existing .json files.
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}
	clean := filepath.Clean(path)
	if !strings.EqualFold(filepath.Ext(clean), ".json") {
		return errors.New("config file must have .json extension")
	}
	if _, err := os.Stat(clean); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverSQLite),
			File: FileConfig{
				Path: "./data/achievements.json",
			},
		},
		Integrity: IntegrityConfig{
			Algorithm: digest.AlgorithmFNV1a,
		},
		Webhook: WebhookConfig{
			Timeout: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
			APIKeys: []string{},
		},
	}
}

type validator interface{ Validate() error }

// Validate checks every section and joins all problems into one error.
func (c *Config) Validate() error {
	var errs []string
	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}
	sections := []struct {
		name string
		v    validator
	}{
		{"server", &c.Server},
		{"storage", &c.Storage},
		{"logging", &c.Logging},
		{"integrity", &c.Integrity},
		{"webhook", &c.Webhook},
		{"security", &c.Security},
	}
	for _, sec := range sections {
		if err := sec.v.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("%s config: %v", sec.name, err))
		}
	}
	return joinErrs(errs)
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c
	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if cfg.Webhook.Secret != "" {
		cfg.Webhook.Secret = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		redacted := make([]string, len(cfg.Security.APIKeys))
		for i := range redacted {
			redacted[i] = "[REDACTED]"
		}
		cfg.Security.APIKeys = redacted
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
