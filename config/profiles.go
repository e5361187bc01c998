package config

import (
	"fmt"
	"time"
)

// LoadProfile returns the defaults for a named deployment profile, with
// environment overrides applied and validated.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	switch name {
	case "development", "default":
		cfg.Environment = EnvDevelopment
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	case "testing":
		cfg.Environment = EnvTesting
		cfg.Storage.Adapter = "memory"
		cfg.Logging.Level = "warn"
	case "staging":
		cfg.Environment = EnvStaging
		cfg.Storage.Adapter = "file"
		cfg.Security.EnableRateLimit = true
	case "production":
		cfg.Environment = EnvProduction
		cfg.Storage.Adapter = "redis"
		cfg.Server.CORSOrigin = ""
		cfg.Server.ShutdownTimeout = 15 * time.Second
		cfg.Security.EnableRateLimit = true
		cfg.Security.RateLimit.RequestsPerMinute = 120
		cfg.Security.RateLimit.BurstSize = 20
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	cfg.Profile = name

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
