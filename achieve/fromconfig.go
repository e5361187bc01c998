package achieve

import (
	"fmt"
	"log/slog"
	"net/http"

	"achievekit/adapters/digest"
	"achievekit/adapters/jsonfile"
	"achievekit/adapters/memory"
	"achievekit/adapters/redis"
	"achievekit/adapters/sqlx"
	"achievekit/catalog"
	appconfig "achievekit/config"
	"achievekit/core"
	"achievekit/engine"
	"achievekit/integrations/webhook"
)

// StorageFromConfig opens the configured adapter. The returned func releases
// its connections and is never nil.
func StorageFromConfig(cfg appconfig.StorageConfig, logger *slog.Logger) (engine.Storage, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Adapter {
	case "", "memory":
		return memory.New(), noop, nil
	case "file":
		s, err := jsonfile.New(cfg.File.Path, jsonfile.WithLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "redis":
		s, err := redis.New(cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		return s.WithLogger(logger), s.Close, nil
	case "sql":
		s, err := sqlx.New(cfg.SQL)
		if err != nil {
			return nil, noop, err
		}
		return s.WithLogger(logger), s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapter)
	}
}

// HasherFromConfig resolves the configured digest.
func HasherFromConfig(cfg appconfig.IntegrityConfig) (engine.Hasher, error) {
	return digest.ByName(cfg.Algorithm)
}

// CatalogueFromConfig loads the definition file, or the demo catalogue when
// no path is configured.
func CatalogueFromConfig(cfg appconfig.CatalogConfig) (core.Catalogue, error) {
	if cfg.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.Path)
}

// WebhookFromConfig returns nil when no endpoints are configured.
func WebhookFromConfig(cfg appconfig.WebhookConfig, logger *slog.Logger) *webhook.Sink {
	if len(cfg.Endpoints) == 0 {
		return nil
	}
	return webhook.New(cfg.Endpoints,
		webhook.WithClient(&http.Client{Timeout: cfg.Timeout}),
		webhook.WithSecret(cfg.Secret),
		webhook.WithLogger(logger),
	)
}

// Options translates a loaded configuration into builder options. The
// returned func closes the storage connection.
func Options(cfg *appconfig.Config, logger *slog.Logger) ([]Option, func() error, error) {
	store, closeStore, err := StorageFromConfig(cfg.Storage, logger)
	if err != nil {
		return nil, closeStore, fmt.Errorf("storage: %w", err)
	}
	hasher, err := HasherFromConfig(cfg.Integrity)
	if err != nil {
		_ = closeStore()
		return nil, func() error { return nil }, fmt.Errorf("integrity: %w", err)
	}
	opts := []Option{
		WithStorage(store),
		WithHasher(hasher),
		WithNamespace(cfg.Storage.Namespace),
		WithLogger(logger),
	}
	if sink := WebhookFromConfig(cfg.Webhook, logger); sink != nil {
		opts = append(opts, WithWebhook(sink))
	}
	return opts, closeStore, nil
}
