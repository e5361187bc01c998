package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"

	"achievekit/achieve"
	"achievekit/analytics"
	"achievekit/api/httpapi"
	"achievekit/config"
	"achievekit/core"
	"achievekit/engine"
	"achievekit/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Stats   *analytics.Counter
	Engine  *engine.Engine
	Handler http.Handler
	Server  *http.Server
}

// pinger is implemented by network-backed stores.
type pinger interface {
	Ping(ctx context.Context) error
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Environment == config.EnvProduction {
		if err := cfg.LoadSecretsFromEnv(ctx); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg, os.Stdout, os.Stderr)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideCounter() *analytics.Counter {
	return analytics.NewCounter()
}

func provideCatalogue(cfg *config.Config) (core.Catalogue, error) {
	return achieve.CatalogueFromConfig(cfg.Catalog)
}

func provideStorage(cfg *config.Config, logger *slog.Logger) (engine.Storage, func(), error) {
	store, closeStore, err := achieve.StorageFromConfig(cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := closeStore(); err != nil {
			logger.Error("closing storage", "error", err)
		}
	}
	return store, cleanup, nil
}

func provideHasher(cfg *config.Config) (engine.Hasher, error) {
	return achieve.HasherFromConfig(cfg.Integrity)
}

func provideEngine(cfg *config.Config, logger *slog.Logger, cat core.Catalogue, store engine.Storage, hasher engine.Hasher, hub *realtime.Hub, counter *analytics.Counter) (*engine.Engine, func()) {
	opts := []achieve.Option{
		achieve.WithStorage(store),
		achieve.WithHasher(hasher),
		achieve.WithNamespace(cfg.Storage.Namespace),
		achieve.WithRealtime(hub),
		achieve.WithAnalytics(counter),
		achieve.WithDispatchMode(engine.DispatchAsync),
		achieve.WithLogger(logger),
		achieve.OnUnlock(func(id core.ID) { logger.Info("achievement unlocked", "id", id) }),
	}
	if sink := achieve.WebhookFromConfig(cfg.Webhook, logger); sink != nil {
		opts = append(opts, achieve.WithWebhook(sink))
	}
	eng := achieve.New(cat, opts...)
	return eng, eng.Close
}

func provideHandler(eng *engine.Engine, hub *realtime.Hub, counter *analytics.Counter, store engine.Storage, cfg *config.Config) http.Handler {
	opts := httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		RateLimitIdle:    cfg.Security.RateLimit.CleanupInterval,
		Stats:            counter,
	}
	if p, ok := store.(pinger); ok {
		opts.HealthCheck = p.Ping
	}
	return httpapi.NewMux(eng, hub, opts)
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config, stdout, stderr io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	out := stdout
	if cfg.Logging.Output == "stderr" {
		out = stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
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

// convertAttributes converts map[string]string to []slog.Attr in key order.
func convertAttributes(attrs map[string]string) []slog.Attr {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		result = append(result, slog.String(k, attrs[k]))
	}
	return result
}
