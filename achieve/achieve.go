// Package achieve assembles an achievement engine with its storage, digest
// and event integrations.
package achieve

import (
	"context"
	"log/slog"

	"achievekit/adapters/jsonfile"
	"achievekit/adapters/memory"
	"achievekit/analytics"
	"achievekit/core"
	"achievekit/engine"
	"achievekit/integrations/webhook"
	"achievekit/realtime"
)

// busEvents are the fine-grained events the engine publishes on its bus.
var busEvents = []core.EventType{
	core.EventAchievementUnlocked,
	core.EventProgressUpdated,
	core.EventItemCollected,
	core.EventToastDismissed,
	core.EventStateReset,
	core.EventTamperDetected,
}

// Option configures the engine builder.
type Option func(*config)

type config struct {
	storage   engine.Storage
	hasher    engine.Hasher
	namespace string
	mode      engine.DispatchMode
	hub       *realtime.Hub
	webhook   *webhook.Sink
	hooks     []analytics.Hook
	logger    *slog.Logger
	onUnlock  func(core.ID)
	onTamper  func(string)
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithHasher sets the integrity digest.
func WithHasher(h engine.Hasher) Option { return func(c *config) { c.hasher = h } }

// WithNamespace isolates several engines sharing one store.
func WithNamespace(ns string) Option { return func(c *config) { c.namespace = ns } }

// WithDispatchMode selects sync or async event dispatch. Async delivery runs
// on one background worker, so integrations still see events in publish order.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events and a
// state_changed snapshot after every mutation.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithWebhook forwards events to an HTTP webhook sink.
func WithWebhook(s *webhook.Sink) Option { return func(c *config) { c.webhook = s } }

// WithAnalytics feeds every bus event to the given hooks.
func WithAnalytics(hooks ...analytics.Hook) Option {
	return func(c *config) { c.hooks = append(c.hooks, hooks...) }
}

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// OnUnlock registers the unlock callback.
func OnUnlock(fn func(core.ID)) Option { return func(c *config) { c.onUnlock = fn } }

// OnTamper registers the tamper callback.
func OnTamper(fn func(key string)) Option { return func(c *config) { c.onTamper = fn } }

// New builds a hydrated engine. If not provided, defaults are used:
//   - storage: JSON file at jsonfile.DefaultPath, in-memory if that cannot be opened
//   - hasher: FNV-1a
//   - dispatch: async
//
// Callers should Close the engine to flush async integrations.
func New(catalogue core.Catalogue, opts ...Option) *engine.Engine {
	cfg := &config{mode: engine.DispatchAsync, logger: slog.Default()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.storage == nil {
		cfg.storage = defaultStorage(cfg.logger)
	}

	bus := engine.NewEventBus(cfg.mode)
	// integrations subscribe before construction so hydration tamper events reach them
	if cfg.hub != nil {
		bus.SubscribeAll(cfg.hub.Broadcast, busEvents...)
	}
	if cfg.webhook != nil {
		bus.SubscribeAll(cfg.webhook.OnEvent, cfg.webhook.Types()...)
	}
	if len(cfg.hooks) > 0 {
		bridge := analytics.NewBridge(cfg.hooks...)
		bus.SubscribeAll(func(_ context.Context, e core.Event) { bridge.OnEvent(e) }, busEvents...)
	}

	eng := engine.New(catalogue,
		engine.WithStorage(cfg.storage),
		engine.WithHasher(cfg.hasher),
		engine.WithNamespace(cfg.namespace),
		engine.WithEventBus(bus),
		engine.WithLogger(cfg.logger),
		engine.OnUnlock(cfg.onUnlock),
		engine.OnTamperDetected(cfg.onTamper),
	)
	if cfg.hub != nil {
		hub := cfg.hub
		eng.Subscribe(func(st core.State) {
			hub.Broadcast(context.Background(), core.NewStateChanged(st))
		})
	}
	return eng
}

func defaultStorage(logger *slog.Logger) engine.Storage {
	path, err := jsonfile.DefaultPath()
	if err == nil {
		var store *jsonfile.Store
		store, err = jsonfile.New(path, jsonfile.WithLogger(logger))
		if err == nil {
			return store
		}
	}
	logger.Warn("local achievement store unavailable, state will not survive restarts", "error", err)
	return memory.New()
}
