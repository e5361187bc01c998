package engine

import (
	"context"
	"log/slog"
	"math"

	"achievekit/adapters/digest"
	"achievekit/adapters/memory"
	"achievekit/core"
)

// Option configures an Engine.
type Option func(*Engine)

// WithStorage sets the persistence adapter. Defaults to an in-memory store.
func WithStorage(s Storage) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

// WithHasher sets the integrity digest. Defaults to FNV-1a.
func WithHasher(h Hasher) Option {
	return func(e *Engine) {
		if h != nil {
			e.hasher = h
		}
	}
}

// WithNamespace prefixes every persisted key with "<ns>:".
func WithNamespace(ns string) Option { return func(e *Engine) { e.namespace = ns } }

// WithEventBus publishes domain events for every state change to bus.
func WithEventBus(bus *EventBus) Option { return func(e *Engine) { e.bus = bus } }

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// OnUnlock is called synchronously right after an achievement is unlocked.
func OnUnlock(fn func(core.ID)) Option { return func(e *Engine) { e.onUnlock = fn } }

// OnTamperDetected is called with the base key of a persisted field whenever
// it fails its integrity check, at construction or before a write.
func OnTamperDetected(fn func(key string)) Option { return func(e *Engine) { e.onTamper = fn } }

// Engine owns the achievement state for one catalogue. It is not safe for
// concurrent use; callers serving concurrent clients must serialize access.
type Engine struct {
	catalogue core.Catalogue
	store     Storage
	hasher    Hasher
	namespace string
	bus       *EventBus
	logger    *slog.Logger
	onUnlock  func(core.ID)
	onTamper  func(string)

	unlocked   map[core.ID]struct{}
	progress   map[core.ID]int
	items      map[core.ID]map[string]struct{}
	runtimeMax map[core.ID]int
	toasts     []core.ID

	listeners *listeners
}

// New builds an engine and hydrates its state from storage, verifying each
// persisted field against its digest.
func New(catalogue core.Catalogue, opts ...Option) *Engine {
	e := &Engine{
		catalogue:  catalogue,
		store:      memory.New(),
		hasher:     digest.FNV1a{},
		logger:     slog.Default(),
		unlocked:   map[core.ID]struct{}{},
		progress:   map[core.ID]int{},
		items:      map[core.ID]map[string]struct{}{},
		runtimeMax: map[core.ID]int{},
		listeners:  newListeners(),
	}
	for _, o := range opts {
		o(e)
	}
	e.hydrate()
	return e
}

// Unlock marks id as unlocked. No-op for unknown or already unlocked ids.
func (e *Engine) Unlock(id core.ID) {
	if !e.catalogue.Contains(id) {
		return
	}
	if _, done := e.unlocked[id]; done {
		return
	}
	e.unlocked[id] = struct{}{}
	e.toasts = append(e.toasts, id)
	e.persistUnlocked()
	if e.onUnlock != nil {
		e.onUnlock(id)
	}
	e.publish(core.NewUnlocked(id))
	e.notify()
}

// SetProgress stores value clamped to [0, max] and unlocks id when the max
// is reached. No-op when id has no effective max.
func (e *Engine) SetProgress(id core.ID, value int) {
	max, ok := e.MaxProgress(id)
	if !ok {
		return
	}
	clamped := core.Clamp(value, max)
	e.progress[id] = clamped
	e.persistProgress()
	e.publish(core.NewProgressUpdated(id, clamped, max))

	if _, done := e.unlocked[id]; clamped >= max && !done {
		// Unlock notifies subscribers itself
		e.Unlock(id)
		return
	}
	e.notify()
}

// IncrementProgress adds one to the current progress of id.
// Progress already at math.MaxInt is re-set unchanged.
func (e *Engine) IncrementProgress(id core.ID) {
	p := e.Progress(id)
	if p < math.MaxInt {
		p++
	}
	e.SetProgress(id, p)
}

// CollectItem adds item to the set tracked for id and mirrors the set size
// into progress. Collecting an item twice does nothing.
func (e *Engine) CollectItem(id core.ID, item string) {
	if !e.catalogue.Contains(id) {
		return
	}
	set := e.items[id]
	if set == nil {
		set = map[string]struct{}{}
		e.items[id] = set
	}
	if _, seen := set[item]; seen {
		return
	}
	set[item] = struct{}{}
	e.persistItems()
	e.publish(core.NewItemCollected(id, item, len(set)))
	e.SetProgress(id, len(set))
}

// SetMaxProgress installs a runtime max for id, superseding the definition,
// and re-evaluates the current progress against it. Overrides are not
// persisted. Non-positive values are ignored: max 0 does not unlock id.
func (e *Engine) SetMaxProgress(id core.ID, max int) {
	if !e.catalogue.Contains(id) || max <= 0 {
		return
	}
	e.runtimeMax[id] = max
	e.SetProgress(id, e.Progress(id))
}

// DismissToast acknowledges the unlock notification for id.
// Subscribers are notified even when id was not queued.
func (e *Engine) DismissToast(id core.ID) {
	for i, queued := range e.toasts {
		if queued == id {
			e.toasts = append(e.toasts[:i:i], e.toasts[i+1:]...)
			e.publish(core.NewToastDismissed(id))
			break
		}
	}
	e.notify()
}

// Reset wipes all achievement state from memory and storage.
// Runtime max overrides are configuration and survive a reset.
func (e *Engine) Reset() {
	e.unlocked = map[core.ID]struct{}{}
	e.progress = map[core.ID]int{}
	e.items = map[core.ID]map[string]struct{}{}
	e.toasts = nil
	for _, key := range PersistedKeys {
		e.removeField(key)
	}
	e.publish(core.NewStateReset())
	e.notify()
}

// IsUnlocked reports whether id has been unlocked.
func (e *Engine) IsUnlocked(id core.ID) bool {
	_, ok := e.unlocked[id]
	return ok
}

// Progress returns the current progress for id, 0 when never set.
func (e *Engine) Progress(id core.ID) int { return e.progress[id] }

// MaxProgress returns the effective max for id: the runtime override when
// present, else the definition's static value.
func (e *Engine) MaxProgress(id core.ID) (int, bool) {
	def, ok := e.catalogue.Lookup(id)
	if !ok {
		return 0, false
	}
	if max, ok := e.runtimeMax[id]; ok {
		return max, true
	}
	if def.Tracked() {
		return def.MaxProgress, true
	}
	return 0, false
}

// Items returns a copy of the items collected for id.
func (e *Engine) Items(id core.ID) map[string]struct{} {
	out := make(map[string]struct{}, len(e.items[id]))
	for item := range e.items[id] {
		out[item] = struct{}{}
	}
	return out
}

// Unlocked returns a copy of the unlocked set.
func (e *Engine) Unlocked() map[core.ID]struct{} {
	out := make(map[core.ID]struct{}, len(e.unlocked))
	for id := range e.unlocked {
		out[id] = struct{}{}
	}
	return out
}

func (e *Engine) UnlockedCount() int { return len(e.unlocked) }

// Definition looks up the static definition for id.
func (e *Engine) Definition(id core.ID) (core.Definition, bool) {
	return e.catalogue.Lookup(id)
}

func (e *Engine) Catalogue() core.Catalogue { return e.catalogue }

// State returns a full snapshot of the current state.
func (e *Engine) State() core.State {
	st := core.State{
		Unlocked:   e.Unlocked(),
		Progress:   make(map[core.ID]int, len(e.progress)),
		Items:      make(map[core.ID][]string, len(e.items)),
		ToastQueue: append([]core.ID{}, e.toasts...),
	}
	for id, v := range e.progress {
		st.Progress[id] = v
	}
	for id, set := range e.items {
		st.Items[id] = sortedItems(set)
	}
	return st
}

// Subscribe registers fn to receive a snapshot after every mutation, in
// registration order. The returned func removes fn immediately.
func (e *Engine) Subscribe(fn Listener) (unsubscribe func()) {
	return e.listeners.add(fn)
}

// Close stops the attached event bus, if any.
func (e *Engine) Close() {
	if e.bus != nil {
		e.bus.Close()
	}
}

func (e *Engine) notify() {
	if e.listeners.len() == 0 {
		return
	}
	e.listeners.deliver(e.State())
}

func (e *Engine) publish(ev core.Event) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(context.Background(), ev)
}
