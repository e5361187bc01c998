package engine

import (
	"context"
	"log/slog"
	"sync"

	"achievekit/core"
)

// DispatchMode selects how the bus delivers events to handlers.
type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

const (
	defaultQueueSize = 1024

	// one worker keeps async delivery in publish order
	defaultAsyncWorkers = 1
)

type handlerEntry struct {
	id int64
	fn func(context.Context, core.Event)
}

// EventBus provides thread-safe pub/sub of domain events with sync and async
// dispatch. It is separate from the engine's snapshot listeners: the bus carries
// fine-grained core.Event values for integrations, listeners carry whole states.
type EventBus struct {
	mode   DispatchMode
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[core.EventType][]handlerEntry
	nextID int64

	queue   chan core.Event
	wg      sync.WaitGroup
	closeMu sync.Once
	closed  chan struct{}
}

func NewEventBus(mode DispatchMode) *EventBus {
	eb := &EventBus{
		mode:   mode,
		logger: slog.Default(),
		subs:   make(map[core.EventType][]handlerEntry),
		queue:  make(chan core.Event, defaultQueueSize),
		closed: make(chan struct{}),
	}
	if mode == DispatchAsync {
		eb.startWorkers(defaultAsyncWorkers)
	}
	return eb
}

func (e *EventBus) startWorkers(n int) {
	for i := 0; i < n; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for {
				select {
				case ev := <-e.queue:
					e.dispatch(context.Background(), ev)
				case <-e.closed:
					// drain whatever is already queued, then stop
					for {
						select {
						case ev := <-e.queue:
							e.dispatch(context.Background(), ev)
						default:
							return
						}
					}
				}
			}
		}()
	}
}

// Close stops async workers after the queued events have been delivered.
// It is safe to call more than once.
func (e *EventBus) Close() {
	e.closeMu.Do(func() { close(e.closed) })
	e.wg.Wait()
}

// Subscribe registers a handler for an event type. Returns unsubscribe func.
// Handlers for the same type run in registration order.
func (e *EventBus) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.subs[typ] = append(e.subs[typ], handlerEntry{id: id, fn: handler})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		entries := e.subs[typ]
		for i, h := range entries {
			if h.id == id {
				e.subs[typ] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers handler for every listed event type and returns a
// single func that removes all of them.
func (e *EventBus) SubscribeAll(handler func(context.Context, core.Event), types ...core.EventType) func() {
	cancels := make([]func(), 0, len(types))
	for _, typ := range types {
		cancels = append(cancels, e.Subscribe(typ, handler))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

// Publish sends an event to subscribers.
func (e *EventBus) Publish(ctx context.Context, ev core.Event) {
	if e.mode != DispatchAsync {
		e.dispatch(ctx, ev)
		return
	}
	select {
	case <-e.closed:
		return
	default:
	}
	select {
	case e.queue <- ev:
	default:
		// never block the engine on a slow integration
		e.logger.Warn("event bus queue full, dropping event", "type", ev.Type, "id", ev.ID)
	}
}

func (e *EventBus) dispatch(ctx context.Context, ev core.Event) {
	e.mu.RLock()
	// copy to avoid holding lock during callbacks
	handlers := make([]func(context.Context, core.Event), 0, len(e.subs[ev.Type]))
	for _, h := range e.subs[ev.Type] {
		handlers = append(handlers, h.fn)
	}
	e.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
