package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/postpilot/postpilot/internal/metrics"
	"go.uber.org/zap"
)

// Event is what a handler receives: the payload plus name/version
// metadata.
type Event struct {
	Name    string
	Version string
	Payload any
}

// Handler processes one event. Errors are logged by the bus and never
// propagate to the emitter or to sibling handlers.
type Handler func(ctx context.Context, ev Event) error

// Subscription identifies one registration. Go func values are not
// comparable, so unsubscription goes through the token returned by
// Subscribe; subscribing the same handler twice yields two tokens and
// two invocations per event.
type Subscription struct {
	event string
	id    uint64
}

type entry struct {
	id uint64
	fn Handler
}

// Bus is the in-process fan-out hub between the scheduler and its side
// effects. It is not a durable queue: no persistence, no cross-process
// delivery, no ordering across handlers.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]entry
	log      *zap.Logger
}

func New(log *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]entry),
		log:      log,
	}
}

func (b *Bus) Subscribe(event string, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[event] = append(b.handlers[event], entry{id: b.nextID, fn: h})

	return Subscription{event: event, id: b.nextID}
}

func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[s.event]
	for i, e := range list {
		if e.id == s.id {
			b.handlers[s.event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.handlers[s.event]) == 0 {
		delete(b.handlers, s.event)
	}
}

// Publish fans the event out to every registered handler with version
// "v1".
func (b *Bus) Publish(ctx context.Context, name string, payload any) {
	b.PublishVersioned(ctx, name, "v1", payload)
}

// PublishVersioned invokes all handlers concurrently and returns once
// every handler has settled. With no handlers registered it is a no-op.
// A handler error or panic is logged and isolated; it neither reaches
// the emitter nor stops sibling handlers.
func (b *Bus) PublishVersioned(ctx context.Context, name, version string, payload any) {
	b.mu.RLock()
	list := b.handlers[name]
	handlers := make([]Handler, len(list))
	for i, e := range list {
		handlers[i] = e.fn
	}
	b.mu.RUnlock()

	metrics.EventsPublishedTotal.WithLabelValues(name).Inc()

	if len(handlers) == 0 {
		return
	}

	ev := Event{Name: name, Version: version, Payload: payload}

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panicked",
						zap.String("event", name),
						zap.String("panic", fmt.Sprint(r)))
				}
			}()
			if err := h(ctx, ev); err != nil {
				b.log.Error("event handler failed",
					zap.String("event", name),
					zap.Error(err))
			}
		}(h)
	}
	wg.Wait()
}

// Close drops every registration. Used on shutdown.
func (b *Bus) Close() {
	b.mu.Lock()
	b.handlers = make(map[string][]entry)
	b.mu.Unlock()
}
