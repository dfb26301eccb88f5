// Package events provides event bus infrastructure for decoupled,
// event-driven communication between modules.
package events

import (
	"context"
	"errors"
	"sync"

	"epiclead_backend/platform/logger"
)

// InMemoryBus is a simple in-process event bus. Publish dispatches handlers on
// their own goroutines; a handler failure is logged and never propagates back
// to the publisher's critical path.
type InMemoryBus struct {
	handlers map[string][]Handler
	mu       sync.RWMutex
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish sends an event to all registered handlers asynchronously.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	for _, handler := range b.handlersFor(event.EventName()) {
		h := handler
		go func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panicked", "event", event.EventName(), "panic", r)
				}
			}()
			// Detach from the request context: the publisher's request may
			// complete before the handler does.
			if err := h.Handle(context.WithoutCancel(ctx), event); err != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}()
	}
}

// PublishSync sends an event and waits for all handlers to complete.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, handler := range b.handlersFor(event.EventName()) {
		if err := handler.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryBus) handlersFor(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handlers[eventName]
}

var _ Bus = (*InMemoryBus)(nil)
