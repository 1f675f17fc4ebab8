package eventing

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// ErrNilEvent is returned when a nil event is published.
var ErrNilEvent = errors.New("eventing: nil event")

// ErrInvalidEventType is returned when an event reaches a handler whose
// subscribed type it does not match.
var ErrInvalidEventType = errors.New("eventing: invalid event type")

type handler func(ctx context.Context, event any) error

// InMemoryBus delivers domain events to typed subscribers. Handlers run
// synchronously on the publisher's goroutine, in subscription order, so
// services that publish inside their mutation mutex hand events to
// subscribers in commit order.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type][]handler
}

// NewInMemoryBus constructs a new in-memory bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{handlers: make(map[reflect.Type][]handler)}
}

// Publish dispatches an event to every handler subscribed to its type.
// Pointer events reach subscribers of the pointed-to value type.
func (b *InMemoryBus) Publish(ctx context.Context, event any) error {
	if event == nil {
		return ErrNilEvent
	}

	value := reflect.ValueOf(event)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return ErrNilEvent
		}
		value = value.Elem()
	}

	b.mu.RLock()
	handlers := append([]handler(nil), b.handlers[value.Type()]...)
	b.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := h(ctx, value.Interface()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *InMemoryBus) subscribe(eventType reflect.Type, h handler) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
	b.mu.Unlock()
}

// Subscribe registers a typed handler on the bus. The type parameter
// carries the event type, so subscribers never assert on `any`.
func Subscribe[T any](bus *InMemoryBus, h func(ctx context.Context, event T) error) {
	if bus == nil || h == nil {
		return
	}
	eventType := reflect.TypeOf((*T)(nil)).Elem()
	bus.subscribe(eventType, func(ctx context.Context, event any) error {
		evt, ok := event.(T)
		if !ok {
			return ErrInvalidEventType
		}
		return h(ctx, evt)
	})
}
