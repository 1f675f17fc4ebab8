package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"callboard/internal/observability/metrics"
)

// defaultBufferSize bounds each subscriber's outbound queue. A display
// that falls this far behind is dropped rather than allowed to stall
// publishers.
const defaultBufferSize = 16

// Event is one named server-sent event.
type Event struct {
	Name string
	Data []byte
}

// StatusRecorder receives connection-table changes. Implemented by the
// device registry.
type StatusRecorder interface {
	MarkConnected(ctx context.Context, deviceID, ip string)
	MarkDisconnected(ctx context.Context, deviceID string)
}

// Subscription is one live device connection.
type Subscription struct {
	deviceID string
	events   chan Event
	done     chan struct{}
	once     sync.Once
}

// Events is the subscriber's outbound queue.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed when the broker force-drops the subscription.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// DeviceID identifies the subscribed device.
func (s *Subscription) DeviceID() string { return s.deviceID }

func (s *Subscription) drop() {
	s.once.Do(func() { close(s.done) })
}

// Broker fans out events to all live device subscriptions. Publishing
// snapshots the subscriber set under the lock and sends outside it, so
// connects and disconnects never block an in-flight publish. A
// subscriber whose buffer is full is dropped and marked disconnected.
type Broker struct {
	registry StatusRecorder
	logger   *log.Logger
	buffer   int

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Option configures the broker.
type Option func(*Broker)

// WithBufferSize overrides the per-subscriber queue bound.
func WithBufferSize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.buffer = size
		}
	}
}

// NewBroker constructs a broker.
func NewBroker(registry StatusRecorder, logger *log.Logger, opts ...Option) *Broker {
	broker := &Broker{
		registry: registry,
		logger:   logger,
		buffer:   defaultBufferSize,
		subs:     make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(broker)
	}
	return broker
}

// Subscribe registers a live connection for a device and marks it
// connected in the registry.
func (b *Broker) Subscribe(ctx context.Context, deviceID, ip string) *Subscription {
	sub := &Subscription{
		deviceID: deviceID,
		events:   make(chan Event, b.buffer),
		done:     make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()

	metrics.SetSubscribers(count)
	if b.registry != nil {
		b.registry.MarkConnected(ctx, deviceID, ip)
	}
	return sub
}

// Unsubscribe removes a connection and marks the device disconnected.
func (b *Broker) Unsubscribe(ctx context.Context, sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	_, present := b.subs[sub]
	delete(b.subs, sub)
	count := len(b.subs)
	b.mu.Unlock()
	if !present {
		return
	}

	sub.drop()
	metrics.SetSubscribers(count)
	if b.registry != nil {
		b.registry.MarkDisconnected(ctx, sub.deviceID)
	}
}

// DropDevice force-drops every subscription held by a device. Used when
// a device is deleted and its token revoked.
func (b *Broker) DropDevice(ctx context.Context, deviceID string) {
	b.mu.Lock()
	var dropped []*Subscription
	for sub := range b.subs {
		if sub.deviceID == deviceID {
			dropped = append(dropped, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range dropped {
		b.Unsubscribe(ctx, sub)
	}
}

// Publish marshals the payload and enqueues the event to every current
// subscriber. Callers serialize same-entity publishes, so enqueue order
// matches commit order. Slow consumers are dropped, never waited on.
func (b *Broker) Publish(ctx context.Context, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		if b.logger != nil {
			b.logger.Printf("stream: marshal %s event: %v", name, err)
		}
		return
	}
	b.publish(ctx, Event{Name: name, Data: data})
}

func (b *Broker) publish(ctx context.Context, event Event) {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	metrics.IncBroadcast(event.Name)
	var slow []*Subscription
	for _, sub := range subs {
		select {
		case sub.events <- event:
		default:
			slow = append(slow, sub)
		}
	}

	for _, sub := range slow {
		if b.logger != nil {
			b.logger.Printf("stream: dropping slow subscriber device=%s", sub.deviceID)
		}
		metrics.IncDroppedSubscriber()
		b.Unsubscribe(ctx, sub)
	}
}
