package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

type recorderRegistry struct {
	mu           sync.Mutex
	connected    []string
	disconnected []string
}

func (r *recorderRegistry) MarkConnected(_ context.Context, deviceID, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = append(r.connected, deviceID)
}

func (r *recorderRegistry) MarkDisconnected(_ context.Context, deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, deviceID)
}

func (r *recorderRegistry) lastDisconnected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.disconnected) == 0 {
		return ""
	}
	return r.disconnected[len(r.disconnected)-1]
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	registry := &recorderRegistry{}
	broker := NewBroker(registry, nil)
	ctx := context.Background()

	subA := broker.Subscribe(ctx, "device-a", "10.0.0.1")
	subB := broker.Subscribe(ctx, "device-b", "10.0.0.2")
	defer broker.Unsubscribe(ctx, subA)
	defer broker.Unsubscribe(ctx, subB)

	broker.Publish(ctx, "nouveau-message", map[string]string{"ticket_number": "001"})

	for _, sub := range []*Subscription{subA, subB} {
		select {
		case event := <-sub.Events():
			if event.Name != "nouveau-message" {
				t.Fatalf("event name = %q", event.Name)
			}
			var payload map[string]string
			if err := json.Unmarshal(event.Data, &payload); err != nil {
				t.Fatalf("unmarshal payload: %v", err)
			}
			if payload["ticket_number"] != "001" {
				t.Fatalf("payload = %+v", payload)
			}
		default:
			t.Fatalf("subscriber %s received nothing", sub.DeviceID())
		}
	}

	if len(registry.connected) != 2 {
		t.Fatalf("registry connected = %v", registry.connected)
	}
}

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	broker := NewBroker(nil, nil)
	ctx := context.Background()

	sub := broker.Subscribe(ctx, "device-a", "")
	defer broker.Unsubscribe(ctx, sub)

	for i := 0; i < 5; i++ {
		broker.Publish(ctx, "nouveau-message", fmt.Sprintf("%03d", i))
	}

	for i := 0; i < 5; i++ {
		event := <-sub.Events()
		want := fmt.Sprintf("%q", fmt.Sprintf("%03d", i))
		if string(event.Data) != want {
			t.Fatalf("event %d data = %s, want %s", i, event.Data, want)
		}
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	registry := &recorderRegistry{}
	broker := NewBroker(registry, nil, WithBufferSize(1))
	ctx := context.Background()

	sub := broker.Subscribe(ctx, "device-slow", "")

	broker.Publish(ctx, "nouveau-message", "one")
	broker.Publish(ctx, "nouveau-message", "two")

	select {
	case <-sub.Done():
	default:
		t.Fatalf("slow subscriber should be dropped")
	}
	if registry.lastDisconnected() != "device-slow" {
		t.Fatalf("registry should record the drop, got %v", registry.disconnected)
	}

	// The queued event is still readable after the drop.
	select {
	case event := <-sub.Events():
		if string(event.Data) != `"one"` {
			t.Fatalf("buffered event = %s", event.Data)
		}
	default:
		t.Fatalf("buffered event lost")
	}
}

func TestDropDeviceClosesAllItsSubscriptions(t *testing.T) {
	registry := &recorderRegistry{}
	broker := NewBroker(registry, nil)
	ctx := context.Background()

	subA := broker.Subscribe(ctx, "device-a", "")
	subB := broker.Subscribe(ctx, "device-a", "")
	other := broker.Subscribe(ctx, "device-b", "")
	defer broker.Unsubscribe(ctx, other)

	broker.DropDevice(ctx, "device-a")

	for _, sub := range []*Subscription{subA, subB} {
		select {
		case <-sub.Done():
		default:
			t.Fatalf("subscription for deleted device still live")
		}
	}
	select {
	case <-other.Done():
		t.Fatalf("unrelated device dropped")
	default:
	}
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	registry := &recorderRegistry{}
	broker := NewBroker(registry, nil)
	ctx := context.Background()

	sub := broker.Subscribe(ctx, "device-a", "")
	broker.Unsubscribe(ctx, sub)
	broker.Unsubscribe(ctx, sub)

	if len(registry.disconnected) != 1 {
		t.Fatalf("disconnect recorded %d times, want 1", len(registry.disconnected))
	}
}
