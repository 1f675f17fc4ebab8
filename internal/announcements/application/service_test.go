package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"callboard/internal/announcements/application/events"
	announcements "callboard/internal/announcements/domain"
	"callboard/internal/announcements/infrastructure/memory"
)

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

type recordingBus struct {
	mu     sync.Mutex
	events []any
}

func (b *recordingBus) Publish(_ context.Context, event any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) changes() []events.AnnouncementsChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	var changes []events.AnnouncementsChanged
	for _, event := range b.events {
		if changed, ok := event.(events.AnnouncementsChanged); ok {
			changes = append(changes, changed)
		}
	}
	return changes
}

func newTestService(t *testing.T) (*Service, *recordingBus) {
	t.Helper()
	bus := &recordingBus{}
	service, err := NewService(memory.NewRepository(), bus, stubClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, bus
}

func TestAddActivatesAndBroadcasts(t *testing.T) {
	service, bus := newTestService(t)
	ctx := context.Background()

	if _, err := service.Add(ctx, "   "); !errors.Is(err, announcements.ErrEmptyMessage) {
		t.Fatalf("blank message: got %v", err)
	}

	added, err := service.Add(ctx, "  Bienvenue  ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Message != "Bienvenue" {
		t.Fatalf("message should be trimmed, got %q", added.Message)
	}
	if !added.Active {
		t.Fatalf("new announcements start active")
	}

	changes := bus.changes()
	if len(changes) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(changes))
	}
	if len(changes[0].Announcements) != 1 || changes[0].Announcements[0].ID != added.ID {
		t.Fatalf("broadcast should carry the full set, got %+v", changes[0].Announcements)
	}
}

func TestUpdateAndToggle(t *testing.T) {
	service, bus := newTestService(t)
	ctx := context.Background()

	added, err := service.Add(ctx, "Bienvenue")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := service.UpdateMessage(ctx, added.ID, "Fermeture 18h"); err != nil {
		t.Fatalf("update message: %v", err)
	}
	if err := service.SetActive(ctx, added.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}

	list, err := service.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Message != "Fermeture 18h" || list[0].Active {
		t.Fatalf("unexpected state after update: %+v", list)
	}

	if err := service.UpdateMessage(ctx, "missing", "x"); !errors.Is(err, announcements.ErrNotFound) {
		t.Fatalf("update missing: got %v", err)
	}
	if err := service.SetActive(ctx, "missing", true); !errors.Is(err, announcements.ErrNotFound) {
		t.Fatalf("toggle missing: got %v", err)
	}

	// add + update + toggle broadcast; failed mutations do not.
	if got := len(bus.changes()); got != 3 {
		t.Fatalf("broadcasts = %d, want 3", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	service, bus := newTestService(t)
	ctx := context.Background()

	added, err := service.Add(ctx, "Bienvenue")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := service.Delete(ctx, added.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := service.Delete(ctx, added.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	list, err := service.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list after delete = %+v, want empty", list)
	}

	changes := bus.changes()
	if len(changes) == 0 || len(changes[len(changes)-1].Announcements) != 0 {
		t.Fatalf("final broadcast should carry the empty set, got %+v", changes)
	}
}
