package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"callboard/internal/announcements/application/events"
	announcements "callboard/internal/announcements/domain"
)

// EventPublisher publishes domain events after committed mutations.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Service manages the announcement set. Mutations are serialized so the
// change events subscribers receive reflect commit order.
type Service struct {
	mu     sync.Mutex
	repo   announcements.Repository
	bus    EventPublisher
	clock  Clock
	logger *log.Logger
}

// NewService constructs a service.
func NewService(repo announcements.Repository, bus EventPublisher, clock Clock, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("announcements service: nil repository")
	}
	if bus == nil {
		return nil, errors.New("announcements service: nil event publisher")
	}
	if clock == nil {
		return nil, errors.New("announcements service: nil clock")
	}
	return &Service{repo: repo, bus: bus, clock: clock, logger: logger}, nil
}

// Add creates an active announcement.
func (s *Service) Add(ctx context.Context, message string) (announcements.Announcement, error) {
	message, err := announcements.ValidateMessage(message)
	if err != nil {
		return announcements.Announcement{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	announcement := announcements.Announcement{
		ID:        uuid.NewString(),
		Message:   message,
		Active:    true,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return announcements.Announcement{}, err
	}
	s.notifyChanged(ctx)
	return announcement, nil
}

// SetActive toggles an announcement's active flag.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.notifyChanged(ctx)
	return nil
}

// UpdateMessage replaces an announcement's text.
func (s *Service) UpdateMessage(ctx context.Context, id, message string) error {
	message, err := announcements.ValidateMessage(message)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.SetMessage(ctx, id, message); err != nil {
		return err
	}
	s.notifyChanged(ctx)
	return nil
}

// Delete removes an announcement. Deleting an absent id is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notifyChanged(ctx)
	return nil
}

// List returns announcements in insertion order.
func (s *Service) List(ctx context.Context) ([]announcements.Announcement, error) {
	return s.repo.List(ctx)
}

// notifyChanged must be called with s.mu held.
func (s *Service) notifyChanged(ctx context.Context) {
	list, err := s.repo.List(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("announcements list for broadcast: %v", err)
		}
		return
	}
	if err := s.bus.Publish(ctx, events.AnnouncementsChanged{Announcements: list}); err != nil && s.logger != nil {
		s.logger.Printf("announcements publish error: %v", err)
	}
}
