package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"callboard/internal/callstate/application/events"
	callstate "callboard/internal/callstate/domain"
)

// EventPublisher publishes domain events after committed mutations.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Desk-close outcomes reported to the operator console.
const (
	CloseResultSuccess       = "SUCCESS"
	CloseResultAlreadyClosed = "ALREADY_CLOSED"
	CloseResultNoHistory     = "NO_HISTORY"
)

// resetMarkerLabel names the actor recorded on reset markers.
const resetMarkerLabel = "System"

// Service owns the current-call state machine. All mutations are
// serialized by the service mutex so subscribers observe call events in
// commit order.
type Service struct {
	mu     sync.Mutex
	repo   callstate.Repository
	bus    EventPublisher
	clock  Clock
	logger *log.Logger

	// lastTicket backs next-ticket allocation for hardware buttons.
	lastTicket int
}

// NewService constructs the service and restores the ticket counter from
// the persisted current call, if any.
func NewService(repo callstate.Repository, bus EventPublisher, clock Clock, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("callstate service: nil repository")
	}
	if bus == nil {
		return nil, errors.New("callstate service: nil event publisher")
	}
	if clock == nil {
		return nil, errors.New("callstate service: nil clock")
	}

	service := &Service{repo: repo, bus: bus, clock: clock, logger: logger}
	current, err := repo.Current(context.Background())
	if err != nil {
		return nil, err
	}
	if n, err := strconv.Atoi(strings.TrimLeft(current.TicketNumber, "0")); err == nil {
		service.lastTicket = n
	}
	return service, nil
}

// Call commits an explicit (counterLabel, ticketNumber) pair as the
// current call and appends it to history.
func (s *Service) Call(ctx context.Context, counterLabel, ticketNumber string) (callstate.CallState, error) {
	counterLabel = strings.TrimSpace(counterLabel)
	ticketNumber = strings.TrimSpace(ticketNumber)

	state := callstate.CallState{CounterLabel: counterLabel, TicketNumber: ticketNumber}
	if err := state.Validate(); err != nil {
		return callstate.CallState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state.CalledAt = s.clock.Now()
	if err := s.commit(ctx, state); err != nil {
		return callstate.CallState{}, err
	}
	if n, err := strconv.Atoi(strings.TrimLeft(ticketNumber, "0")); err == nil && n > s.lastTicket {
		s.lastTicket = n
	}
	return state, nil
}

// NextTicket allocates the next ticket number for a device's desk and
// commits it as the current call. Used by hardware call buttons.
func (s *Service) NextTicket(ctx context.Context, deskName string) (callstate.CallState, error) {
	deskName = strings.TrimSpace(deskName)
	if deskName == "" {
		return callstate.CallState{}, callstate.ErrEmptyDeskName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state := callstate.CallState{
		CounterLabel: deskName,
		TicketNumber: fmt.Sprintf("%03d", s.lastTicket+1),
		CalledAt:     s.clock.Now(),
	}
	if err := s.commit(ctx, state); err != nil {
		return callstate.CallState{}, err
	}
	s.lastTicket++
	return state, nil
}

// Current returns the current call snapshot.
func (s *Service) Current(ctx context.Context) (callstate.CallState, error) {
	return s.repo.Current(ctx)
}

// History returns committed calls after the last reset, most-recent-first.
func (s *Service) History(ctx context.Context, limit int) ([]callstate.HistoryEntry, error) {
	return s.repo.History(ctx, limit)
}

// Reset clears the current call, zeroes the ticket counter, and notifies
// subscribers with the empty waiting state.
func (s *Service) Reset(ctx context.Context) (callstate.CallState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	marker := callstate.HistoryEntry{
		ID:           uuid.NewString(),
		Kind:         callstate.KindReset,
		CounterLabel: resetMarkerLabel,
		CalledAt:     s.clock.Now(),
	}
	if err := s.repo.Reset(ctx, marker); err != nil {
		return callstate.CallState{}, err
	}
	s.lastTicket = 0
	s.publish(ctx, events.CallChanged{State: callstate.CallState{}})
	return callstate.CallState{}, nil
}

// CloseDesk records a desk closure marker. The outcome code mirrors what
// the operator console displays.
func (s *Service) CloseDesk(ctx context.Context, deskName string) (string, error) {
	deskName = strings.TrimSpace(deskName)
	if deskName == "" {
		return "", callstate.ErrEmptyDeskName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.repo.LastDeskEvent(ctx, deskName)
	if err != nil {
		return "", err
	}
	if last == nil {
		return CloseResultNoHistory, nil
	}
	if last.Kind == callstate.KindDeskClosed {
		return CloseResultAlreadyClosed, nil
	}

	entry := callstate.HistoryEntry{
		ID:           uuid.NewString(),
		Kind:         callstate.KindDeskClosed,
		CounterLabel: deskName,
		CalledAt:     s.clock.Now(),
	}
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return "", err
	}
	return CloseResultSuccess, nil
}

// DeskStatistics reports ticket timings for one desk since the last
// reset, most-recent-first. A ticket ends when the next event for the
// same desk is recorded; the open ticket has no end time.
func (s *Service) DeskStatistics(ctx context.Context, deskName string) ([]callstate.TicketStats, error) {
	deskName = strings.TrimSpace(deskName)
	if deskName == "" {
		return nil, callstate.ErrEmptyDeskName
	}

	entries, err := s.repo.DeskEvents(ctx, deskName)
	if err != nil {
		return nil, err
	}

	var stats []callstate.TicketStats
	for i, entry := range entries {
		if entry.Kind != callstate.KindCall {
			continue
		}
		stat := callstate.TicketStats{
			TicketNumber: entry.TicketNumber,
			DeskName:     entry.CounterLabel,
			StartTime:    entry.CalledAt,
		}
		if i+1 < len(entries) {
			end := entries[i+1].CalledAt
			stat.EndTime = &end
			minutes := end.Sub(entry.CalledAt).Minutes()
			stat.DurationMinutes = &minutes
		}
		stats = append(stats, stat)
	}

	// Most recent first, matching the console's expectation.
	for i, j := 0, len(stats)-1; i < j; i, j = i+1, j-1 {
		stats[i], stats[j] = stats[j], stats[i]
	}
	return stats, nil
}

// commit must be called with s.mu held. Publishing inside the critical
// section preserves commit order for subscribers.
func (s *Service) commit(ctx context.Context, state callstate.CallState) error {
	entry := callstate.HistoryEntry{
		ID:           uuid.NewString(),
		Kind:         callstate.KindCall,
		TicketNumber: state.TicketNumber,
		CounterLabel: state.CounterLabel,
		CalledAt:     state.CalledAt,
	}
	if err := s.repo.SetCurrent(ctx, state, entry); err != nil {
		return err
	}
	s.publish(ctx, events.CallChanged{State: state})
	return nil
}

func (s *Service) publish(ctx context.Context, event any) {
	if err := s.bus.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.Printf("callstate publish error: %v", err)
	}
}
