package callstate

import (
	"context"
	"strings"
	"time"
)

// EntryKind distinguishes history entries from operational markers.
type EntryKind string

const (
	// KindCall is a regular ticket call.
	KindCall EntryKind = "call"
	// KindDeskClosed marks a desk closure.
	KindDeskClosed EntryKind = "desk_closed"
	// KindReset marks a display/counter reset. History queries only
	// consider entries after the most recent reset.
	KindReset EntryKind = "reset"
)

// CallState is the single currently-displayed call. The zero value is the
// "waiting" state shown before the first call of a session.
type CallState struct {
	CounterLabel string    `json:"counter_label"`
	TicketNumber string    `json:"ticket_number"`
	CalledAt     time.Time `json:"called_at"`
}

// IsEmpty reports whether no call has been committed yet.
func (s CallState) IsEmpty() bool {
	return s.TicketNumber == "" && s.CounterLabel == ""
}

// Validate checks the atomic-pair invariant.
func (s CallState) Validate() error {
	if strings.TrimSpace(s.TicketNumber) == "" {
		return ErrEmptyTicketNumber
	}
	if strings.TrimSpace(s.CounterLabel) == "" {
		return ErrEmptyCounterLabel
	}
	return nil
}

// HistoryEntry records one committed call (or marker) in call order.
type HistoryEntry struct {
	ID           string    `json:"id"`
	Kind         EntryKind `json:"-"`
	TicketNumber string    `json:"ticket_number"`
	CounterLabel string    `json:"counter_label"`
	CalledAt     time.Time `json:"called_at"`
}

// TicketStats describes one served ticket at a desk. EndTime and
// DurationMinutes are nil for the ticket still being served.
type TicketStats struct {
	TicketNumber    string     `json:"ticket_number"`
	DeskName        string     `json:"desk_name"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationMinutes *float64   `json:"duration_minutes,omitempty"`
}

// Repository persists the current call and the bounded history log.
type Repository interface {
	// Current returns the zero CallState when no call has been committed
	// since the last reset.
	Current(ctx context.Context) (CallState, error)
	// SetCurrent atomically replaces the current call and appends the
	// matching history entry.
	SetCurrent(ctx context.Context, state CallState, entry HistoryEntry) error
	// Reset clears the current call and appends a reset marker.
	Reset(ctx context.Context, marker HistoryEntry) error
	// AppendEntry appends a marker entry without touching the current call.
	AppendEntry(ctx context.Context, entry HistoryEntry) error
	// History returns call entries after the most recent reset,
	// most-recent-first, at most limit entries.
	History(ctx context.Context, limit int) ([]HistoryEntry, error)
	// DeskEvents returns call and closure entries for one desk after the
	// most recent reset, in commit order.
	DeskEvents(ctx context.Context, deskName string) ([]HistoryEntry, error)
	// LastDeskEvent returns the latest entry for a desk, or nil when the
	// desk has no entries after the most recent reset.
	LastDeskEvent(ctx context.Context, deskName string) (*HistoryEntry, error)
}
