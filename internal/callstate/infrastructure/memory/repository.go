package memory

import (
	"context"
	"errors"
	"sync"

	callstate "callboard/internal/callstate/domain"
)

// DefaultCapacity bounds the history log when no capacity is configured.
const DefaultCapacity = 100

// Repository is an in-memory call state store. It is the default backend
// when no database is configured.
type Repository struct {
	mu       sync.RWMutex
	current  callstate.CallState
	entries  []callstate.HistoryEntry
	capacity int
}

// NewRepository constructs a repository with a bounded history log.
func NewRepository(capacity int) *Repository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Repository{capacity: capacity}
}

// Current returns the current call snapshot.
func (r *Repository) Current(ctx context.Context) (callstate.CallState, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, nil
}

// SetCurrent atomically replaces the current call and appends its entry.
func (r *Repository) SetCurrent(ctx context.Context, state callstate.CallState, entry callstate.HistoryEntry) error {
	_ = ctx
	if err := state.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		return errors.New("memory callstate repo: empty entry id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = state
	r.append(entry)
	return nil
}

// Reset clears the current call and appends the reset marker.
func (r *Repository) Reset(ctx context.Context, marker callstate.HistoryEntry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = callstate.CallState{}
	marker.Kind = callstate.KindReset
	r.append(marker)
	return nil
}

// AppendEntry appends a marker entry without touching the current call.
func (r *Repository) AppendEntry(ctx context.Context, entry callstate.HistoryEntry) error {
	_ = ctx
	if entry.ID == "" {
		return errors.New("memory callstate repo: empty entry id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.append(entry)
	return nil
}

// History returns call entries after the last reset, most-recent-first.
func (r *Repository) History(ctx context.Context, limit int) ([]callstate.HistoryEntry, error) {
	_ = ctx
	if limit <= 0 {
		return nil, callstate.ErrInvalidLimit
	}
	if limit > r.capacity {
		limit = r.capacity
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]callstate.HistoryEntry, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(result) < limit; i-- {
		entry := r.entries[i]
		if entry.Kind == callstate.KindReset {
			break
		}
		if entry.Kind != callstate.KindCall {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

// DeskEvents returns call and closure entries for a desk after the last
// reset, in commit order.
func (r *Repository) DeskEvents(ctx context.Context, deskName string) ([]callstate.HistoryEntry, error) {
	_ = ctx
	if deskName == "" {
		return nil, callstate.ErrEmptyDeskName
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].Kind == callstate.KindReset {
			start = i + 1
			break
		}
	}

	var result []callstate.HistoryEntry
	for _, entry := range r.entries[start:] {
		if entry.CounterLabel != deskName {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}

// LastDeskEvent returns the latest entry for a desk, or nil.
func (r *Repository) LastDeskEvent(ctx context.Context, deskName string) (*callstate.HistoryEntry, error) {
	events, err := r.DeskEvents(ctx, deskName)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	last := events[len(events)-1]
	return &last, nil
}

// append must be called with r.mu held.
func (r *Repository) append(entry callstate.HistoryEntry) {
	if entry.Kind == "" {
		entry.Kind = callstate.KindCall
	}
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.capacity {
		overflow := len(r.entries) - r.capacity
		r.entries = append(r.entries[:0:0], r.entries[overflow:]...)
	}
}
