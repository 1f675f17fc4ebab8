package memory

import (
	"context"
	"sync"

	announcements "callboard/internal/announcements/domain"
)

// Repository is an in-memory announcement store.
type Repository struct {
	mu    sync.RWMutex
	items []announcements.Announcement
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Create appends a new announcement.
func (r *Repository) Create(ctx context.Context, announcement announcements.Announcement) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, announcement)
	return nil
}

// SetActive toggles the active flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].Active = active
			return nil
		}
	}
	return announcements.ErrNotFound
}

// SetMessage replaces the announcement text.
func (r *Repository) SetMessage(ctx context.Context, id, message string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].Message = message
			return nil
		}
	}
	return announcements.ErrNotFound
}

// Delete removes an announcement. Deleting an absent id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// List returns announcements in insertion order.
func (r *Repository) List(ctx context.Context) ([]announcements.Announcement, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]announcements.Announcement(nil), r.items...), nil
}
