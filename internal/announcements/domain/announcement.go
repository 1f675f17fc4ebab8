package announcements

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Announcement is one ticker message shown on public displays.
type Announcement struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	// ErrEmptyMessage is returned when an announcement has no text.
	ErrEmptyMessage = errors.New("announcements: empty message")
	// ErrNotFound indicates an operation on an unknown announcement id.
	ErrNotFound = errors.New("announcements: not found")
)

// ValidateMessage trims and validates announcement text.
func ValidateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	return message, nil
}

// Repository persists the ordered announcement set.
type Repository interface {
	Create(ctx context.Context, announcement Announcement) error
	// SetActive returns ErrNotFound for an unknown id.
	SetActive(ctx context.Context, id string, active bool) error
	// SetMessage returns ErrNotFound for an unknown id.
	SetMessage(ctx context.Context, id, message string) error
	// Delete is idempotent; deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error
	// List returns announcements in insertion order.
	List(ctx context.Context) ([]Announcement, error)
}
