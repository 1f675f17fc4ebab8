package devices

import (
	"context"
	"strings"
	"time"
)

// Status is the live connection state of a device, derived from the
// broadcaster's connection table. It is never settable by a client.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// MinNameLength is the minimum device name length after trimming. The
// operator console enforces the same bound; the backend re-validates.
const MinNameLength = 4

// Device is a registered display or call-button terminal.
type Device struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IPAddress string    `json:"ip_address,omitempty"`
	Status    Status    `json:"status"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateName trims and validates a device name.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < MinNameLength {
		return "", ErrNameTooShort
	}
	return name, nil
}

// Repository persists registered devices.
type Repository interface {
	Create(ctx context.Context, device Device) error
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*Device, error)
	// GetByToken returns ErrNotFound for an unknown token.
	GetByToken(ctx context.Context, token string) (*Device, error)
	// SetToken overwrites the device token; ErrNotFound for an unknown id.
	SetToken(ctx context.Context, id, token string) error
	// SetIPAddress records the last-seen address; unknown ids are ignored.
	SetIPAddress(ctx context.Context, id, ip string) error
	// Delete is idempotent; deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error
	// List returns devices in registration order.
	List(ctx context.Context) ([]Device, error)
}
