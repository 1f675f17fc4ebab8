package memory

import (
	"context"
	"sync"

	devices "callboard/internal/devices/domain"
)

// Repository is an in-memory device store. It is the default backend
// when no database is configured.
type Repository struct {
	mu    sync.RWMutex
	byID  map[string]devices.Device
	order []string
}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{byID: make(map[string]devices.Device)}
}

// Create stores a new device.
func (r *Repository) Create(ctx context.Context, device devices.Device) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Name == device.Name {
			return devices.ErrDuplicateName
		}
	}
	r.byID[device.ID] = device
	r.order = append(r.order, device.ID)
	return nil
}

// Get loads a device by id.
func (r *Repository) Get(ctx context.Context, id string) (*devices.Device, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	device, ok := r.byID[id]
	if !ok {
		return nil, devices.ErrNotFound
	}
	return &device, nil
}

// GetByToken loads a device by its current token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*devices.Device, error) {
	_ = ctx
	if token == "" {
		return nil, devices.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, device := range r.byID {
		if device.Token == token {
			found := device
			return &found, nil
		}
	}
	return nil, devices.ErrNotFound
}

// SetToken overwrites the device token.
func (r *Repository) SetToken(ctx context.Context, id, token string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.byID[id]
	if !ok {
		return devices.ErrNotFound
	}
	device.Token = token
	r.byID[id] = device
	return nil
}

// SetIPAddress records the last-seen address for a device.
func (r *Repository) SetIPAddress(ctx context.Context, id, ip string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.byID[id]
	if !ok {
		return nil
	}
	device.IPAddress = ip
	r.byID[id] = device
	return nil
}

// Delete removes a device. Deleting an absent id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return nil
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns devices in registration order.
func (r *Repository) List(ctx context.Context) ([]devices.Device, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]devices.Device, 0, len(r.order))
	for _, id := range r.order {
		if device, ok := r.byID[id]; ok {
			result = append(result, device)
		}
	}
	return result, nil
}
