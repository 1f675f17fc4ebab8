package application

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"callboard/internal/devices/application/events"
	devices "callboard/internal/devices/domain"
)

// EventPublisher publishes registry events after committed mutations.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Registry manages device registration, tokens, and live status. Status
// is derived from the broadcaster's connection callbacks, never set by
// clients.
type Registry struct {
	repo   devices.Repository
	bus    EventPublisher
	clock  Clock
	logger *log.Logger

	mu        sync.RWMutex
	connected map[string]struct{}
}

// NewRegistry constructs a registry.
func NewRegistry(repo devices.Repository, bus EventPublisher, clock Clock, logger *log.Logger) (*Registry, error) {
	if repo == nil {
		return nil, errors.New("device registry: nil repository")
	}
	if bus == nil {
		return nil, errors.New("device registry: nil event publisher")
	}
	if clock == nil {
		return nil, errors.New("device registry: nil clock")
	}
	return &Registry{
		repo:      repo,
		bus:       bus,
		clock:     clock,
		logger:    logger,
		connected: make(map[string]struct{}),
	}, nil
}

// Register creates a token-less device. Token issuance is a separate,
// explicit step.
func (r *Registry) Register(ctx context.Context, name string) (devices.Device, error) {
	name, err := devices.ValidateName(name)
	if err != nil {
		return devices.Device{}, err
	}

	device := devices.Device{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    devices.StatusDisconnected,
		CreatedAt: r.clock.Now(),
	}
	if err := r.repo.Create(ctx, device); err != nil {
		return devices.Device{}, err
	}
	return device, nil
}

// GenerateToken issues a fresh token for the device, invalidating any
// previously issued one.
func (r *Registry) GenerateToken(ctx context.Context, deviceID string) (string, error) {
	if _, err := r.repo.Get(ctx, deviceID); err != nil {
		return "", err
	}
	token, err := devices.NewToken()
	if err != nil {
		return "", err
	}
	if err := r.repo.SetToken(ctx, deviceID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Delete removes a device and revokes its token. Deleting an absent id
// is a no-op.
func (r *Registry) Delete(ctx context.Context, deviceID string) error {
	if err := r.repo.Delete(ctx, deviceID); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.connected, deviceID)
	r.mu.Unlock()
	r.publish(ctx, events.DeviceDeleted{DeviceID: deviceID})
	return nil
}

// List returns registered devices with live status merged in.
func (r *Registry) List(ctx context.Context) ([]devices.Device, error) {
	list, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range list {
		if _, ok := r.connected[list[i].ID]; ok {
			list[i].Status = devices.StatusConnected
		} else {
			list[i].Status = devices.StatusDisconnected
		}
	}
	return list, nil
}

// Authorize resolves a presented token to its device. The error never
// reveals whether the token once existed.
func (r *Registry) Authorize(ctx context.Context, token string) (devices.Device, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return devices.Device{}, devices.ErrInvalidToken
	}
	device, err := r.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, devices.ErrNotFound) {
			return devices.Device{}, devices.ErrInvalidToken
		}
		return devices.Device{}, err
	}
	return *device, nil
}

// MarkConnected records a live subscription for the device. Called by
// the broadcaster when a stream opens.
func (r *Registry) MarkConnected(ctx context.Context, deviceID, ip string) {
	device, err := r.repo.Get(ctx, deviceID)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.connected[deviceID] = struct{}{}
	r.mu.Unlock()

	if ip != "" {
		if err := r.repo.SetIPAddress(ctx, deviceID, ip); err != nil && r.logger != nil {
			r.logger.Printf("device registry: record ip for %s: %v", deviceID, err)
		}
	}
	r.publish(ctx, events.DeviceConnected{DeviceID: deviceID, Name: device.Name})
}

// MarkDisconnected clears the live subscription for the device. Called
// by the broadcaster when a stream closes or is dropped.
func (r *Registry) MarkDisconnected(ctx context.Context, deviceID string) {
	r.mu.Lock()
	_, was := r.connected[deviceID]
	delete(r.connected, deviceID)
	r.mu.Unlock()
	if !was {
		return
	}

	name := ""
	if device, err := r.repo.Get(ctx, deviceID); err == nil {
		name = device.Name
	}
	r.publish(ctx, events.DeviceDisconnected{DeviceID: deviceID, Name: name})
}

func (r *Registry) publish(ctx context.Context, event any) {
	if err := r.bus.Publish(ctx, event); err != nil && r.logger != nil {
		r.logger.Printf("device registry publish error: %v", err)
	}
}
