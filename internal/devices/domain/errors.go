package devices

import "errors"

var (
	// ErrNotFound indicates an operation on an unknown device id.
	ErrNotFound = errors.New("devices: not found")
	// ErrNameTooShort is returned when a device name is too short after
	// trimming whitespace.
	ErrNameTooShort = errors.New("devices: name too short")
	// ErrInvalidToken is returned for empty, unknown, or revoked tokens.
	// It deliberately does not distinguish the three cases.
	ErrInvalidToken = errors.New("devices: invalid token")
	// ErrDuplicateName is returned when a device name is already taken.
	ErrDuplicateName = errors.New("devices: name already registered")
)
