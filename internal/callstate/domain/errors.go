package callstate

import "errors"

var (
	// ErrEmptyTicketNumber is returned when a call has no ticket number.
	ErrEmptyTicketNumber = errors.New("callstate: empty ticket number")
	// ErrEmptyCounterLabel is returned when a call has no counter label.
	ErrEmptyCounterLabel = errors.New("callstate: empty counter label")
	// ErrEmptyDeskName is returned when a desk operation names no desk.
	ErrEmptyDeskName = errors.New("callstate: empty desk name")
	// ErrInvalidLimit is returned when a history limit is not positive.
	ErrInvalidLimit = errors.New("callstate: invalid history limit")
)
