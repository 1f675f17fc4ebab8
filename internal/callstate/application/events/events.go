package events

import (
	callstate "callboard/internal/callstate/domain"
)

// CallChanged is published after every committed change to the current
// call, including resets (where State is the empty waiting state).
type CallChanged struct {
	State callstate.CallState `json:"state"`
}
