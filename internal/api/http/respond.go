package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"

	announcements "callboard/internal/announcements/domain"
	callstate "callboard/internal/callstate/domain"
	devices "callboard/internal/devices/domain"
)

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps domain errors onto the gateway's error taxonomy:
// invalid argument, not found, unauthorized, everything else internal.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, callstate.ErrEmptyTicketNumber),
		errors.Is(err, callstate.ErrEmptyCounterLabel),
		errors.Is(err, callstate.ErrEmptyDeskName),
		errors.Is(err, callstate.ErrInvalidLimit),
		errors.Is(err, devices.ErrNameTooShort),
		errors.Is(err, announcements.ErrEmptyMessage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, devices.ErrNotFound),
		errors.Is(err, announcements.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, devices.ErrInvalidToken):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, devices.ErrDuplicateName):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// DecodeBody decodes a JSON request body into dst.
func DecodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
