package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apihttp "callboard/internal/api/http"
	callstateapp "callboard/internal/callstate/application"
	devices "callboard/internal/devices/domain"
	"callboard/internal/observability/metrics"
)

// TokenAuthorizer resolves a device token to its device.
type TokenAuthorizer interface {
	Authorize(ctx context.Context, token string) (devices.Device, error)
}

// NextHandler serves POST /next for hardware call buttons. The device
// authenticates with its issued token; the allocated ticket is attributed
// to the device's registered name.
type NextHandler struct {
	service *callstateapp.Service
	auth    TokenAuthorizer
}

// NewNextHandler constructs a NextHandler.
func NewNextHandler(service *callstateapp.Service, auth TokenAuthorizer) (*NextHandler, error) {
	if service == nil {
		return nil, errors.New("next handler: nil service")
	}
	if auth == nil {
		return nil, errors.New("next handler: nil authorizer")
	}
	return &NextHandler{service: service, auth: auth}, nil
}

// ServeHTTP handles POST /next.
func (h *NextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	device, err := h.auth.Authorize(r.Context(), bearerToken(r))
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}

	start := time.Now()
	state, err := h.service.NextTicket(r.Context(), device.Name)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	metrics.IncCall("button")
	metrics.ObserveCallCommit(time.Since(start))
	apihttp.WriteJSON(w, http.StatusOK, state)
}

// bearerToken extracts the device token from the Authorization header,
// falling back to the token query parameter for constrained firmware.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
