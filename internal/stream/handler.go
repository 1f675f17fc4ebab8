package stream

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	devices "callboard/internal/devices/domain"
)

// defaultHeartbeatInterval matches what fielded display firmware expects
// before declaring the connection dead.
const defaultHeartbeatInterval = 5 * time.Second

// TokenAuthorizer resolves a device token. Implemented by the device
// registry.
type TokenAuthorizer interface {
	Authorize(ctx context.Context, token string) (devices.Device, error)
}

// Handler serves the SSE event stream consumed by display devices.
type Handler struct {
	broker    *Broker
	auth      TokenAuthorizer
	heartbeat time.Duration
	logger    *log.Logger
}

// HandlerOption configures the stream handler.
type HandlerOption func(*Handler)

// WithHeartbeatInterval overrides the keep-alive cadence.
func WithHeartbeatInterval(interval time.Duration) HandlerOption {
	return func(h *Handler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// NewHandler constructs a stream handler.
func NewHandler(broker *Broker, auth TokenAuthorizer, logger *log.Logger, opts ...HandlerOption) *Handler {
	handler := &Handler{broker: broker, auth: auth, heartbeat: defaultHeartbeatInterval, logger: logger}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// ServeHTTP handles GET /events?token=...
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.broker == nil || h.auth == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}

	device, err := h.auth.Authorize(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.broker.Subscribe(r.Context(), device.ID, clientIP(r))
	defer h.broker.Unsubscribe(context.Background(), sub)

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event := <-sub.Events():
			writeEvent(w, event)
			flusher.Flush()
		case <-ticker.C:
			writeEvent(w, Event{Name: "ping", Data: []byte("PING")})
			flusher.Flush()
		case <-sub.Done():
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event Event) {
	if event.Name != "" {
		_, _ = w.Write([]byte("event: " + event.Name + "\n"))
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(event.Data)
	_, _ = w.Write([]byte("\n\n"))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
