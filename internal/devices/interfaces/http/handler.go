package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apihttp "callboard/internal/api/http"
	"callboard/internal/audit"
	"callboard/internal/auth"
	devicesapp "callboard/internal/devices/application"
	"callboard/internal/observability/metrics"
)

// Handler provides the device administration endpoints.
type Handler struct {
	registry    *devicesapp.Registry
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(registry *devicesapp.Registry, auditLogger audit.Logger) (*Handler, error) {
	if registry == nil {
		return nil, errors.New("devices handler: nil registry")
	}
	return &Handler{registry: registry, auditLogger: auditLogger}, nil
}

// ServeHTTP dispatches the collection and per-device routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/devices")
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleRegister(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasSuffix(rest, "/token"):
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGenerateToken(w, r, strings.TrimSuffix(rest, "/token"))
	case !strings.Contains(rest, "/"):
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleDelete(w, r, rest)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.registry.List(r.Context())
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := apihttp.DecodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	device, err := h.registry.Register(r.Context(), req.Name)
	if err != nil {
		metrics.IncRegistration("rejected")
		apihttp.WriteError(w, err)
		return
	}
	metrics.IncRegistration("accepted")
	h.logAudit(r, "device.register", device.ID, map[string]any{"name": device.Name})
	apihttp.WriteJSON(w, http.StatusCreated, device)
}

func (h *Handler) handleGenerateToken(w http.ResponseWriter, r *http.Request, deviceID string) {
	token, err := h.registry.GenerateToken(r.Context(), deviceID)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	h.logAudit(r, "device.token", deviceID, nil)
	apihttp.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, deviceID string) {
	if err := h.registry.Delete(r.Context(), deviceID); err != nil {
		apihttp.WriteError(w, err)
		return
	}
	h.logAudit(r, "device.delete", deviceID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logAudit(r *http.Request, action, deviceID string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	var metadata json.RawMessage
	if meta != nil {
		metadata, _ = json.Marshal(meta)
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "device",
		ResourceID:   deviceID,
		Metadata:     metadata,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
