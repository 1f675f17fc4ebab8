package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	announcementsapp "callboard/internal/announcements/application"
	apihttp "callboard/internal/api/http"
	"callboard/internal/audit"
	"callboard/internal/auth"
)

// Handler provides the announcement management endpoints.
type Handler struct {
	service     *announcementsapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *announcementsapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("announcements handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP dispatches the collection and per-announcement routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/annonces")
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleAdd(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasSuffix(rest, "/message"):
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleUpdateMessage(w, r, strings.TrimSuffix(rest, "/message"))
	case strings.HasSuffix(rest, "/active"):
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleSetActive(w, r, strings.TrimSuffix(rest, "/active"))
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
	list, err := h.service.List(r.Context())
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := apihttp.DecodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	announcement, err := h.service.Add(r.Context(), req.Message)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	h.logAudit(r, "annonce.add", announcement.ID, map[string]any{"message": announcement.Message})
	apihttp.WriteJSON(w, http.StatusCreated, announcement)
}

func (h *Handler) handleUpdateMessage(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Message string `json:"message"`
	}
	if err := apihttp.DecodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateMessage(r.Context(), id, req.Message); err != nil {
		apihttp.WriteError(w, err)
		return
	}
	h.logAudit(r, "annonce.update", id, map[string]any{"message": req.Message})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := apihttp.DecodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := h.service.SetActive(r.Context(), id, req.Active); err != nil {
		apihttp.WriteError(w, err)
		return
	}
	h.logAudit(r, "annonce.toggle", id, map[string]any{"active": req.Active})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		apihttp.WriteError(w, err)
		return
	}
	h.logAudit(r, "annonce.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logAudit(r *http.Request, action, id string, meta map[string]any) {
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
		ResourceType: "announcement",
		ResourceID:   id,
		Metadata:     metadata,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
