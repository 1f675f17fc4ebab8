package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	apihttp "callboard/internal/api/http"
	"callboard/internal/audit"
	"callboard/internal/auth"
	callstateapp "callboard/internal/callstate/application"
	"callboard/internal/observability/metrics"
)

const defaultHistoryLimit = 5

// Handler provides the call state HTTP endpoints used by the operator
// console.
type Handler struct {
	service      *callstateapp.Service
	auditLogger  audit.Logger
	historyLimit int
}

// Option configures the handler.
type Option func(*Handler)

// WithDefaultHistoryLimit overrides the history page size used when the
// client does not pass one.
func WithDefaultHistoryLimit(limit int) Option {
	return func(h *Handler) {
		if limit > 0 {
			h.historyLimit = limit
		}
	}
}

// NewHandler constructs a handler.
func NewHandler(service *callstateapp.Service, auditLogger audit.Logger, opts ...Option) (*Handler, error) {
	if service == nil {
		return nil, errors.New("callstate handler: nil service")
	}
	handler := &Handler{service: service, auditLogger: auditLogger, historyLimit: defaultHistoryLimit}
	for _, opt := range opts {
		opt(handler)
	}
	return handler, nil
}

// ServeHTTP dispatches the state, history, stats, and desk endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		method  string
		handler func(http.ResponseWriter, *http.Request)
	)
	switch r.URL.Path {
	case "/api/v1/state":
		method, handler = http.MethodGet, h.handleCurrent
	case "/api/v1/state/call":
		method, handler = http.MethodPost, h.handleCall
	case "/api/v1/state/reset":
		method, handler = http.MethodPost, h.handleReset
	case "/api/v1/history":
		method, handler = http.MethodGet, h.handleHistory
	case "/api/v1/stats":
		method, handler = http.MethodGet, h.handleStats
	case "/api/v1/desks/close":
		method, handler = http.MethodPost, h.handleCloseDesk
	default:
		http.NotFound(w, r)
		return
	}
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	handler(w, r)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Current(r.Context())
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CounterLabel string `json:"counter_label"`
		TicketNumber string `json:"ticket_number"`
	}
	if err := apihttp.DecodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	start := time.Now()
	state, err := h.service.Call(r.Context(), req.CounterLabel, req.TicketNumber)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	metrics.IncCall("console")
	metrics.ObserveCallCommit(time.Since(start))
	apihttp.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Reset(r.Context())
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	h.logAudit(r, "call.reset", "callstate", "", nil)
	apihttp.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.historyLimit
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.service.History(r.Context(), limit)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	desk := r.URL.Query().Get("desk")
	if desk == "" {
		http.Error(w, "desk is required", http.StatusBadRequest)
		return
	}
	stats, err := h.service.DeskStatistics(r.Context(), desk)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleCloseDesk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeskName string `json:"desk_name"`
	}
	if err := apihttp.DecodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	result, err := h.service.CloseDesk(r.Context(), req.DeskName)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	h.logAudit(r, "desk.close", "desk", req.DeskName, map[string]any{"result": result})
	apihttp.WriteJSON(w, http.StatusOK, map[string]string{"result": result})
}

func (h *Handler) logAudit(r *http.Request, action, resourceType, resourceID string, meta map[string]any) {
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
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
