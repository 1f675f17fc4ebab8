package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	callstateapp "callboard/internal/callstate/application"
	callstate "callboard/internal/callstate/domain"
	"callboard/internal/callstate/infrastructure/memory"
	devices "callboard/internal/devices/domain"
)

type nopBus struct{}

func (nopBus) Publish(context.Context, any) error { return nil }

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestHandler(t *testing.T, opts ...Option) (*Handler, *callstateapp.Service) {
	t.Helper()
	service, err := callstateapp.NewService(memory.NewRepository(0), nopBus{}, &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service, nil, opts...)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, service
}

func TestGetStateEmpty(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	var state callstate.CallState
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !state.IsEmpty() {
		t.Fatalf("initial state = %+v, want empty", state)
	}
}

func TestPostCall(t *testing.T) {
	handler, _ := newTestHandler(t)

	body := `{"counter_label":"Guichet 1","ticket_number":"042"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/state/call", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	var state callstate.CallState
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.TicketNumber != "042" || state.CounterLabel != "Guichet 1" {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestPostCallValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"empty ticket", `{"counter_label":"Guichet 1","ticket_number":""}`},
		{"empty label", `{"counter_label":"","ticket_number":"001"}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/state/call", strings.NewReader(tc.body))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, resp.Code)
		}
	}
}

func TestHistoryLimit(t *testing.T) {
	handler, service := newTestHandler(t, WithDefaultHistoryLimit(2))
	ctx := context.Background()

	for _, ticket := range []string{"001", "002", "003"} {
		if _, err := service.Call(ctx, "Guichet 1", ticket); err != nil {
			t.Fatalf("call %s: %v", ticket, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	var entries []callstate.HistoryEntry
	if err := json.Unmarshal(resp.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[0].TicketNumber != "003" {
		t.Fatalf("default page = %+v, want the two latest calls", entries)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=abc", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: status = %d, want 400", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=-1", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("negative limit: status = %d, want 400", resp.Code)
	}
}

func TestRouteDispatch(t *testing.T) {
	handler, _ := newTestHandler(t)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/state/unknown", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown path: status = %d, want 404", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/state/call", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET on call route: status = %d, want 405", resp.Code)
	}
}

func TestStatsRequiresDesk(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestCloseDesk(t *testing.T) {
	handler, service := newTestHandler(t)

	if _, err := service.Call(context.Background(), "Guichet 1", "001"); err != nil {
		t.Fatalf("call: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/desks/close", strings.NewReader(`{"desk_name":"Guichet 1"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["result"] != callstateapp.CloseResultSuccess {
		t.Fatalf("result = %q, want %q", payload["result"], callstateapp.CloseResultSuccess)
	}
}

type stubAuthorizer struct {
	device devices.Device
}

func (a stubAuthorizer) Authorize(_ context.Context, token string) (devices.Device, error) {
	if token != "good-token" {
		return devices.Device{}, devices.ErrInvalidToken
	}
	return a.device, nil
}

func TestNextRequiresToken(t *testing.T) {
	_, service := newTestHandler(t)
	handler, err := NewNextHandler(service, stubAuthorizer{})
	if err != nil {
		t.Fatalf("new next handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/next", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestNextAllocatesTicket(t *testing.T) {
	_, service := newTestHandler(t)
	auth := stubAuthorizer{device: devices.Device{ID: "device-1", Name: "Guichet 3"}}
	handler, err := NewNextHandler(service, auth)
	if err != nil {
		t.Fatalf("new next handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/next", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	var state callstate.CallState
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.TicketNumber != "001" || state.CounterLabel != "Guichet 3" {
		t.Fatalf("unexpected state: %+v", state)
	}

	// Query-parameter token works for constrained firmware.
	req = httptest.NewRequest(http.MethodPost, "/next?token=good-token", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("query token: status = %d, want 200", resp.Code)
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.TicketNumber != "002" {
		t.Fatalf("second ticket = %q, want 002", state.TicketNumber)
	}
}

func TestExportContentTypes(t *testing.T) {
	_, service := newTestHandler(t)
	handler, err := NewExportHandler(service)
	if err != nil {
		t.Fatalf("new export handler: %v", err)
	}
	if _, err := service.Call(context.Background(), "Guichet 1", "001"); err != nil {
		t.Fatalf("call: %v", err)
	}

	cases := []struct {
		path        string
		contentType string
	}{
		{"/api/v1/exports/history.csv", "text/csv"},
		{"/api/v1/exports/history.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"/api/v1/exports/history.pdf", "application/pdf"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", tc.path, resp.Code)
		}
		if got := resp.Header().Get("Content-Type"); got != tc.contentType {
			t.Fatalf("%s: content type = %q, want %q", tc.path, got, tc.contentType)
		}
		if resp.Body.Len() == 0 {
			t.Fatalf("%s: empty body", tc.path)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/history.docx", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown format: status = %d, want 404", resp.Code)
	}
}

type failingHistory struct {
	err error
}

func (f failingHistory) History(context.Context, int) ([]callstate.HistoryEntry, error) {
	return nil, f.err
}

func TestExportMapsHistoryErrors(t *testing.T) {
	handler, err := NewExportHandler(failingHistory{err: callstate.ErrInvalidLimit})
	if err != nil {
		t.Fatalf("new export handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/history.csv", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("domain error: status = %d, want 400", resp.Code)
	}

	handler, err = NewExportHandler(failingHistory{err: errors.New("backend down")})
	if err != nil {
		t.Fatalf("new export handler: %v", err)
	}
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/exports/history.csv", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("unknown error: status = %d, want 500", resp.Code)
	}
}
