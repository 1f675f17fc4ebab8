package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newWrappedHandler(t *testing.T) http.Handler {
	t.Helper()
	policy := NewDefaultPolicy([]string{"/healthz", "/metrics", "/events", "/next"}, nil)
	middleware := NewMiddleware(testSecret, policy)
	return middleware.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestExemptPathsSkipAuth(t *testing.T) {
	handler := newWrappedHandler(t)
	for _, path := range []string{"/healthz", "/metrics", "/events", "/next"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", path, resp.Code)
		}
	}
}

func TestMissingTokenRejected(t *testing.T) {
	handler := newWrappedHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	handler := newWrappedHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "admin", -time.Minute))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestRoleEnforcement(t *testing.T) {
	handler := newWrappedHandler(t)

	cases := []struct {
		name   string
		method string
		path   string
		role   string
		want   int
	}{
		{"viewer reads state", http.MethodGet, "/api/v1/state", "viewer", http.StatusOK},
		{"viewer cannot call", http.MethodPost, "/api/v1/state/call", "viewer", http.StatusForbidden},
		{"operator calls", http.MethodPost, "/api/v1/state/call", "operator", http.StatusOK},
		{"operator cannot manage devices", http.MethodPost, "/api/v1/devices", "operator", http.StatusForbidden},
		{"admin manages devices", http.MethodPost, "/api/v1/devices", "admin", http.StatusOK},
		{"viewer lists devices", http.MethodGet, "/api/v1/devices", "viewer", http.StatusOK},
		{"operator manages announcements", http.MethodPost, "/api/v1/annonces", "operator", http.StatusOK},
		{"viewer downloads exports", http.MethodGet, "/api/v1/exports/history.csv", "viewer", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, tc.role, time.Hour))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, resp.Code, tc.want)
		}
	}
}

func TestInvalidRoleClaimRejected(t *testing.T) {
	handler := newWrappedHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "superuser", time.Hour))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}
