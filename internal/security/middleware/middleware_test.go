package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/staffdesk/internal/security/audit"
	"github.com/yourorg/staffdesk/internal/security/auth"
	"github.com/yourorg/staffdesk/internal/security/ratelimit"
)

type stubRevoker struct {
	revoked bool
	err     error
}

func (s *stubRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	s.revoked = true
	return nil
}

func (s *stubRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.revoked, s.err
}

func authWall(revoker *stubRevoker) (http.Handler, *Identity) {
	tm := auth.NewTokenManager("test-secret", "staffdesk")
	captured := &Identity{}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetIdentityFromContext(r.Context()); id != nil {
			*captured = *id
		}
		w.WriteHeader(http.StatusOK)
	})
	return JWTMiddleware(tm, revoker, slog.Default())(inner), captured
}

func bearerToken(t *testing.T) string {
	t.Helper()
	tm := auth.NewTokenManager("test-secret", "staffdesk")
	token, err := tm.GenerateToken("alice", 1, "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestJWTMiddlewareExtractsIdentity(t *testing.T) {
	wall, captured := authWall(&stubRevoker{})

	r := httptest.NewRequest(http.MethodGet, "/employees/", nil)
	r.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	wall.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if captured.Tenant != "alice" || captured.UserID != 1 {
		t.Fatalf("unexpected identity: %+v", captured)
	}
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	wall, _ := authWall(&stubRevoker{})

	w := httptest.NewRecorder()
	wall.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/employees/", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestJWTMiddlewareRejectsGarbageToken(t *testing.T) {
	wall, _ := authWall(&stubRevoker{})

	r := httptest.NewRequest(http.MethodGet, "/employees/", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	wall.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestJWTMiddlewareRejectsRevokedToken(t *testing.T) {
	wall, _ := authWall(&stubRevoker{revoked: true})

	r := httptest.NewRequest(http.MethodGet, "/employees/", nil)
	r.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	wall.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a revoked token, got %d", w.Code)
	}
}

func TestJWTMiddlewareFailsOpenOnRevocationError(t *testing.T) {
	// A Redis outage must not lock every user out; the token itself still
	// carries a valid signature and expiry.
	wall, _ := authWall(&stubRevoker{err: errors.New("connection refused")})

	r := httptest.NewRequest(http.MethodGet, "/employees/", nil)
	r.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	wall.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected fail-open 200, got %d", w.Code)
	}
}

func TestJWTMiddlewareSkipsPublicPaths(t *testing.T) {
	wall, _ := authWall(&stubRevoker{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/register/", "/login/"} {
		w := httptest.NewRecorder()
		wall.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected public access, got %d", path, w.Code)
		}
	}
}

func TestCORSPreflightBypassesAuth(t *testing.T) {
	wall, _ := authWall(&stubRevoker{})
	chain := CORSMiddleware([]string{"http://localhost:5173"})(wall)

	// Preflights carry no Authorization header and must still be answered
	r := httptest.NewRequest(http.MethodOptions, "/employees/add/", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Fatalf("expected allowed headers on preflight response")
	}
}

func TestCORSHeadersOnAuthenticatedRequest(t *testing.T) {
	wall, _ := authWall(&stubRevoker{})
	chain := CORSMiddleware([]string{"http://localhost:5173"})(wall)

	r := httptest.NewRequest(http.MethodGet, "/employees/", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	r.Header.Set("Authorization", "Bearer "+bearerToken(t))
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected CORS headers on the actual request, got %q", got)
	}
}

func TestAuditMiddlewareRecordsMutationIDs(t *testing.T) {
	var buf bytes.Buffer
	auditLog := audit.NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	wall := AuditMiddleware(auditLog)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/employee/delete/42/", nil)
	ctx := WithIdentity(r.Context(), &Identity{Tenant: "alice", Username: "alice"})
	ctx = audit.WithRequestID(ctx, "req-123")
	wall.ServeHTTP(httptest.NewRecorder(), r.WithContext(ctx))

	entry := buf.String()
	if !strings.Contains(entry, `"resource_id":"42"`) {
		t.Fatalf("expected the deleted record id in the audit entry: %s", entry)
	}
	if !strings.Contains(entry, `"request_id":"req-123"`) {
		t.Fatalf("expected the request id in the audit entry: %s", entry)
	}
	if !strings.Contains(entry, `"action":"delete"`) {
		t.Fatalf("expected the delete action in the audit entry: %s", entry)
	}

	buf.Reset()
	r = httptest.NewRequest(http.MethodPost, "/employees/7/edit/", nil)
	wall.ServeHTTP(httptest.NewRecorder(), r.WithContext(ctx))

	entry = buf.String()
	if !strings.Contains(entry, `"resource_id":"7"`) || !strings.Contains(entry, `"action":"update"`) {
		t.Fatalf("expected the edited record id in the audit entry: %s", entry)
	}
}

func TestRateLimitMiddlewareStrictOnCredentials(t *testing.T) {
	limiter := ratelimit.NewLimiter(100, time.Minute)
	defer limiter.Stop()
	wall := RateLimitMiddleware(limiter, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last int
	for i := 0; i < loginMaxAttempts+1; i++ {
		r := httptest.NewRequest(http.MethodPost, "/login/", nil)
		r.RemoteAddr = "10.0.0.1:54321"
		w := httptest.NewRecorder()
		wall.ServeHTTP(w, r)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the credential limit, got %d", last)
	}

	// A different address still gets through
	r := httptest.NewRequest(http.MethodPost, "/login/", nil)
	r.RemoteAddr = "10.0.0.2:54321"
	w := httptest.NewRecorder()
	wall.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected a fresh address to pass, got %d", w.Code)
	}
}
