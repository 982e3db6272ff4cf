package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/security/audit"
	"github.com/yourorg/staffdesk/internal/security/auth"
	"github.com/yourorg/staffdesk/internal/security/ratelimit"
)

// Identity is the authenticated caller. It is carried explicitly through the
// request context and passed as a parameter into every service call, so the
// tenant scope is visible at each call site instead of being ambient state.
type Identity struct {
	Tenant   domain.TenantID
	UserID   int64
	Username string
	Email    string
}

type identityContextKey struct{}

// Limits applied on credential endpoints, keyed by client address.
const (
	loginMaxAttempts = 10
	loginWindow      = time.Minute
)

// publicPath reports whether a route is reachable without a session.
func publicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/register/", "/login/":
		return true
	}
	return false
}

// JWTMiddleware authenticates every tenant-scoped request. Missing, invalid,
// expired and revoked tokens are all rejected with the same 401 payload.
func JWTMiddleware(tm *auth.TokenManager, revoker domain.TokenRevoker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				unauthorized(w)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				unauthorized(w)
				return
			}

			if revoker != nil {
				revoked, err := revoker.IsRevoked(r.Context(), tokenString)
				if err != nil {
					log.Warn("revocation check failed, accepting token",
						slog.String("error", err.Error()),
					)
				} else if revoked {
					unauthorized(w)
					return
				}
			}

			identity := &Identity{
				Tenant:   domain.TenantID(claims.Username),
				UserID:   claims.UserID,
				Username: claims.Username,
				Email:    claims.Email,
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware applies per-tenant limits on authenticated routes and
// a stricter per-address limit on the credential endpoints.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && (r.URL.Path == "/login/" || r.URL.Path == "/register/") {
				if !limiter.AllowStrict(clientAddr(r), loginMaxAttempts, loginWindow) {
					log.Warn("credential endpoint rate limited", slog.String("addr", clientAddr(r)))
					http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			tenant := ""
			if id := GetIdentityFromContext(r.Context()); id != nil {
				tenant = id.Tenant.String()
			}

			if !limiter.Allow(tenant) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records initiation of every employee mutation.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				tenantID := ""
				userID := ""
				if id := GetIdentityFromContext(r.Context()); id != nil {
					tenantID = id.Tenant.String()
					userID = id.Username
				}

				// The middleware runs before the mux has matched a pattern, so
				// the record id is carved out of the raw path instead of
				// r.PathValue.
				switch {
				case r.URL.Path == "/employees/add/":
					auditLog.LogEmployeeMutation(r.Context(), tenantID, userID, "create", "", "initiated")
				case strings.HasPrefix(r.URL.Path, "/employees/") && strings.HasSuffix(r.URL.Path, "/edit/"):
					id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/employees/"), "/edit/")
					auditLog.LogEmployeeMutation(r.Context(), tenantID, userID, "update", id, "initiated")
				case strings.HasPrefix(r.URL.Path, "/employee/delete/"):
					id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/employee/delete/"), "/")
					auditLog.LogEmployeeMutation(r.Context(), tenantID, userID, "delete", id, "initiated")
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware answers browser preflights and stamps the CORS headers. It
// must sit outside the authentication wall: an OPTIONS preflight carries no
// Authorization header, so it is answered here before any auth check runs.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowedOrigins) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigins[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// GetIdentityFromContext returns the authenticated identity, or nil on
// unauthenticated requests.
func GetIdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityContextKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// WithIdentity returns a context carrying the identity. Used by tests and
// the websocket upgrade path.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
