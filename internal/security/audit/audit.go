package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger emits structured audit events for every mutation of tenant data.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request id, so audit entries
// can be correlated with the request log line.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id, or "" when none was attached.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func (al *Logger) LogAction(ctx context.Context, tenantID, userID, action, resource, resourceID, status string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("request_id", RequestIDFromContext(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogEmployeeMutation(ctx context.Context, tenantID, userID, action, employeeID, status string) {
	al.LogAction(ctx, tenantID, userID, action, "employee", employeeID, status)
}

func (al *Logger) LogLogin(ctx context.Context, username, status string) {
	al.LogAction(ctx, username, "", "login", "session", "", status)
}
