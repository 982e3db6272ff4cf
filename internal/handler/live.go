package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/staffdesk/internal/dashboard"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
	"github.com/yourorg/staffdesk/internal/security/middleware"
	"github.com/yourorg/staffdesk/internal/service"
)

// LiveDashboardHandler streams recomputed dashboard metrics over a
// websocket so the dashboard page can refresh without polling. Only the
// connected tenant's metrics are ever pushed on a connection.
type LiveDashboardHandler struct {
	employees      *service.EmployeeService
	timezone       *time.Location
	interval       time.Duration
	logger         *slog.Logger
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewLiveDashboardHandler creates a new live dashboard handler
func NewLiveDashboardHandler(
	employees *service.EmployeeService,
	timezone *time.Location,
	interval time.Duration,
	allowedOrigins []string,
	logger *slog.Logger,
) *LiveDashboardHandler {
	if timezone == nil {
		timezone = time.UTC
	}
	h := &LiveDashboardHandler{
		employees:      employees,
		timezone:       timezone,
		interval:       interval,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP handles GET /ws/dashboard requests
func (h *LiveDashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	log := h.logger.With(slog.String("tenant_id", identity.Tenant.String()))
	log.Debug("live dashboard stream opened")

	// Reader goroutine: its only job is to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.push(conn, identity); err != nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Debug("live dashboard stream closed by client")
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := h.push(conn, identity); err != nil {
				log.Debug("live dashboard push failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (h *LiveDashboardHandler) push(conn *websocket.Conn, identity *middleware.Identity) error {
	employees, err := h.employees.List(identity.Tenant)
	if err != nil {
		return err
	}

	start := time.Now()
	m := dashboard.Compute(employees, time.Now().In(h.timezone))
	metrics.ObserveDashboardCompute("live", time.Since(start))

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(m)
}

func (h *LiveDashboardHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
