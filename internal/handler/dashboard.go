package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/staffdesk/internal/dashboard"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
	"github.com/yourorg/staffdesk/internal/security/middleware"
	"github.com/yourorg/staffdesk/internal/service"
	"github.com/yourorg/staffdesk/pkg/cache"
)

// DashboardHandler serves GET / with the tenant's aggregated metrics.
type DashboardHandler struct {
	employees      *service.EmployeeService
	dashboardCache *cache.Cache
	cacheTTL       time.Duration
	timezone       *time.Location
	logger         *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	employees *service.EmployeeService,
	dashboardCache *cache.Cache,
	cacheTTL time.Duration,
	timezone *time.Location,
	logger *slog.Logger,
) *DashboardHandler {
	if timezone == nil {
		timezone = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		employees:      employees,
		dashboardCache: dashboardCache,
		cacheTTL:       cacheTTL,
		timezone:       timezone,
		logger:         logger,
	}
}

// ServeHTTP handles GET / requests
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	cacheKey := "dashboard:" + identity.Tenant.String()
	if cached, ok := h.dashboardCache.Get(cacheKey); ok {
		if m, ok := cached.(dashboard.Metrics); ok {
			writeJSON(w, http.StatusOK, m)
			return
		}
	}

	m, err := h.compute(identity)
	if err != nil {
		h.logger.Error("failed to compute dashboard",
			slog.String("tenant_id", identity.Tenant.String()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to load dashboard"})
		return
	}

	h.dashboardCache.Set(cacheKey, m, h.cacheTTL)
	writeJSON(w, http.StatusOK, m)
}

// compute loads the tenant's records and runs one aggregation pass with now
// resolved into the configured timezone.
func (h *DashboardHandler) compute(identity *middleware.Identity) (dashboard.Metrics, error) {
	employees, err := h.employees.List(identity.Tenant)
	if err != nil {
		return dashboard.Metrics{}, err
	}

	start := time.Now()
	m := dashboard.Compute(employees, time.Now().In(h.timezone))
	metrics.ObserveDashboardCompute("request", time.Since(start))
	return m, nil
}
