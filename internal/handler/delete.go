package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/security/middleware"
	"github.com/yourorg/staffdesk/internal/service"
	"github.com/yourorg/staffdesk/pkg/cache"
)

// DeleteResult is the flag payload the calling page consumes. Deletion is
// invoked asynchronously, so the outcome is reported as a boolean rather
// than a redirect.
type DeleteResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DeleteHandler handles employee deletion requests
type DeleteHandler struct {
	employees      *service.EmployeeService
	dashboardCache *cache.Cache
	logger         *slog.Logger
}

// NewDeleteHandler creates a new delete handler
func NewDeleteHandler(employees *service.EmployeeService, dashboardCache *cache.Cache, logger *slog.Logger) *DeleteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteHandler{
		employees:      employees,
		dashboardCache: dashboardCache,
		logger:         logger,
	}
}

// ServeHTTP handles POST /employee/delete/{id}/ requests. The handler is
// registered for every verb so that a wrong method gets the structured
// failure payload instead of a bare 405 page.
func (h *DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, DeleteResult{Success: false, Error: "method not allowed"})
		return
	}

	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, DeleteResult{Success: false, Error: "unauthorized"})
		return
	}

	id, err := parseDeleteID(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, DeleteResult{Success: false, Error: "employee not found"})
		return
	}

	h.logger.Debug("delete employee request",
		slog.String("tenant_id", identity.Tenant.String()),
		slog.Int64("employee_id", id),
	)

	if err := h.employees.Delete(identity.Tenant, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Absent and foreign-tenant ids look the same; a repeat delete
			// lands here too, which keeps the operation safe to retry.
			writeJSON(w, http.StatusNotFound, DeleteResult{Success: false, Error: "employee not found"})
			return
		}
		h.logger.Error("failed to delete employee",
			slog.String("tenant_id", identity.Tenant.String()),
			slog.Int64("employee_id", id),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, DeleteResult{Success: false, Error: "failed to delete employee"})
		return
	}

	h.dashboardCache.Invalidate("dashboard:" + identity.Tenant.String())
	writeJSON(w, http.StatusOK, DeleteResult{Success: true})
}

func parseDeleteID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
