package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/security/middleware"
	"github.com/yourorg/staffdesk/internal/service"
	"github.com/yourorg/staffdesk/pkg/cache"
)

// EmployeesHandler serves the tenant-scoped employee CRUD endpoints.
type EmployeesHandler struct {
	employees      *service.EmployeeService
	dashboardCache *cache.Cache
	logger         *slog.Logger
}

// NewEmployeesHandler creates a new employees handler
func NewEmployeesHandler(employees *service.EmployeeService, dashboardCache *cache.Cache, logger *slog.Logger) *EmployeesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeesHandler{
		employees:      employees,
		dashboardCache: dashboardCache,
		logger:         logger,
	}
}

// List handles GET /employees/
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	employees, err := h.employees.List(identity.Tenant)
	if err != nil {
		h.logger.Error("failed to list employees",
			slog.String("tenant_id", identity.Tenant.String()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list employees"})
		return
	}

	if employees == nil {
		employees = []domain.Employee{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"employees": employees})
}

// Detail handles GET /employees/{id}/
func (h *EmployeesHandler) Detail(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	employee, err := h.employees.Get(identity.Tenant, id)
	if err != nil {
		h.respondGetError(w, identity, id, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"employee": employee})
}

// AddForm handles GET /employees/add/
func (h *EmployeesHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": service.EmployeeFormSchema})
}

// Create handles POST /employees/add/. The tenant is stamped from the
// authenticated identity; a tenant_id in the body is ignored.
func (h *EmployeesHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	form, ok := decodeForm(w, r, h.logger)
	if !ok {
		return
	}

	employee, err := h.employees.Create(identity.Tenant, form)
	if err != nil {
		h.respondMutationError(w, identity, err)
		return
	}

	h.dashboardCache.Invalidate("dashboard:" + identity.Tenant.String())
	writeJSON(w, http.StatusCreated, map[string]interface{}{"employee": employee})
}

// EditForm handles GET /employees/{id}/edit/: the current values plus the
// field schema for the rendering collaborator.
func (h *EmployeesHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	employee, err := h.employees.Get(identity.Tenant, id)
	if err != nil {
		h.respondGetError(w, identity, id, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"employee": employee,
		"fields":   service.EmployeeFormSchema,
	})
}

// Edit handles POST /employees/{id}/edit/. Only the mutable fields change;
// id, tenant and creation time survive whatever the form submits.
func (h *EmployeesHandler) Edit(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	form, ok := decodeForm(w, r, h.logger)
	if !ok {
		return
	}

	employee, err := h.employees.Update(identity.Tenant, id, form)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "employee not found"})
			return
		}
		h.respondMutationError(w, identity, err)
		return
	}

	h.dashboardCache.Invalidate("dashboard:" + identity.Tenant.String())
	writeJSON(w, http.StatusOK, map[string]interface{}{"employee": employee})
}

func (h *EmployeesHandler) respondGetError(w http.ResponseWriter, identity *middleware.Identity, id int64, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		// Absent and foreign-tenant ids produce the same response.
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "employee not found"})
		return
	}
	h.logger.Error("failed to get employee",
		slog.String("tenant_id", identity.Tenant.String()),
		slog.Int64("employee_id", id),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to get employee"})
}

func (h *EmployeesHandler) respondMutationError(w http.ResponseWriter, identity *middleware.Identity, err error) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		// Re-render the form: field messages plus the schema, no mutation.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": vErr.Fields,
			"fields": service.EmployeeFormSchema,
		})
		return
	}
	h.logger.Error("employee mutation failed",
		slog.String("tenant_id", identity.Tenant.String()),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to save employee"})
}

// decodeForm reads the submitted JSON form into a flat field map. Unknown
// keys survive decoding but the validator never reads them.
func decodeForm(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (map[string]string, bool) {
	var form map[string]string
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		logger.Warn("failed to decode employee form", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return nil, false
	}
	return form, true
}

func employeeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "employee not found"})
		return 0, false
	}
	return id, true
}
