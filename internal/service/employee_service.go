package service

import (
	"log/slog"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
)

// EmployeeService wraps the tenant-scoped repository with form validation.
// The acting tenant is an explicit parameter on every call; nothing here
// reads identity from ambient state.
type EmployeeService struct {
	repo   domain.EmployeeRepository
	logger *slog.Logger
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(repo domain.EmployeeRepository, logger *slog.Logger) *EmployeeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeService{repo: repo, logger: logger}
}

// List returns all of the tenant's records ordered by first name.
func (s *EmployeeService) List(tenant domain.TenantID) ([]domain.Employee, error) {
	return s.repo.List(tenant)
}

// Get returns a single record, or domain.ErrNotFound for absent and
// foreign-tenant ids alike.
func (s *EmployeeService) Get(tenant domain.TenantID, id int64) (*domain.Employee, error) {
	return s.repo.GetByID(tenant, id)
}

// Create validates the submitted form and inserts a record stamped with the
// acting tenant. A validation failure returns *ValidationError and leaves
// the store untouched.
func (s *EmployeeService) Create(tenant domain.TenantID, form map[string]string) (*domain.Employee, error) {
	in, fieldErrs := ValidateEmployeeForm(form)
	if fieldErrs != nil {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	e, err := s.repo.Create(tenant, in)
	if err != nil {
		metrics.ObserveEmployeeOperation("create", "error")
		return nil, err
	}

	metrics.ObserveEmployeeOperation("create", "success")
	s.logger.Info("employee created",
		slog.String("tenant_id", tenant.String()),
		slog.Int64("employee_id", e.ID),
	)
	return e, nil
}

// Update validates the submitted form and replaces the mutable fields of an
// existing record. Identity fields and the creation timestamp survive the
// edit regardless of what the form claims.
func (s *EmployeeService) Update(tenant domain.TenantID, id int64, form map[string]string) (*domain.Employee, error) {
	in, fieldErrs := ValidateEmployeeForm(form)
	if fieldErrs != nil {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	e, err := s.repo.Update(tenant, id, in)
	if err != nil {
		if err != domain.ErrNotFound {
			metrics.ObserveEmployeeOperation("update", "error")
		}
		return nil, err
	}

	metrics.ObserveEmployeeOperation("update", "success")
	s.logger.Info("employee updated",
		slog.String("tenant_id", tenant.String()),
		slog.Int64("employee_id", id),
	)
	return e, nil
}

// Delete hard-deletes a record. Deleting an absent or foreign id surfaces
// domain.ErrNotFound, which the handler reports as a flag, not a fault, so
// the operation stays idempotent from the caller's perspective.
func (s *EmployeeService) Delete(tenant domain.TenantID, id int64) error {
	if err := s.repo.Delete(tenant, id); err != nil {
		if err != domain.ErrNotFound {
			metrics.ObserveEmployeeOperation("delete", "error")
		}
		return err
	}

	metrics.ObserveEmployeeOperation("delete", "success")
	s.logger.Info("employee deleted",
		slog.String("tenant_id", tenant.String()),
		slog.Int64("employee_id", id),
	)
	return nil
}
