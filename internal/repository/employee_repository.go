package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/staffdesk/internal/domain"
)

// PostgresEmployeeRepository implements domain.EmployeeRepository using
// PostgreSQL. Every query carries the tenant predicate; the scoping lives
// here, not in the handlers, so a forgotten filter cannot leak rows.
type PostgresEmployeeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresEmployeeRepository creates a new employee repository
func NewPostgresEmployeeRepository(db *sql.DB, logger *slog.Logger) *PostgresEmployeeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresEmployeeRepository{db: db, logger: logger}
}

const employeeColumns = `id, tenant_id, first_name, last_name, email, phone, address, city, state, zipcode, created_at`

// Create inserts a new record for the tenant. The tenant id is stamped from
// the parameter; id and created_at come back from the database.
func (r *PostgresEmployeeRepository) Create(tenant domain.TenantID, in domain.EmployeeInput) (*domain.Employee, error) {
	e := &domain.Employee{
		TenantID:  tenant,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		City:      in.City,
		State:     in.State,
		Zipcode:   in.Zipcode,
	}

	query := `
		INSERT INTO employees (tenant_id, first_name, last_name, email, phone, address, city, state, zipcode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(
		query,
		tenant.String(),
		in.FirstName,
		in.LastName,
		in.Email,
		in.Phone,
		in.Address,
		in.City,
		in.State,
		in.Zipcode,
	).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create employee",
			slog.String("tenant_id", tenant.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}

	return e, nil
}

// GetByID retrieves one of the tenant's records. An id owned by another
// tenant is indistinguishable from an absent one.
func (r *PostgresEmployeeRepository) GetByID(tenant domain.TenantID, id int64) (*domain.Employee, error) {
	e := &domain.Employee{}

	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE tenant_id = $1 AND id = $2
	`
	err := r.db.QueryRow(query, tenant.String(), id).Scan(
		&e.ID, &e.TenantID, &e.FirstName, &e.LastName, &e.Email,
		&e.Phone, &e.Address, &e.City, &e.State, &e.Zipcode, &e.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get employee",
			slog.String("tenant_id", tenant.String()),
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return e, nil
}

// List returns all of the tenant's records ordered by first name ascending,
// ties broken by id ascending to keep the order stable.
func (r *PostgresEmployeeRepository) List(tenant domain.TenantID) ([]domain.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE tenant_id = $1
		ORDER BY first_name ASC, id ASC
	`
	rows, err := r.db.Query(query, tenant.String())
	if err != nil {
		r.logger.Error("failed to list employees",
			slog.String("tenant_id", tenant.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var out []domain.Employee
	for rows.Next() {
		var e domain.Employee
		err := rows.Scan(
			&e.ID, &e.TenantID, &e.FirstName, &e.LastName, &e.Email,
			&e.Phone, &e.Address, &e.City, &e.State, &e.Zipcode, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update replaces the mutable fields of an existing record. The SET list
// deliberately excludes id, tenant_id and created_at.
func (r *PostgresEmployeeRepository) Update(tenant domain.TenantID, id int64, in domain.EmployeeInput) (*domain.Employee, error) {
	e := &domain.Employee{
		ID:        id,
		TenantID:  tenant,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		City:      in.City,
		State:     in.State,
		Zipcode:   in.Zipcode,
	}

	query := `
		UPDATE employees
		SET first_name = $1, last_name = $2, email = $3, phone = $4,
		    address = $5, city = $6, state = $7, zipcode = $8
		WHERE tenant_id = $9 AND id = $10
		RETURNING created_at
	`
	err := r.db.QueryRow(
		query,
		in.FirstName, in.LastName, in.Email, in.Phone,
		in.Address, in.City, in.State, in.Zipcode,
		tenant.String(), id,
	).Scan(&e.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to update employee",
			slog.String("tenant_id", tenant.String()),
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}

	return e, nil
}

// Delete hard-deletes the record. Zero affected rows means the id did not
// exist for this tenant, reported as ErrNotFound.
func (r *PostgresEmployeeRepository) Delete(tenant domain.TenantID, id int64) error {
	result, err := r.db.Exec(
		`DELETE FROM employees WHERE tenant_id = $1 AND id = $2`,
		tenant.String(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// CountAll returns the total number of records across all tenants.
func (r *PostgresEmployeeRepository) CountAll() (int64, error) {
	var n int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM employees`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}
