package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist for the acting tenant.
// A record owned by another tenant is reported with the same error so that
// its existence never leaks across tenant boundaries.
var ErrNotFound = errors.New("record not found")

// TenantID identifies the partition of employee records owned by one user.
// It is the username of the authenticated account.
type TenantID string

func (t TenantID) String() string { return string(t) }

// Maximum field lengths enforced on employee input
const (
	MaxNameLen    = 50
	MaxCityLen    = 50
	MaxStateLen   = 50
	MaxPhoneLen   = 20
	MaxZipcodeLen = 20
	MaxEmailLen   = 200
	MaxAddressLen = 200
)

// Employee represents one employee record belonging to exactly one tenant.
// TenantID and CreatedAt are set at creation and never change afterwards.
type Employee struct {
	ID        int64     `json:"id"`
	TenantID  TenantID  `json:"-"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zipcode   string    `json:"zipcode"`
	CreatedAt time.Time `json:"createdAt"`
}

// EmployeeInput carries the mutable attributes of an employee. The tenant
// and timestamps are deliberately absent: they are stamped by the store from
// the acting identity and can never come from a request body.
type EmployeeInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	Zipcode   string
}

// EmployeeRepository defines tenant-scoped data access for employees.
// Every method applies a tenant predicate; there is no way to reach another
// tenant's rows through this interface.
type EmployeeRepository interface {
	// Create inserts a new record for the tenant and fills ID and CreatedAt.
	Create(tenant TenantID, in EmployeeInput) (*Employee, error)
	// GetByID returns the record, or ErrNotFound for absent or foreign ids.
	GetByID(tenant TenantID, id int64) (*Employee, error)
	// List returns all of the tenant's records ordered by first name
	// ascending, ties broken by id ascending.
	List(tenant TenantID) ([]Employee, error)
	// Update replaces the mutable attributes of an existing record.
	// ID, tenant and CreatedAt are preserved. Returns ErrNotFound when the
	// id does not exist for the tenant.
	Update(tenant TenantID, id int64, in EmployeeInput) (*Employee, error)
	// Delete hard-deletes the record. Returns ErrNotFound when nothing was
	// deleted, which callers report as a not-found flag rather than a fault.
	Delete(tenant TenantID, id int64) error
	// CountAll returns the number of records across all tenants, for the
	// stats gauge only.
	CountAll() (int64, error)
}
