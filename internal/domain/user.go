package domain

import "time"

// User represents an account. The username doubles as the tenant identifier
// for every employee record the user owns.
type User struct {
	ID           int64
	Username     string // Unique, immutable; the tenant identifier
	Email        string // Unique email address
	FirstName    string
	LastName     string
	PasswordHash string // Bcrypt hash, never returned in API responses
	CreatedAt    time.Time
}

// Tenant returns the tenant identifier derived from the account.
func (u *User) Tenant() TenantID {
	return TenantID(u.Username)
}

// UserRepository defines data access for accounts
type UserRepository interface {
	Create(user *User) error
	GetByUsername(username string) (*User, error)
	GetByEmail(email string) (*User, error)
}
