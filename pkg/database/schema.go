package database

import (
	"fmt"
	"log/slog"
)

// EnsureSchema creates the required tables and indexes if they do not exist.
// Column sizes mirror the employee field limits enforced at validation time.
func (cp *ConnectionPool) EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(150) UNIQUE NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			first_name VARCHAR(50) NOT NULL DEFAULT '',
			last_name VARCHAR(50) NOT NULL DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS employees (
			id SERIAL PRIMARY KEY,
			tenant_id VARCHAR(150) NOT NULL,
			first_name VARCHAR(50) NOT NULL,
			last_name VARCHAR(50) NOT NULL,
			email VARCHAR(200) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			address VARCHAR(200) NOT NULL,
			city VARCHAR(50) NOT NULL,
			state VARCHAR(50) NOT NULL,
			zipcode VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_employees_tenant ON employees (tenant_id, first_name, id)`,
		`CREATE INDEX IF NOT EXISTS idx_employees_tenant_created ON employees (tenant_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := cp.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	cp.logger.Info("database schema ensured", slog.Int("statements", len(statements)))
	return nil
}
