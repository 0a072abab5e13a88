package postgres

import (
	"context"
	"database/sql"
)

// Client represents a PostgreSQL client interface for testing and abstraction
type Client interface {
	// Connect establishes a connection to the PostgreSQL database
	Connect(ctx context.Context) error

	// Disconnect closes the connection to the PostgreSQL database
	Disconnect() error

	// Exec executes a statement without returning any rows
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// QueryRowScan runs a single-row query and scans it into dest.
	// A query matching no row returns sql.ErrNoRows.
	QueryRowScan(ctx context.Context, query string, args []interface{}, dest ...interface{}) error

	// Ping tests the database connection
	Ping(ctx context.Context) error

	// HealthCheck performs a health check on the database connection
	HealthCheck(ctx context.Context) (*HealthStatus, error)
}
