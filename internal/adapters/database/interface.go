// Package database defines database adapter interfaces and the shared
// database/sql plumbing used by the per-driver adapters.
package database

import (
	"context"
	"database/sql"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// Rows is the subset of *sql.Rows the core reads from.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Queryer runs compiled statements.
type Queryer interface {
	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, stmt domain.SQL) (sql.Result, error)

	// Query executes a statement that returns rows.
	Query(ctx context.Context, stmt domain.SQL) (Rows, error)
}

// Adapter defines the database adapter interface.
type Adapter interface {
	Queryer

	// Connect establishes a database connection.
	Connect(ctx context.Context) error

	// Disconnect closes the database connection.
	Disconnect(ctx context.Context) error

	// Begin starts a transaction.
	Begin(ctx context.Context) (Transaction, error)

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Dialect returns the dialect name the adapter speaks.
	Dialect() string
}

// Transaction defines the transaction interface.
type Transaction interface {
	Queryer

	// Commit commits the transaction.
	Commit() error

	// Rollback rolls back the transaction.
	Rollback() error
}

// Config holds database connection configuration.
type Config struct {
	Dialect            string
	URL                string
	MaxConnections     int
	MaxIdleTime        int // seconds
	ConnectTimeout     int // seconds
	StatementCacheSize int
}
