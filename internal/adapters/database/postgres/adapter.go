// Package postgres implements the PostgreSQL database adapter.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database"
)

// PostgreSQL SQLSTATE codes for integrity violations.
const (
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

// PostgresAdapter implements database.Adapter for PostgreSQL.
type PostgresAdapter struct {
	*database.Conn
	config database.Config
}

// NewPostgresAdapter creates a new PostgreSQL adapter.
func NewPostgresAdapter(config database.Config) (*PostgresAdapter, error) {
	if config.URL == "" {
		return nil, errors.New("postgres: connection url is required")
	}
	return &PostgresAdapter{
		Conn:   database.NewConn("postgres", TranslateError),
		config: config,
	}, nil
}

// Connect establishes a connection to the PostgreSQL database.
func (a *PostgresAdapter) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", a.config.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	return a.Open(ctx, db, a.config)
}

// TranslateError maps a *pq.Error to a database violation sentinel.
func TranslateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch string(pqErr.Code) {
	case codeUniqueViolation:
		return database.ErrUniqueViolation
	case codeForeignKeyViolation:
		return database.ErrForeignKeyViolation
	case codeNotNullViolation:
		return database.ErrNotNullViolation
	}
	return nil
}

var _ database.Adapter = (*PostgresAdapter)(nil)
