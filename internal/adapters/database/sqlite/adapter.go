// Package sqlite implements the SQLite database adapter.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database"
)

// SQLiteAdapter implements database.Adapter for SQLite.
type SQLiteAdapter struct {
	*database.Conn
	config database.Config
}

// NewSQLiteAdapter creates a new SQLite adapter. The URL is a file path, a
// file: URI, ":memory:" or any of those behind a sqlite:// scheme.
func NewSQLiteAdapter(config database.Config) (*SQLiteAdapter, error) {
	if config.URL == "" {
		return nil, errors.New("sqlite: database path is required")
	}
	// SQLite serializes writers; one connection also keeps :memory: databases
	// alive across statements.
	config.MaxConnections = 1
	return &SQLiteAdapter{
		Conn:   database.NewConn("sqlite", TranslateError),
		config: config,
	}, nil
}

// Connect opens the database with foreign key enforcement enabled.
func (a *SQLiteAdapter) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite3", DSN(a.config.URL))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	return a.Open(ctx, db, a.config)
}

// DSN strips any sqlite:// scheme from raw and turns on foreign keys.
func DSN(raw string) string {
	for _, scheme := range []string{"sqlite3://", "sqlite://"} {
		raw = strings.TrimPrefix(raw, scheme)
	}
	if strings.Contains(raw, "_foreign_keys=") || strings.Contains(raw, "_fk=") {
		return raw
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "_foreign_keys=on"
}

// TranslateError maps a sqlite3.Error to a database violation sentinel.
func TranslateError(err error) error {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return nil
	}
	switch liteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return database.ErrUniqueViolation
	case sqlite3.ErrConstraintForeignKey:
		return database.ErrForeignKeyViolation
	case sqlite3.ErrConstraintNotNull:
		return database.ErrNotNullViolation
	}
	return nil
}

var _ database.Adapter = (*SQLiteAdapter)(nil)
