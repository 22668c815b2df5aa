// Package grammar compiles query and schema ASTs into dialect specific SQL.
package grammar

import (
	"fmt"
	"strconv"
	"strings"

	migration "github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// Dialect supplies the phrasing a Grammar needs for one database family.
type Dialect interface {
	// Name returns the canonical dialect name.
	Name() string

	// Placeholder returns the bind marker for the n-th bind, starting at 1.
	Placeholder(n int) string

	// TypeName returns the column type keyword.
	TypeName(t migration.ColumnType) (string, error)

	// AutoIncrement returns the clause following the type of an
	// auto-incrementing column.
	AutoIncrement(t migration.ColumnType) string

	// Literal renders a value inline, for column defaults.
	Literal(v domain.Value) string

	// LimitOffset renders the LIMIT/OFFSET section.
	LimitOffset(limit, offset *int) string

	// Lock renders a row lock, or "" when locks are ignored.
	Lock(lock domain.Lock) string

	// DropIndex renders a DROP INDEX statement.
	DropIndex(table, index string) string

	// RenameTable renders a table rename.
	RenameTable(from, to string) string

	SupportsReturning() bool
	SupportsUnsigned() bool
	SupportsJoin(t domain.JoinType) bool
	NativeILike() bool

	// SingleAlter reports whether each ADD/DROP needs its own ALTER TABLE.
	SingleAlter() bool

	// TransactionalDDL reports whether DDL can be rolled back. MySQL commits
	// implicitly before and after each DDL statement.
	TransactionalDDL() bool
}

// Grammar renders ASTs for one Dialect. It holds no mutable state and is
// safe to share.
type Grammar struct {
	dialect Dialect
}

// New creates a grammar for d.
func New(d Dialect) *Grammar {
	return &Grammar{dialect: d}
}

// Postgres returns the PostgreSQL grammar.
func Postgres() *Grammar { return New(PostgresDialect{}) }

// MySQL returns the MySQL grammar.
func MySQL() *Grammar { return New(MySQLDialect{}) }

// SQLite returns the SQLite grammar.
func SQLite() *Grammar { return New(SQLiteDialect{}) }

// ForDialect returns the grammar registered under name.
func ForDialect(name string) (*Grammar, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres(), nil
	case "mysql", "mariadb":
		return MySQL(), nil
	case "sqlite", "sqlite3":
		return SQLite(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", name)
	}
}

// Dialect returns the dialect strategy.
func (g *Grammar) Dialect() Dialect {
	return g.dialect
}

// Name returns the dialect name.
func (g *Grammar) Name() string {
	return g.dialect.Name()
}

// Position rewrites the neutral placeholders of sql into the dialect's.
func (g *Grammar) Position(sql domain.SQL) domain.SQL {
	return positionBinds(sql, g.dialect.Placeholder)
}

func (g *Grammar) unsupported(feature string) error {
	return &UnsupportedError{Dialect: g.dialect.Name(), Feature: feature}
}

// baseDialect holds the phrasing shared by most dialects. Concrete dialects
// embed it and override what differs.
type baseDialect struct{}

func (baseDialect) Placeholder(int) string { return "?" }

func (baseDialect) AutoIncrement(migration.ColumnType) string { return "" }

func (baseDialect) Literal(v domain.Value) string {
	switch val := v.(type) {
	case domain.NullValue:
		return "NULL"
	case domain.IntValue:
		return strconv.FormatInt(int64(val), 10)
	case domain.DoubleValue:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case domain.BoolValue:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case domain.StringValue:
		return quote(string(val))
	case domain.DateValue:
		return quote(val.Time.UTC().Format(literalTimeLayout))
	case domain.JSONValue:
		return quote(string(val))
	case domain.UUIDValue:
		return quote(val.String())
	default:
		return quote(fmt.Sprint(v))
	}
}

func (baseDialect) LimitOffset(limit, offset *int) string {
	var parts []string
	if limit != nil {
		parts = append(parts, "LIMIT "+strconv.Itoa(*limit))
	}
	if offset != nil {
		parts = append(parts, "OFFSET "+strconv.Itoa(*offset))
	}
	return strings.Join(parts, " ")
}

func (baseDialect) Lock(lock domain.Lock) string {
	s := "FOR " + string(lock.Strength)
	if lock.Option != domain.LockWait {
		s += " " + string(lock.Option)
	}
	return s
}

func (baseDialect) DropIndex(_, index string) string {
	return "DROP INDEX " + index
}

func (baseDialect) RenameTable(from, to string) string {
	return "ALTER TABLE " + from + " RENAME TO " + to
}

func (baseDialect) SupportsReturning() bool           { return true }
func (baseDialect) SupportsUnsigned() bool            { return false }
func (baseDialect) SupportsJoin(domain.JoinType) bool { return true }
func (baseDialect) NativeILike() bool                 { return false }
func (baseDialect) SingleAlter() bool                 { return false }
func (baseDialect) TransactionalDDL() bool            { return true }

// literalTimeLayout keeps fractional seconds and drops trailing zeros.
const literalTimeLayout = "2006-01-02 15:04:05.999999999"

// quote renders s as a string literal. "?" is doubled because inline
// literals pass through positionBinds with the rest of the statement.
func quote(s string) string {
	s = strings.ReplaceAll(s, "'", "''")
	s = strings.ReplaceAll(s, "?", "??")
	return "'" + s + "'"
}
