package grammar

import (
	"fmt"
	"strconv"

	migration "github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
)

// PostgresDialect renders PostgreSQL.
type PostgresDialect struct {
	baseDialect
}

func (PostgresDialect) Name() string { return "postgres" }

// Placeholder returns $n.
func (PostgresDialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (PostgresDialect) TypeName(t migration.ColumnType) (string, error) {
	switch t.Kind {
	case migration.KindIncrements:
		return "SERIAL", nil
	case migration.KindBigIncrements:
		return "BIGSERIAL", nil
	case migration.KindInt:
		return "INT", nil
	case migration.KindBigInt:
		return "BIGINT", nil
	case migration.KindDouble:
		return "FLOAT8", nil
	case migration.KindString:
		return fmt.Sprintf("VARCHAR(%d)", stringLength(t)), nil
	case migration.KindText:
		return "TEXT", nil
	case migration.KindUUID:
		return "UUID", nil
	case migration.KindBool:
		return "BOOL", nil
	case migration.KindDate:
		return "TIMESTAMPTZ", nil
	case migration.KindJSON:
		return "JSON", nil
	}
	return "", &UnsupportedError{Dialect: "postgres", Feature: fmt.Sprintf("column type %q", t.Kind)}
}

func (PostgresDialect) NativeILike() bool { return true }

func stringLength(t migration.ColumnType) int {
	if t.Length <= 0 {
		return migration.DefaultStringLength
	}
	return t.Length
}
