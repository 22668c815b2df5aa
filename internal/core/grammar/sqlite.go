package grammar

import (
	"fmt"
	"strconv"

	migration "github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// SQLiteDialect renders SQLite 3.35+.
type SQLiteDialect struct {
	baseDialect
}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) TypeName(t migration.ColumnType) (string, error) {
	switch t.Kind {
	case migration.KindIncrements, migration.KindBigIncrements, migration.KindInt, migration.KindBigInt:
		return "INTEGER", nil
	case migration.KindDouble:
		return "DOUBLE", nil
	case migration.KindString, migration.KindText, migration.KindUUID, migration.KindJSON:
		return "TEXT", nil
	case migration.KindBool:
		return "BOOLEAN", nil
	case migration.KindDate:
		return "DATETIME", nil
	}
	return "", &UnsupportedError{Dialect: "sqlite", Feature: fmt.Sprintf("column type %q", t.Kind)}
}

func (SQLiteDialect) AutoIncrement(t migration.ColumnType) string {
	if t.IsAutoIncrement() {
		return "PRIMARY KEY AUTOINCREMENT"
	}
	return ""
}

func (d SQLiteDialect) Literal(v domain.Value) string {
	if b, ok := v.(domain.BoolValue); ok {
		if b {
			return "1"
		}
		return "0"
	}
	return d.baseDialect.Literal(v)
}

// LimitOffset renders LIMIT -1 when only an offset is set, since SQLite
// only accepts OFFSET after LIMIT.
func (d SQLiteDialect) LimitOffset(limit, offset *int) string {
	if limit == nil && offset != nil {
		return "LIMIT -1 OFFSET " + strconv.Itoa(*offset)
	}
	return d.baseDialect.LimitOffset(limit, offset)
}

// Lock returns "" since SQLite has no row locks.
func (SQLiteDialect) Lock(domain.Lock) string { return "" }

func (SQLiteDialect) SingleAlter() bool { return true }
