package grammar

import (
	"fmt"
	"strconv"

	migration "github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// mysqlMaxLimit is the largest LIMIT MySQL accepts; it stands in for "no
// limit" when only an offset is given.
const mysqlMaxLimit = "18446744073709551615"

// MySQLDialect renders MySQL 8.
type MySQLDialect struct {
	baseDialect
}

func (MySQLDialect) Name() string { return "mysql" }

func (MySQLDialect) TypeName(t migration.ColumnType) (string, error) {
	switch t.Kind {
	case migration.KindIncrements, migration.KindInt:
		return "INT", nil
	case migration.KindBigIncrements, migration.KindBigInt:
		return "BIGINT", nil
	case migration.KindDouble:
		return "DOUBLE", nil
	case migration.KindString:
		return fmt.Sprintf("VARCHAR(%d)", stringLength(t)), nil
	case migration.KindText:
		return "TEXT", nil
	case migration.KindUUID:
		return "VARCHAR(36)", nil
	case migration.KindBool:
		return "BOOLEAN", nil
	case migration.KindDate:
		return "DATETIME", nil
	case migration.KindJSON:
		return "JSON", nil
	}
	return "", &UnsupportedError{Dialect: "mysql", Feature: fmt.Sprintf("column type %q", t.Kind)}
}

func (MySQLDialect) AutoIncrement(t migration.ColumnType) string {
	if t.IsAutoIncrement() {
		return "AUTO_INCREMENT"
	}
	return ""
}

func (d MySQLDialect) LimitOffset(limit, offset *int) string {
	if limit == nil && offset != nil {
		return "LIMIT " + mysqlMaxLimit + " OFFSET " + strconv.Itoa(*offset)
	}
	return d.baseDialect.LimitOffset(limit, offset)
}

func (MySQLDialect) DropIndex(table, index string) string {
	return "DROP INDEX " + index + " ON " + table
}

func (MySQLDialect) RenameTable(from, to string) string {
	return "RENAME TABLE " + from + " TO " + to
}

func (MySQLDialect) SupportsReturning() bool { return false }
func (MySQLDialect) SupportsUnsigned() bool  { return true }
func (MySQLDialect) TransactionalDDL() bool  { return false }

func (MySQLDialect) SupportsJoin(t domain.JoinType) bool {
	return t != domain.FullJoin
}
