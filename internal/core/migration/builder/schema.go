package builder

import (
	"errors"
	"fmt"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	querydomain "github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// Schema collects schema changes in declaration order.
type Schema struct {
	changes []domain.SchemaChange
	errs    []error
}

// NewSchema creates an empty schema collector.
func NewSchema() *Schema {
	return &Schema{}
}

// Create declares a new table.
func (s *Schema) Create(table string, fn func(*TableBuilder)) *Schema {
	return s.collect(CreateTable(table, fn))
}

// CreateIfNotExists declares a new table guarded by IF NOT EXISTS.
func (s *Schema) CreateIfNotExists(table string, fn func(*TableBuilder)) *Schema {
	return s.collect(CreateTableIfNotExists(table, fn))
}

// Alter declares changes to an existing table.
func (s *Schema) Alter(table string, fn func(*AlterTableBuilder)) *Schema {
	return s.collect(AlterTable(table, fn))
}

// Drop drops a table.
func (s *Schema) Drop(table string) *Schema {
	s.changes = append(s.changes, domain.DropTable{Table: table})
	return s
}

// DropIfExists drops a table if it exists.
func (s *Schema) DropIfExists(table string) *Schema {
	s.changes = append(s.changes, domain.DropTable{Table: table, IfExists: true})
	return s
}

// Rename renames a table.
func (s *Schema) Rename(from, to string) *Schema {
	change := domain.RenameTable{From: from, To: to}
	if err := change.Validate(); err != nil {
		s.errs = append(s.errs, err)
		return s
	}
	s.changes = append(s.changes, change)
	return s
}

// Raw adds a verbatim statement.
func (s *Schema) Raw(statement string, binds ...querydomain.Value) *Schema {
	sql := querydomain.Raw(statement, binds...)
	if err := sql.Validate(); err != nil {
		s.errs = append(s.errs, err)
		return s
	}
	s.changes = append(s.changes, domain.RawStatement{SQL: sql})
	return s
}

// Changes returns the collected changes or every error recorded.
func (s *Schema) Changes() ([]domain.SchemaChange, error) {
	if err := errors.Join(s.errs...); err != nil {
		return nil, err
	}
	return append([]domain.SchemaChange(nil), s.changes...), nil
}

func (s *Schema) collect(change domain.SchemaChange, err error) *Schema {
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", change.Description(), err))
		return s
	}
	s.changes = append(s.changes, change)
	return s
}
