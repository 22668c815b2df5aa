// Package domain contains the core business entities for the Migration domain:
// column definitions, schema changes and the migration aggregate.
package domain

import (
	"errors"
	"fmt"
	"strings"

	querydomain "github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// ChangeType names the kind of a schema change.
type ChangeType string

const (
	// CreateTableChange creates a new table.
	CreateTableChange ChangeType = "CreateTable"
	// AlterTableChange alters an existing table.
	AlterTableChange ChangeType = "AlterTable"
	// DropTableChange drops a table.
	DropTableChange ChangeType = "DropTable"
	// RenameTableChange renames a table.
	RenameTableChange ChangeType = "RenameTable"
	// RawChange runs a verbatim statement.
	RawChange ChangeType = "Raw"
)

// SchemaChange is a single schema operation.
type SchemaChange interface {
	// Type returns the type of change.
	Type() ChangeType

	// Description returns a human-readable description.
	Description() string

	// IsDestructive returns true if the change may cause data loss.
	IsDestructive() bool

	isSchemaChange()
}

// CreateIndex is an index over one or more columns. Its name is always
// derived with IndexName.
type CreateIndex struct {
	Columns  []string
	IsUnique bool
}

// Name returns the deterministic index name for table.
func (i CreateIndex) Name(table string) string {
	return IndexName(table, i.Columns, i.IsUnique)
}

// IndexName returns table_col1_col2_key for unique indexes and
// table_col1_col2_idx otherwise.
func IndexName(table string, columns []string, unique bool) string {
	suffix := "idx"
	if unique {
		suffix = "key"
	}
	parts := make([]string, 0, len(columns)+2)
	parts = append(parts, table)
	parts = append(parts, columns...)
	parts = append(parts, suffix)
	return strings.Join(parts, "_")
}

// Rename renames a column.
type Rename struct {
	From string
	To   string
}

// TableDiff lists the changes of an ALTER TABLE.
type TableDiff struct {
	AddColumns    []CreateColumn
	DropColumns   []string
	RenameColumns []Rename
	AddIndexes    []CreateIndex
	DropIndexes   []string
}

// IsEmpty reports whether the diff changes nothing.
func (d TableDiff) IsEmpty() bool {
	return len(d.AddColumns) == 0 && len(d.DropColumns) == 0 && len(d.RenameColumns) == 0 &&
		len(d.AddIndexes) == 0 && len(d.DropIndexes) == 0
}

// Validate rejects contradictory diffs.
func (d TableDiff) Validate(table string) error {
	var errs []error
	if table == "" {
		errs = append(errs, fmt.Errorf("%w: table name is required", ErrInvalidSchema))
	}

	added := make(map[string]bool, len(d.AddColumns))
	for _, col := range d.AddColumns {
		if err := validateColumn(table, col); err != nil {
			errs = append(errs, err)
		}
		if added[col.Name] {
			errs = append(errs, fmt.Errorf("%w: %s: column %q added twice", ErrInvalidSchema, table, col.Name))
		}
		added[col.Name] = true
	}

	dropped := make(map[string]bool, len(d.DropColumns))
	for _, name := range d.DropColumns {
		if added[name] {
			errs = append(errs, fmt.Errorf("%w: %s: column %q is both added and dropped", ErrInvalidSchema, table, name))
		}
		dropped[name] = true
	}

	for _, r := range d.RenameColumns {
		if r.From == "" || r.To == "" {
			errs = append(errs, fmt.Errorf("%w: %s: rename needs both names", ErrInvalidSchema, table))
			continue
		}
		if dropped[r.From] {
			errs = append(errs, fmt.Errorf("%w: %s: cannot rename dropped column %q", ErrInvalidSchema, table, r.From))
		}
	}

	errs = append(errs, validateIndexes(table, d.AddIndexes)...)
	return errors.Join(errs...)
}

// CreateTable creates a table.
type CreateTable struct {
	Table       string
	IfNotExists bool
	Columns     []CreateColumn
	Indexes     []CreateIndex
}

// AlterTable applies a TableDiff.
type AlterTable struct {
	Table string
	Diff  TableDiff
}

// DropTable drops a table.
type DropTable struct {
	Table    string
	IfExists bool
}

// RenameTable renames a table.
type RenameTable struct {
	From string
	To   string
}

// RawStatement is verbatim SQL.
type RawStatement struct {
	SQL querydomain.SQL
}

func (CreateTable) Type() ChangeType  { return CreateTableChange }
func (AlterTable) Type() ChangeType   { return AlterTableChange }
func (DropTable) Type() ChangeType    { return DropTableChange }
func (RenameTable) Type() ChangeType  { return RenameTableChange }
func (RawStatement) Type() ChangeType { return RawChange }

func (c CreateTable) Description() string { return "create table " + c.Table }
func (c AlterTable) Description() string  { return "alter table " + c.Table }
func (c DropTable) Description() string   { return "drop table " + c.Table }
func (c RenameTable) Description() string { return "rename table " + c.From + " to " + c.To }
func (c RawStatement) Description() string {
	return "raw statement " + c.SQL.Statement
}

func (CreateTable) IsDestructive() bool  { return false }
func (c AlterTable) IsDestructive() bool { return len(c.Diff.DropColumns) > 0 }
func (DropTable) IsDestructive() bool    { return true }
func (RenameTable) IsDestructive() bool  { return false }

// IsDestructive is conservatively true for raw statements.
func (RawStatement) IsDestructive() bool { return true }

func (CreateTable) isSchemaChange()  {}
func (AlterTable) isSchemaChange()   {}
func (DropTable) isSchemaChange()    {}
func (RenameTable) isSchemaChange()  {}
func (RawStatement) isSchemaChange() {}

// Validate rejects malformed table definitions.
func (c CreateTable) Validate() error {
	var errs []error
	if c.Table == "" {
		errs = append(errs, fmt.Errorf("%w: table name is required", ErrInvalidSchema))
	}
	if len(c.Columns) == 0 {
		errs = append(errs, fmt.Errorf("%w: %s: table has no columns", ErrInvalidSchema, c.Table))
	}
	seen := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if err := validateColumn(c.Table, col); err != nil {
			errs = append(errs, err)
		}
		if seen[col.Name] {
			errs = append(errs, fmt.Errorf("%w: %s: duplicate column %q", ErrInvalidSchema, c.Table, col.Name))
		}
		seen[col.Name] = true
	}
	errs = append(errs, validateIndexes(c.Table, c.Indexes)...)
	return errors.Join(errs...)
}

// References returns the tables this table has foreign keys to.
func (c CreateTable) References() []string {
	var refs []string
	seen := map[string]bool{}
	for _, col := range c.Columns {
		for _, fk := range col.ForeignKeys() {
			if fk.Table != c.Table && !seen[fk.Table] {
				seen[fk.Table] = true
				refs = append(refs, fk.Table)
			}
		}
	}
	return refs
}

// Validate rejects an empty rename.
func (c RenameTable) Validate() error {
	if c.From == "" || c.To == "" {
		return fmt.Errorf("%w: rename table needs both names", ErrInvalidSchema)
	}
	return nil
}

func validateColumn(table string, col CreateColumn) error {
	if col.Name == "" {
		return fmt.Errorf("%w: %s: column name is required", ErrInvalidSchema, table)
	}
	if col.Type.Kind == "" {
		return fmt.Errorf("%w: %s.%s: column type is required", ErrInvalidSchema, table, col.Name)
	}
	for _, fk := range col.ForeignKeys() {
		if fk.Table == "" || fk.Column == "" {
			return fmt.Errorf("%w: %s.%s: foreign key needs a table and a column", ErrInvalidSchema, table, col.Name)
		}
	}
	return nil
}

func validateIndexes(table string, indexes []CreateIndex) []error {
	var errs []error
	for _, idx := range indexes {
		if len(idx.Columns) == 0 {
			errs = append(errs, fmt.Errorf("%w: %s: index has no columns", ErrInvalidSchema, table))
		}
	}
	return errs
}
