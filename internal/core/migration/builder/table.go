// Package builder implements the fluent schema builders used to declare
// migrations in Go.
package builder

import (
	"errors"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
)

// TableBuilder declares columns and indexes.
type TableBuilder struct {
	table   string
	columns []*ColumnBuilder
	indexes []domain.CreateIndex
	errs    []error
}

func newTable(name string) *TableBuilder {
	return &TableBuilder{table: name}
}

// Increments adds an auto-incrementing integer primary key.
func (t *TableBuilder) Increments(name string) *ColumnBuilder {
	return t.column(name, domain.Increments()).PrimaryKey()
}

// BigIncrements adds an auto-incrementing bigint primary key.
func (t *TableBuilder) BigIncrements(name string) *ColumnBuilder {
	return t.column(name, domain.BigIncrements()).PrimaryKey()
}

// Int adds an integer column.
func (t *TableBuilder) Int(name string) *ColumnBuilder {
	return t.column(name, domain.Int())
}

// BigInt adds a bigint column.
func (t *TableBuilder) BigInt(name string) *ColumnBuilder {
	return t.column(name, domain.BigInt())
}

// Double adds a double column.
func (t *TableBuilder) Double(name string) *ColumnBuilder {
	return t.column(name, domain.Double())
}

// String adds a varchar column. Without a length it defaults to 255.
func (t *TableBuilder) String(name string, length ...int) *ColumnBuilder {
	n := 0
	if len(length) > 0 {
		n = length[0]
	}
	return t.column(name, domain.String(n))
}

// Text adds a text column.
func (t *TableBuilder) Text(name string) *ColumnBuilder {
	return t.column(name, domain.Text())
}

// UUID adds a uuid column.
func (t *TableBuilder) UUID(name string) *ColumnBuilder {
	return t.column(name, domain.UUID())
}

// Bool adds a boolean column.
func (t *TableBuilder) Bool(name string) *ColumnBuilder {
	return t.column(name, domain.Bool())
}

// Date adds a timestamp column.
func (t *TableBuilder) Date(name string) *ColumnBuilder {
	return t.column(name, domain.Date())
}

// JSON adds a json column.
func (t *TableBuilder) JSON(name string) *ColumnBuilder {
	return t.column(name, domain.JSON())
}

// Timestamps adds nullable created_at and updated_at columns.
func (t *TableBuilder) Timestamps() {
	t.Date("created_at").Nullable()
	t.Date("updated_at").Nullable()
}

// AddIndex adds an index over columns.
func (t *TableBuilder) AddIndex(columns ...string) {
	t.indexes = append(t.indexes, domain.CreateIndex{Columns: append([]string(nil), columns...)})
}

// AddUniqueIndex adds a unique index over columns.
func (t *TableBuilder) AddUniqueIndex(columns ...string) {
	t.indexes = append(t.indexes, domain.CreateIndex{Columns: append([]string(nil), columns...), IsUnique: true})
}

func (t *TableBuilder) column(name string, typ domain.ColumnType) *ColumnBuilder {
	c := newColumn(name, typ, &t.errs)
	t.columns = append(t.columns, c)
	return c
}

func (t *TableBuilder) buildColumns() []domain.CreateColumn {
	if len(t.columns) == 0 {
		return nil
	}
	cols := make([]domain.CreateColumn, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.build()
	}
	return cols
}

// CreateTable declares a new table through fn.
func CreateTable(name string, fn func(*TableBuilder)) (domain.CreateTable, error) {
	t := newTable(name)
	fn(t)
	change := domain.CreateTable{
		Table:   name,
		Columns: t.buildColumns(),
		Indexes: t.indexes,
	}
	if err := errors.Join(append(t.errs, change.Validate())...); err != nil {
		return domain.CreateTable{Table: name}, err
	}
	return change, nil
}

// CreateTableIfNotExists is CreateTable with IF NOT EXISTS.
func CreateTableIfNotExists(name string, fn func(*TableBuilder)) (domain.CreateTable, error) {
	change, err := CreateTable(name, fn)
	if err != nil {
		return change, err
	}
	change.IfNotExists = true
	return change, nil
}
