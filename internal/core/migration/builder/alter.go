package builder

import (
	"errors"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
)

// AlterTableBuilder declares changes to an existing table. The call order
// of its methods does not affect the compiled statement order.
type AlterTableBuilder struct {
	*TableBuilder
	drops       []string
	renames     []domain.Rename
	dropIndexes []string
}

// DropColumn drops a column.
func (a *AlterTableBuilder) DropColumn(name string) {
	a.drops = append(a.drops, name)
}

// RenameColumn renames a column.
func (a *AlterTableBuilder) RenameColumn(from, to string) {
	a.renames = append(a.renames, domain.Rename{From: from, To: to})
}

// DropIndex drops an index by name.
func (a *AlterTableBuilder) DropIndex(name string) {
	a.dropIndexes = append(a.dropIndexes, name)
}

// DropIndexOn drops the index that AddIndex or AddUniqueIndex created over
// columns.
func (a *AlterTableBuilder) DropIndexOn(unique bool, columns ...string) {
	a.DropIndex(domain.IndexName(a.table, columns, unique))
}

// AlterTable declares changes to table through fn.
func AlterTable(name string, fn func(*AlterTableBuilder)) (domain.AlterTable, error) {
	a := &AlterTableBuilder{TableBuilder: newTable(name)}
	fn(a)
	change := domain.AlterTable{
		Table: name,
		Diff: domain.TableDiff{
			AddColumns:    a.buildColumns(),
			DropColumns:   a.drops,
			RenameColumns: a.renames,
			AddIndexes:    a.indexes,
			DropIndexes:   a.dropIndexes,
		},
	}
	if err := errors.Join(append(a.errs, change.Diff.Validate(name))...); err != nil {
		return domain.AlterTable{Table: name}, err
	}
	return change, nil
}
