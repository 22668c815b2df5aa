package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	querydomain "github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// FormatConstraint is the range of file formats this build reads.
const FormatConstraint = ">= 1.0, < 2.0"

// CurrentFormat is written into new migration files.
const CurrentFormat = "1.0"

var supportedFormat = version.MustConstraints(version.NewConstraint(FormatConstraint))

// migrationFile is the YAML layout of a migration.
type migrationFile struct {
	Format string       `yaml:"format"`
	Name   string       `yaml:"name,omitempty"`
	Up     []changeSpec `yaml:"up"`
	Down   []changeSpec `yaml:"down"`
}

// changeSpec holds exactly one schema change.
type changeSpec struct {
	CreateTable *createTableSpec `yaml:"create_table,omitempty"`
	AlterTable  *alterTableSpec  `yaml:"alter_table,omitempty"`
	DropTable   *dropTableSpec   `yaml:"drop_table,omitempty"`
	RenameTable *renameSpec      `yaml:"rename_table,omitempty"`
	Raw         *string          `yaml:"raw,omitempty"`
}

type createTableSpec struct {
	Table       string       `yaml:"table"`
	IfNotExists bool         `yaml:"if_not_exists,omitempty"`
	Columns     []columnSpec `yaml:"columns"`
	Indexes     []indexSpec  `yaml:"indexes,omitempty"`
}

type alterTableSpec struct {
	Table         string       `yaml:"table"`
	AddColumns    []columnSpec `yaml:"add_columns,omitempty"`
	DropColumns   []string     `yaml:"drop_columns,omitempty"`
	RenameColumns []renameSpec `yaml:"rename_columns,omitempty"`
	AddIndexes    []indexSpec  `yaml:"add_indexes,omitempty"`
	DropIndexes   []string     `yaml:"drop_indexes,omitempty"`
}

type dropTableSpec struct {
	Table    string `yaml:"table"`
	IfExists bool   `yaml:"if_exists,omitempty"`
}

type renameSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type columnSpec struct {
	Name              string         `yaml:"name"`
	Type              string         `yaml:"type"`
	Length            int            `yaml:"length,omitempty"`
	Constraints       []string       `yaml:"constraints,omitempty"`
	Default           any            `yaml:"default,omitempty"`
	DefaultExpression string         `yaml:"default_expression,omitempty"`
	References        *referenceSpec `yaml:"references,omitempty"`
}

type referenceSpec struct {
	Table    string `yaml:"table"`
	Column   string `yaml:"column"`
	OnDelete string `yaml:"on_delete,omitempty"`
	OnUpdate string `yaml:"on_update,omitempty"`
}

type indexSpec struct {
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
}

func checkFormat(format string) error {
	if format == "" {
		format = CurrentFormat
	}
	v, err := version.NewVersion(format)
	if err != nil {
		return fmt.Errorf("invalid format %q: %w", format, err)
	}
	if !supportedFormat.Check(v) {
		return fmt.Errorf("unsupported format %s (want %s)", format, FormatConstraint)
	}
	return nil
}

func toChanges(specs []changeSpec) ([]domain.SchemaChange, error) {
	changes := make([]domain.SchemaChange, 0, len(specs))
	var errs []error
	for i, s := range specs {
		c, err := s.toChange()
		if err != nil {
			errs = append(errs, fmt.Errorf("change %d: %w", i+1, err))
			continue
		}
		changes = append(changes, c)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return changes, nil
}

func (s changeSpec) toChange() (domain.SchemaChange, error) {
	var (
		found  []string
		change domain.SchemaChange
		err    error
	)
	if s.CreateTable != nil {
		found = append(found, "create_table")
		change, err = s.CreateTable.toChange()
	}
	if s.AlterTable != nil {
		found = append(found, "alter_table")
		change, err = s.AlterTable.toChange()
	}
	if s.DropTable != nil {
		found = append(found, "drop_table")
		change = domain.DropTable{Table: s.DropTable.Table, IfExists: s.DropTable.IfExists}
	}
	if s.RenameTable != nil {
		found = append(found, "rename_table")
		change = domain.RenameTable{From: s.RenameTable.From, To: s.RenameTable.To}
	}
	if s.Raw != nil {
		found = append(found, "raw")
		change = domain.RawStatement{SQL: querydomain.Raw(*s.Raw)}
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: empty change", domain.ErrInvalidSchema)
	case 1:
		return change, err
	default:
		return nil, fmt.Errorf("%w: change declares %s", domain.ErrInvalidSchema, strings.Join(found, " and "))
	}
}

func (s *createTableSpec) toChange() (domain.SchemaChange, error) {
	columns, err := toColumns(s.Columns)
	if err != nil {
		return nil, err
	}
	return domain.CreateTable{
		Table:       s.Table,
		IfNotExists: s.IfNotExists,
		Columns:     columns,
		Indexes:     toIndexes(s.Indexes),
	}, nil
}

func (s *alterTableSpec) toChange() (domain.SchemaChange, error) {
	columns, err := toColumns(s.AddColumns)
	if err != nil {
		return nil, err
	}
	renames := make([]domain.Rename, len(s.RenameColumns))
	for i, r := range s.RenameColumns {
		renames[i] = domain.Rename{From: r.From, To: r.To}
	}
	return domain.AlterTable{
		Table: s.Table,
		Diff: domain.TableDiff{
			AddColumns:    columns,
			DropColumns:   s.DropColumns,
			RenameColumns: renames,
			AddIndexes:    toIndexes(s.AddIndexes),
			DropIndexes:   s.DropIndexes,
		},
	}, nil
}

func toIndexes(specs []indexSpec) []domain.CreateIndex {
	if len(specs) == 0 {
		return nil
	}
	out := make([]domain.CreateIndex, len(specs))
	for i, s := range specs {
		out[i] = domain.CreateIndex{Columns: s.Columns, IsUnique: s.Unique}
	}
	return out
}

func toColumns(specs []columnSpec) ([]domain.CreateColumn, error) {
	out := make([]domain.CreateColumn, 0, len(specs))
	for _, s := range specs {
		col, err := s.toColumn()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", s.Name, err)
		}
		out = append(out, col)
	}
	return out, nil
}

func (s columnSpec) toColumn() (domain.CreateColumn, error) {
	typ, err := domain.ParseColumnType(s.Type, s.Length)
	if err != nil {
		return domain.CreateColumn{}, err
	}
	col := domain.CreateColumn{Name: s.Name, Type: typ}
	if typ.IsAutoIncrement() {
		col.Constraints = append(col.Constraints, domain.PrimaryKey{})
	}

	for _, name := range s.Constraints {
		con, err := parseConstraint(name)
		if err != nil {
			return domain.CreateColumn{}, err
		}
		if _, ok := con.(domain.PrimaryKey); ok && col.IsPrimaryKey() {
			continue
		}
		col.Constraints = append(col.Constraints, con)
	}

	switch {
	case s.Default != nil && s.DefaultExpression != "":
		return domain.CreateColumn{}, fmt.Errorf("%w: default and default_expression are exclusive", domain.ErrInvalidSchema)
	case s.Default != nil:
		op, err := querydomain.ValueOf(s.Default)
		if err != nil {
			return domain.CreateColumn{}, err
		}
		if _, ok := op.(querydomain.Value); !ok {
			return domain.CreateColumn{}, fmt.Errorf("%w: default must be a scalar", domain.ErrInvalidSchema)
		}
		col.Constraints = append(col.Constraints, domain.Default{Value: op})
	case s.DefaultExpression != "":
		col.Constraints = append(col.Constraints, domain.Default{Value: querydomain.Expression(s.DefaultExpression)})
	}

	if ref := s.References; ref != nil {
		onDelete, err := domain.ParseReferentialAction(ref.OnDelete)
		if err != nil {
			return domain.CreateColumn{}, err
		}
		onUpdate, err := domain.ParseReferentialAction(ref.OnUpdate)
		if err != nil {
			return domain.CreateColumn{}, err
		}
		column := ref.Column
		if column == "" {
			column = "id"
		}
		col.Constraints = append(col.Constraints, domain.ForeignKey{
			Column:   column,
			Table:    ref.Table,
			OnDelete: onDelete,
			OnUpdate: onUpdate,
		})
	}
	return col, nil
}

func parseConstraint(name string) (domain.Constraint, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "not_null", "not null", "notnull":
		return domain.NotNull{}, nil
	case "nullable", "null":
		return domain.Nullable{}, nil
	case "primary_key", "primary key", "primary":
		return domain.PrimaryKey{}, nil
	case "unique":
		return domain.Unique{}, nil
	case "unsigned":
		return domain.Unsigned{}, nil
	}
	return nil, fmt.Errorf("%w: unknown constraint %q", domain.ErrInvalidSchema, name)
}
