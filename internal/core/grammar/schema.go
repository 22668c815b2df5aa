package grammar

import (
	"fmt"
	"strings"

	migration "github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// CompileSchema renders change with g.
func CompileSchema(change migration.SchemaChange, g *Grammar) ([]domain.SQL, error) {
	return g.CompileSchema(change)
}

// CompileSchema renders a schema change into statements that must run in
// the returned order.
func (g *Grammar) CompileSchema(change migration.SchemaChange) ([]domain.SQL, error) {
	var (
		stmts []domain.SQL
		err   error
	)
	switch c := change.(type) {
	case migration.CreateTable:
		stmts, err = g.CompileCreateTable(c)
	case migration.AlterTable:
		stmts, err = g.CompileAlterTable(c)
	case migration.DropTable:
		stmts, err = g.CompileDropTable(c)
	case migration.RenameTable:
		stmts, err = g.CompileRenameTable(c)
	case migration.RawStatement:
		if verr := c.SQL.Validate(); verr != nil {
			return nil, &CompileError{Err: verr}
		}
		stmts = []domain.SQL{c.SQL}
	case nil:
		return nil, compileErr("", "schema change is nil")
	default:
		return nil, compileErr("", "unknown schema change %T", change)
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.SQL, len(stmts))
	for i, s := range stmts {
		out[i] = g.Position(s)
	}
	return out, nil
}

// CompileCreateTable renders CREATE TABLE followed by one CREATE INDEX per
// declared index, with neutral placeholders. CompileSchema positions them.
func (g *Grammar) CompileCreateTable(c migration.CreateTable) ([]domain.SQL, error) {
	if err := c.Validate(); err != nil {
		return nil, &CompileError{Table: c.Table, Err: err}
	}

	defs := make([]string, 0, len(c.Columns)+2)
	var (
		primary []string
		uniques []string
		foreign []string
	)
	for _, col := range c.Columns {
		def, err := g.columnDefinition(c.Table, col, false)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)

		for _, con := range col.Constraints {
			switch k := con.(type) {
			case migration.PrimaryKey:
				if g.typeDeclaresKey(col) {
					continue
				}
				primary = append(primary, col.Name)
			case migration.Unique:
				uniques = append(uniques, "UNIQUE ("+col.Name+")")
			case migration.ForeignKey:
				foreign = append(foreign, "FOREIGN KEY ("+col.Name+") "+references(k))
			}
		}
	}

	if inlinePK := g.inlinePrimaryKey(c.Columns); inlinePK != "" && len(primary) > 0 {
		return nil, compileErr(c.Table, "%s cannot combine %s with another primary key", g.Name(), inlinePK)
	}
	if len(primary) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(primary, ", ")+")")
	}
	defs = append(defs, uniques...)
	defs = append(defs, foreign...)

	head := "CREATE TABLE "
	if c.IfNotExists {
		head += "IF NOT EXISTS "
	}
	stmts := []domain.SQL{domain.Raw(head + c.Table + " (" + strings.Join(defs, ", ") + ")")}

	for _, idx := range c.Indexes {
		stmts = append(stmts, createIndex(c.Table, idx))
	}
	return stmts, nil
}

// CompileAlterTable renders an ALTER TABLE in four groups, always in this
// order: ADD/DROP columns, column renames, dropped indexes, added indexes.
func (g *Grammar) CompileAlterTable(c migration.AlterTable) ([]domain.SQL, error) {
	if err := c.Diff.Validate(c.Table); err != nil {
		return nil, &CompileError{Table: c.Table, Err: err}
	}
	diff := c.Diff
	prefix := "ALTER TABLE " + c.Table + " "

	var changes []string
	var promoted []migration.CreateIndex
	for _, col := range diff.AddColumns {
		def, err := g.columnDefinition(c.Table, col, true)
		if err != nil {
			return nil, err
		}
		changes = append(changes, "ADD COLUMN "+def)

		if g.dialect.SingleAlter() {
			if col.IsPrimaryKey() || g.typeDeclaresKey(col) {
				return nil, g.unsupported("adding a primary key column")
			}
			if col.IsUnique() {
				promoted = append(promoted, migration.CreateIndex{Columns: []string{col.Name}, IsUnique: true})
			}
			continue
		}
		for _, fk := range col.ForeignKeys() {
			changes = append(changes, "ADD FOREIGN KEY ("+col.Name+") "+references(fk))
		}
	}
	for _, name := range diff.DropColumns {
		changes = append(changes, "DROP COLUMN "+name)
	}

	var stmts []domain.SQL
	if len(changes) > 0 {
		if g.dialect.SingleAlter() {
			for _, ch := range changes {
				stmts = append(stmts, domain.Raw(prefix+ch))
			}
		} else {
			stmts = append(stmts, domain.Raw(prefix+strings.Join(changes, ", ")))
		}
	}

	for _, r := range diff.RenameColumns {
		stmts = append(stmts, domain.Raw(prefix+"RENAME COLUMN "+r.From+" TO "+r.To))
	}
	for _, name := range diff.DropIndexes {
		stmts = append(stmts, domain.Raw(g.dialect.DropIndex(c.Table, name)))
	}
	for _, idx := range append(promoted, diff.AddIndexes...) {
		stmts = append(stmts, createIndex(c.Table, idx))
	}
	return stmts, nil
}

// CompileDropTable renders DROP TABLE.
func (g *Grammar) CompileDropTable(c migration.DropTable) ([]domain.SQL, error) {
	if c.Table == "" {
		return nil, compileErr("", "table name is required")
	}
	stmt := "DROP TABLE "
	if c.IfExists {
		stmt += "IF EXISTS "
	}
	return []domain.SQL{domain.Raw(stmt + c.Table)}, nil
}

// CompileRenameTable renders a table rename.
func (g *Grammar) CompileRenameTable(c migration.RenameTable) ([]domain.SQL, error) {
	if err := c.Validate(); err != nil {
		return nil, &CompileError{Table: c.From, Err: err}
	}
	return []domain.SQL{domain.Raw(g.dialect.RenameTable(c.From, c.To))}, nil
}

// columnDefinition renders "name TYPE [UNSIGNED] [auto] constraints...".
// Inside CREATE TABLE, keys are emitted as table constraints; inside ALTER
// TABLE they are inline.
func (g *Grammar) columnDefinition(table string, col migration.CreateColumn, alter bool) (string, error) {
	typeName, err := g.dialect.TypeName(col.Type)
	if err != nil {
		return "", err
	}
	parts := []string{col.Name, typeName}

	for _, con := range col.Constraints {
		if _, ok := con.(migration.Unsigned); ok {
			if !g.dialect.SupportsUnsigned() {
				return "", g.unsupported("UNSIGNED on " + table + "." + col.Name)
			}
			parts = append(parts, "UNSIGNED")
			break
		}
	}
	if auto := g.dialect.AutoIncrement(col.Type); auto != "" {
		parts = append(parts, auto)
	}

	for _, con := range col.Constraints {
		switch k := con.(type) {
		case migration.Nullable:
			parts = append(parts, "NULL")
		case migration.NotNull:
			parts = append(parts, "NOT NULL")
		case migration.Default:
			lit, err := g.defaultLiteral(k.Value)
			if err != nil {
				return "", &CompileError{Table: table, Err: fmt.Errorf("default of %s: %w", col.Name, err)}
			}
			parts = append(parts, "DEFAULT "+lit)
		case migration.PrimaryKey:
			if alter && !g.dialect.SingleAlter() {
				parts = append(parts, "PRIMARY KEY")
			}
		case migration.Unique:
			if alter && !g.dialect.SingleAlter() {
				parts = append(parts, "UNIQUE")
			}
		case migration.ForeignKey:
			if alter && g.dialect.SingleAlter() {
				parts = append(parts, references(k))
			}
		case migration.Unsigned:
		default:
			return "", compileErr(table, "unknown constraint %T on %s", con, col.Name)
		}
	}
	return strings.Join(parts, " "), nil
}

func (g *Grammar) defaultLiteral(op domain.Operand) (string, error) {
	switch v := op.(type) {
	case domain.Value:
		return g.dialect.Literal(v), nil
	case domain.Expression:
		return string(v), nil
	default:
		return "", fmt.Errorf("%w: default must be a value or an expression, got %T", migration.ErrInvalidSchema, op)
	}
}

// inlinePrimaryKey returns the column whose type already declares the
// primary key, if any.
func (g *Grammar) inlinePrimaryKey(columns []migration.CreateColumn) string {
	for _, col := range columns {
		if g.typeDeclaresKey(col) {
			return col.Name
		}
	}
	return ""
}

func (g *Grammar) typeDeclaresKey(col migration.CreateColumn) bool {
	return strings.Contains(g.dialect.AutoIncrement(col.Type), "PRIMARY KEY")
}

func references(fk migration.ForeignKey) string {
	s := "REFERENCES " + fk.Table + " (" + fk.Column + ")"
	if fk.OnDelete != "" {
		s += " ON DELETE " + string(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		s += " ON UPDATE " + string(fk.OnUpdate)
	}
	return s
}

func createIndex(table string, idx migration.CreateIndex) domain.SQL {
	stmt := "CREATE INDEX "
	if idx.IsUnique {
		stmt = "CREATE UNIQUE INDEX "
	}
	return domain.Raw(stmt + idx.Name(table) + " ON " + table + " (" + strings.Join(idx.Columns, ", ") + ")")
}
