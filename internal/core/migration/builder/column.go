package builder

import (
	"fmt"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	querydomain "github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// ColumnBuilder configures one column. Constraints keep call order.
type ColumnBuilder struct {
	name        string
	typ         domain.ColumnType
	constraints []domain.Constraint
	lastFK      int
	errs        *[]error
}

func newColumn(name string, typ domain.ColumnType, errs *[]error) *ColumnBuilder {
	return &ColumnBuilder{name: name, typ: typ, lastFK: -1, errs: errs}
}

// NotNull adds NOT NULL.
func (c *ColumnBuilder) NotNull() *ColumnBuilder {
	return c.add(domain.NotNull{})
}

// Nullable adds NULL.
func (c *ColumnBuilder) Nullable() *ColumnBuilder {
	return c.add(domain.Nullable{})
}

// Default sets a literal default value.
func (c *ColumnBuilder) Default(v any) *ColumnBuilder {
	op, err := querydomain.ValueOf(v)
	if err != nil {
		*c.errs = append(*c.errs, fmt.Errorf("default of %s: %w", c.name, err))
		return c
	}
	switch op.(type) {
	case querydomain.Value, querydomain.Expression:
	default:
		*c.errs = append(*c.errs, fmt.Errorf("%w: default of %s must be a single value", domain.ErrInvalidSchema, c.name))
		return c
	}
	return c.add(domain.Default{Value: op})
}

// DefaultExpression sets a verbatim default such as NOW().
func (c *ColumnBuilder) DefaultExpression(expr string) *ColumnBuilder {
	return c.add(domain.Default{Value: querydomain.Expression(expr)})
}

// PrimaryKey marks the column as part of the primary key.
func (c *ColumnBuilder) PrimaryKey() *ColumnBuilder {
	return c.add(domain.PrimaryKey{})
}

// Unique adds a unique constraint.
func (c *ColumnBuilder) Unique() *ColumnBuilder {
	return c.add(domain.Unique{})
}

// Unsigned marks a numeric column unsigned.
func (c *ColumnBuilder) Unsigned() *ColumnBuilder {
	return c.add(domain.Unsigned{})
}

// References adds a foreign key to table(column).
func (c *ColumnBuilder) References(table, column string) *ColumnBuilder {
	c.lastFK = len(c.constraints)
	return c.add(domain.ForeignKey{Table: table, Column: column})
}

// OnDelete sets the ON DELETE action of the last foreign key.
func (c *ColumnBuilder) OnDelete(action domain.ReferentialAction) *ColumnBuilder {
	return c.updateFK(func(fk *domain.ForeignKey) { fk.OnDelete = action })
}

// OnUpdate sets the ON UPDATE action of the last foreign key.
func (c *ColumnBuilder) OnUpdate(action domain.ReferentialAction) *ColumnBuilder {
	return c.updateFK(func(fk *domain.ForeignKey) { fk.OnUpdate = action })
}

func (c *ColumnBuilder) add(con domain.Constraint) *ColumnBuilder {
	c.constraints = append(c.constraints, con)
	return c
}

func (c *ColumnBuilder) updateFK(fn func(*domain.ForeignKey)) *ColumnBuilder {
	if c.lastFK < 0 {
		*c.errs = append(*c.errs, fmt.Errorf("%w: %s: referential action without References", domain.ErrInvalidSchema, c.name))
		return c
	}
	fk := c.constraints[c.lastFK].(domain.ForeignKey)
	fn(&fk)
	c.constraints[c.lastFK] = fk
	return c
}

func (c *ColumnBuilder) build() domain.CreateColumn {
	return domain.CreateColumn{
		Name:        c.name,
		Type:        c.typ,
		Constraints: append([]domain.Constraint(nil), c.constraints...),
	}
}
