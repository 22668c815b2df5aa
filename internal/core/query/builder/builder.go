// Package builder implements the fluent query builder.
package builder

import (
	"errors"
	"fmt"
	"sort"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/grammar"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// QueryBuilder accumulates clauses in call order. It is not safe for
// concurrent use.
type QueryBuilder struct {
	query *domain.Query
	errs  []error
}

// Table creates a SELECT builder over table.
func Table(name string) *QueryBuilder {
	return &QueryBuilder{query: domain.NewQuery(name)}
}

// NewQueryBuilder is an alias for Table.
func NewQueryBuilder(table string) *QueryBuilder {
	return Table(table)
}

// As sets the table alias.
func (b *QueryBuilder) As(alias string) *QueryBuilder {
	b.query.Alias = alias
	return b
}

// Select sets the projected columns.
func (b *QueryBuilder) Select(columns ...string) *QueryBuilder {
	b.query.Columns = append([]string(nil), columns...)
	return b
}

// Distinct adds DISTINCT to the projection.
func (b *QueryBuilder) Distinct() *QueryBuilder {
	b.query.Distinct = true
	return b
}

// Where appends "column operator value" joined with AND.
func (b *QueryBuilder) Where(column, operator string, value any) *QueryBuilder {
	return b.addCondition(&b.query.Wheres, domain.And, column, operator, value)
}

// OrWhere appends "column operator value" joined with OR.
func (b *QueryBuilder) OrWhere(column, operator string, value any) *QueryBuilder {
	return b.addCondition(&b.query.Wheres, domain.Or, column, operator, value)
}

// WhereIn appends "column IN (...)". values may be a slice or a subquery.
func (b *QueryBuilder) WhereIn(column string, values any) *QueryBuilder {
	return b.addIn(domain.And, column, domain.OpIn, values)
}

// OrWhereIn appends "column IN (...)" joined with OR.
func (b *QueryBuilder) OrWhereIn(column string, values any) *QueryBuilder {
	return b.addIn(domain.Or, column, domain.OpIn, values)
}

// WhereNotIn appends "column NOT IN (...)".
func (b *QueryBuilder) WhereNotIn(column string, values any) *QueryBuilder {
	return b.addIn(domain.And, column, domain.OpNotIn, values)
}

// WhereNull appends "column IS NULL".
func (b *QueryBuilder) WhereNull(column string) *QueryBuilder {
	return b.appendWhere(domain.And, domain.Condition{Column: column, Operator: domain.OpIs, Operand: domain.Null})
}

// OrWhereNull appends "column IS NULL" joined with OR.
func (b *QueryBuilder) OrWhereNull(column string) *QueryBuilder {
	return b.appendWhere(domain.Or, domain.Condition{Column: column, Operator: domain.OpIs, Operand: domain.Null})
}

// WhereNotNull appends "column IS NOT NULL".
func (b *QueryBuilder) WhereNotNull(column string) *QueryBuilder {
	return b.appendWhere(domain.And, domain.Condition{Column: column, Operator: domain.OpIsNot, Operand: domain.Null})
}

// WhereBetween appends "column BETWEEN low AND high".
func (b *QueryBuilder) WhereBetween(column string, low, high any) *QueryBuilder {
	lo, err := toValue(low)
	if err != nil {
		return b.fail(err)
	}
	hi, err := toValue(high)
	if err != nil {
		return b.fail(err)
	}
	return b.appendWhere(domain.And, domain.Condition{Column: column, Operator: domain.OpBetween, Operand: domain.List{lo, hi}})
}

// WhereColumn compares two columns.
func (b *QueryBuilder) WhereColumn(first, operator, second string) *QueryBuilder {
	return b.addCondition(&b.query.Wheres, domain.And, first, operator, domain.ColumnRef(second))
}

// WhereRaw appends a verbatim predicate with "?" placeholders.
func (b *QueryBuilder) WhereRaw(statement string, values ...any) *QueryBuilder {
	sql, err := rawFragment(statement, values)
	if err != nil {
		return b.fail(err)
	}
	return b.appendWhere(domain.And, domain.RawCondition{SQL: sql})
}

// WhereGroup appends a parenthesized group built by fn, joined with AND.
func (b *QueryBuilder) WhereGroup(fn func(*QueryBuilder)) *QueryBuilder {
	return b.addGroup(&b.query.Wheres, domain.And, fn, false)
}

// OrWhereGroup appends a parenthesized group built by fn, joined with OR.
func (b *QueryBuilder) OrWhereGroup(fn func(*QueryBuilder)) *QueryBuilder {
	return b.addGroup(&b.query.Wheres, domain.Or, fn, false)
}

// Join adds an INNER JOIN on "first operator second".
func (b *QueryBuilder) Join(table, first, operator, second string) *QueryBuilder {
	return b.addJoin(domain.InnerJoin, table, first, operator, second)
}

// LeftJoin adds a LEFT JOIN.
func (b *QueryBuilder) LeftJoin(table, first, operator, second string) *QueryBuilder {
	return b.addJoin(domain.LeftJoin, table, first, operator, second)
}

// RightJoin adds a RIGHT JOIN.
func (b *QueryBuilder) RightJoin(table, first, operator, second string) *QueryBuilder {
	return b.addJoin(domain.RightJoin, table, first, operator, second)
}

// FullJoin adds a FULL JOIN.
func (b *QueryBuilder) FullJoin(table, first, operator, second string) *QueryBuilder {
	return b.addJoin(domain.FullJoin, table, first, operator, second)
}

// CrossJoin adds a CROSS JOIN.
func (b *QueryBuilder) CrossJoin(table string) *QueryBuilder {
	b.query.Joins = append(b.query.Joins, domain.Join{Type: domain.CrossJoin, Table: table})
	return b
}

// GroupBy appends GROUP BY columns.
func (b *QueryBuilder) GroupBy(columns ...string) *QueryBuilder {
	b.query.Groups = append(b.query.Groups, columns...)
	return b
}

// Having appends a HAVING condition joined with AND.
func (b *QueryBuilder) Having(column, operator string, value any) *QueryBuilder {
	return b.addCondition(&b.query.Havings, domain.And, column, operator, value)
}

// OrHaving appends a HAVING condition joined with OR.
func (b *QueryBuilder) OrHaving(column, operator string, value any) *QueryBuilder {
	return b.addCondition(&b.query.Havings, domain.Or, column, operator, value)
}

// HavingGroup appends a parenthesized HAVING group built by fn.
func (b *QueryBuilder) HavingGroup(fn func(*QueryBuilder)) *QueryBuilder {
	return b.addGroup(&b.query.Havings, domain.And, fn, true)
}

// OrHavingGroup appends a parenthesized HAVING group joined with OR.
func (b *QueryBuilder) OrHavingGroup(fn func(*QueryBuilder)) *QueryBuilder {
	return b.addGroup(&b.query.Havings, domain.Or, fn, true)
}

// HavingRaw appends a verbatim HAVING predicate.
func (b *QueryBuilder) HavingRaw(statement string, values ...any) *QueryBuilder {
	sql, err := rawFragment(statement, values)
	if err != nil {
		return b.fail(err)
	}
	b.query.Havings = append(b.query.Havings, domain.WhereClause{Connector: domain.And, Node: domain.RawCondition{SQL: sql}})
	return b
}

// OrderBy appends an ascending sort.
func (b *QueryBuilder) OrderBy(column string) *QueryBuilder {
	b.query.Orders = append(b.query.Orders, domain.OrderBy{Column: column, Direction: domain.Asc})
	return b
}

// OrderByDesc appends a descending sort.
func (b *QueryBuilder) OrderByDesc(column string) *QueryBuilder {
	b.query.Orders = append(b.query.Orders, domain.OrderBy{Column: column, Direction: domain.Desc})
	return b
}

// Limit sets the row limit.
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	if n < 0 {
		return b.fail(fmt.Errorf("%w: negative limit %d", domain.ErrInvalidQuery, n))
	}
	b.query.Limit = &n
	return b
}

// Offset sets the row offset.
func (b *QueryBuilder) Offset(n int) *QueryBuilder {
	if n < 0 {
		return b.fail(fmt.Errorf("%w: negative offset %d", domain.ErrInvalidQuery, n))
	}
	b.query.Offset = &n
	return b
}

// ForUpdate locks the selected rows for update.
func (b *QueryBuilder) ForUpdate() *QueryBuilder {
	return b.lock(domain.LockUpdate)
}

// ForShare locks the selected rows in share mode.
func (b *QueryBuilder) ForShare() *QueryBuilder {
	return b.lock(domain.LockShare)
}

// NoWait makes the lock fail instead of waiting.
func (b *QueryBuilder) NoWait() *QueryBuilder {
	return b.lockOption(domain.LockNoWait)
}

// SkipLocked skips rows that are already locked.
func (b *QueryBuilder) SkipLocked() *QueryBuilder {
	return b.lockOption(domain.LockSkipLocked)
}

// Insert turns the builder into an INSERT of rows. Columns are sorted by
// name; every row must have the same keys.
func (b *QueryBuilder) Insert(rows ...map[string]any) *QueryBuilder {
	if len(rows) == 0 {
		return b.fail(fmt.Errorf("%w: insert without rows", domain.ErrInvalidQuery))
	}

	columns := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	values := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return b.fail(fmt.Errorf("%w: insert row %d has %d columns, want %d", domain.ErrInvalidQuery, i, len(row), len(columns)))
		}
		values[i] = make([]any, len(columns))
		for j, col := range columns {
			v, ok := row[col]
			if !ok {
				return b.fail(fmt.Errorf("%w: insert row %d is missing column %q", domain.ErrInvalidQuery, i, col))
			}
			values[i][j] = v
		}
	}
	return b.InsertColumns(columns, values...)
}

// InsertColumns turns the builder into an INSERT with explicit column order.
func (b *QueryBuilder) InsertColumns(columns []string, rows ...[]any) *QueryBuilder {
	ins := &domain.InsertValues{Columns: append([]string(nil), columns...)}
	for i, row := range rows {
		if len(row) != len(columns) {
			return b.fail(fmt.Errorf("%w: insert row %d has %d values for %d columns", domain.ErrInvalidQuery, i, len(row), len(columns)))
		}
		ops := make([]domain.Operand, len(row))
		for j, v := range row {
			op, err := toOperand(v)
			if err != nil {
				return b.fail(err)
			}
			ops[j] = op
		}
		ins.Rows = append(ins.Rows, ops)
	}
	b.query.Statement = domain.Insert
	b.query.Insert = ins
	return b
}

// Update turns the builder into an UPDATE. Columns are assigned in name order.
func (b *QueryBuilder) Update(values map[string]any) *QueryBuilder {
	columns := make([]string, 0, len(values))
	for col := range values {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	for _, col := range columns {
		b.Set(col, values[col])
	}
	return b
}

// Set appends an UPDATE assignment.
func (b *QueryBuilder) Set(column string, value any) *QueryBuilder {
	op, err := toOperand(value)
	if err != nil {
		return b.fail(err)
	}
	b.query.Statement = domain.Update
	b.query.Sets = append(b.query.Sets, domain.Assignment{Column: column, Operand: op})
	return b
}

// Delete turns the builder into a DELETE.
func (b *QueryBuilder) Delete() *QueryBuilder {
	b.query.Statement = domain.Delete
	return b
}

// Returning requests columns back from a write.
func (b *QueryBuilder) Returning(columns ...string) *QueryBuilder {
	b.query.Returning = append(b.query.Returning, columns...)
	return b
}

// Build returns a copy of the accumulated query, or every error recorded
// while building.
func (b *QueryBuilder) Build() (*domain.Query, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return b.query.Clone(), nil
}

// Compile builds the query and renders it with g.
func (b *QueryBuilder) Compile(g *grammar.Grammar) (domain.SQL, error) {
	q, err := b.Build()
	if err != nil {
		return domain.SQL{}, err
	}
	return grammar.Compile(q, g)
}

func (b *QueryBuilder) fail(err error) *QueryBuilder {
	b.errs = append(b.errs, err)
	return b
}

func (b *QueryBuilder) appendWhere(connector domain.Connector, node domain.WhereNode) *QueryBuilder {
	b.query.Wheres = append(b.query.Wheres, domain.WhereClause{Connector: connector, Node: node})
	return b
}

func (b *QueryBuilder) addCondition(target *[]domain.WhereClause, connector domain.Connector, column, operator string, value any) *QueryBuilder {
	op, err := domain.ParseOperator(operator)
	if err != nil {
		return b.fail(err)
	}
	operand, err := toOperand(value)
	if err != nil {
		return b.fail(err)
	}
	if op == domain.OpIn || op == domain.OpNotIn {
		if v, ok := operand.(domain.Value); ok {
			operand = domain.List{v}
		}
	}
	*target = append(*target, domain.WhereClause{
		Connector: connector,
		Node:      domain.Condition{Column: column, Operator: op, Operand: operand},
	})
	return b
}

func (b *QueryBuilder) addIn(connector domain.Connector, column string, op domain.Operator, values any) *QueryBuilder {
	operand, err := toOperand(values)
	if err != nil {
		return b.fail(err)
	}
	if v, ok := operand.(domain.Value); ok {
		if _, isNull := v.(domain.NullValue); isNull {
			operand = domain.List{}
		} else {
			operand = domain.List{v}
		}
	}
	return b.appendWhere(connector, domain.Condition{Column: column, Operator: op, Operand: operand})
}

func (b *QueryBuilder) addGroup(target *[]domain.WhereClause, connector domain.Connector, fn func(*QueryBuilder), having bool) *QueryBuilder {
	sub := Table(b.query.Table)
	fn(sub)
	b.errs = append(b.errs, sub.errs...)

	clauses := sub.query.Wheres
	if having {
		clauses = sub.query.Havings
	}
	if len(clauses) == 0 {
		return b
	}
	*target = append(*target, domain.WhereClause{Connector: connector, Node: domain.Group{Clauses: clauses}})
	return b
}

func (b *QueryBuilder) addJoin(typ domain.JoinType, table, first, operator, second string) *QueryBuilder {
	op, err := domain.ParseOperator(operator)
	if err != nil {
		return b.fail(err)
	}
	b.query.Joins = append(b.query.Joins, domain.Join{
		Type:  typ,
		Table: table,
		On: []domain.WhereClause{{
			Connector: domain.And,
			Node:      domain.Condition{Column: first, Operator: op, Operand: domain.ColumnRef(second)},
		}},
	})
	return b
}

func (b *QueryBuilder) lock(strength domain.LockStrength) *QueryBuilder {
	if b.query.Lock == nil {
		b.query.Lock = &domain.Lock{}
	}
	b.query.Lock.Strength = strength
	return b
}

func (b *QueryBuilder) lockOption(option domain.LockOption) *QueryBuilder {
	if b.query.Lock == nil {
		b.query.Lock = &domain.Lock{Strength: domain.LockUpdate}
	}
	b.query.Lock.Option = option
	return b
}

// toOperand converts builder input. A *QueryBuilder becomes a subquery.
func toOperand(v any) (domain.Operand, error) {
	if sub, ok := v.(*QueryBuilder); ok {
		q, err := sub.Build()
		if err != nil {
			return nil, fmt.Errorf("subquery: %w", err)
		}
		return q, nil
	}
	return domain.ValueOf(v)
}

func toValue(v any) (domain.Value, error) {
	op, err := domain.ValueOf(v)
	if err != nil {
		return nil, err
	}
	value, ok := op.(domain.Value)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a single value", domain.ErrUnsupportedValue, v)
	}
	return value, nil
}

func rawFragment(statement string, values []any) (domain.SQL, error) {
	binds := make([]domain.Value, len(values))
	for i, v := range values {
		value, err := toValue(v)
		if err != nil {
			return domain.SQL{}, err
		}
		binds[i] = value
	}
	sql := domain.Raw(statement, binds...)
	if err := sql.Validate(); err != nil {
		return domain.SQL{}, err
	}
	return sql, nil
}
