package grammar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// Compile renders q with g.
func Compile(q *domain.Query, g *Grammar) (domain.SQL, error) {
	return g.Compile(q)
}

// Compile renders q into a single statement with dialect placeholders.
func (g *Grammar) Compile(q *domain.Query) (domain.SQL, error) {
	sql, err := g.compileQuery(q)
	if err != nil {
		return domain.SQL{}, err
	}
	return g.Position(sql), nil
}

// compileQuery renders q with neutral placeholders.
func (g *Grammar) compileQuery(q *domain.Query) (domain.SQL, error) {
	if q == nil {
		return domain.SQL{}, compileErr("", "query is nil")
	}
	if q.Table == "" {
		return domain.SQL{}, compileErr("", "table name is required")
	}

	switch q.Statement {
	case domain.Select, "":
		return g.CompileSelect(q)
	case domain.Insert:
		return g.CompileInsert(q)
	case domain.Update:
		return g.CompileUpdate(q)
	case domain.Delete:
		return g.CompileDelete(q)
	default:
		return domain.SQL{}, compileErr(q.Table, "unsupported statement %q", q.Statement)
	}
}

// CompileSelect renders a SELECT with neutral placeholders.
func (g *Grammar) CompileSelect(q *domain.Query) (domain.SQL, error) {
	var errs []error
	collect := func(sql domain.SQL, err error) domain.SQL {
		if err != nil {
			errs = append(errs, err)
		}
		return sql
	}

	head := "SELECT "
	if q.Distinct {
		head = "SELECT DISTINCT "
	}
	head += strings.Join(q.SelectedColumns(), ", ")

	sql := domain.Joined(
		domain.Raw(head),
		domain.Raw("FROM "+tableRef(q.Table, q.Alias)),
		collect(g.compileJoins(q)),
		collect(g.compileWhere("WHERE", q.Table, q.Wheres)),
		compileGroups(q.Groups),
		collect(g.compileWhere("HAVING", q.Table, q.Havings)),
		compileOrders(q.Orders),
		collect(g.compileLimitOffset(q)),
		g.compileLock(q.Lock),
	)
	if err := errors.Join(errs...); err != nil {
		return domain.SQL{}, err
	}
	return sql, nil
}

// CompileInsert renders a multi-row INSERT with neutral placeholders. Binds
// are ordered row by row, then column by column.
func (g *Grammar) CompileInsert(q *domain.Query) (domain.SQL, error) {
	ins := q.Insert
	if ins == nil || len(ins.Columns) == 0 {
		return domain.SQL{}, compileErr(q.Table, "insert requires at least one column")
	}
	if len(ins.Rows) == 0 {
		return domain.SQL{}, compileErr(q.Table, "insert requires at least one row")
	}

	rows := make([]domain.SQL, 0, len(ins.Rows))
	for i, row := range ins.Rows {
		if len(row) != len(ins.Columns) {
			return domain.SQL{}, compileErr(q.Table, "insert row %d has %d values for %d columns", i, len(row), len(ins.Columns))
		}
		values := make([]domain.SQL, 0, len(row))
		for _, op := range row {
			v, err := g.compileOperand(op)
			if err != nil {
				return domain.SQL{}, &CompileError{Table: q.Table, Err: err}
			}
			values = append(values, v)
		}
		rows = append(rows, domain.JoinedWith(", ", values...).Wrap())
	}

	returning, err := g.compileReturning(q.Returning)
	if err != nil {
		return domain.SQL{}, err
	}

	return domain.Joined(
		domain.Raw("INSERT INTO "+q.Table+" ("+strings.Join(ins.Columns, ", ")+")"),
		domain.Raw("VALUES"),
		domain.JoinedWith(", ", rows...),
		returning,
	), nil
}

// CompileUpdate renders an UPDATE with neutral placeholders.
func (g *Grammar) CompileUpdate(q *domain.Query) (domain.SQL, error) {
	if len(q.Sets) == 0 {
		return domain.SQL{}, compileErr(q.Table, "update requires at least one assignment")
	}

	sets := make([]domain.SQL, 0, len(q.Sets))
	for _, s := range q.Sets {
		v, err := g.compileOperand(s.Operand)
		if err != nil {
			return domain.SQL{}, &CompileError{Table: q.Table, Err: err}
		}
		sets = append(sets, domain.Raw(s.Column+" =").Join(v))
	}

	where, err := g.compileWhere("WHERE", q.Table, q.Wheres)
	if err != nil {
		return domain.SQL{}, err
	}
	returning, err := g.compileReturning(q.Returning)
	if err != nil {
		return domain.SQL{}, err
	}

	return domain.Joined(
		domain.Raw("UPDATE "+q.Table+" SET"),
		domain.JoinedWith(", ", sets...),
		where,
		returning,
	), nil
}

// CompileDelete renders a DELETE with neutral placeholders.
func (g *Grammar) CompileDelete(q *domain.Query) (domain.SQL, error) {
	where, err := g.compileWhere("WHERE", q.Table, q.Wheres)
	if err != nil {
		return domain.SQL{}, err
	}
	returning, err := g.compileReturning(q.Returning)
	if err != nil {
		return domain.SQL{}, err
	}

	return domain.Joined(
		domain.Raw("DELETE FROM "+q.Table),
		where,
		returning,
	), nil
}

func (g *Grammar) compileJoins(q *domain.Query) (domain.SQL, error) {
	var out domain.SQL
	for _, j := range q.Joins {
		if !g.dialect.SupportsJoin(j.Type) {
			return domain.SQL{}, g.unsupported(string(j.Type) + " JOIN")
		}
		clause := domain.Raw(string(j.Type) + " JOIN " + tableRef(j.Table, j.Alias))
		if j.Type != domain.CrossJoin {
			if len(j.On) == 0 {
				return domain.SQL{}, compileErr(q.Table, "join on %s has no condition", j.Table)
			}
			on, err := g.compileClauses(j.On)
			if err != nil {
				return domain.SQL{}, &CompileError{Table: q.Table, Err: err}
			}
			clause = domain.Joined(clause, domain.Raw("ON"), on)
		}
		out = out.Join(clause)
	}
	return out, nil
}

func (g *Grammar) compileWhere(keyword, table string, clauses []domain.WhereClause) (domain.SQL, error) {
	body, err := g.compileClauses(clauses)
	if err != nil {
		return domain.SQL{}, &CompileError{Table: table, Err: err}
	}
	if body.IsEmpty() {
		return domain.SQL{}, nil
	}
	return domain.Raw(keyword).Join(body), nil
}

// compileClauses renders clauses in order. The first clause's connector is
// dropped; empty groups are skipped.
func (g *Grammar) compileClauses(clauses []domain.WhereClause) (domain.SQL, error) {
	var out domain.SQL
	for _, c := range clauses {
		node, err := g.compileNode(c.Node)
		if err != nil {
			return domain.SQL{}, err
		}
		if node.IsEmpty() {
			continue
		}
		if !out.IsEmpty() {
			connector := c.Connector
			if connector == "" {
				connector = domain.And
			}
			out = out.Join(domain.Raw(string(connector)))
		}
		out = out.Join(node)
	}
	return out, nil
}

func (g *Grammar) compileNode(n domain.WhereNode) (domain.SQL, error) {
	switch node := n.(type) {
	case domain.Condition:
		return g.compileCondition(node)
	case domain.Group:
		inner, err := g.compileClauses(node.Clauses)
		if err != nil || inner.IsEmpty() {
			return domain.SQL{}, err
		}
		return inner.Wrap(), nil
	case domain.RawCondition:
		if err := node.SQL.Validate(); err != nil {
			return domain.SQL{}, err
		}
		return node.SQL, nil
	default:
		return domain.SQL{}, fmt.Errorf("%w: unknown where node %T", domain.ErrInvalidQuery, n)
	}
}

func (g *Grammar) compileCondition(c domain.Condition) (domain.SQL, error) {
	if c.Column == "" {
		return domain.SQL{}, fmt.Errorf("%w: condition without column", domain.ErrInvalidQuery)
	}
	if c.Operand == nil {
		return domain.SQL{}, fmt.Errorf("%w: condition on %s has no operand", domain.ErrInvalidQuery, c.Column)
	}

	if _, ok := c.Operand.(domain.List); ok {
		switch c.Operator {
		case domain.OpIn, domain.OpNotIn, domain.OpBetween:
		default:
			return domain.SQL{}, fmt.Errorf("%w: %s %s takes a single value, not a list", domain.ErrInvalidQuery, c.Column, c.Operator)
		}
	}

	switch c.Operator {
	case domain.OpIs, domain.OpIsNot:
		if _, ok := c.Operand.(domain.NullValue); ok {
			return domain.Raw(c.Column + " " + string(c.Operator) + " NULL"), nil
		}
	case domain.OpIn, domain.OpNotIn:
		return g.compileIn(c)
	case domain.OpBetween:
		list, ok := c.Operand.(domain.List)
		if !ok || len(list) != 2 {
			return domain.SQL{}, fmt.Errorf("%w: BETWEEN on %s needs exactly two values", domain.ErrInvalidQuery, c.Column)
		}
		return domain.Raw(c.Column+" BETWEEN ? AND ?", list[0], list[1]), nil
	case domain.OpILike:
		operand, err := g.compileOperand(c.Operand)
		if err != nil {
			return domain.SQL{}, err
		}
		if g.dialect.NativeILike() {
			return domain.Raw(c.Column + " ILIKE").Join(operand), nil
		}
		return domain.Raw("LOWER(" + c.Column + ") LIKE").Join(domain.SQL{
			Statement: "LOWER(" + operand.Statement + ")",
			Binds:     operand.Binds,
		}), nil
	case "":
		return domain.SQL{}, fmt.Errorf("%w: condition on %s has no operator", domain.ErrInvalidQuery, c.Column)
	}

	operand, err := g.compileOperand(c.Operand)
	if err != nil {
		return domain.SQL{}, err
	}
	return domain.Raw(c.Column + " " + string(c.Operator)).Join(operand), nil
}

func (g *Grammar) compileIn(c domain.Condition) (domain.SQL, error) {
	if list, ok := c.Operand.(domain.List); ok && len(list) == 0 {
		if c.Operator == domain.OpIn {
			return domain.Raw("1 = 0"), nil
		}
		return domain.Raw("1 = 1"), nil
	}

	operand, err := g.compileOperand(c.Operand)
	if err != nil {
		return domain.SQL{}, err
	}
	if !strings.HasPrefix(operand.Statement, "(") {
		operand = operand.Wrap()
	}
	return domain.Raw(c.Column + " " + string(c.Operator)).Join(operand), nil
}

// compileOperand renders an operand with neutral placeholders. SELECT
// fragments are parenthesized.
func (g *Grammar) compileOperand(op domain.Operand) (domain.SQL, error) {
	switch v := op.(type) {
	case domain.Value:
		return domain.Raw("?", v), nil
	case domain.Expression:
		return domain.Raw(string(v)), nil
	case domain.ColumnRef:
		return domain.Raw(string(v)), nil
	case domain.List:
		parts := make([]domain.SQL, len(v))
		for i, item := range v {
			parts[i] = domain.Raw("?", item)
		}
		return domain.JoinedWith(", ", parts...).Wrap(), nil
	case domain.SQL:
		if err := v.Validate(); err != nil {
			return domain.SQL{}, err
		}
		if v.IsSelect() {
			return v.Wrap(), nil
		}
		return v, nil
	case *domain.Query:
		sub, err := g.compileQuery(v)
		if err != nil {
			return domain.SQL{}, err
		}
		return sub.Wrap(), nil
	case nil:
		return domain.SQL{}, fmt.Errorf("%w: missing operand", domain.ErrInvalidQuery)
	default:
		return domain.SQL{}, fmt.Errorf("%w: unknown operand %T", domain.ErrInvalidQuery, op)
	}
}

func (g *Grammar) compileLimitOffset(q *domain.Query) (domain.SQL, error) {
	if (q.Limit != nil && *q.Limit < 0) || (q.Offset != nil && *q.Offset < 0) {
		return domain.SQL{}, compileErr(q.Table, "limit and offset must not be negative")
	}
	return domain.Raw(g.dialect.LimitOffset(q.Limit, q.Offset)), nil
}

func (g *Grammar) compileLock(lock *domain.Lock) domain.SQL {
	if lock == nil {
		return domain.SQL{}
	}
	return domain.Raw(g.dialect.Lock(*lock))
}

func (g *Grammar) compileReturning(columns []string) (domain.SQL, error) {
	if len(columns) == 0 {
		return domain.SQL{}, nil
	}
	if !g.dialect.SupportsReturning() {
		return domain.SQL{}, g.unsupported("RETURNING")
	}
	return domain.Raw("RETURNING " + strings.Join(columns, ", ")), nil
}

func compileGroups(groups []string) domain.SQL {
	if len(groups) == 0 {
		return domain.SQL{}
	}
	return domain.Raw("GROUP BY " + strings.Join(groups, ", "))
}

func compileOrders(orders []domain.OrderBy) domain.SQL {
	if len(orders) == 0 {
		return domain.SQL{}
	}
	parts := make([]string, len(orders))
	for i, o := range orders {
		dir := o.Direction
		if dir == "" {
			dir = domain.Asc
		}
		parts[i] = o.Column + " " + string(dir)
	}
	return domain.Raw("ORDER BY " + strings.Join(parts, ", "))
}

func tableRef(table, alias string) string {
	if alias == "" {
		return table
	}
	return table + " AS " + alias
}
