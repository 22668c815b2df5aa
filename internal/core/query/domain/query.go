package domain

import (
	"fmt"
	"strings"
)

// StatementKind identifies the statement a Query compiles to.
type StatementKind string

const (
	// Select reads rows.
	Select StatementKind = "SELECT"
	// Insert writes new rows.
	Insert StatementKind = "INSERT"
	// Update modifies rows.
	Update StatementKind = "UPDATE"
	// Delete removes rows.
	Delete StatementKind = "DELETE"
)

// Operand is anything that may appear on the right side of a condition or
// as an inserted/assigned value.
type Operand interface {
	isOperand()
}

// Expression is verbatim SQL such as NOW(). It is never bound.
type Expression string

// ColumnRef references another column by name.
type ColumnRef string

// List is an ordered list of values, used by IN and BETWEEN.
type List []Value

func (Expression) isOperand() {}
func (ColumnRef) isOperand()  {}
func (List) isOperand()       {}
func (*Query) isOperand()     {}

// Operator is a comparison operator.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
	OpNotEqualAlt    Operator = "<>"
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLike           Operator = "LIKE"
	OpNotLike        Operator = "NOT LIKE"
	OpILike          Operator = "ILIKE"
	OpIn             Operator = "IN"
	OpNotIn          Operator = "NOT IN"
	OpIs             Operator = "IS"
	OpIsNot          Operator = "IS NOT"
	OpBetween        Operator = "BETWEEN"
)

var operators = map[Operator]bool{
	OpEqual: true, OpNotEqual: true, OpNotEqualAlt: true,
	OpLess: true, OpLessOrEqual: true, OpGreater: true, OpGreaterOrEqual: true,
	OpLike: true, OpNotLike: true, OpILike: true,
	OpIn: true, OpNotIn: true, OpIs: true, OpIsNot: true, OpBetween: true,
}

// ParseOperator normalizes case and whitespace and validates the operator.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToUpper(strings.Join(strings.Fields(s), " ")))
	if !operators[op] {
		return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, s)
	}
	return op, nil
}

// Connector joins a clause to the one before it.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// WhereNode is a node of the where-tree.
type WhereNode interface {
	isWhereNode()
}

// Condition is a leaf comparing a column with an operand.
type Condition struct {
	Column   string
	Operator Operator
	Operand  Operand
}

// Group is a parenthesized list of clauses.
type Group struct {
	Clauses []WhereClause
}

// RawCondition is a verbatim predicate.
type RawCondition struct {
	SQL SQL
}

func (Condition) isWhereNode()    {}
func (Group) isWhereNode()        {}
func (RawCondition) isWhereNode() {}

// WhereClause pairs a node with the connector that precedes it. The
// connector of the first clause in a list is ignored.
type WhereClause struct {
	Connector Connector
	Node      WhereNode
}

// JoinType is the kind of a table join.
type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	RightJoin JoinType = "RIGHT"
	FullJoin  JoinType = "FULL"
	CrossJoin JoinType = "CROSS"
)

// Join describes a joined table.
type Join struct {
	Type  JoinType
	Table string
	Alias string
	On    []WhereClause
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderBy is one ORDER BY entry.
type OrderBy struct {
	Column    string
	Direction Direction
}

// LockStrength is the row lock mode.
type LockStrength string

const (
	LockUpdate LockStrength = "UPDATE"
	LockShare  LockStrength = "SHARE"
)

// LockOption controls waiting behaviour of a lock.
type LockOption string

const (
	LockWait       LockOption = ""
	LockNoWait     LockOption = "NOWAIT"
	LockSkipLocked LockOption = "SKIP LOCKED"
)

// Lock is a row locking clause.
type Lock struct {
	Strength LockStrength
	Option   LockOption
}

// InsertValues holds row-major insert data.
type InsertValues struct {
	Columns []string
	Rows    [][]Operand
}

// Assignment is one SET entry of an UPDATE.
type Assignment struct {
	Column  string
	Operand Operand
}

// Query is the dialect-neutral description of a single statement.
type Query struct {
	Statement StatementKind
	Table     string
	Alias     string
	Columns   []string
	Distinct  bool
	Joins     []Join
	Wheres    []WhereClause
	Groups    []string
	Havings   []WhereClause
	Orders    []OrderBy
	Limit     *int
	Offset    *int
	Lock      *Lock
	Insert    *InsertValues
	Sets      []Assignment
	Returning []string
}

// NewQuery creates a SELECT over table.
func NewQuery(table string) *Query {
	return &Query{Statement: Select, Table: table}
}

// SelectedColumns returns the projection, defaulting to "*".
func (q *Query) SelectedColumns() []string {
	if len(q.Columns) == 0 {
		return []string{"*"}
	}
	return q.Columns
}

// Clone returns a deep copy of the query.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	c := *q
	c.Columns = cloneStrings(q.Columns)
	c.Groups = cloneStrings(q.Groups)
	c.Returning = cloneStrings(q.Returning)
	c.Wheres = cloneClauses(q.Wheres)
	c.Havings = cloneClauses(q.Havings)
	if q.Joins != nil {
		c.Joins = make([]Join, len(q.Joins))
		for i, j := range q.Joins {
			j.On = cloneClauses(j.On)
			c.Joins[i] = j
		}
	}
	if q.Orders != nil {
		c.Orders = append([]OrderBy(nil), q.Orders...)
	}
	if q.Limit != nil {
		n := *q.Limit
		c.Limit = &n
	}
	if q.Offset != nil {
		n := *q.Offset
		c.Offset = &n
	}
	if q.Lock != nil {
		l := *q.Lock
		c.Lock = &l
	}
	if q.Insert != nil {
		ins := &InsertValues{Columns: cloneStrings(q.Insert.Columns)}
		ins.Rows = make([][]Operand, len(q.Insert.Rows))
		for i, row := range q.Insert.Rows {
			ins.Rows[i] = make([]Operand, len(row))
			for j, op := range row {
				ins.Rows[i][j] = cloneOperand(op)
			}
		}
		c.Insert = ins
	}
	if q.Sets != nil {
		c.Sets = make([]Assignment, len(q.Sets))
		for i, s := range q.Sets {
			c.Sets[i] = Assignment{Column: s.Column, Operand: cloneOperand(s.Operand)}
		}
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneClauses(clauses []WhereClause) []WhereClause {
	if clauses == nil {
		return nil
	}
	out := make([]WhereClause, len(clauses))
	for i, c := range clauses {
		out[i] = WhereClause{Connector: c.Connector, Node: cloneNode(c.Node)}
	}
	return out
}

func cloneNode(n WhereNode) WhereNode {
	switch node := n.(type) {
	case Condition:
		node.Operand = cloneOperand(node.Operand)
		return node
	case Group:
		return Group{Clauses: cloneClauses(node.Clauses)}
	case RawCondition:
		return RawCondition{SQL: cloneSQL(node.SQL)}
	default:
		return n
	}
}

func cloneOperand(op Operand) Operand {
	switch v := op.(type) {
	case List:
		return append(List(nil), v...)
	case SQL:
		return cloneSQL(v)
	case *Query:
		return v.Clone()
	case JSONValue:
		return JSON(v)
	default:
		return op
	}
}

func cloneSQL(s SQL) SQL {
	if s.Binds == nil {
		return s
	}
	return SQL{Statement: s.Statement, Binds: append([]Value(nil), s.Binds...)}
}
