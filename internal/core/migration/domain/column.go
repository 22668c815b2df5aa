package domain

import (
	"fmt"
	"strings"

	querydomain "github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// ColumnKind is the dialect-neutral column type.
type ColumnKind string

const (
	KindIncrements    ColumnKind = "increments"
	KindBigIncrements ColumnKind = "bigIncrements"
	KindInt           ColumnKind = "int"
	KindBigInt        ColumnKind = "bigInt"
	KindDouble        ColumnKind = "double"
	KindString        ColumnKind = "string"
	KindText          ColumnKind = "text"
	KindUUID          ColumnKind = "uuid"
	KindBool          ColumnKind = "bool"
	KindDate          ColumnKind = "date"
	KindJSON          ColumnKind = "json"
)

// DefaultStringLength is used when String is given a zero length.
const DefaultStringLength = 255

// ColumnType is a column kind plus an optional length.
type ColumnType struct {
	Kind   ColumnKind
	Length int
}

func Increments() ColumnType    { return ColumnType{Kind: KindIncrements} }
func BigIncrements() ColumnType { return ColumnType{Kind: KindBigIncrements} }
func Int() ColumnType           { return ColumnType{Kind: KindInt} }
func BigInt() ColumnType        { return ColumnType{Kind: KindBigInt} }
func Double() ColumnType        { return ColumnType{Kind: KindDouble} }
func Text() ColumnType          { return ColumnType{Kind: KindText} }
func UUID() ColumnType          { return ColumnType{Kind: KindUUID} }
func Bool() ColumnType          { return ColumnType{Kind: KindBool} }
func Date() ColumnType          { return ColumnType{Kind: KindDate} }
func JSON() ColumnType          { return ColumnType{Kind: KindJSON} }

// String returns a string column of the given length, 255 when length is 0.
func String(length int) ColumnType {
	if length <= 0 {
		length = DefaultStringLength
	}
	return ColumnType{Kind: KindString, Length: length}
}

// ParseColumnType resolves a kind name such as "string" or "bigInt".
func ParseColumnType(kind string, length int) (ColumnType, error) {
	switch strings.ToLower(kind) {
	case "increments":
		return Increments(), nil
	case "bigincrements", "big_increments":
		return BigIncrements(), nil
	case "int", "integer":
		return Int(), nil
	case "bigint", "big_int":
		return BigInt(), nil
	case "double", "float":
		return Double(), nil
	case "string", "varchar":
		return String(length), nil
	case "text":
		return Text(), nil
	case "uuid":
		return UUID(), nil
	case "bool", "boolean":
		return Bool(), nil
	case "date", "datetime", "timestamp":
		return Date(), nil
	case "json":
		return JSON(), nil
	}
	return ColumnType{}, fmt.Errorf("%w: unknown column type %q", ErrInvalidSchema, kind)
}

// IsAutoIncrement reports whether the type generates its own values.
func (t ColumnType) IsAutoIncrement() bool {
	return t.Kind == KindIncrements || t.Kind == KindBigIncrements
}

// ReferentialAction is an ON DELETE / ON UPDATE action.
type ReferentialAction string

const (
	Cascade    ReferentialAction = "CASCADE"
	Restrict   ReferentialAction = "RESTRICT"
	SetNull    ReferentialAction = "SET NULL"
	SetDefault ReferentialAction = "SET DEFAULT"
	NoAction   ReferentialAction = "NO ACTION"
)

// ParseReferentialAction accepts "cascade", "set_null", "SET NULL" and similar.
func ParseReferentialAction(s string) (ReferentialAction, error) {
	norm := ReferentialAction(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", " ")))
	switch norm {
	case "":
		return "", nil
	case Cascade, Restrict, SetNull, SetDefault, NoAction:
		return norm, nil
	}
	return "", fmt.Errorf("%w: unknown referential action %q", ErrInvalidSchema, s)
}

// Constraint is a column constraint. Order is preserved into DDL.
type Constraint interface {
	isConstraint()
}

// Nullable marks a column NULL.
type Nullable struct{}

// NotNull marks a column NOT NULL.
type NotNull struct{}

// Default sets the column default. The operand is a Value or an Expression.
type Default struct {
	Value querydomain.Operand
}

// PrimaryKey marks a column as (part of) the primary key.
type PrimaryKey struct{}

// Unique marks a column unique.
type Unique struct{}

// ForeignKey references Table(Column).
type ForeignKey struct {
	Column   string
	Table    string
	OnDelete ReferentialAction
	OnUpdate ReferentialAction
}

// Unsigned marks a numeric column unsigned.
type Unsigned struct{}

func (Nullable) isConstraint()   {}
func (NotNull) isConstraint()    {}
func (Default) isConstraint()    {}
func (PrimaryKey) isConstraint() {}
func (Unique) isConstraint()     {}
func (ForeignKey) isConstraint() {}
func (Unsigned) isConstraint()   {}

// CreateColumn is a column definition.
type CreateColumn struct {
	Name        string
	Type        ColumnType
	Constraints []Constraint
}

// Has reports whether any constraint satisfies match.
func (c CreateColumn) Has(match func(Constraint) bool) bool {
	for _, con := range c.Constraints {
		if match(con) {
			return true
		}
	}
	return false
}

// IsPrimaryKey reports whether the column has a PrimaryKey constraint.
func (c CreateColumn) IsPrimaryKey() bool {
	return c.Has(func(con Constraint) bool { _, ok := con.(PrimaryKey); return ok })
}

// IsUnique reports whether the column has a Unique constraint.
func (c CreateColumn) IsUnique() bool {
	return c.Has(func(con Constraint) bool { _, ok := con.(Unique); return ok })
}

// ForeignKeys returns the column's foreign key constraints.
func (c CreateColumn) ForeignKeys() []ForeignKey {
	var fks []ForeignKey
	for _, con := range c.Constraints {
		if fk, ok := con.(ForeignKey); ok {
			fks = append(fks, fk)
		}
	}
	return fks
}
