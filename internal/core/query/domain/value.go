// Package domain contains the core entities of the Query domain: bindable values,
// SQL fragments and the query AST.
package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ValueKind names the active variant of a Value.
type ValueKind string

const (
	// KindNull is the explicit NULL variant.
	KindNull ValueKind = "null"
	// KindInt is a 64-bit signed integer.
	KindInt ValueKind = "int"
	// KindDouble is a 64-bit float.
	KindDouble ValueKind = "double"
	// KindBool is a boolean.
	KindBool ValueKind = "bool"
	// KindString is a string.
	KindString ValueKind = "string"
	// KindDate is a timestamp.
	KindDate ValueKind = "date"
	// KindJSON is an encoded JSON document.
	KindJSON ValueKind = "json"
	// KindUUID is a UUID.
	KindUUID ValueKind = "uuid"
)

// Value is a bindable literal. Exactly one variant is active; NULL is the
// NullValue variant and never a nil interface.
type Value interface {
	Operand
	driver.Valuer

	// Kind returns the active variant.
	Kind() ValueKind
	isValue()
}

// NullValue is the explicit SQL NULL.
type NullValue struct{}

// IntValue is an integer bind.
type IntValue int64

// DoubleValue is a floating point bind.
type DoubleValue float64

// BoolValue is a boolean bind.
type BoolValue bool

// StringValue is a string bind.
type StringValue string

// DateValue is a timestamp bind.
type DateValue struct {
	Time time.Time
}

// JSONValue is an already encoded JSON document.
type JSONValue []byte

// UUIDValue is a UUID bind.
type UUIDValue uuid.UUID

// Null is the NULL value.
var Null Value = NullValue{}

// Int returns an IntValue.
func Int(v int64) Value { return IntValue(v) }

// Double returns a DoubleValue.
func Double(v float64) Value { return DoubleValue(v) }

// Bool returns a BoolValue.
func Bool(v bool) Value { return BoolValue(v) }

// String returns a StringValue.
func String(v string) Value { return StringValue(v) }

// Date returns a DateValue.
func Date(t time.Time) Value { return DateValue{Time: t} }

// JSON returns a JSONValue holding a copy of raw.
func JSON(raw []byte) Value {
	b := make([]byte, len(raw))
	copy(b, raw)
	return JSONValue(b)
}

// MarshalJSON encodes v and returns it as a JSONValue.
func MarshalJSON(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json value: %w", err)
	}
	return JSONValue(raw), nil
}

// UUID returns a UUIDValue.
func UUID(id uuid.UUID) Value { return UUIDValue(id) }

func (NullValue) Kind() ValueKind   { return KindNull }
func (IntValue) Kind() ValueKind    { return KindInt }
func (DoubleValue) Kind() ValueKind { return KindDouble }
func (BoolValue) Kind() ValueKind   { return KindBool }
func (StringValue) Kind() ValueKind { return KindString }
func (DateValue) Kind() ValueKind   { return KindDate }
func (JSONValue) Kind() ValueKind   { return KindJSON }
func (UUIDValue) Kind() ValueKind   { return KindUUID }

func (NullValue) isValue()   {}
func (IntValue) isValue()    {}
func (DoubleValue) isValue() {}
func (BoolValue) isValue()   {}
func (StringValue) isValue() {}
func (DateValue) isValue()   {}
func (JSONValue) isValue()   {}
func (UUIDValue) isValue()   {}

func (NullValue) isOperand()   {}
func (IntValue) isOperand()    {}
func (DoubleValue) isOperand() {}
func (BoolValue) isOperand()   {}
func (StringValue) isOperand() {}
func (DateValue) isOperand()   {}
func (JSONValue) isOperand()   {}
func (UUIDValue) isOperand()   {}

// Value implements driver.Valuer.
func (NullValue) Value() (driver.Value, error) { return nil, nil }

// Value implements driver.Valuer.
func (v IntValue) Value() (driver.Value, error) { return int64(v), nil }

// Value implements driver.Valuer.
func (v DoubleValue) Value() (driver.Value, error) { return float64(v), nil }

// Value implements driver.Valuer.
func (v BoolValue) Value() (driver.Value, error) { return bool(v), nil }

// Value implements driver.Valuer.
func (v StringValue) Value() (driver.Value, error) { return string(v), nil }

// Value implements driver.Valuer.
func (v DateValue) Value() (driver.Value, error) { return v.Time, nil }

// Value implements driver.Valuer.
func (v JSONValue) Value() (driver.Value, error) { return []byte(v), nil }

// Value implements driver.Valuer.
func (v UUIDValue) Value() (driver.Value, error) { return uuid.UUID(v).String(), nil }

func (NullValue) String() string     { return "NULL" }
func (v IntValue) String() string    { return strconv.FormatInt(int64(v), 10) }
func (v DoubleValue) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v BoolValue) String() string   { return strconv.FormatBool(bool(v)) }
func (v StringValue) String() string { return strconv.Quote(string(v)) }
func (v DateValue) String() string   { return v.Time.Format(time.RFC3339Nano) }
func (v JSONValue) String() string   { return string(v) }
func (v UUIDValue) String() string   { return uuid.UUID(v).String() }

// ValuesEqual reports whether a and b hold the same variant and payload.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case JSONValue:
		return bytes.Equal(av, b.(JSONValue))
	case DateValue:
		return av.Time.Equal(b.(DateValue).Time)
	default:
		return a == b
	}
}

// BindsEqual compares two bind lists element-wise with ValuesEqual.
func BindsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ValuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ValueOf converts a Go value into an Operand. Slices become a List, except
// []byte and json.RawMessage which are treated as JSON documents.
func ValueOf(v any) (Operand, error) {
	switch val := v.(type) {
	case nil:
		return Null, nil
	case Operand:
		return val, nil
	case int:
		return IntValue(val), nil
	case int8:
		return IntValue(val), nil
	case int16:
		return IntValue(val), nil
	case int32:
		return IntValue(val), nil
	case int64:
		return IntValue(val), nil
	case uint8:
		return IntValue(val), nil
	case uint16:
		return IntValue(val), nil
	case uint32:
		return IntValue(val), nil
	case uint:
		if uint64(val) > 1<<63-1 {
			return nil, fmt.Errorf("%w: unsigned value %d overflows int64", ErrUnsupportedValue, val)
		}
		return IntValue(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("%w: unsigned value %d overflows int64", ErrUnsupportedValue, val)
		}
		return IntValue(val), nil
	case float32:
		return DoubleValue(val), nil
	case float64:
		return DoubleValue(val), nil
	case bool:
		return BoolValue(val), nil
	case string:
		return StringValue(val), nil
	case time.Time:
		return DateValue{Time: val}, nil
	case *time.Time:
		if val == nil {
			return Null, nil
		}
		return DateValue{Time: *val}, nil
	case json.RawMessage:
		return JSON(val), nil
	case []byte:
		return JSON(val), nil
	case uuid.UUID:
		return UUIDValue(val), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := make(List, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := ValueOf(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			value, ok := item.(Value)
			if !ok {
				return nil, fmt.Errorf("%w: list element %d is %T, not a value", ErrUnsupportedValue, i, item)
			}
			list = append(list, value)
		}
		return list, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return Null, nil
		}
		return ValueOf(rv.Elem().Interface())
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// MustValue is like ValueOf but requires the result to be a single Value.
func MustValue(v any) Value {
	op, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	value, ok := op.(Value)
	if !ok {
		panic(fmt.Sprintf("domain: %T is not a single value", v))
	}
	return value
}
