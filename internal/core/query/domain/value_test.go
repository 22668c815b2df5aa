package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name  string
		input any
		want  domain.Operand
	}{
		{"nil", nil, domain.Null},
		{"int", 42, domain.Int(42)},
		{"uint32", uint32(7), domain.Int(7)},
		{"float", 1.5, domain.Double(1.5)},
		{"bool", true, domain.Bool(true)},
		{"string", "hi", domain.String("hi")},
		{"time", now, domain.Date(now)},
		{"uuid", id, domain.UUID(id)},
		{"raw json", json.RawMessage(`{"a":1}`), domain.JSONValue(`{"a":1}`)},
		{"expression", domain.Expression("NOW()"), domain.Expression("NOW()")},
		{"slice", []int{1, 2}, domain.List{domain.Int(1), domain.Int(2)}},
		{"nil pointer", (*int)(nil), domain.Null},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ValueOf(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueOf_Unsupported(t *testing.T) {
	_, err := domain.ValueOf(struct{}{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedValue)

	_, err = domain.ValueOf(uint64(1 << 63))
	assert.ErrorIs(t, err, domain.ErrUnsupportedValue)
}

func TestValuesEqual(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.In(time.FixedZone("X", 3600))

	assert.True(t, domain.ValuesEqual(domain.Date(a), domain.Date(b)))
	assert.True(t, domain.ValuesEqual(domain.JSON([]byte("[1]")), domain.JSON([]byte("[1]"))))
	assert.True(t, domain.ValuesEqual(domain.Null, domain.NullValue{}))
	assert.False(t, domain.ValuesEqual(domain.Int(1), domain.Double(1)))
	assert.False(t, domain.ValuesEqual(domain.String("a"), domain.Null))
}

func TestValue_DriverValue(t *testing.T) {
	id := uuid.New()

	v, err := domain.UUID(id).Value()
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)

	v, err = domain.Null.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = domain.Int(3).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestQuery_CloneIsDeep(t *testing.T) {
	limit := 10
	q := domain.NewQuery("users")
	q.Limit = &limit
	q.Wheres = []domain.WhereClause{{
		Connector: domain.And,
		Node:      domain.Condition{Column: "id", Operator: domain.OpIn, Operand: domain.List{domain.Int(1)}},
	}}

	c := q.Clone()
	*c.Limit = 20
	c.Wheres[0].Node.(domain.Condition).Operand.(domain.List)[0] = domain.Int(9)

	assert.Equal(t, 10, *q.Limit)
	assert.Equal(t, domain.Int(1), q.Wheres[0].Node.(domain.Condition).Operand.(domain.List)[0])
}

func TestParseOperator(t *testing.T) {
	op, err := domain.ParseOperator(" not   like ")
	require.NoError(t, err)
	assert.Equal(t, domain.OpNotLike, op)

	_, err = domain.ParseOperator("~~")
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}
