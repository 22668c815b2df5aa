package builder_test

import (
	"testing"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/grammar"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/builder"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilder_Where(t *testing.T) {
	sql, err := builder.Table("users").Where("id", "=", 1).Compile(grammar.SQLite())
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM users WHERE id = ?", sql.Statement)
	assert.Equal(t, []domain.Value{domain.Int(1)}, sql.Binds)
}

func TestQueryBuilder_ClausesKeepCallOrder(t *testing.T) {
	sql, err := builder.Table("users").
		Select("id", "name").
		Where("age", ">", 18).
		OrWhereGroup(func(q *builder.QueryBuilder) {
			q.Where("role", "=", "admin").OrWhereNull("banned_at")
		}).
		WhereIn("team_id", []int{1, 2}).
		WhereNotNull("email").
		OrderByDesc("created_at").
		OrderBy("id").
		Limit(10).
		Compile(grammar.Postgres())
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, name FROM users WHERE age > $1 OR (role = $2 OR banned_at IS NULL) "+
			"AND team_id IN ($3, $4) AND email IS NOT NULL ORDER BY created_at DESC, id ASC LIMIT 10",
		sql.Statement)
	assert.Equal(t, []domain.Value{domain.Int(18), domain.String("admin"), domain.Int(1), domain.Int(2)}, sql.Binds)
}

func TestQueryBuilder_Joins(t *testing.T) {
	sql, err := builder.Table("users").
		Join("posts", "posts.user_id", "=", "users.id").
		LeftJoin("teams", "teams.id", "=", "users.team_id").
		CrossJoin("settings").
		Compile(grammar.MySQL())
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM users INNER JOIN posts ON posts.user_id = users.id "+
			"LEFT JOIN teams ON teams.id = users.team_id CROSS JOIN settings",
		sql.Statement)
}

func TestQueryBuilder_GroupHaving(t *testing.T) {
	sql, err := builder.Table("orders").
		Select("user_id", "SUM(total) AS spent").
		GroupBy("user_id").
		Having("SUM(total)", ">", 100).
		OrHavingGroup(func(q *builder.QueryBuilder) {
			q.Having("COUNT(*)", ">=", 5).HavingRaw("MAX(total) < ?", 50)
		}).
		Compile(grammar.Postgres())
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT user_id, SUM(total) AS spent FROM orders GROUP BY user_id "+
			"HAVING SUM(total) > $1 OR (COUNT(*) >= $2 AND MAX(total) < $3)",
		sql.Statement)
	assert.Len(t, sql.Binds, 3)
}

func TestQueryBuilder_Subquery(t *testing.T) {
	banned := builder.Table("bans").Select("user_id").Where("active", "=", true)

	sql, err := builder.Table("users").
		Where("tenant", "=", "acme").
		WhereNotIn("id", banned).
		Compile(grammar.Postgres())
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM users WHERE tenant = $1 AND id NOT IN (SELECT user_id FROM bans WHERE active = $2)", sql.Statement)
	assert.Equal(t, []domain.Value{domain.String("acme"), domain.Bool(true)}, sql.Binds)
}

func TestQueryBuilder_Locks(t *testing.T) {
	sql, err := builder.Table("jobs").Where("state", "=", "ready").Limit(1).ForUpdate().SkipLocked().Compile(grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM jobs WHERE state = $1 LIMIT 1 FOR UPDATE SKIP LOCKED", sql.Statement)

	sql, err = builder.Table("jobs").ForShare().NoWait().Compile(grammar.MySQL())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM jobs FOR SHARE NOWAIT", sql.Statement)
}

func TestQueryBuilder_Insert(t *testing.T) {
	sql, err := builder.Table("users").
		Insert(
			map[string]any{"name": "ann", "age": 30},
			map[string]any{"name": "bob", "age": nil},
		).
		Returning("id").
		Compile(grammar.Postgres())
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO users (age, name) VALUES ($1, $2), ($3, $4) RETURNING id", sql.Statement)
	assert.Equal(t, []domain.Value{domain.Int(30), domain.String("ann"), domain.Null, domain.String("bob")}, sql.Binds)
}

func TestQueryBuilder_InsertRaggedRows(t *testing.T) {
	_, err := builder.Table("users").
		Insert(map[string]any{"a": 1}, map[string]any{"b": 2}).
		Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestQueryBuilder_Update(t *testing.T) {
	sql, err := builder.Table("users").
		Update(map[string]any{"name": "x", "age": 3}).
		Set("updated_at", domain.Expression("NOW()")).
		Where("id", "=", 9).
		Compile(grammar.SQLite())
	require.NoError(t, err)

	assert.Equal(t, "UPDATE users SET age = ?, name = ?, updated_at = NOW() WHERE id = ?", sql.Statement)
	assert.Equal(t, []domain.Value{domain.Int(3), domain.String("x"), domain.Int(9)}, sql.Binds)
}

func TestQueryBuilder_Delete(t *testing.T) {
	sql, err := builder.Table("sessions").WhereBetween("expires_at", 1, 2).Delete().Compile(grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM sessions WHERE expires_at BETWEEN $1 AND $2", sql.Statement)
}

func TestQueryBuilder_AccumulatesErrors(t *testing.T) {
	_, err := builder.Table("users").
		Where("id", "~=", 1).
		Where("data", "=", struct{}{}).
		WhereRaw("a = ? AND b = ?", 1).
		Limit(-1).
		Build()
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	assert.ErrorIs(t, err, domain.ErrUnsupportedValue)
	assert.Contains(t, err.Error(), "~=")
	assert.Contains(t, err.Error(), "negative limit")
}

func TestQueryBuilder_BuildReturnsCopy(t *testing.T) {
	b := builder.Table("users").Where("id", "=", 1)

	first, err := b.Build()
	require.NoError(t, err)
	b.Where("name", "=", "x")
	second, err := b.Build()
	require.NoError(t, err)

	assert.Len(t, first.Wheres, 1)
	assert.Len(t, second.Wheres, 2)
}

func TestQueryBuilder_WhereInEmpty(t *testing.T) {
	sql, err := builder.Table("users").WhereIn("id", []int{}).Compile(grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE 1 = 0", sql.Statement)
	assert.Empty(t, sql.Binds)
}

func TestQueryBuilder_EscapedPlaceholder(t *testing.T) {
	sql, err := builder.Table("docs").WhereRaw("tags ?? ?", "go").Compile(grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM docs WHERE tags ? $1", sql.Statement)
}

func TestQueryBuilder_ListNeedsSetOperator(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		value    any
	}{
		{"equals empty", "=", []int{}},
		{"equals list", "=", []int{1, 2}},
		{"less than", "<", []int{3}},
		{"like", "LIKE", []string{"a%", "b%"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := builder.Table("users").Where("id", tt.operator, tt.value).Compile(grammar.Postgres())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidQuery)
			assert.Contains(t, err.Error(), "id")
		})
	}

	sql, err := builder.Table("users").Where("id", "in", []int{1, 2}).Compile(grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE id IN ($1, $2)", sql.Statement)

	sql, err = builder.Table("users").Where("age", "between", []int{18, 30}).Compile(grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users WHERE age BETWEEN $1 AND $2", sql.Statement)
}
