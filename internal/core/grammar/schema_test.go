package grammar_test

import (
	"testing"
	"time"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/grammar"
	migration "github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statements(sqls []domain.SQL) []string {
	out := make([]string, len(sqls))
	for i, s := range sqls {
		out[i] = s.Statement
	}
	return out
}

func TestIndexName(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "users_email_key", migration.IndexName("users", []string{"email"}, true))
		assert.Equal(t, "users_age_bmi_idx", migration.IndexName("users", []string{"age", "bmi"}, false))
	}
}

func TestCompileSchema_AlterOrdering(t *testing.T) {
	// Diff fields are populated in an order unrelated to the output order.
	change := migration.AlterTable{
		Table: "users",
		Diff: migration.TableDiff{
			AddIndexes:    []migration.CreateIndex{{Columns: []string{"some_int"}, IsUnique: true}},
			RenameColumns: []migration.Rename{{From: "bmi", To: "bmi2"}},
			DropColumns:   []string{"email"},
		},
	}

	tests := []struct {
		grammar *grammar.Grammar
		want    []string
	}{
		{grammar.Postgres(), []string{
			"ALTER TABLE users DROP COLUMN email",
			"ALTER TABLE users RENAME COLUMN bmi TO bmi2",
			"CREATE UNIQUE INDEX users_some_int_key ON users (some_int)",
		}},
		{grammar.MySQL(), []string{
			"ALTER TABLE users DROP COLUMN email",
			"ALTER TABLE users RENAME COLUMN bmi TO bmi2",
			"CREATE UNIQUE INDEX users_some_int_key ON users (some_int)",
		}},
		{grammar.SQLite(), []string{
			"ALTER TABLE users DROP COLUMN email",
			"ALTER TABLE users RENAME COLUMN bmi TO bmi2",
			"CREATE UNIQUE INDEX users_some_int_key ON users (some_int)",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.grammar.Name(), func(t *testing.T) {
			sqls, err := grammar.CompileSchema(change, tt.grammar)
			require.NoError(t, err)
			assert.Equal(t, tt.want, statements(sqls))
		})
	}
}

func TestCompileSchema_AlterFullDiff(t *testing.T) {
	change := migration.AlterTable{
		Table: "users",
		Diff: migration.TableDiff{
			AddColumns: []migration.CreateColumn{
				{Name: "nickname", Type: migration.String(64), Constraints: []migration.Constraint{migration.Nullable{}}},
				{Name: "team_id", Type: migration.BigInt(), Constraints: []migration.Constraint{
					migration.ForeignKey{Column: "id", Table: "teams", OnDelete: migration.Cascade},
				}},
				{Name: "code", Type: migration.Text(), Constraints: []migration.Constraint{migration.Unique{}}},
			},
			DropColumns: []string{"legacy"},
			DropIndexes: []string{migration.IndexName("users", []string{"legacy"}, false)},
			AddIndexes:  []migration.CreateIndex{{Columns: []string{"team_id", "nickname"}}},
		},
	}

	sqls, err := grammar.CompileSchema(change, grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ALTER TABLE users ADD COLUMN nickname VARCHAR(64) NULL, ADD COLUMN team_id BIGINT, " +
			"ADD FOREIGN KEY (team_id) REFERENCES teams (id) ON DELETE CASCADE, ADD COLUMN code TEXT UNIQUE, DROP COLUMN legacy",
		"DROP INDEX users_legacy_idx",
		"CREATE INDEX users_team_id_nickname_idx ON users (team_id, nickname)",
	}, statements(sqls))

	sqls, err = grammar.CompileSchema(change, grammar.MySQL())
	require.NoError(t, err)
	assert.Equal(t, "DROP INDEX users_legacy_idx ON users", sqls[1].Statement)

	sqls, err = grammar.CompileSchema(change, grammar.SQLite())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ALTER TABLE users ADD COLUMN nickname TEXT NULL",
		"ALTER TABLE users ADD COLUMN team_id INTEGER REFERENCES teams (id) ON DELETE CASCADE",
		"ALTER TABLE users ADD COLUMN code TEXT",
		"ALTER TABLE users DROP COLUMN legacy",
		"DROP INDEX users_legacy_idx",
		"CREATE UNIQUE INDEX users_code_key ON users (code)",
		"CREATE INDEX users_team_id_nickname_idx ON users (team_id, nickname)",
	}, statements(sqls))
}

func TestCompileSchema_AlterRejectsContradictions(t *testing.T) {
	change := migration.AlterTable{
		Table: "users",
		Diff: migration.TableDiff{
			DropColumns:   []string{"bmi"},
			RenameColumns: []migration.Rename{{From: "bmi", To: "bmi2"}},
		},
	}

	_, err := grammar.CompileSchema(change, grammar.Postgres())
	require.Error(t, err)
	assert.ErrorIs(t, err, migration.ErrInvalidSchema)

	var compileErr *grammar.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "users", compileErr.Table)
}

func TestCompileSchema_CreateTable(t *testing.T) {
	change := migration.CreateTable{
		Table:       "users",
		IfNotExists: true,
		Columns: []migration.CreateColumn{
			{Name: "id", Type: migration.Increments(), Constraints: []migration.Constraint{migration.PrimaryKey{}}},
			{Name: "email", Type: migration.String(0), Constraints: []migration.Constraint{migration.NotNull{}, migration.Unique{}}},
			{Name: "active", Type: migration.Bool(), Constraints: []migration.Constraint{migration.Default{Value: domain.Bool(true)}, migration.NotNull{}}},
			{Name: "name", Type: migration.String(32), Constraints: []migration.Constraint{migration.Default{Value: domain.String("O'Brien")}}},
			{Name: "created_at", Type: migration.Date(), Constraints: []migration.Constraint{migration.NotNull{}, migration.Default{Value: domain.Expression("CURRENT_TIMESTAMP")}}},
			{Name: "team_id", Type: migration.Int(), Constraints: []migration.Constraint{
				migration.ForeignKey{Column: "id", Table: "teams", OnDelete: migration.SetNull, OnUpdate: migration.Cascade},
			}},
		},
		Indexes: []migration.CreateIndex{{Columns: []string{"created_at"}}},
	}

	tests := []struct {
		grammar *grammar.Grammar
		want    []string
	}{
		{grammar.Postgres(), []string{
			"CREATE TABLE IF NOT EXISTS users (id SERIAL, email VARCHAR(255) NOT NULL, active BOOL DEFAULT TRUE NOT NULL, " +
				"name VARCHAR(32) DEFAULT 'O''Brien', created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP, team_id INT, " +
				"PRIMARY KEY (id), UNIQUE (email), FOREIGN KEY (team_id) REFERENCES teams (id) ON DELETE SET NULL ON UPDATE CASCADE)",
			"CREATE INDEX users_created_at_idx ON users (created_at)",
		}},
		{grammar.MySQL(), []string{
			"CREATE TABLE IF NOT EXISTS users (id INT AUTO_INCREMENT, email VARCHAR(255) NOT NULL, active BOOLEAN DEFAULT TRUE NOT NULL, " +
				"name VARCHAR(32) DEFAULT 'O''Brien', created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP, team_id INT, " +
				"PRIMARY KEY (id), UNIQUE (email), FOREIGN KEY (team_id) REFERENCES teams (id) ON DELETE SET NULL ON UPDATE CASCADE)",
			"CREATE INDEX users_created_at_idx ON users (created_at)",
		}},
		{grammar.SQLite(), []string{
			"CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL, active BOOLEAN DEFAULT 1 NOT NULL, " +
				"name TEXT DEFAULT 'O''Brien', created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP, team_id INTEGER, " +
				"UNIQUE (email), FOREIGN KEY (team_id) REFERENCES teams (id) ON DELETE SET NULL ON UPDATE CASCADE)",
			"CREATE INDEX users_created_at_idx ON users (created_at)",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.grammar.Name(), func(t *testing.T) {
			sqls, err := grammar.CompileSchema(change, tt.grammar)
			require.NoError(t, err)
			assert.Equal(t, tt.want, statements(sqls))
		})
	}
}

func TestCompileSchema_TypeTable(t *testing.T) {
	types := []migration.ColumnType{
		migration.BigIncrements(), migration.BigInt(), migration.Double(), migration.Text(),
		migration.UUID(), migration.JSON(),
	}
	want := map[string][]string{
		"postgres": {"BIGSERIAL", "BIGINT", "FLOAT8", "TEXT", "UUID", "JSON"},
		"mysql":    {"BIGINT AUTO_INCREMENT", "BIGINT", "DOUBLE", "TEXT", "VARCHAR(36)", "JSON"},
		"sqlite":   {"INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER", "DOUBLE", "TEXT", "TEXT", "TEXT"},
	}

	for _, g := range []*grammar.Grammar{grammar.Postgres(), grammar.MySQL(), grammar.SQLite()} {
		t.Run(g.Name(), func(t *testing.T) {
			for i, typ := range types {
				sqls, err := g.CompileCreateTable(migration.CreateTable{
					Table:   "t",
					Columns: []migration.CreateColumn{{Name: "c", Type: typ}},
				})
				require.NoError(t, err)
				assert.Equal(t, "CREATE TABLE t (c "+want[g.Name()][i]+")", sqls[0].Statement)
			}
		})
	}
}

func TestCompileSchema_Unsigned(t *testing.T) {
	change := migration.CreateTable{
		Table: "counters",
		Columns: []migration.CreateColumn{
			{Name: "id", Type: migration.BigIncrements(), Constraints: []migration.Constraint{migration.Unsigned{}, migration.PrimaryKey{}}},
			{Name: "hits", Type: migration.Int(), Constraints: []migration.Constraint{migration.NotNull{}, migration.Unsigned{}, migration.Default{Value: domain.Int(0)}}},
		},
	}

	sqls, err := grammar.CompileSchema(change, grammar.MySQL())
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE counters (id BIGINT UNSIGNED AUTO_INCREMENT, hits INT UNSIGNED NOT NULL DEFAULT 0, PRIMARY KEY (id))", sqls[0].Statement)

	_, err = grammar.CompileSchema(change, grammar.Postgres())
	require.Error(t, err)
	assert.ErrorIs(t, err, grammar.ErrUnsupported)

	var unsupported *grammar.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "postgres", unsupported.Dialect)
}

func TestCompileSchema_SQLiteRejectsAddedPrimaryKey(t *testing.T) {
	change := migration.AlterTable{
		Table: "users",
		Diff: migration.TableDiff{AddColumns: []migration.CreateColumn{
			{Name: "uid", Type: migration.UUID(), Constraints: []migration.Constraint{migration.PrimaryKey{}}},
		}},
	}

	_, err := grammar.CompileSchema(change, grammar.SQLite())
	assert.ErrorIs(t, err, grammar.ErrUnsupported)

	sqls, err := grammar.CompileSchema(change, grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE users ADD COLUMN uid UUID PRIMARY KEY", sqls[0].Statement)
}

func TestCompileSchema_DropAndRename(t *testing.T) {
	sqls, err := grammar.CompileSchema(migration.DropTable{Table: "users", IfExists: true}, grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, []string{"DROP TABLE IF EXISTS users"}, statements(sqls))

	sqls, err = grammar.CompileSchema(migration.RenameTable{From: "users", To: "people"}, grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTER TABLE users RENAME TO people"}, statements(sqls))

	sqls, err = grammar.CompileSchema(migration.RenameTable{From: "users", To: "people"}, grammar.MySQL())
	require.NoError(t, err)
	assert.Equal(t, []string{"RENAME TABLE users TO people"}, statements(sqls))
}

func TestCompileSchema_RawStatementIsPositioned(t *testing.T) {
	raw := migration.RawStatement{SQL: domain.Raw("UPDATE flags SET on = ? WHERE name = ?", domain.Bool(true), domain.String("beta"))}

	sqls, err := grammar.CompileSchema(raw, grammar.Postgres())
	require.NoError(t, err)
	assert.Equal(t, "UPDATE flags SET on = $1 WHERE name = $2", sqls[0].Statement)
	assert.Len(t, sqls[0].Binds, 2)
}

func TestCompileSchema_Idempotent(t *testing.T) {
	change := migration.AlterTable{
		Table: "users",
		Diff: migration.TableDiff{
			AddColumns: []migration.CreateColumn{{Name: "x", Type: migration.Int()}},
			AddIndexes: []migration.CreateIndex{{Columns: []string{"x"}}},
		},
	}

	first, err := grammar.CompileSchema(change, grammar.MySQL())
	require.NoError(t, err)
	second, err := grammar.CompileSchema(change, grammar.MySQL())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompileSchema_DefaultWithQuestionMark(t *testing.T) {
	change := migration.CreateTable{
		Table: "faq",
		Columns: []migration.CreateColumn{
			{Name: "q", Type: migration.Text(), Constraints: []migration.Constraint{migration.Default{Value: domain.String("why?")}}},
			{Name: "a", Type: migration.Text(), Constraints: []migration.Constraint{migration.Default{Value: domain.String("a??b")}}},
			{Name: "meta", Type: migration.JSON(), Constraints: []migration.Constraint{migration.Default{Value: domain.JSON([]byte(`{"q":"?"}`))}}},
		},
	}

	for _, g := range []*grammar.Grammar{grammar.Postgres(), grammar.MySQL(), grammar.SQLite()} {
		t.Run(g.Name(), func(t *testing.T) {
			var sqls []domain.SQL
			require.NotPanics(t, func() {
				var err error
				sqls, err = grammar.CompileSchema(change, g)
				require.NoError(t, err)
			})
			require.Len(t, sqls, 1)
			assert.Contains(t, sqls[0].Statement, "q TEXT DEFAULT 'why?'")
			assert.Contains(t, sqls[0].Statement, "a TEXT DEFAULT 'a??b'")
			assert.Contains(t, sqls[0].Statement, `DEFAULT '{"q":"?"}'`)
			assert.Empty(t, sqls[0].Binds)
		})
	}
}

func TestCompileSchema_DateDefaultKeepsFraction(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 45, 250_000_000, time.FixedZone("CET", 3600))
	change := migration.CreateTable{
		Table: "events",
		Columns: []migration.CreateColumn{
			{Name: "at", Type: migration.Date(), Constraints: []migration.Constraint{migration.Default{Value: domain.Date(at)}}},
			{Name: "day", Type: migration.Date(), Constraints: []migration.Constraint{migration.Default{Value: domain.Date(at.Truncate(time.Hour))}}},
		},
	}

	sqls, err := grammar.CompileSchema(change, grammar.MySQL())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE events (at DATETIME DEFAULT '2024-03-01 11:30:45.25', day DATETIME DEFAULT '2024-03-01 11:00:00')",
	}, statements(sqls))
}

func TestTransactionalDDL(t *testing.T) {
	assert.True(t, grammar.Postgres().Dialect().TransactionalDDL())
	assert.True(t, grammar.SQLite().Dialect().TransactionalDDL())
	assert.False(t, grammar.MySQL().Dialect().TransactionalDDL())
}
