package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database"
	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database/sqlite"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{":memory:", ":memory:?_foreign_keys=on"},
		{"sqlite://app.db", "app.db?_foreign_keys=on"},
		{"file:app.db?cache=shared", "file:app.db?cache=shared&_foreign_keys=on"},
		{"app.db?_fk=off", "app.db?_fk=off"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlite.DSN(tt.raw))
		})
	}
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, database.ErrUniqueViolation},
		{"primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, database.ErrUniqueViolation},
		{"foreign key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, database.ErrForeignKeyViolation},
		{"not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, database.ErrNotNullViolation},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, nil},
		{"other", errors.New("boom"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlite.TranslateError(tt.err))
		})
	}
}

func TestInMemoryViolations(t *testing.T) {
	ctx := context.Background()
	a, err := sqlite.NewSQLiteAdapter(database.Config{URL: ":memory:", StatementCacheSize: 4})
	require.NoError(t, err)
	require.NoError(t, a.Connect(ctx))
	defer a.Disconnect(ctx)

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL UNIQUE)",
		"CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER REFERENCES users (id))",
	} {
		_, err := a.Exec(ctx, domain.Raw(stmt))
		require.NoError(t, err)
	}

	insert := domain.SQL{Statement: "INSERT INTO users (email) VALUES (?)", Binds: []domain.Value{domain.String("a@b.c")}}
	_, err = a.Exec(ctx, insert)
	require.NoError(t, err)

	_, err = a.Exec(ctx, insert)
	assert.ErrorIs(t, err, database.ErrUniqueViolation)

	_, err = a.Exec(ctx, domain.SQL{Statement: "INSERT INTO users (email) VALUES (?)", Binds: []domain.Value{domain.Null}})
	assert.ErrorIs(t, err, database.ErrNotNullViolation)

	_, err = a.Exec(ctx, domain.SQL{Statement: "INSERT INTO posts (user_id) VALUES (?)", Binds: []domain.Value{domain.Int(99)}})
	assert.ErrorIs(t, err, database.ErrForeignKeyViolation)

	var qe *database.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "INSERT INTO posts (user_id) VALUES (?)", qe.Statement)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	a, err := sqlite.NewSQLiteAdapter(database.Config{URL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, a.Connect(ctx))
	defer a.Disconnect(ctx)

	_, err = a.Exec(ctx, domain.Raw("CREATE TABLE items (name TEXT)"))
	require.NoError(t, err)

	tx, err := a.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, domain.SQL{Statement: "INSERT INTO items (name) VALUES (?)", Binds: []domain.Value{domain.String("x")}})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	rows, err := a.Query(ctx, domain.Raw("SELECT COUNT(*) FROM items"))
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	assert.Zero(t, n)
}
