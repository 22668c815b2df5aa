package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
)

func TestIndexName(t *testing.T) {
	assert.Equal(t, "users_email_key", domain.IndexName("users", []string{"email"}, true))
	assert.Equal(t, "users_age_bmi_idx", domain.IndexName("users", []string{"age", "bmi"}, false))
	assert.Equal(t, "users_age_bmi_idx", domain.CreateIndex{Columns: []string{"age", "bmi"}}.Name("users"))
}

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		kind   string
		length int
		want   domain.ColumnType
	}{
		{"increments", 0, domain.Increments()},
		{"big_increments", 0, domain.BigIncrements()},
		{"INTEGER", 0, domain.Int()},
		{"varchar", 64, domain.String(64)},
		{"string", 0, domain.String(0)},
		{"timestamp", 0, domain.Date()},
		{"json", 0, domain.JSON()},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, err := domain.ParseColumnType(tt.kind, tt.length)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := domain.ParseColumnType("money", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
}

func TestParseReferentialAction(t *testing.T) {
	tests := map[string]domain.ReferentialAction{
		"":            "",
		"cascade":     domain.Cascade,
		"set_null":    domain.SetNull,
		"SET DEFAULT": domain.SetDefault,
		" no_action ": domain.NoAction,
	}
	for in, want := range tests {
		got, err := domain.ParseReferentialAction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := domain.ParseReferentialAction("explode")
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
}

func TestCreateTableValidate(t *testing.T) {
	id := domain.CreateColumn{Name: "id", Type: domain.Increments()}

	tests := []struct {
		name    string
		table   domain.CreateTable
		wantErr string
	}{
		{"valid", domain.CreateTable{Table: "users", Columns: []domain.CreateColumn{id}}, ""},
		{"no name", domain.CreateTable{Columns: []domain.CreateColumn{id}}, "table name is required"},
		{"no columns", domain.CreateTable{Table: "users"}, "table has no columns"},
		{"duplicate", domain.CreateTable{Table: "users", Columns: []domain.CreateColumn{id, id}}, `duplicate column "id"`},
		{"untyped", domain.CreateTable{Table: "users", Columns: []domain.CreateColumn{{Name: "x"}}}, "column type is required"},
		{
			"empty index",
			domain.CreateTable{Table: "users", Columns: []domain.CreateColumn{id}, Indexes: []domain.CreateIndex{{}}},
			"index has no columns",
		},
		{
			"half foreign key",
			domain.CreateTable{Table: "posts", Columns: []domain.CreateColumn{{
				Name:        "user_id",
				Type:        domain.Int(),
				Constraints: []domain.Constraint{domain.ForeignKey{Column: "id"}},
			}}},
			"foreign key needs a table and a column",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidSchema)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTableDiffValidate(t *testing.T) {
	age := domain.CreateColumn{Name: "age", Type: domain.Int()}

	tests := []struct {
		name    string
		diff    domain.TableDiff
		wantErr string
	}{
		{"valid", domain.TableDiff{AddColumns: []domain.CreateColumn{age}, DropColumns: []string{"legacy"}}, ""},
		{"added twice", domain.TableDiff{AddColumns: []domain.CreateColumn{age, age}}, "added twice"},
		{"add and drop", domain.TableDiff{AddColumns: []domain.CreateColumn{age}, DropColumns: []string{"age"}}, "both added and dropped"},
		{
			"rename dropped",
			domain.TableDiff{DropColumns: []string{"email"}, RenameColumns: []domain.Rename{{From: "email", To: "mail"}}},
			`cannot rename dropped column "email"`,
		},
		{"rename half", domain.TableDiff{RenameColumns: []domain.Rename{{From: "email"}}}, "rename needs both names"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.diff.Validate("users")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.True(t, domain.TableDiff{}.IsEmpty())
	assert.False(t, domain.TableDiff{DropIndexes: []string{"x"}}.IsEmpty())
}

func TestReferencesAndDestructive(t *testing.T) {
	posts := domain.CreateTable{Table: "posts", Columns: []domain.CreateColumn{
		{Name: "id", Type: domain.Increments()},
		{Name: "user_id", Type: domain.Int(), Constraints: []domain.Constraint{domain.ForeignKey{Table: "users", Column: "id"}}},
		{Name: "editor_id", Type: domain.Int(), Constraints: []domain.Constraint{domain.ForeignKey{Table: "users", Column: "id"}}},
		{Name: "parent_id", Type: domain.Int(), Constraints: []domain.Constraint{domain.ForeignKey{Table: "posts", Column: "id"}}},
	}}
	assert.Equal(t, []string{"users"}, posts.References())

	m := domain.Migration{Up: []domain.SchemaChange{posts}}
	assert.False(t, m.Destructive())

	m.Up = append(m.Up, domain.AlterTable{Table: "users", Diff: domain.TableDiff{DropColumns: []string{"legacy"}}})
	assert.True(t, m.Destructive())
	assert.True(t, domain.DropTable{Table: "users"}.IsDestructive())
}
