package config_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemy-swift/alchemy-sub004/internal/config"
)

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := config.AppFs
	fs := afero.NewMemMapFs()
	config.AppFs = fs
	t.Cleanup(func() { config.AppFs = prev })

	t.Setenv("ALCHEMY_DATABASE_URL", "")
	t.Setenv("ALCHEMY_DATABASE_DIALECT", "")
	t.Setenv("DATABASE_URL", "")
	return fs
}

func TestLoadFile(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/project/.alchemy.yaml", []byte(`
database:
  dialect: mysql
  url: root@tcp(localhost:3306)/app
  statement_cache_size: 32
migrations_dir: db/migrations
debug: true
`), 0o644))

	cfg, err := config.Load("/project/.alchemy.yaml")
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Dialect)
	assert.Equal(t, "root@tcp(localhost:3306)/app", cfg.Database.URL)
	assert.Equal(t, 32, cfg.Database.StatementCacheSize)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
	assert.Equal(t, "db/migrations", cfg.MigrationsDir)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/project/.alchemy.yaml", cfg.File)
	assert.NoError(t, cfg.Validate())

	adapter := cfg.Database.Adapter()
	assert.Equal(t, "mysql", adapter.Dialect)
	assert.Equal(t, 32, adapter.StatementCacheSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/p/.alchemy.yaml", []byte("database:\n  url: postgres://file/app\n"), 0o644))
	t.Setenv("ALCHEMY_DATABASE_URL", "postgres://env/app")

	cfg, err := config.Load("/p/.alchemy.yaml")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/app", cfg.Database.URL)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
}

func TestLoadDatabaseURLFallback(t *testing.T) {
	useMemFs(t)
	t.Setenv("DATABASE_URL", "sqlite://app.db")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite://app.db", cfg.Database.URL)
	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	useMemFs(t)

	_, err := config.Load("/nope/.alchemy.yaml")
	assert.ErrorContains(t, err, "failed to read config")
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Database:      config.DatabaseConfig{Dialect: "postgres", URL: "postgres://localhost/app"},
			MigrationsDir: "migrations",
		}
	}

	tests := []struct {
		name   string
		modify func(*config.Config)
		want   string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"unknown dialect", func(c *config.Config) { c.Database.Dialect = "oracle" }, "unsupported dialect: oracle"},
		{"missing dialect", func(c *config.Config) { c.Database.Dialect = "" }, "database.dialect is required"},
		{"missing url", func(c *config.Config) { c.Database.URL = "" }, "database.url is required"},
		{"negative pool", func(c *config.Config) { c.Database.MaxConnections = -1 }, "must not be negative"},
		{"missing dir", func(c *config.Config) { c.MigrationsDir = "" }, "migrations_dir is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestInferDialect(t *testing.T) {
	tests := map[string]string{
		"postgres://localhost/app":         "postgres",
		"postgresql://localhost/app":       "postgres",
		"mysql://root@localhost/app":       "mysql",
		"root:pw@tcp(localhost:3306)/app":  "mysql",
		"sqlite://data/app.db":             "sqlite",
		"file:app.db?cache=shared":         "sqlite",
		":memory:":                         "sqlite",
		"data/app.sqlite":                  "sqlite",
		"https://example.com/not-a-db-url": "",
	}

	for url, want := range tests {
		t.Run(url, func(t *testing.T) {
			assert.Equal(t, want, config.InferDialect(url))
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	useMemFs(t)
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Dialect:        "sqlite",
			URL:            "app.db",
			MaxConnections: 1,
			ConnectTimeout: 5,
		},
		MigrationsDir: "migrations",
	}

	require.NoError(t, config.Save(cfg, "/home/me/.config/alchemy/.alchemy.yaml"))

	loaded, err := config.Load("/home/me/.config/alchemy/.alchemy.yaml")
	require.NoError(t, err)
	assert.Equal(t, cfg.Database, loaded.Database)
	assert.Equal(t, "migrations", loaded.MigrationsDir)
}
