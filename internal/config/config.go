// Package config loads alchemy settings from .alchemy.yaml, the
// environment and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/grammar"
)

// AppFs is the filesystem configuration and .env files are read from.
var AppFs = afero.NewOsFs()

// FileName is the config file name without extension.
const FileName = ".alchemy"

// EnvPrefix prefixes environment overrides, e.g. ALCHEMY_DATABASE_URL.
const EnvPrefix = "ALCHEMY"

// Config holds the application configuration.
type Config struct {
	Database      DatabaseConfig `mapstructure:"database"`
	MigrationsDir string         `mapstructure:"migrations_dir"`
	Debug         bool           `mapstructure:"debug"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// DatabaseConfig holds connection settings.
type DatabaseConfig struct {
	Dialect            string `mapstructure:"dialect"`
	URL                string `mapstructure:"url"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MaxIdleTime        int    `mapstructure:"max_idle_time"`
	ConnectTimeout     int    `mapstructure:"connect_timeout"`
	StatementCacheSize int    `mapstructure:"statement_cache_size"`
}

// Adapter converts the settings into an adapter config.
func (d DatabaseConfig) Adapter() database.Config {
	return database.Config{
		Dialect:            d.Dialect,
		URL:                d.URL,
		MaxConnections:     d.MaxConnections,
		MaxIdleTime:        d.MaxIdleTime,
		ConnectTimeout:     d.ConnectTimeout,
		StatementCacheSize: d.StatementCacheSize,
	}
}

// Load reads configuration. An empty path searches ".", $HOME and
// $HOME/.config/alchemy for .alchemy.yaml; a missing file is not an error
// unless path names it explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetFs(AppFs)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "alchemy"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	loadDotEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Database.Dialect == "" {
		cfg.Database.Dialect = InferDialect(cfg.Database.URL)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dialect", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_time", 300)
	v.SetDefault("database.connect_timeout", 10)
	v.SetDefault("database.statement_cache_size", 0)
	v.SetDefault("migrations_dir", "migrations")
	v.SetDefault("debug", false)
}

// loadDotEnv loads .env and then lets .env.local override it.
func loadDotEnv() {
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}
}

// InferDialect guesses the dialect from a connection URL.
func InferDialect(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"), strings.Contains(lower, "@tcp("):
		return "mysql"
	case strings.HasPrefix(lower, "sqlite"), strings.HasPrefix(lower, "file:"),
		lower == ":memory:", strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return "sqlite"
	}
	return ""
}

// Validate checks the settings needed to talk to a database.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Dialect == "" {
		errs = append(errs, errors.New("database.dialect is required"))
	} else if _, err := grammar.ForDialect(c.Database.Dialect); err != nil {
		errs = append(errs, err)
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required (or set DATABASE_URL)"))
	}
	if c.Database.MaxConnections < 0 || c.Database.StatementCacheSize < 0 {
		errs = append(errs, errors.New("database pool settings must not be negative"))
	}
	if c.MigrationsDir == "" {
		errs = append(errs, errors.New("migrations_dir is required"))
	}
	return errors.Join(errs...)
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	v := viper.New()
	v.SetFs(AppFs)
	v.Set("database.dialect", cfg.Database.Dialect)
	v.Set("database.url", cfg.Database.URL)
	v.Set("database.max_connections", cfg.Database.MaxConnections)
	v.Set("database.max_idle_time", cfg.Database.MaxIdleTime)
	v.Set("database.connect_timeout", cfg.Database.ConnectTimeout)
	v.Set("database.statement_cache_size", cfg.Database.StatementCacheSize)
	v.Set("migrations_dir", cfg.MigrationsDir)
	v.Set("debug", cfg.Debug)

	if dir := filepath.Dir(path); dir != "." {
		if err := AppFs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return v.WriteConfigAs(path)
}
