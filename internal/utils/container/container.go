// Package container provides dependency injection.
package container

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database"
	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database/mysql"
	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database/postgres"
	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database/sqlite"
	"github.com/alchemy-swift/alchemy-sub004/internal/config"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/grammar"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/executor"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/history"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/planner"
	"github.com/alchemy-swift/alchemy-sub004/internal/debug"
	"github.com/alchemy-swift/alchemy-sub004/internal/repository"
)

// Container holds all application dependencies.
type Container struct {
	config *config.Config
	fs     afero.Fs

	grammar *grammar.Grammar
	adapter database.Adapter

	planner    *planner.Planner
	tracker    *history.Tracker
	executor   *executor.Executor
	repository *repository.Repository
}

// Option customizes a Container.
type Option func(*Container)

// WithAdapter uses a instead of building one from the config.
func WithAdapter(a database.Adapter) Option {
	return func(c *Container) { c.adapter = a }
}

// WithFs reads migration files from fs.
func WithFs(fs afero.Fs) Option {
	return func(c *Container) { c.fs = fs }
}

// NewContainer wires every component from cfg. The adapter is created but
// not connected.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Container{config: cfg, fs: config.AppFs}
	for _, opt := range opts {
		opt(c)
	}

	g, err := grammar.ForDialect(cfg.Database.Dialect)
	if err != nil {
		return nil, err
	}
	c.grammar = g

	if c.adapter == nil {
		c.adapter, err = createDatabaseAdapter(g.Name(), cfg.Database.Adapter())
		if err != nil {
			return nil, fmt.Errorf("failed to create database adapter: %w", err)
		}
	}

	c.planner = planner.NewPlanner(g)
	c.tracker = history.NewTracker(g)
	c.executor = executor.NewExecutor(c.adapter, c.planner, c.tracker)
	c.repository = repository.NewRepository(c.fs, cfg.MigrationsDir)

	debug.Debug("container ready", "dialect", g.Name(), "migrations", cfg.MigrationsDir)
	return c, nil
}

// Connect opens the database connection.
func (c *Container) Connect(ctx context.Context) error {
	if err := c.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.grammar.Name(), err)
	}
	return nil
}

// Config returns the configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Grammar returns the grammar for the configured dialect.
func (c *Container) Grammar() *grammar.Grammar {
	return c.grammar
}

// Adapter returns the database adapter.
func (c *Container) Adapter() database.Adapter {
	return c.adapter
}

// Planner returns the migration planner.
func (c *Container) Planner() *planner.Planner {
	return c.planner
}

// Tracker returns the migration history tracker.
func (c *Container) Tracker() *history.Tracker {
	return c.tracker
}

// Executor returns the migration executor.
func (c *Container) Executor() *executor.Executor {
	return c.executor
}

// Repository returns the migration file repository.
func (c *Container) Repository() *repository.Repository {
	return c.repository
}

// Close cleans up resources.
func (c *Container) Close(ctx context.Context) error {
	if c.adapter != nil {
		return c.adapter.Disconnect(ctx)
	}
	return nil
}

// createDatabaseAdapter creates the adapter for dialect.
func createDatabaseAdapter(dialect string, cfg database.Config) (database.Adapter, error) {
	switch dialect {
	case "postgres":
		return postgres.NewPostgresAdapter(cfg)
	case "mysql":
		return mysql.NewMySQLAdapter(cfg)
	case "sqlite":
		return sqlite.NewSQLiteAdapter(cfg)
	}
	return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
}
