// Package commands implements CLI commands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alchemy-swift/alchemy-sub004/internal/config"
	"github.com/alchemy-swift/alchemy-sub004/internal/debug"
	"github.com/alchemy-swift/alchemy-sub004/internal/utils/container"
)

// BuildInfo is stamped in by the linker.
type BuildInfo struct {
	Version string
	Commit  string
}

// app carries state shared by every command.
type app struct {
	configPath string
	debug      bool
	build      BuildInfo

	cfg *config.Config
}

// NewRootCommand creates the alchemy command tree.
func NewRootCommand(build BuildInfo) *cobra.Command {
	a := &app{build: build}

	root := &cobra.Command{
		Use:           "alchemy",
		Short:         "SQL query and schema compiler with migrations",
		Long:          "alchemy compiles schema migrations for PostgreSQL, MySQL and SQLite and applies them.",
		Version:       fmt.Sprintf("%s (commit: %s)", build.Version, build.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default .alchemy.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(newInitCommand(a))
	root.AddCommand(newMigrateCommand(a))
	root.AddCommand(newVersionCommand(a))
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Debug = true
	}
	debug.Init(cfg.Debug)
	if cfg.File != "" {
		debug.Debug("using config", "file", cfg.File)
	}
	a.cfg = cfg
	return nil
}

// withContainer builds and connects a container for fn.
func (a *app) withContainer(ctx context.Context, fn func(c *container.Container) error) error {
	c, err := container.NewContainer(a.cfg)
	if err != nil {
		return err
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close(ctx)
	return fn(c)
}
