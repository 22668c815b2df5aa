package commands

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/alchemy-swift/alchemy-sub004/internal/config"
	"github.com/alchemy-swift/alchemy-sub004/internal/debug"
	"github.com/alchemy-swift/alchemy-sub004/internal/ui"
)

func newInitCommand(a *app) *cobra.Command {
	var (
		dialect string
		url     string
		dir     string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .alchemy.yaml and the migrations directory",
		// the config file does not exist yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug.Init(a.debug)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.FileName + ".yaml"
			}
			if exists, _ := afero.Exists(config.AppFs, path); exists && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := &config.Config{
				Database: config.DatabaseConfig{
					Dialect:        dialect,
					URL:            url,
					MaxConnections: 10,
					MaxIdleTime:    300,
					ConnectTimeout: 10,
				},
				MigrationsDir: dir,
			}
			if cfg.Database.Dialect == "" {
				cfg.Database.Dialect = config.InferDialect(url)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			if err := config.AppFs.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}

			ui.PrintSuccess("Wrote %s", path)
			ui.PrintSuccess("Created %s/", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", "", "postgres, mysql or sqlite (inferred from --url)")
	cmd.Flags().StringVar(&url, "url", "", "database connection url")
	cmd.Flags().StringVar(&dir, "dir", "migrations", "migrations directory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	cmd.MarkFlagRequired("url")
	return cmd
}
