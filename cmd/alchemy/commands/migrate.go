package commands

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/alchemy-swift/alchemy-sub004/internal/config"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/grammar"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/executor"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/planner"
	"github.com/alchemy-swift/alchemy-sub004/internal/repository"
	"github.com/alchemy-swift/alchemy-sub004/internal/ui"
	"github.com/alchemy-swift/alchemy-sub004/internal/utils/container"
	"github.com/alchemy-swift/alchemy-sub004/internal/watch"
)

// newMigrateCommand creates the migrate command with subcommands.
func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(newMigrateMakeCommand(a))
	cmd.AddCommand(newMigrateUpCommand(a))
	cmd.AddCommand(newMigrateDownCommand(a))
	cmd.AddCommand(newMigrateStatusCommand(a))
	cmd.AddCommand(newMigrateResetCommand(a))
	cmd.AddCommand(newMigrateSQLCommand(a))
	return cmd
}

func newMigrateMakeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "make <name>",
		Short: "Create an empty migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := repository.NewRepository(config.AppFs, a.cfg.MigrationsDir)
			path, err := repo.Create(args[0], time.Now())
			if err != nil {
				return err
			}
			ui.PrintSuccess("Created %s", path)
			return nil
		},
	}
}

func newMigrateUpCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(cmd.Context(), func(c *container.Container) error {
				ms, err := c.Repository().Load()
				if err != nil {
					return err
				}
				result, err := c.Executor().Up(cmd.Context(), ms)
				if result != nil {
					for _, name := range result.Migrations {
						ui.PrintSuccess("Applied %s", name)
					}
				}
				if err != nil {
					warnPartialDDL(c)
					return err
				}
				if len(result.Migrations) == 0 {
					ui.PrintInfo("Nothing to migrate")
					return nil
				}
				ui.PrintInfo("Batch %d: %d migration(s)", result.Batch, len(result.Migrations))
				return nil
			})
		},
	}
}

func newMigrateDownCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(cmd.Context(), func(c *container.Container) error {
				ms, err := c.Repository().Load()
				if err != nil {
					return err
				}
				result, err := c.Executor().Down(cmd.Context(), ms)
				printRolledBack(result)
				if err != nil {
					warnPartialDDL(c)
					return err
				}
				if len(result.Migrations) == 0 {
					ui.PrintInfo("Nothing to roll back")
				}
				return nil
			})
		},
	}
}

func newMigrateStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which migrations have run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(cmd.Context(), func(c *container.Container) error {
				ms, err := c.Repository().Load()
				if err != nil {
					return err
				}
				entries, err := c.Executor().Status(cmd.Context(), ms)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					ui.PrintInfo("No migrations in %s", c.Repository().Dir())
					return nil
				}
				return ui.PrintStatus(entries)
			})
		},
	}
}

func newMigrateResetCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Roll back every migration",
		Long: `Roll back every applied migration, newest batch first.
This runs each migration's down changes and usually drops data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				confirmed := false
				prompt := &survey.Confirm{
					Message: "Roll back ALL migrations? Data in migrated tables will be lost.",
					Default: false,
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return fmt.Errorf("reset cancelled: %w", err)
				}
				if !confirmed {
					ui.PrintWarning("Reset cancelled")
					return nil
				}
			}

			return a.withContainer(cmd.Context(), func(c *container.Container) error {
				ms, err := c.Repository().Load()
				if err != nil {
					return err
				}
				result, err := c.Executor().Reset(cmd.Context(), ms)
				printRolledBack(result)
				if err != nil {
					warnPartialDDL(c)
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}

func newMigrateSQLCommand(a *app) *cobra.Command {
	var (
		dialect string
		down    bool
		watchOn bool
	)

	cmd := &cobra.Command{
		Use:   "sql [migration...]",
		Short: "Print the SQL of migrations without a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dialect == "" {
				dialect = a.cfg.Database.Dialect
			}
			if dialect == "" {
				return fmt.Errorf("no dialect: pass --dialect or set database.dialect")
			}
			g, err := grammar.ForDialect(dialect)
			if err != nil {
				return err
			}
			repo := repository.NewRepository(config.AppFs, a.cfg.MigrationsDir)
			render := func() error {
				return printSQL(repo, planner.NewPlanner(g), args, down)
			}

			if !watchOn {
				return render()
			}

			w, err := watch.NewWatcher(repo.Dir(), repository.IsMigrationFile, func() error {
				ui.PrintHeader("alchemy migrate sql", fmt.Sprintf("%s, watching %s", g.Name(), repo.Dir()))
				return render()
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return w.Run(ctx, func(err error) { ui.PrintError("%v", err) })
		},
	}

	cmd.Flags().StringVarP(&dialect, "dialect", "d", "", "postgres, mysql or sqlite (default from config)")
	cmd.Flags().BoolVar(&down, "down", false, "print the down changes")
	cmd.Flags().BoolVarP(&watchOn, "watch", "w", false, "re-print when migration files change")
	return cmd
}

// printSQL compiles the named migrations, or all of them, and prints the
// statements.
func printSQL(repo *repository.Repository, p *planner.Planner, names []string, down bool) error {
	ms, err := repo.Load()
	if err != nil {
		return err
	}
	selected, err := selectMigrations(ms, names)
	if err != nil {
		return err
	}

	for _, m := range selected {
		changes := m.Up
		if down {
			changes = m.Down
		}
		plan, err := p.Plan(changes)
		if err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
		ui.PrintStatements(m.Name, plan.Statements)
		if plan.Destructive() && !down {
			ui.PrintWarning("%s contains destructive changes", m.Name)
		}
	}
	return nil
}

func selectMigrations(ms []domain.Migration, names []string) ([]domain.Migration, error) {
	if len(names) == 0 {
		return ms, nil
	}
	byName := make(map[string]domain.Migration, len(ms))
	for _, m := range ms {
		byName[m.Name] = m
		byName[m.ID] = m
	}
	out := make([]domain.Migration, 0, len(names))
	for _, n := range names {
		m, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown migration %q", n)
		}
		out = append(out, m)
	}
	return out, nil
}

func printRolledBack(result *executor.Result) {
	if result == nil {
		return
	}
	for _, name := range result.Migrations {
		ui.PrintSuccess("Rolled back %s", name)
	}
}

// warnPartialDDL tells the user that a failed migration may have left DDL
// behind on dialects that commit DDL implicitly.
func warnPartialDDL(c *container.Container) {
	if c.Grammar().Dialect().TransactionalDDL() {
		return
	}
	ui.PrintWarning("%s commits DDL implicitly: statements before the failure were not rolled back", c.Grammar().Name())
}
