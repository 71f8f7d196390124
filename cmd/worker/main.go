// Package main is the bolão worker: schema migrations, one-off ranking
// rebuilds and the background scheduler without the HTTP surface.
//
//	worker migrate up|rollback|status
//	worker rebuild [--force] [--reason text]
//	worker run
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/config"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/app"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/application/command"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/persistence/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "worker",
		Usage: "bolão background tasks",
		Commands: []*cli.Command{
			migrateCommand(),
			rebuildCommand(),
			runCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: withMigrator(func(c *cli.Context, m *postgres.Migrator) error {
					n, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("applied %d migration(s)\n", n)
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "revert the latest applied migration",
				Action: withMigrator(func(c *cli.Context, m *postgres.Migrator) error {
					if err := m.Rollback(c.Context); err != nil {
						return err
					}
					fmt.Println("rolled back latest migration")
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "list migrations and whether they are applied",
				Action: withMigrator(func(c *cli.Context, m *postgres.Migrator) error {
					migrations, err := m.Status(c.Context)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
					for _, mig := range migrations {
						applied := "pending"
						if mig.IsApplied {
							applied = mig.AppliedAt.Format(time.RFC3339)
						}
						fmt.Fprintf(tw, "%d\t%s\t%s\n", mig.Version, mig.Name, applied)
					}
					return tw.Flush()
				}),
			},
		},
	}
}

// withMigrator opens only the database; migrations must not depend on Redis.
func withMigrator(fn func(*cli.Context, *postgres.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		app.SetupLogger(cfg)

		dbCfg := postgres.DefaultConfig()
		dbCfg.URL = cfg.Database.URL
		dbCfg.QueryTimeout = time.Minute

		conn, err := postgres.NewConnection(c.Context, dbCfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer conn.Close()

		return fn(c, postgres.NewMigrator(conn))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD
// ══════════════════════════════════════════════════════════════════════════════

func rebuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebuild",
		Usage: "recompute the ranking and persist a snapshot",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "persist a snapshot even if one exists for the current version"},
			&cli.StringFlag{Name: "reason", Value: "manual", Usage: "reason recorded with the rebuild"},
		},
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c.Context)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Commands.Rebuild.Handle(c.Context, command.RebuildRankingCommand{
				Reason: c.String("reason"),
				Force:  c.Bool("force"),
			})
			if err != nil {
				return err
			}
			fmt.Printf("version %d: %d participants, persisted=%t snapshot=%s pruned=%d (%s)\n",
				res.Version, res.Participants, res.Persisted, res.SnapshotID, res.Pruned, res.Duration)
			return nil
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the scheduled jobs until interrupted",
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c.Context)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Config.Scheduler.Enabled {
				return errors.New("scheduler is disabled (SCHEDULER_ENABLED=false)")
			}

			a.Scheduler.Start()
			a.Log.Info("worker started",
				"rebuild_interval", a.Config.Scheduler.RebuildInterval.String(),
			)

			<-c.Context.Done()
			a.Log.Info("shutdown signal received")
			return nil
		},
	}
}

func bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := app.SetupLogger(cfg)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if _, err := postgres.NewMigrator(a.DB).Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}
