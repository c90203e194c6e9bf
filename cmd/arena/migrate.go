package main

import (
	"fmt"

	"github.com/42core-team/arena/app"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	withMigrators := func(fn func(c *cli.Context, dsn string, migrators []app.ModuleMigrator) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			db := app.NewDB(cfg.Postgres.DSN)
			defer db.Close()
			return fn(c, cfg.Postgres.DSN, app.Migrators(db))
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrators(func(c *cli.Context, _ string, migrators []app.ModuleMigrator) error {
					for _, m := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", m.Name)
						if err := m.Migrator.Init(c.Context); err != nil {
							return fmt.Errorf("init %s: %w", m.Name, err)
						}
					}
					return nil
				}),
			},
			{
				Name:  "up",
				Usage: "apply pending migrations, including the River job tables",
				Action: withMigrators(func(c *cli.Context, dsn string, migrators []app.ModuleMigrator) error {
					err := app.MigrateUp(c.Context, migrators, func(module string, group *migrate.MigrationGroup) {
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", module)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", module, group)
						}
					})
					if err != nil {
						return err
					}
					versions, err := app.MigrateRiver(c.Context, dsn)
					if err != nil {
						return err
					}
					for _, v := range versions {
						fmt.Printf("Applied river migration version %d\n", v)
					}
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group of every module",
				Action: withMigrators(func(c *cli.Context, _ string, migrators []app.ModuleMigrator) error {
					for i := len(migrators) - 1; i >= 0; i-- {
						m := migrators[i]
						group, err := m.Migrator.Rollback(c.Context)
						if err != nil {
							return fmt.Errorf("rollback %s: %w", m.Name, err)
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.Name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", m.Name, group)
						}
					}
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Action: withMigrators(func(c *cli.Context, _ string, migrators []app.ModuleMigrator) error {
					for _, m := range migrators {
						ms, err := m.Migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return fmt.Errorf("status %s: %w", m.Name, err)
						}
						fmt.Printf("%s: applied %s, pending %s\n", m.Name, ms.Applied(), ms.Unapplied())
					}
					return nil
				}),
			},
		},
	}
}
