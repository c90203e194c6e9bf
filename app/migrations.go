package app

import (
	"context"
	"fmt"

	competitionmigrations "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories/migrations"
	matchmigrations "github.com/42core-team/arena/app/modules/match/infrastructure/repositories/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// ModuleMigrator is the bun migrator of one module.
type ModuleMigrator struct {
	Name     string
	Migrator *migrate.Migrator
}

// Migrators lists the module migrators in dependency order. Each module keeps
// its own bookkeeping tables.
func Migrators(db *bun.DB) []ModuleMigrator {
	return []ModuleMigrator{
		{"competition", migrate.NewMigrator(db, competitionmigrations.Migrations,
			migrate.WithTableName("competition_migrations"),
			migrate.WithLocksTableName("competition_migration_locks"),
		)},
		{"match", migrate.NewMigrator(db, matchmigrations.Migrations,
			migrate.WithTableName("match_migrations"),
			migrate.WithLocksTableName("match_migration_locks"),
		)},
	}
}

// MigrateUp initializes and applies every module's pending migrations.
func MigrateUp(ctx context.Context, migrators []ModuleMigrator, report func(module string, group *migrate.MigrationGroup)) error {
	for _, m := range migrators {
		if err := m.Migrator.Init(ctx); err != nil {
			return fmt.Errorf("init %s: %w", m.Name, err)
		}
		if err := m.Migrator.Lock(ctx); err != nil {
			return fmt.Errorf("lock %s: %w", m.Name, err)
		}
		group, err := m.Migrator.Migrate(ctx)
		unlockErr := m.Migrator.Unlock(ctx)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", m.Name, err)
		}
		if unlockErr != nil {
			return fmt.Errorf("unlock %s: %w", m.Name, unlockErr)
		}
		if report != nil {
			report(m.Name, group)
		}
	}
	return nil
}

// MigrateRiver installs or upgrades the tables of the River job queue and
// returns the versions it applied.
func MigrateRiver(ctx context.Context, dsn string) ([]int, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate river: %w", err)
	}
	versions := make([]int, 0, len(res.Versions))
	for _, v := range res.Versions {
		versions = append(versions, v.Version)
	}
	return versions, nil
}
