// Package testutils starts the containers shared by the integration tests and
// builds real services on top of them.
package testutils

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/42core-team/arena/app"
	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	"github.com/42core-team/arena/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
)

// TestEnvironment holds the containers and connections of one test package.
type TestEnvironment struct {
	Ctx           context.Context
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	DSN           string
	NatsURL       string
	Competition   competitiondb.Repository
}

var (
	sharedEnv  *TestEnvironment
	sharedErr  error
	sharedOnce sync.Once
)

// Main runs a package's tests with a shared environment and tears it down
// afterwards. Use it from TestMain.
func Main(m *testing.M) {
	code := m.Run()
	if sharedEnv != nil {
		sharedEnv.Cleanup()
	}
	os.Exit(code)
}

// Env returns the package's environment, starting it on first use. Tests
// are skipped with -short or when containers cannot be started.
func Env(t *testing.T) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	sharedOnce.Do(func() {
		sharedEnv, sharedErr = newTestEnvironment(context.Background())
	})
	if sharedErr != nil {
		t.Skipf("integration environment unavailable: %v", sharedErr)
	}
	sharedEnv.Reset(t)
	return sharedEnv
}

func newTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	db := app.NewDB(dsn)
	if err := db.PingContext(ctx); err != nil {
		cleanupContainers(ctx, pgContainer, natsContainer)
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	if err := app.MigrateUp(ctx, app.Migrators(db), nil); err != nil {
		_ = db.Close()
		cleanupContainers(ctx, pgContainer, natsContainer)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if _, err := app.MigrateRiver(ctx, dsn); err != nil {
		_ = db.Close()
		cleanupContainers(ctx, pgContainer, natsContainer)
		return nil, err
	}

	return &TestEnvironment{
		Ctx:           ctx,
		PgContainer:   pgContainer,
		NatsContainer: natsContainer,
		DB:            db,
		DSN:           dsn,
		NatsURL:       natsURL,
		Competition:   competitiondb.NewRepository(db),
	}, nil
}

// Reset empties every domain table so tests do not see each other's rows.
func (env *TestEnvironment) Reset(t *testing.T) {
	t.Helper()
	_, err := env.DB.ExecContext(env.Ctx,
		"TRUNCATE match_stats, match_team_results, match_teams, matches, teams, events RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}

// Cleanup closes connections and terminates the containers.
func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		if err := env.DB.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
	cleanupContainers(env.Ctx, env.PgContainer, env.NatsContainer)
}

func cleanupContainers(ctx context.Context, pg *postgres.PostgresContainer, n *nats.NATSContainer) {
	if n != nil {
		if err := n.Terminate(ctx); err != nil {
			log.Printf("Error terminating NATS container: %v", err)
		}
	}
	if pg != nil {
		if err := pg.Terminate(ctx); err != nil {
			log.Printf("Error terminating Postgres container: %v", err)
		}
	}
}
