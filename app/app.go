// Package app wires configuration, infrastructure and modules into a running service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/42core-team/arena/app/eventbus"
	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	"github.com/42core-team/arena/app/modules/match"
	matchevents "github.com/42core-team/arena/app/modules/match/domain/events"
	"github.com/42core-team/arena/app/modules/queue"
	"github.com/42core-team/arena/app/modules/tournament"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// App holds the service's infrastructure and modules.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	DB            *bun.DB
	EventBus      *eventbus.NatsEventBus
	Router        *message.Router
	Modules       *Modules

	server *http.Server
	wg     sync.WaitGroup
}

// Modules lists the domain modules.
type Modules struct {
	Match      *match.Module
	Tournament *tournament.Module
	Queue      *queue.Module
}

// NewApp connects to the database and the event bus and builds every module.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs := observability.New(observability.Config{
		ServiceName:    "arena",
		Environment:    cfg.Observability.Environment,
		LogLevel:       cfg.Observability.LogLevel,
		MetricsAddress: cfg.Observability.MetricsAddress,
	})
	logger := obs.Logger

	db := NewDB(cfg.Postgres.DSN)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	bus, err := eventbus.New(ctx, eventbus.Config{
		URL:      cfg.NATS.URL,
		NKeySeed: cfg.NATS.NKeySeed,
		Stream:   cfg.NATS.Stream,
		Subjects: matchevents.StreamSubjects,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		_ = bus.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to create message router: %w", err)
	}

	app := &App{
		Config:        cfg,
		Observability: obs,
		DB:            db,
		EventBus:      bus,
		Router:        router,
	}

	if err := app.initializeModules(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.server = &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           app.httpRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return app, nil
}

// NewDB opens a bun handle on Postgres.
func NewDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (app *App) initializeModules(ctx context.Context) error {
	cfg := app.Config
	competition := competitiondb.NewRepository(app.DB)

	matchModule, err := match.NewMatchModule(ctx, cfg, app.Observability, app.EventBus, app.Router, app.DB, competition, newRand(cfg.Matchmaking.Seed, 1))
	if err != nil {
		return fmt.Errorf("failed to initialize match module: %w", err)
	}

	tournamentModule, err := tournament.NewTournamentModule(ctx, app.Observability, app.DB, competition, matchModule.MatchRepo, matchModule.MatchService)
	if err != nil {
		return fmt.Errorf("failed to initialize tournament module: %w", err)
	}

	queueModule, err := queue.NewQueueModule(ctx, cfg, app.Observability, app.DB, competition, matchModule.MatchRepo, matchModule.MatchService, newRand(cfg.Matchmaking.Seed, 2))
	if err != nil {
		return fmt.Errorf("failed to initialize queue module: %w", err)
	}

	app.Modules = &Modules{
		Match:      matchModule,
		Tournament: tournamentModule,
		Queue:      queueModule,
	}
	return nil
}

// newRand gives every consumer its own source. A zero seed draws from the clock.
func newRand(seed, stream uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, stream))
}

// Run starts the message router, the modules and the HTTP server, then blocks
// until ctx is cancelled or the server fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger
	app.Observability.StartMetricsServer(app.Config.Observability.MetricsAddress)

	routerErr := make(chan error, 1)
	go func() {
		routerErr <- app.Router.Run(ctx)
	}()
	select {
	case <-app.Router.Running():
	case err := <-routerErr:
		return fmt.Errorf("message router stopped: %w", err)
	}

	app.wg.Add(3)
	go app.Modules.Match.Run(ctx, &app.wg)
	go app.Modules.Tournament.Run(ctx, &app.wg)
	go app.Modules.Queue.Run(ctx, &app.wg)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", slog.String("address", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown requested")
		return nil
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case err := <-routerErr:
		if err != nil {
			return fmt.Errorf("message router stopped: %w", err)
		}
		return nil
	}
}

// Close stops everything in reverse start order.
func (app *App) Close() error {
	logger := app.Observability.Logger
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			logger.Error("Error stopping HTTP server", slog.Any("error", err))
		}
	}

	if app.Modules != nil {
		if app.Modules.Queue != nil {
			_ = app.Modules.Queue.Close()
		}
		if app.Modules.Tournament != nil {
			_ = app.Modules.Tournament.Close()
		}
		if app.Modules.Match != nil {
			_ = app.Modules.Match.Close()
		}
	}
	app.wg.Wait()

	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			logger.Error("Error closing message router", slog.Any("error", err))
		}
	}
	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			logger.Error("Error closing event bus", slog.Any("error", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			logger.Error("Error closing database", slog.Any("error", err))
		}
	}
	if err := app.Observability.Shutdown(ctx); err != nil {
		logger.Error("Error stopping metrics server", slog.Any("error", err))
	}

	logger.Info("Application shut down")
	return nil
}
