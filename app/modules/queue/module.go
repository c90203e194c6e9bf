package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	queueservice "github.com/42core-team/arena/app/modules/queue/application"
	queuehandlers "github.com/42core-team/arena/app/modules/queue/infrastructure/handlers"
	queuelock "github.com/42core-team/arena/app/modules/queue/infrastructure/lock"
	"github.com/42core-team/arena/app/modules/queue/infrastructure/scheduler"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/config"
	"github.com/uptrace/bun"
)

const stopTimeout = 10 * time.Second

// Module represents the queue module.
type Module struct {
	QueueService  queueservice.Service
	Handlers      queuehandlers.Handlers
	runner        scheduler.Runner
	cancelFunc    context.CancelFunc
	observability *observability.Observability
}

// NewQueueModule creates the matchmaker and its scheduler. The scheduler
// starts with Run.
func NewQueueModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	db *bun.DB,
	competition competitiondb.Repository,
	matchRepo matchdb.Repository,
	matches matchservice.Service,
	rng *rand.Rand,
) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "queue"))
	tracer := obs.Tracer

	logger.InfoContext(ctx, "queue.NewQueueModule initializing")

	locker, err := newLocker(cfg.Matchmaking, db, logger)
	if err != nil {
		return nil, err
	}
	metrics := observability.NewQueueMetrics(obs.Registry)
	service := queueservice.NewQueueService(
		competition, matchRepo, matches, locker, cfg.Matchmaking.LockID, rng,
		logger, metrics, tracer, db,
	)

	task := scheduler.TaskFunc{
		TaskName: "queue_matchmaking_tick",
		Fn: func(ctx context.Context) error {
			_, err := service.Tick(ctx)
			return err
		},
	}

	var runner scheduler.Runner
	switch cfg.Matchmaking.Driver {
	case config.DriverRiver:
		r, err := scheduler.NewRiverRunner(ctx, cfg.Postgres.DSN, task, cfg.Matchmaking.Interval, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create River scheduler: %w", err)
		}
		runner = r
	case config.DriverTicker:
		runner = scheduler.NewTickerRunner(task, cfg.Matchmaking.Interval, logger)
	default:
		return nil, fmt.Errorf("unknown matchmaking driver %q", cfg.Matchmaking.Driver)
	}

	return &Module{
		QueueService:  service,
		Handlers:      queuehandlers.NewQueueHandlers(service, logger, tracer),
		runner:        runner,
		observability: obs,
	}, nil
}

func newLocker(cfg config.MatchmakingConfig, db *bun.DB, logger *slog.Logger) (queueservice.Locker, error) {
	switch cfg.Lock {
	case config.LockAdvisory:
		return queuelock.NewAdvisoryLocker(db, logger), nil
	case config.LockLocal:
		logger.Warn("Local matchmaking lock enabled, run a single instance only")
		return queuelock.NewLocalLocker(), nil
	default:
		return nil, fmt.Errorf("unknown matchmaking lock %q", cfg.Lock)
	}
}

// Run starts the matchmaking scheduler and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Logger
	logger.InfoContext(ctx, "Starting queue module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.runner.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start matchmaking scheduler", slog.Any("error", err))
		return
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Queue module goroutine stopped")
}

// Close stops the scheduler, waiting for a running tick.
func (m *Module) Close() error {
	logger := m.observability.Logger
	logger.Info("Stopping queue module")

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	err := m.runner.Stop(ctx)

	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if err != nil {
		logger.Error("Error stopping matchmaking scheduler", slog.Any("error", err))
		return fmt.Errorf("error stopping matchmaking scheduler: %w", err)
	}

	logger.Info("Queue module stopped")
	return nil
}
