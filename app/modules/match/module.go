package match

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchdispatch "github.com/42core-team/arena/app/modules/match/infrastructure/dispatch"
	matchhandlers "github.com/42core-team/arena/app/modules/match/infrastructure/handlers"
	matchlogs "github.com/42core-team/arena/app/modules/match/infrastructure/logs"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	matchrouter "github.com/42core-team/arena/app/modules/match/infrastructure/router"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/config"
	"github.com/42core-team/arena/pkg/jwt"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// Module represents the match module.
type Module struct {
	MatchService  matchservice.Service
	MatchRepo     matchdb.Repository
	Handlers      matchhandlers.Handlers
	MatchRouter   *matchrouter.MatchRouter
	cancelFunc    context.CancelFunc
	observability *observability.Observability
}

// Bus is what the match module needs from the event bus.
type Bus interface {
	message.Publisher
	message.Subscriber
}

// NewMatchModule creates and initializes a new match module.
func NewMatchModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	bus Bus,
	router *message.Router,
	db *bun.DB,
	teams competitiondb.Repository,
	rng *rand.Rand,
) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "match"))
	tracer := obs.Tracer

	logger.InfoContext(ctx, "match.NewMatchModule initializing")

	// 1. Repository
	repo := matchdb.NewRepository(db)

	// 2. Collaborators
	dispatcher, err := newDispatcher(cfg.Dispatch, bus, rng, logger)
	if err != nil {
		return nil, err
	}

	var logSource matchservice.LogSource
	if cfg.Logs.BaseURL != "" {
		client, err := matchlogs.NewClient(cfg.Logs.BaseURL, cfg.Logs.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create log client: %w", err)
		}
		logSource = client
	} else {
		logger.WarnContext(ctx, "No log service configured, match logs will be empty")
	}

	// 3. Service
	metrics := observability.NewMatchMetrics(obs.Registry)
	service := matchservice.NewMatchService(repo, teams, dispatcher, logSource, logger, metrics, tracer, db)

	// 4. Handlers
	handlers := matchhandlers.NewMatchHandlers(service, logger, tracer)

	// 5. Router
	matchRouter := matchrouter.NewMatchRouter(logger, router, bus, bus, tracer, obs.Registry)
	if err := matchRouter.Configure(handlers); err != nil {
		return nil, fmt.Errorf("failed to configure match router: %w", err)
	}

	return &Module{
		MatchService:  service,
		MatchRepo:     repo,
		Handlers:      handlers,
		MatchRouter:   matchRouter,
		observability: obs,
	}, nil
}

func newDispatcher(cfg config.DispatchConfig, publisher message.Publisher, rng *rand.Rand, logger *slog.Logger) (matchservice.Dispatcher, error) {
	switch cfg.Mode {
	case config.DispatchSynthetic:
		logger.Warn("Synthetic dispatch enabled, matches get random results")
		return matchdispatch.NewSyntheticDispatcher(publisher, rng, logger), nil
	case config.DispatchLive:
		tokens := jwt.NewService(cfg.TokenSecret, cfg.TokenTTL)
		images := matchdispatch.Images{Game: cfg.GameImage, Bot: cfg.BotImage}
		return matchdispatch.NewLiveDispatcher(publisher, tokens, images, logger), nil
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.Mode)
	}
}

// Run starts the match module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Logger
	logger.InfoContext(ctx, "Starting match module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Match module goroutine stopped")
}

// Close shuts down the match module.
func (m *Module) Close() error {
	logger := m.observability.Logger
	logger.Info("Stopping match module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.MatchRouter != nil {
		if err := m.MatchRouter.Close(); err != nil {
			logger.Error("Error closing MatchRouter from module", slog.Any("error", err))
			return fmt.Errorf("error closing MatchRouter: %w", err)
		}
	}

	logger.Info("Match module stopped")
	return nil
}
