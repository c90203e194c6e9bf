package tournament

import (
	"context"
	"log/slog"
	"sync"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	tournamentservice "github.com/42core-team/arena/app/modules/tournament/application"
	tournamenthandlers "github.com/42core-team/arena/app/modules/tournament/infrastructure/handlers"
	"github.com/42core-team/arena/app/observability"
	"github.com/uptrace/bun"
)

// Module represents the tournament module.
type Module struct {
	TournamentService tournamentservice.Service
	Handlers          tournamenthandlers.Handlers
	cancelFunc        context.CancelFunc
	observability     *observability.Observability
}

// NewTournamentModule creates the tournament module and registers it as the
// match service's round observer.
func NewTournamentModule(
	ctx context.Context,
	obs *observability.Observability,
	db *bun.DB,
	competition competitiondb.Repository,
	matchRepo matchdb.Repository,
	matches matchservice.Service,
) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "tournament"))
	tracer := obs.Tracer

	logger.InfoContext(ctx, "tournament.NewTournamentModule initializing")

	metrics := observability.NewTournamentMetrics(obs.Registry)
	service := tournamentservice.NewTournamentService(competition, matchRepo, matches, logger, metrics, tracer, db)
	matches.RegisterRoundObserver(service)

	handlers := tournamenthandlers.NewTournamentHandlers(service, logger, tracer)

	return &Module{
		TournamentService: service,
		Handlers:          handlers,
		observability:     obs,
	}, nil
}

// Run keeps the module alive until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Logger
	logger.InfoContext(ctx, "Starting tournament module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Tournament module goroutine stopped")
}

// Close shuts down the tournament module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.observability.Logger.Info("Tournament module stopped")
	return nil
}
