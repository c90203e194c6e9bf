package testutils

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	queueservice "github.com/42core-team/arena/app/modules/queue/application"
	queuelock "github.com/42core-team/arena/app/modules/queue/infrastructure/lock"
	tournamentservice "github.com/42core-team/arena/app/modules/tournament/application"
	"github.com/42core-team/arena/app/observability"
	"go.opentelemetry.io/otel/trace/noop"
)

// QueueLockKey is the advisory lock key used by the integration tests.
const QueueLockKey int64 = 4242

// RecordingDispatcher stores every dispatched match instead of running it.
type RecordingDispatcher struct {
	mu       sync.Mutex
	requests []matchservice.DispatchRequest
}

func (d *RecordingDispatcher) Dispatch(_ context.Context, req matchservice.DispatchRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return nil
}

// Requests returns a copy of the recorded dispatches.
func (d *RecordingDispatcher) Requests() []matchservice.DispatchRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]matchservice.DispatchRequest(nil), d.requests...)
}

// Services are the real services wired against the test database.
type Services struct {
	Logger     *slog.Logger
	MatchRepo  matchdb.Repository
	Match      *matchservice.MatchService
	Tournament *tournamentservice.TournamentService
	Dispatcher *RecordingDispatcher
}

// NewServices wires the match and tournament services the way the app does.
func NewServices(env *TestEnvironment) *Services {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("integration")
	metrics := observability.NewNoop()

	repo := matchdb.NewRepository(env.DB)
	dispatcher := &RecordingDispatcher{}
	match := matchservice.NewMatchService(repo, env.Competition, dispatcher, nil, logger, metrics, tracer, env.DB)
	tournament := tournamentservice.NewTournamentService(env.Competition, repo, match, logger, metrics, tracer, env.DB)
	match.RegisterRoundObserver(tournament)

	return &Services{
		Logger:     logger,
		MatchRepo:  repo,
		Match:      match,
		Tournament: tournament,
		Dispatcher: dispatcher,
	}
}

// NewQueueService builds a matchmaker that uses the Postgres advisory lock.
func (s *Services) NewQueueService(env *TestEnvironment, seed uint64) *queueservice.QueueService {
	return queueservice.NewQueueService(
		env.Competition,
		s.MatchRepo,
		s.Match,
		queuelock.NewAdvisoryLocker(env.DB, s.Logger),
		QueueLockKey,
		rand.New(rand.NewPCG(seed, 0)),
		s.Logger,
		observability.NewNoop(),
		noop.NewTracerProvider().Tracer("integration"),
		env.DB,
	)
}
