package matchservice

import (
	"context"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// Service is the match state machine plus the read side used by the API.
type Service interface {
	// CreateMatch inserts a PLANNED match in its own transaction.
	CreateMatch(ctx context.Context, req CreateMatchRequest) (*MatchView, error)
	// CreateMatchInTx inserts a PLANNED match inside the caller's transaction.
	CreateMatchInTx(ctx context.Context, db bun.IDB, req CreateMatchRequest) (*MatchView, error)
	// StartMatch moves a PLANNED match to IN_PROGRESS and dispatches it.
	StartMatch(ctx context.Context, id sharedtypes.MatchID) error
	// FinishMatch records the outcome of an IN_PROGRESS match.
	FinishMatch(ctx context.Context, req FinishMatchRequest) (*MatchView, error)
	// IngestResult is the inbound port for game result notifications.
	IngestResult(ctx context.Context, payload *GameResultPayload) error

	GetMatch(ctx context.Context, id sharedtypes.MatchID, viewer sharedtypes.ViewerRole) (*MatchView, error)
	ListMatches(ctx context.Context, eventID sharedtypes.EventID, phase *sharedtypes.MatchPhase, viewer sharedtypes.ViewerRole) ([]*MatchView, error)
	RevealMatch(ctx context.Context, id sharedtypes.MatchID) error
	GetMatchLogs(ctx context.Context, id sharedtypes.MatchID, viewer sharedtypes.ViewerRole) ([]LogStream, error)
	GlobalStats(ctx context.Context) (*GlobalStats, error)
	QueueRatingHistory(ctx context.Context, teamID sharedtypes.TeamID) ([]RatingPoint, error)

	// RegisterRoundObserver sets the callback run when a round has no unfinished matches left.
	RegisterRoundObserver(observer RoundObserver)
}

// TeamAccessor is the part of the team store the state machine needs.
type TeamAccessor interface {
	GetTeams(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) ([]*competitiondb.Team, error)
	IncrementScore(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, delta int) error
	SetQueueScore(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, score int) error
}

// RoundObserver is notified once every match of a SWISS or ELIMINATION round is FINISHED.
type RoundObserver interface {
	RoundCompleted(ctx context.Context, round RoundKey) error
}

// Dispatcher hands a started match to the execution collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) error
}

// LogSource fetches the container logs of a played match.
type LogSource interface {
	FetchLogs(ctx context.Context, matchID sharedtypes.MatchID) ([]LogStream, error)
}
