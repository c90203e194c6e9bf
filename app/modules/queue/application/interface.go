package queueservice

import (
	"context"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchservice "github.com/42core-team/arena/app/modules/match/application"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// Service is the casual ladder: teams join the queue and the matchmaker pairs
// them on every tick.
type Service interface {
	// Tick runs one matchmaking pass over every event that admits queue play.
	Tick(ctx context.Context) (*TickResult, error)

	JoinQueue(ctx context.Context, teamID sharedtypes.TeamID) error
	LeaveQueue(ctx context.Context, teamID sharedtypes.TeamID) error

	RatingHistory(ctx context.Context, teamID sharedtypes.TeamID) ([]matchservice.RatingPoint, error)
	// RenderRatingChart draws the rating history of a team as a PNG.
	RenderRatingChart(ctx context.Context, teamID sharedtypes.TeamID) ([]byte, error)
}

// Locker is a non-blocking mutual exclusion primitive shared by every
// matchmaker instance.
type Locker interface {
	// TryAcquire returns held=false without waiting when another holder has key.
	// release must be called once when held is true.
	TryAcquire(ctx context.Context, key int64) (held bool, release func(), err error)
}

// CompetitionStore is the part of the team and event store the queue needs.
type CompetitionStore interface {
	GetEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*competitiondb.Event, error)
	GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*competitiondb.Team, error)
	ListEventsInStates(ctx context.Context, db bun.IDB, states []sharedtypes.EventState) ([]*competitiondb.Event, error)
	ListQueuedTeams(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]*competitiondb.Team, error)
	SetInQueue(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, inQueue bool) error
	ClaimQueuedTeams(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) (int, error)
}

// MatchReader answers whether a team is still busy with a match.
type MatchReader interface {
	HasOpenMatch(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, phase sharedtypes.MatchPhase) (bool, error)
}

// MatchScheduler creates and starts queue matches and reads rating history.
type MatchScheduler interface {
	CreateMatchInTx(ctx context.Context, db bun.IDB, req matchservice.CreateMatchRequest) (*matchservice.MatchView, error)
	StartMatch(ctx context.Context, id sharedtypes.MatchID) error
	QueueRatingHistory(ctx context.Context, teamID sharedtypes.TeamID) ([]matchservice.RatingPoint, error)
}

// TickResult summarizes one matchmaking pass.
type TickResult struct {
	// Skipped is set when another instance held the lock.
	Skipped      bool
	Matches      []sharedtypes.MatchID
	FailedEvents []sharedtypes.EventID
}
