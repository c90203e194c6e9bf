package tournamentservice

import (
	"context"
	"io"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// Service runs Swiss and elimination play for an event.
type Service interface {
	// StartSwiss pairs the first Swiss round of an event in SWISS_ROUND.
	StartSwiss(ctx context.Context, eventID sharedtypes.EventID) (*RoundStarted, error)
	// StartElimination builds the first bracket round of an event in ELIMINATION_ROUND.
	StartElimination(ctx context.Context, eventID sharedtypes.EventID) (*RoundStarted, error)
	// RoundCompleted advances an event once every match of a round is finished.
	RoundCompleted(ctx context.Context, round matchservice.RoundKey) error

	TournamentTeamCount(ctx context.Context, eventID sharedtypes.EventID) (int, error)
	RecalculateBuchholz(ctx context.Context, eventID sharedtypes.EventID) ([]Standing, error)
	Standings(ctx context.Context, eventID sharedtypes.EventID) ([]Standing, error)
	ExportStandingsXLSX(ctx context.Context, eventID sharedtypes.EventID, w io.Writer) error
}

// CompetitionStore is the part of the team and event store progression needs.
type CompetitionStore interface {
	GetEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*competitiondb.Event, error)
	LockEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*competitiondb.Event, error)
	SetEventState(ctx context.Context, db bun.IDB, id sharedtypes.EventID, state sharedtypes.EventState) error
	SetCurrentRound(ctx context.Context, db bun.IDB, id sharedtypes.EventID, round int) error
	ListTeamsForEvent(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]*competitiondb.Team, error)
	ListRankedTeams(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]*competitiondb.Team, error)
	CountTeamsForEvent(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) (int, error)
	SetHadBye(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, hadBye bool) error
	SetBuchholzPoints(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, points int) error
}

// MatchReader reads match history.
type MatchReader interface {
	List(ctx context.Context, db bun.IDB, f matchdb.Filter) ([]*matchdb.Match, error)
	Count(ctx context.Context, db bun.IDB, f matchdb.Filter) (int, error)
	CountUnfinished(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) (int, error)
}

// MatchScheduler creates and starts matches through the match state machine.
type MatchScheduler interface {
	CreateMatchInTx(ctx context.Context, db bun.IDB, req matchservice.CreateMatchRequest) (*matchservice.MatchView, error)
	StartMatch(ctx context.Context, id sharedtypes.MatchID) error
}
