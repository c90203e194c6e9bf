package competitiondb

import (
	"context"

	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for team and event persistence.
//
// Every method takes an optional bun.IDB so callers can run it inside their
// own transaction. A nil db uses the repository's default connection.
type Repository interface {
	// Events
	CreateEvent(ctx context.Context, db bun.IDB, event *Event) error
	GetEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*Event, error)
	// LockEvent loads an event and holds a row lock on it until db's transaction ends.
	LockEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*Event, error)
	ListEventsInStates(ctx context.Context, db bun.IDB, states []sharedtypes.EventState) ([]*Event, error)
	SetEventState(ctx context.Context, db bun.IDB, id sharedtypes.EventID, state sharedtypes.EventState) error
	SetCurrentRound(ctx context.Context, db bun.IDB, id sharedtypes.EventID, round int) error

	// Teams
	CreateTeam(ctx context.Context, db bun.IDB, team *Team) error
	GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*Team, error)
	GetTeams(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) ([]*Team, error)
	ListTeamsForEvent(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]*Team, error)
	ListRankedTeams(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]*Team, error)
	CountTeamsForEvent(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) (int, error)
	ListQueuedTeams(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]*Team, error)
	SetInQueue(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, inQueue bool) error
	ClaimQueuedTeams(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) (int, error)
	IncrementScore(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, delta int) error
	SetQueueScore(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, score int) error
	SetHadBye(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, hadBye bool) error
	SetBuchholzPoints(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, points int) error
}
