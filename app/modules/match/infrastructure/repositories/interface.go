package matchdb

import (
	"context"

	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for match persistence.
type Repository interface {
	// Create inserts a match together with its team links.
	Create(ctx context.Context, db bun.IDB, match *Match) error

	// GetByID loads a match with its teams and results.
	GetByID(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*Match, error)

	// TransitionState moves a match from one state to the next. It fails with an
	// illegal state error when the match is not in the expected state.
	TransitionState(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, from, to sharedtypes.MatchState) error

	// Finish marks an IN_PROGRESS match FINISHED, sets its winner and writes its results.
	Finish(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, winner sharedtypes.TeamID, results []*MatchTeamResult) error

	// SaveStats stores the game counters reported for a match.
	SaveStats(ctx context.Context, db bun.IDB, stats *MatchStats) error

	// List returns the matches matching f. With a Round filter they come in
	// ordinal order, otherwise in creation order.
	List(ctx context.Context, db bun.IDB, f Filter) ([]*Match, error)

	// Count returns how many matches match f.
	Count(ctx context.Context, db bun.IDB, f Filter) (int, error)

	// CountUnfinished returns the number of matches of a round that are not FINISHED.
	CountUnfinished(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) (int, error)

	// HasOpenMatch reports whether the team takes part in a PLANNED or IN_PROGRESS match of the phase.
	HasOpenMatch(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, phase sharedtypes.MatchPhase) (bool, error)

	// SetRevealed flips the reveal flag of a match.
	SetRevealed(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, revealed bool) error

	// GlobalStats sums the stats of every finished match.
	GlobalStats(ctx context.Context, db bun.IDB) (*GlobalStats, error)
}
