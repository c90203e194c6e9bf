package matchdb

import (
	"time"

	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// Match is a single game between two teams.
type Match struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID         sharedtypes.MatchID    `bun:"id,pk,type:uuid"`
	EventID    sharedtypes.EventID    `bun:"event_id,type:uuid,notnull"`
	State      sharedtypes.MatchState `bun:"state,notnull"`
	Phase      sharedtypes.MatchPhase `bun:"phase,notnull"`
	Round      int                    `bun:"round,notnull,default:0"`
	Ordinal    int                    `bun:"ordinal,notnull,default:0"`
	WinnerID   *sharedtypes.TeamID    `bun:"winner_id,type:uuid"`
	IsRevealed bool                   `bun:"is_revealed,notnull,default:false"`
	CreatedAt  time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time              `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Teams   []*MatchTeam       `bun:"rel:has-many,join:id=match_id"`
	Results []*MatchTeamResult `bun:"rel:has-many,join:id=match_id"`
}

// MatchTeam links a match to one of its two participants. Position keeps the
// order the teams were supplied in.
type MatchTeam struct {
	bun.BaseModel `bun:"table:match_teams,alias:mt"`

	MatchID  sharedtypes.MatchID `bun:"match_id,pk,type:uuid"`
	TeamID   sharedtypes.TeamID  `bun:"team_id,pk,type:uuid"`
	Position int                 `bun:"position,notnull"`
	TeamName string              `bun:"team_name,scanonly"`
}

// MatchTeamResult is the per-team score written when a match finishes.
type MatchTeamResult struct {
	bun.BaseModel `bun:"table:match_team_results,alias:mr"`

	MatchID sharedtypes.MatchID `bun:"match_id,pk,type:uuid"`
	TeamID  sharedtypes.TeamID  `bun:"team_id,pk,type:uuid"`
	Score   int                 `bun:"score,notnull"`
}

// MatchStats holds the aggregate game counters reported with a result.
type MatchStats struct {
	bun.BaseModel `bun:"table:match_stats,alias:ms"`

	MatchID           sharedtypes.MatchID `bun:"match_id,pk,type:uuid"`
	ActionsExecuted   int64               `bun:"actions_executed,notnull,default:0"`
	DamageDeposits    int64               `bun:"damage_deposits,notnull,default:0"`
	GempilesDestroyed int64               `bun:"gempiles_destroyed,notnull,default:0"`
	DamageTotal       int64               `bun:"damage_total,notnull,default:0"`
	DamageSelf        int64               `bun:"damage_self,notnull,default:0"`
	DamageOpponent    int64               `bun:"damage_opponent,notnull,default:0"`
	DamageUnits       int64               `bun:"damage_units,notnull,default:0"`
	DamageCores       int64               `bun:"damage_cores,notnull,default:0"`
	DamageWalls       int64               `bun:"damage_walls,notnull,default:0"`
	UnitsSpawned      int64               `bun:"units_spawned,notnull,default:0"`
	UnitsDestroyed    int64               `bun:"units_destroyed,notnull,default:0"`
	CoresDestroyed    int64               `bun:"cores_destroyed,notnull,default:0"`
	WallsDestroyed    int64               `bun:"walls_destroyed,notnull,default:0"`
	GemsTransferred   int64               `bun:"gems_transferred,notnull,default:0"`
	TilesTraveled     int64               `bun:"tiles_traveled,notnull,default:0"`
	GemsGained        int64               `bun:"gems_gained,notnull,default:0"`
}

// GlobalStats is the sum of all recorded match stats.
type GlobalStats struct {
	Matches           int64 `bun:"matches"`
	ActionsExecuted   int64 `bun:"actions_executed"`
	DamageDeposits    int64 `bun:"damage_deposits"`
	GempilesDestroyed int64 `bun:"gempiles_destroyed"`
	DamageTotal       int64 `bun:"damage_total"`
	DamageSelf        int64 `bun:"damage_self"`
	DamageOpponent    int64 `bun:"damage_opponent"`
	DamageUnits       int64 `bun:"damage_units"`
	DamageCores       int64 `bun:"damage_cores"`
	DamageWalls       int64 `bun:"damage_walls"`
	UnitsSpawned      int64 `bun:"units_spawned"`
	UnitsDestroyed    int64 `bun:"units_destroyed"`
	CoresDestroyed    int64 `bun:"cores_destroyed"`
	WallsDestroyed    int64 `bun:"walls_destroyed"`
	GemsTransferred   int64 `bun:"gems_transferred"`
	TilesTraveled     int64 `bun:"tiles_traveled"`
	GemsGained        int64 `bun:"gems_gained"`
}

// TeamIDs returns the participant ids in position order.
func (m *Match) TeamIDs() []sharedtypes.TeamID {
	ids := make([]sharedtypes.TeamID, 0, len(m.Teams))
	for _, t := range m.Teams {
		ids = append(ids, t.TeamID)
	}
	return ids
}

// HasTeam reports whether id is one of the participants.
func (m *Match) HasTeam(id sharedtypes.TeamID) bool {
	for _, t := range m.Teams {
		if t.TeamID == id {
			return true
		}
	}
	return false
}

// Filter narrows match listings. Zero values mean "any".
type Filter struct {
	EventID *sharedtypes.EventID
	Phase   *sharedtypes.MatchPhase
	Round   *int
	State   *sharedtypes.MatchState
	TeamID  *sharedtypes.TeamID
}
