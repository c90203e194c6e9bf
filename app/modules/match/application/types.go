package matchservice

import (
	"time"

	sharedtypes "github.com/42core-team/arena/app/shared/types"
)

// CreateMatchRequest describes a match to insert in PLANNED state.
type CreateMatchRequest struct {
	EventID sharedtypes.EventID
	TeamIDs []sharedtypes.TeamID
	Round   int
	Phase   sharedtypes.MatchPhase
	// Ordinal orders matches created for the same round.
	Ordinal int
}

// FinishMatchRequest carries the outcome of a played match.
type FinishMatchRequest struct {
	MatchID  sharedtypes.MatchID
	WinnerID sharedtypes.TeamID
	Stats    *Stats
}

// TeamRef is a participant as shown to callers.
type TeamRef struct {
	ID   sharedtypes.TeamID `json:"id"`
	Name string             `json:"name"`
}

// TeamResult is the per-team score recorded when a match finishes.
type TeamResult struct {
	TeamID sharedtypes.TeamID `json:"team_id"`
	Score  int                `json:"score"`
}

// MatchView is a fully populated, read-only copy of a match.
type MatchView struct {
	ID         sharedtypes.MatchID    `json:"id"`
	EventID    sharedtypes.EventID    `json:"event_id"`
	State      sharedtypes.MatchState `json:"state"`
	Phase      sharedtypes.MatchPhase `json:"phase"`
	Round      int                    `json:"round"`
	Teams      []TeamRef              `json:"teams"`
	WinnerID   *sharedtypes.TeamID    `json:"winner_id,omitempty"`
	Results    []TeamResult           `json:"results"`
	IsRevealed bool                   `json:"is_revealed"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// TeamSnapshot is the scoring state of a participant at finish time.
type TeamSnapshot struct {
	ID         sharedtypes.TeamID
	Score      int
	QueueScore int
}

// MatchSnapshot is the input of ComputeResults.
type MatchSnapshot struct {
	ID    sharedtypes.MatchID
	State sharedtypes.MatchState
	Phase sharedtypes.MatchPhase
	Teams []TeamSnapshot
}

// TeamUpdate is a change to a team's scoring fields caused by a finished match.
type TeamUpdate struct {
	TeamID     sharedtypes.TeamID
	ScoreDelta int
	// QueueScore is the new rating for queue matches, nil otherwise.
	QueueScore *int
}

// ResultSet is everything a finish writes.
type ResultSet struct {
	WinnerID sharedtypes.TeamID
	Results  []TeamResult
	Updates  []TeamUpdate
	Stats    *Stats
}

// Stats are the aggregate game counters reported with a result.
type Stats struct {
	ActionsExecuted   int64 `json:"actions_executed"`
	DamageDeposits    int64 `json:"damage_deposits"`
	GempilesDestroyed int64 `json:"gempiles_destroyed"`
	DamageTotal       int64 `json:"damage_total"`
	DamageSelf        int64 `json:"damage_self"`
	DamageOpponent    int64 `json:"damage_opponent"`
	DamageUnits       int64 `json:"damage_units"`
	DamageCores       int64 `json:"damage_cores"`
	DamageWalls       int64 `json:"damage_walls"`
	UnitsSpawned      int64 `json:"units_spawned"`
	UnitsDestroyed    int64 `json:"units_destroyed"`
	CoresDestroyed    int64 `json:"cores_destroyed"`
	WallsDestroyed    int64 `json:"walls_destroyed"`
	GemsTransferred   int64 `json:"gems_transferred"`
	TilesTraveled     int64 `json:"tiles_traveled"`
	GemsGained        int64 `json:"gems_gained"`
}

// GlobalStats is Stats summed over every finished match.
type GlobalStats struct {
	Matches int64 `json:"matches"`
	Stats
}

// Placement is one team's finishing place as reported by the game server.
type Placement struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Place float64 `json:"place"`
}

// GameResultPayload is the inbound result notification.
type GameResultPayload struct {
	GameID       string            `json:"game_id"`
	TeamResults  []Placement       `json:"team_results"`
	Stats        *Stats            `json:"stats,omitempty"`
	BotIDMapping map[string]string `json:"BOT_ID_MAPPING"`
}

// DispatchTeam is a participant as handed to the execution collaborator.
type DispatchTeam struct {
	ID   sharedtypes.TeamID
	Name string
	Repo string
}

// DispatchRequest describes a match that has just been started.
type DispatchRequest struct {
	MatchID sharedtypes.MatchID
	EventID sharedtypes.EventID
	Phase   sharedtypes.MatchPhase
	Round   int
	Teams   []DispatchTeam
}

// RoundKey identifies the round a match belongs to.
type RoundKey struct {
	EventID sharedtypes.EventID
	Phase   sharedtypes.MatchPhase
	Round   int
}

// LogStream is the output of one container of a played match.
type LogStream struct {
	Container string   `json:"container"`
	TeamName  string   `json:"team_name,omitempty"`
	Lines     []string `json:"lines"`
}

// RatingPoint is a team's queue rating after a finished queue match.
type RatingPoint struct {
	MatchID  sharedtypes.MatchID `json:"match_id"`
	PlayedAt time.Time           `json:"played_at"`
	Rating   int                 `json:"rating"`
	Won      bool                `json:"won"`
}
