package tournamentservice

import (
	sharedtypes "github.com/42core-team/arena/app/shared/types"
)

// SwissPlayer is one team as seen by the Swiss pairing engine.
type SwissPlayer struct {
	ID     sharedtypes.TeamID
	Score  int
	HadBye bool
	// Avoid lists the opponents the team already met in this event's Swiss phase.
	Avoid []sharedtypes.TeamID
}

// Pairing is a match to be created. Home is the higher ranked or seeded team.
type Pairing struct {
	Home sharedtypes.TeamID
	Away sharedtypes.TeamID
}

// SwissRound is the output of one Swiss pairing pass.
type SwissRound struct {
	Pairings []Pairing
	// Bye is set when the team count is odd.
	Bye *sharedtypes.TeamID
	// Repeats counts pairings of teams that already met. It is only non-zero
	// when no pairing without repeats exists.
	Repeats int
}

// BracketMatch is a finished match of the previous elimination round.
type BracketMatch struct {
	MatchID  sharedtypes.MatchID
	WinnerID *sharedtypes.TeamID
}

// Outcome is a finished Swiss match reduced to who beat whom.
type Outcome struct {
	WinnerID sharedtypes.TeamID
	LoserID  sharedtypes.TeamID
}

// TeamScore is a team's current Swiss score.
type TeamScore struct {
	ID    sharedtypes.TeamID
	Score int
}

// Standing is one row of the ranked team table.
type Standing struct {
	Rank           int                `json:"rank"`
	TeamID         sharedtypes.TeamID `json:"team_id"`
	Name           string             `json:"name"`
	Score          int                `json:"score"`
	BuchholzPoints int                `json:"buchholz_points"`
	QueueScore     int                `json:"queue_score"`
	HadBye         bool               `json:"had_bye"`
}

// RoundStarted reports the matches a progression step created.
type RoundStarted struct {
	EventID sharedtypes.EventID    `json:"event_id"`
	Phase   sharedtypes.MatchPhase `json:"phase"`
	Round   int                    `json:"round"`
	Matches []sharedtypes.MatchID  `json:"matches"`
	Bye     *sharedtypes.TeamID    `json:"bye,omitempty"`
}
