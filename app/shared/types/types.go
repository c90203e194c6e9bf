package sharedtypes

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// TeamID identifies a competing team.
type TeamID uuid.UUID

// EventID identifies a competition event.
type EventID uuid.UUID

// MatchID identifies a single match.
type MatchID uuid.UUID

func (id TeamID) String() string  { return uuid.UUID(id).String() }
func (id EventID) String() string { return uuid.UUID(id).String() }
func (id MatchID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the id was never set.
func (id TeamID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id MatchID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewTeamID, NewEventID and NewMatchID return random (v4) identifiers.
func NewTeamID() TeamID   { return TeamID(uuid.New()) }
func NewEventID() EventID { return EventID(uuid.New()) }
func NewMatchID() MatchID { return MatchID(uuid.New()) }

// ParseTeamID parses the canonical string form of a TeamID.
func ParseTeamID(s string) (TeamID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TeamID{}, fmt.Errorf("invalid team id %q: %w", s, err)
	}
	return TeamID(u), nil
}

// ParseEventID parses the canonical string form of an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EventID{}, fmt.Errorf("invalid event id %q: %w", s, err)
	}
	return EventID(u), nil
}

// ParseMatchID parses the canonical string form of a MatchID.
func ParseMatchID(s string) (MatchID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MatchID{}, fmt.Errorf("invalid match id %q: %w", s, err)
	}
	return MatchID(u), nil
}

// The ids are stored as native postgres uuid columns.

func (id TeamID) Value() (driver.Value, error)  { return uuid.UUID(id).Value() }
func (id EventID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id MatchID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }

func (id *TeamID) Scan(src any) error  { return (*uuid.UUID)(id).Scan(src) }
func (id *EventID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id *MatchID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }

func (id TeamID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id EventID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id MatchID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *TeamID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EventID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MatchID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// MatchState is the lifecycle state of a match.
type MatchState string

const (
	MatchStatePlanned    MatchState = "PLANNED"
	MatchStateInProgress MatchState = "IN_PROGRESS"
	MatchStateFinished   MatchState = "FINISHED"
)

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// States only move forward, one step at a time.
func (s MatchState) CanTransitionTo(next MatchState) bool {
	switch s {
	case MatchStatePlanned:
		return next == MatchStateInProgress
	case MatchStateInProgress:
		return next == MatchStateFinished
	default:
		return false
	}
}

// MatchPhase distinguishes the competition context a match belongs to.
type MatchPhase string

const (
	MatchPhaseSwiss       MatchPhase = "SWISS"
	MatchPhaseElimination MatchPhase = "ELIMINATION"
	MatchPhaseQueue       MatchPhase = "QUEUE"
)

// Valid reports whether p is one of the known phases.
func (p MatchPhase) Valid() bool {
	switch p {
	case MatchPhaseSwiss, MatchPhaseElimination, MatchPhaseQueue:
		return true
	}
	return false
}

// EventState is the stage an event is in.
type EventState string

const (
	EventStateTeamFinding      EventState = "TEAM_FINDING"
	EventStateCodingPhase      EventState = "CODING_PHASE"
	EventStateSwissRound       EventState = "SWISS_ROUND"
	EventStateEliminationRound EventState = "ELIMINATION_ROUND"
	EventStateFinished         EventState = "FINISHED"
)

// QueueEventStates lists the event states in which queue play is open.
var QueueEventStates = []EventState{
	EventStateCodingPhase,
	EventStateSwissRound,
	EventStateEliminationRound,
}

// AdmitsQueue reports whether teams of an event in state s may play queue matches.
func (s EventState) AdmitsQueue() bool {
	for _, qs := range QueueEventStates {
		if s == qs {
			return true
		}
	}
	return false
}

// ViewerRole decides how much of an unrevealed match a caller may see.
type ViewerRole string

const (
	ViewerParticipant ViewerRole = "participant"
	ViewerAdmin       ViewerRole = "admin"
)

// IsAdmin reports whether the viewer may see unrevealed results.
func (r ViewerRole) IsAdmin() bool { return r == ViewerAdmin }
