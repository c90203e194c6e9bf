package competitiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

var (
	// ErrEventNotFound is returned when an event does not exist.
	ErrEventNotFound = &apperrors.Error{Kind: apperrors.ErrNotFound, Msg: "event not found"}
	// ErrTeamNotFound is returned when a team does not exist.
	ErrTeamNotFound = &apperrors.Error{Kind: apperrors.ErrNotFound, Msg: "team not found"}
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new competition repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// CreateEvent inserts a new event.
func (r *Impl) CreateEvent(ctx context.Context, db bun.IDB, event *Event) error {
	db = r.resolveDB(db)
	if event.ID.IsZero() {
		event.ID = sharedtypes.NewEventID()
	}
	if _, err := db.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by id.
func (r *Impl) GetEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*Event, error) {
	db = r.resolveDB(db)
	event := new(Event)
	err := db.NewSelect().
		Model(event).
		Where("e.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// LockEvent retrieves an event with SELECT ... FOR UPDATE. Outside a
// transaction the lock is released immediately.
func (r *Impl) LockEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*Event, error) {
	db = r.resolveDB(db)
	event := new(Event)
	err := db.NewSelect().
		Model(event).
		Where("e.id = ?", id).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}
	return event, nil
}

// ListEventsInStates returns all events currently in one of the given states.
func (r *Impl) ListEventsInStates(ctx context.Context, db bun.IDB, states []sharedtypes.EventState) ([]*Event, error) {
	db = r.resolveDB(db)
	var events []*Event
	err := db.NewSelect().
		Model(&events).
		Where("e.state IN (?)", bun.In(states)).
		Order("e.created_at ASC", "e.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// SetEventState moves an event to a new state.
func (r *Impl) SetEventState(ctx context.Context, db bun.IDB, id sharedtypes.EventID, state sharedtypes.EventState) error {
	return r.updateEvent(ctx, db, id, "state = ?", state)
}

// SetCurrentRound records the round the event is playing.
func (r *Impl) SetCurrentRound(ctx context.Context, db bun.IDB, id sharedtypes.EventID, round int) error {
	return r.updateEvent(ctx, db, id, "current_round = ?", round)
}

func (r *Impl) updateEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID, set string, arg any) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Event)(nil)).
		Set(set, arg).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return requireRow(res, ErrEventNotFound)
}

// CreateTeam inserts a new team.
func (r *Impl) CreateTeam(ctx context.Context, db bun.IDB, team *Team) error {
	db = r.resolveDB(db)
	if team.ID.IsZero() {
		team.ID = sharedtypes.NewTeamID()
	}
	if _, err := db.NewInsert().Model(team).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetTeam retrieves a team by id.
func (r *Impl) GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*Team, error) {
	db = r.resolveDB(db)
	team := new(Team)
	err := db.NewSelect().
		Model(team).
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// GetTeams retrieves several teams. A missing id yields ErrTeamNotFound.
func (r *Impl) GetTeams(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) ([]*Team, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var teams []*Team
	err := db.NewSelect().
		Model(&teams).
		Where("t.id IN (?)", bun.In(ids)).
		Order("t.created_at ASC", "t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	if len(teams) != len(uniqueTeamIDs(ids)) {
		return nil, ErrTeamNotFound
	}
	return teams, nil
}

// ListTeamsForEvent returns the teams of an event in registration order.
func (r *Impl) ListTeamsForEvent(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]*Team, error) {
	db = r.resolveDB(db)
	var teams []*Team
	err := db.NewSelect().
		Model(&teams).
		Where("t.event_id = ?", eventID).
		Order("t.created_at ASC", "t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// ListRankedTeams returns the teams of an event ordered by score, then Buchholz
// points, then registration order.
func (r *Impl) ListRankedTeams(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]*Team, error) {
	db = r.resolveDB(db)
	var teams []*Team
	err := db.NewSelect().
		Model(&teams).
		Where("t.event_id = ?", eventID).
		Order("t.score DESC", "t.buchholz_points DESC", "t.created_at ASC", "t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranked teams: %w", err)
	}
	return teams, nil
}

// CountTeamsForEvent returns the number of teams registered for an event.
func (r *Impl) CountTeamsForEvent(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*Team)(nil)).
		Where("t.event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return n, nil
}

// ListQueuedTeams returns the teams of an event currently waiting in the queue.
func (r *Impl) ListQueuedTeams(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]*Team, error) {
	db = r.resolveDB(db)
	var teams []*Team
	err := db.NewSelect().
		Model(&teams).
		Where("t.event_id = ?", eventID).
		Where("t.in_queue = TRUE").
		Order("t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued teams: %w", err)
	}
	return teams, nil
}

// SetInQueue flags a team as waiting (or not) for a queue match.
func (r *Impl) SetInQueue(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, inQueue bool) error {
	return r.updateTeam(ctx, db, id, "in_queue = ?", inQueue)
}

// ClaimQueuedTeams clears the queue flag of the given teams, but only where it
// is still set. It returns how many teams were actually claimed, so a caller
// racing another matchmaker can detect that a team was taken.
func (r *Impl) ClaimQueuedTeams(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("in_queue = FALSE").
		Set("updated_at = ?", time.Now()).
		Where("id IN (?)", bun.In(ids)).
		Where("in_queue = TRUE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to claim queued teams: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// IncrementScore adds delta to a team's tournament score.
func (r *Impl) IncrementScore(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, delta int) error {
	return r.updateTeam(ctx, db, id, "score = score + ?", delta)
}

// SetQueueScore stores a team's queue rating.
func (r *Impl) SetQueueScore(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, score int) error {
	return r.updateTeam(ctx, db, id, "queue_score = ?", score)
}

// SetHadBye records whether a team has received a Swiss bye.
func (r *Impl) SetHadBye(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, hadBye bool) error {
	return r.updateTeam(ctx, db, id, "had_bye = ?", hadBye)
}

// SetBuchholzPoints stores a team's tiebreak value.
func (r *Impl) SetBuchholzPoints(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, points int) error {
	return r.updateTeam(ctx, db, id, "buchholz_points = ?", points)
}

func (r *Impl) updateTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, set string, arg any) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set(set, arg).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	return requireRow(res, ErrTeamNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func uniqueTeamIDs(ids []sharedtypes.TeamID) map[sharedtypes.TeamID]struct{} {
	set := make(map[sharedtypes.TeamID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
