package matchdb

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

// ErrNotFound is returned when a match does not exist.
var ErrNotFound = &apperrors.Error{Kind: apperrors.ErrNotFound, Msg: "match not found"}

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new match repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Create inserts a match together with its team links.
func (r *Impl) Create(ctx context.Context, db bun.IDB, match *Match) error {
	db = r.resolveDB(db)
	if match.ID.IsZero() {
		match.ID = sharedtypes.NewMatchID()
	}
	now := time.Now()
	if match.CreatedAt.IsZero() {
		match.CreatedAt = now
	}
	match.UpdatedAt = match.CreatedAt

	if _, err := db.NewInsert().Model(match).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	for i, t := range match.Teams {
		t.MatchID = match.ID
		t.Position = i
	}
	if len(match.Teams) > 0 {
		if _, err := db.NewInsert().Model(&match.Teams).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert match teams: %w", err)
		}
	}
	return nil
}

func withParticipants(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		Relation("Teams", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				ColumnExpr("mt.*").
				ColumnExpr("t.name AS team_name").
				Join("JOIN teams AS t ON t.id = mt.team_id").
				Order("mt.position ASC")
		}).
		Relation("Results", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("mr.team_id ASC")
		})
}

// GetByID loads a match with its teams and results.
func (r *Impl) GetByID(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*Match, error) {
	db = r.resolveDB(db)
	match := new(Match)
	err := withParticipants(db.NewSelect().Model(match)).
		Where("m.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// TransitionState moves a match from one state to the next with a conditional
// update, so two concurrent callers cannot both win the transition.
func (r *Impl) TransitionState(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, from, to sharedtypes.MatchState) error {
	db = r.resolveDB(db)
	if !from.CanTransitionTo(to) {
		return apperrors.IllegalState("TransitionState", "cannot move match from %s to %s", from, to)
	}
	res, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("state = ?", to).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("state = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update match state: %w", err)
	}
	return r.checkTransition(ctx, db, res, id, from)
}

// Finish marks an IN_PROGRESS match FINISHED, sets its winner and writes its results.
func (r *Impl) Finish(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, winner sharedtypes.TeamID, results []*MatchTeamResult) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("state = ?", sharedtypes.MatchStateFinished).
		Set("winner_id = ?", winner).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("state = ?", sharedtypes.MatchStateInProgress).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to finish match: %w", err)
	}
	if err := r.checkTransition(ctx, db, res, id, sharedtypes.MatchStateInProgress); err != nil {
		return err
	}

	for _, result := range results {
		result.MatchID = id
	}
	if len(results) > 0 {
		if _, err := db.NewInsert().Model(&results).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert match results: %w", err)
		}
	}
	return nil
}

func (r *Impl) checkTransition(ctx context.Context, db bun.IDB, res sql.Result, id sharedtypes.MatchID, from sharedtypes.MatchState) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var state sharedtypes.MatchState
	err = db.NewSelect().
		Model((*Match)(nil)).
		Column("state").
		Where("id = ?", id).
		Scan(ctx, &state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read match state: %w", err)
	}
	return apperrors.IllegalState("TransitionState", "match %s is %s, expected %s", id, state, from)
}

// SaveStats stores the game counters reported for a match.
func (r *Impl) SaveStats(ctx context.Context, db bun.IDB, stats *MatchStats) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(stats).
		On("CONFLICT (match_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save match stats: %w", err)
	}
	return nil
}

func applyFilter(q *bun.SelectQuery, f Filter) *bun.SelectQuery {
	if f.EventID != nil {
		q = q.Where("m.event_id = ?", *f.EventID)
	}
	if f.Phase != nil {
		q = q.Where("m.phase = ?", *f.Phase)
	}
	if f.Round != nil {
		q = q.Where("m.round = ?", *f.Round)
	}
	if f.State != nil {
		q = q.Where("m.state = ?", *f.State)
	}
	if f.TeamID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM match_teams AS f WHERE f.match_id = m.id AND f.team_id = ?)", *f.TeamID)
	}
	return q
}

// listOrder sorts a single round by ordinal so bracket order never depends on
// insert timestamps. Other listings follow creation order.
func listOrder(f Filter) []string {
	if f.Round != nil {
		return []string{"m.ordinal ASC", "m.created_at ASC", "m.id ASC"}
	}
	return []string{"m.created_at ASC", "m.ordinal ASC", "m.id ASC"}
}

// List returns the matches matching f. Matches of one round come in ordinal
// order, everything else in creation order.
func (r *Impl) List(ctx context.Context, db bun.IDB, f Filter) ([]*Match, error) {
	db = r.resolveDB(db)
	var matches []*Match
	err := applyFilter(withParticipants(db.NewSelect().Model(&matches)), f).
		Order(listOrder(f)...).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// Count returns how many matches match f.
func (r *Impl) Count(ctx context.Context, db bun.IDB, f Filter) (int, error) {
	db = r.resolveDB(db)
	n, err := applyFilter(db.NewSelect().Model((*Match)(nil)), f).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

// CountUnfinished returns the number of matches of a round that are not FINISHED.
func (r *Impl) CountUnfinished(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*Match)(nil)).
		Where("m.event_id = ?", eventID).
		Where("m.phase = ?", phase).
		Where("m.round = ?", round).
		Where("m.state <> ?", sharedtypes.MatchStateFinished).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches: %w", err)
	}
	return n, nil
}

// HasOpenMatch reports whether the team takes part in a PLANNED or IN_PROGRESS match of the phase.
func (r *Impl) HasOpenMatch(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, phase sharedtypes.MatchPhase) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		Model((*Match)(nil)).
		Join("JOIN match_teams AS mt ON mt.match_id = m.id").
		Where("mt.team_id = ?", teamID).
		Where("m.phase = ?", phase).
		Where("m.state <> ?", sharedtypes.MatchStateFinished).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check open matches: %w", err)
	}
	return exists, nil
}

// SetRevealed flips the reveal flag of a match.
func (r *Impl) SetRevealed(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, revealed bool) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Match)(nil)).
		Set("is_revealed = ?", revealed).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update reveal flag: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GlobalStats sums the stats of every finished match.
func (r *Impl) GlobalStats(ctx context.Context, db bun.IDB) (*GlobalStats, error) {
	db = r.resolveDB(db)
	stats := new(GlobalStats)
	err := db.NewSelect().
		TableExpr("match_stats AS ms").
		ColumnExpr("COUNT(*) AS matches").
		ColumnExpr("COALESCE(SUM(ms.actions_executed), 0) AS actions_executed").
		ColumnExpr("COALESCE(SUM(ms.damage_deposits), 0) AS damage_deposits").
		ColumnExpr("COALESCE(SUM(ms.gempiles_destroyed), 0) AS gempiles_destroyed").
		ColumnExpr("COALESCE(SUM(ms.damage_total), 0) AS damage_total").
		ColumnExpr("COALESCE(SUM(ms.damage_self), 0) AS damage_self").
		ColumnExpr("COALESCE(SUM(ms.damage_opponent), 0) AS damage_opponent").
		ColumnExpr("COALESCE(SUM(ms.damage_units), 0) AS damage_units").
		ColumnExpr("COALESCE(SUM(ms.damage_cores), 0) AS damage_cores").
		ColumnExpr("COALESCE(SUM(ms.damage_walls), 0) AS damage_walls").
		ColumnExpr("COALESCE(SUM(ms.units_spawned), 0) AS units_spawned").
		ColumnExpr("COALESCE(SUM(ms.units_destroyed), 0) AS units_destroyed").
		ColumnExpr("COALESCE(SUM(ms.cores_destroyed), 0) AS cores_destroyed").
		ColumnExpr("COALESCE(SUM(ms.walls_destroyed), 0) AS walls_destroyed").
		ColumnExpr("COALESCE(SUM(ms.gems_transferred), 0) AS gems_transferred").
		ColumnExpr("COALESCE(SUM(ms.tiles_traveled), 0) AS tiles_traveled").
		ColumnExpr("COALESCE(SUM(ms.gems_gained), 0) AS gems_gained").
		Join("JOIN matches AS m ON m.id = ms.match_id").
		Where("m.state = ?", sharedtypes.MatchStateFinished).
		Scan(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate match stats: %w", err)
	}
	return stats, nil
}
