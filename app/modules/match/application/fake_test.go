package matchservice

import (
	"context"
	"sync"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Match Repo
// ------------------------

type FakeMatchRepo struct {
	mu    sync.Mutex
	trace []string

	CreateFunc          func(ctx context.Context, db bun.IDB, match *matchdb.Match) error
	GetByIDFunc         func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*matchdb.Match, error)
	TransitionStateFunc func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, from, to sharedtypes.MatchState) error
	FinishFunc          func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, winner sharedtypes.TeamID, results []*matchdb.MatchTeamResult) error
	SaveStatsFunc       func(ctx context.Context, db bun.IDB, stats *matchdb.MatchStats) error
	ListFunc            func(ctx context.Context, db bun.IDB, f matchdb.Filter) ([]*matchdb.Match, error)
	CountFunc           func(ctx context.Context, db bun.IDB, f matchdb.Filter) (int, error)
	CountUnfinishedFunc func(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) (int, error)
	HasOpenMatchFunc    func(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, phase sharedtypes.MatchPhase) (bool, error)
	SetRevealedFunc     func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, revealed bool) error
	GlobalStatsFunc     func(ctx context.Context, db bun.IDB) (*matchdb.GlobalStats, error)
}

func NewFakeMatchRepo() *FakeMatchRepo {
	return &FakeMatchRepo{trace: []string{}}
}

func (f *FakeMatchRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeMatchRepo) Create(ctx context.Context, db bun.IDB, match *matchdb.Match) error {
	f.record("Create")
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, db, match)
	}
	if match.ID.IsZero() {
		match.ID = sharedtypes.NewMatchID()
	}
	return nil
}

func (f *FakeMatchRepo) GetByID(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*matchdb.Match, error) {
	f.record("GetByID")
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, db, id)
	}
	return nil, matchdb.ErrNotFound
}

func (f *FakeMatchRepo) TransitionState(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, from, to sharedtypes.MatchState) error {
	f.record("TransitionState")
	if f.TransitionStateFunc != nil {
		return f.TransitionStateFunc(ctx, db, id, from, to)
	}
	return nil
}

func (f *FakeMatchRepo) Finish(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, winner sharedtypes.TeamID, results []*matchdb.MatchTeamResult) error {
	f.record("Finish")
	if f.FinishFunc != nil {
		return f.FinishFunc(ctx, db, id, winner, results)
	}
	return nil
}

func (f *FakeMatchRepo) SaveStats(ctx context.Context, db bun.IDB, stats *matchdb.MatchStats) error {
	f.record("SaveStats")
	if f.SaveStatsFunc != nil {
		return f.SaveStatsFunc(ctx, db, stats)
	}
	return nil
}

func (f *FakeMatchRepo) List(ctx context.Context, db bun.IDB, filter matchdb.Filter) ([]*matchdb.Match, error) {
	f.record("List")
	if f.ListFunc != nil {
		return f.ListFunc(ctx, db, filter)
	}
	return nil, nil
}

func (f *FakeMatchRepo) Count(ctx context.Context, db bun.IDB, filter matchdb.Filter) (int, error) {
	f.record("Count")
	if f.CountFunc != nil {
		return f.CountFunc(ctx, db, filter)
	}
	return 0, nil
}

func (f *FakeMatchRepo) CountUnfinished(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) (int, error) {
	f.record("CountUnfinished")
	if f.CountUnfinishedFunc != nil {
		return f.CountUnfinishedFunc(ctx, db, eventID, phase, round)
	}
	return 0, nil
}

func (f *FakeMatchRepo) HasOpenMatch(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, phase sharedtypes.MatchPhase) (bool, error) {
	f.record("HasOpenMatch")
	if f.HasOpenMatchFunc != nil {
		return f.HasOpenMatchFunc(ctx, db, teamID, phase)
	}
	return false, nil
}

func (f *FakeMatchRepo) SetRevealed(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, revealed bool) error {
	f.record("SetRevealed")
	if f.SetRevealedFunc != nil {
		return f.SetRevealedFunc(ctx, db, id, revealed)
	}
	return nil
}

func (f *FakeMatchRepo) GlobalStats(ctx context.Context, db bun.IDB) (*matchdb.GlobalStats, error) {
	f.record("GlobalStats")
	if f.GlobalStatsFunc != nil {
		return f.GlobalStatsFunc(ctx, db)
	}
	return &matchdb.GlobalStats{}, nil
}

func (f *FakeMatchRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ matchdb.Repository = (*FakeMatchRepo)(nil)

// ------------------------
// Fake Team Accessor
// ------------------------

type FakeTeamAccessor struct {
	trace []string

	GetTeamsFunc       func(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) ([]*competitiondb.Team, error)
	IncrementScoreFunc func(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, delta int) error
	SetQueueScoreFunc  func(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, score int) error
}

func NewFakeTeamAccessor() *FakeTeamAccessor {
	return &FakeTeamAccessor{trace: []string{}}
}

func (f *FakeTeamAccessor) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeTeamAccessor) GetTeams(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) ([]*competitiondb.Team, error) {
	f.record("GetTeams")
	if f.GetTeamsFunc != nil {
		return f.GetTeamsFunc(ctx, db, ids)
	}
	return nil, nil
}

func (f *FakeTeamAccessor) IncrementScore(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, delta int) error {
	f.record("IncrementScore")
	if f.IncrementScoreFunc != nil {
		return f.IncrementScoreFunc(ctx, db, id, delta)
	}
	return nil
}

func (f *FakeTeamAccessor) SetQueueScore(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, score int) error {
	f.record("SetQueueScore")
	if f.SetQueueScoreFunc != nil {
		return f.SetQueueScoreFunc(ctx, db, id, score)
	}
	return nil
}

func (f *FakeTeamAccessor) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ TeamAccessor = (*FakeTeamAccessor)(nil)

// ------------------------
// Fake collaborators
// ------------------------

type FakeDispatcher struct {
	Requests     []DispatchRequest
	DispatchFunc func(ctx context.Context, req DispatchRequest) error
}

func (f *FakeDispatcher) Dispatch(ctx context.Context, req DispatchRequest) error {
	f.Requests = append(f.Requests, req)
	if f.DispatchFunc != nil {
		return f.DispatchFunc(ctx, req)
	}
	return nil
}

type FakeRoundObserver struct {
	Rounds []RoundKey
	Err    error
}

func (f *FakeRoundObserver) RoundCompleted(_ context.Context, round RoundKey) error {
	f.Rounds = append(f.Rounds, round)
	return f.Err
}

type FakeLogSource struct {
	FetchLogsFunc func(ctx context.Context, matchID sharedtypes.MatchID) ([]LogStream, error)
}

func (f *FakeLogSource) FetchLogs(ctx context.Context, matchID sharedtypes.MatchID) ([]LogStream, error) {
	if f.FetchLogsFunc != nil {
		return f.FetchLogsFunc(ctx, matchID)
	}
	return nil, nil
}

var (
	_ Dispatcher    = (*FakeDispatcher)(nil)
	_ RoundObserver = (*FakeRoundObserver)(nil)
	_ LogSource     = (*FakeLogSource)(nil)
)

// ------------------------
// Builders
// ------------------------

func newTeam(name string, score, queueScore int) *competitiondb.Team {
	return &competitiondb.Team{ID: sharedtypes.NewTeamID(), Name: name, Repo: "repo-" + name, Score: score, QueueScore: queueScore}
}

func newMatch(phase sharedtypes.MatchPhase, state sharedtypes.MatchState, teams ...*competitiondb.Team) *matchdb.Match {
	m := &matchdb.Match{
		ID:      sharedtypes.NewMatchID(),
		EventID: sharedtypes.NewEventID(),
		State:   state,
		Phase:   phase,
	}
	for i, t := range teams {
		m.Teams = append(m.Teams, &matchdb.MatchTeam{MatchID: m.ID, TeamID: t.ID, Position: i, TeamName: t.Name})
	}
	return m
}

func teamsLookup(teams ...*competitiondb.Team) func(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) ([]*competitiondb.Team, error) {
	return func(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) ([]*competitiondb.Team, error) {
		var out []*competitiondb.Team
		for _, id := range ids {
			for _, t := range teams {
				if t.ID == id {
					out = append(out, t)
				}
			}
		}
		return out, nil
	}
}
