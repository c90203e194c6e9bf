package matchservice

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

type testDeps struct {
	repo       *FakeMatchRepo
	teams      *FakeTeamAccessor
	dispatcher *FakeDispatcher
	observer   *FakeRoundObserver
	logs       *FakeLogSource
}

func newTestService() (*MatchService, testDeps) {
	deps := testDeps{
		repo:       NewFakeMatchRepo(),
		teams:      NewFakeTeamAccessor(),
		dispatcher: &FakeDispatcher{},
		observer:   &FakeRoundObserver{},
		logs:       &FakeLogSource{},
	}
	svc := NewMatchService(
		deps.repo,
		deps.teams,
		deps.dispatcher,
		deps.logs,
		slog.Default(),
		observability.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		nil,
	)
	svc.RegisterRoundObserver(deps.observer)
	return svc, deps
}

func TestCreateMatch(t *testing.T) {
	a, b := sharedtypes.NewTeamID(), sharedtypes.NewTeamID()
	eventID := sharedtypes.NewEventID()

	tests := []struct {
		name         string
		req          CreateMatchRequest
		wantErr      error
		wantRevealed bool
	}{
		{
			name: "swiss match",
			req:  CreateMatchRequest{EventID: eventID, TeamIDs: []sharedtypes.TeamID{a, b}, Round: 1, Phase: sharedtypes.MatchPhaseSwiss},
		},
		{
			name:         "queue match is revealed",
			req:          CreateMatchRequest{EventID: eventID, TeamIDs: []sharedtypes.TeamID{a, b}, Phase: sharedtypes.MatchPhaseQueue},
			wantRevealed: true,
		},
		{
			name:    "one team",
			req:     CreateMatchRequest{EventID: eventID, TeamIDs: []sharedtypes.TeamID{a}, Phase: sharedtypes.MatchPhaseSwiss},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "three teams",
			req:     CreateMatchRequest{EventID: eventID, TeamIDs: []sharedtypes.TeamID{a, b, sharedtypes.NewTeamID()}, Phase: sharedtypes.MatchPhaseSwiss},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "duplicate team",
			req:     CreateMatchRequest{EventID: eventID, TeamIDs: []sharedtypes.TeamID{a, a}, Phase: sharedtypes.MatchPhaseSwiss},
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "unknown phase",
			req:     CreateMatchRequest{EventID: eventID, TeamIDs: []sharedtypes.TeamID{a, b}, Phase: "FRIENDLY"},
			wantErr: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService()
			var stored *matchdb.Match
			deps.repo.CreateFunc = func(ctx context.Context, db bun.IDB, m *matchdb.Match) error {
				m.ID = sharedtypes.NewMatchID()
				stored = m
				return nil
			}

			view, err := svc.CreateMatch(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, deps.repo.Trace())
				return
			}

			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, sharedtypes.MatchStatePlanned, view.State)
			assert.Equal(t, tt.req.Round, view.Round)
			assert.Equal(t, tt.wantRevealed, view.IsRevealed)
			assert.Empty(t, view.Results)
			assert.Nil(t, view.WinnerID)
			assert.Equal(t, tt.req.TeamIDs, stored.TeamIDs())
		})
	}
}

func TestStartMatch(t *testing.T) {
	alpha, beta := newTeam("alpha", 0, 1000), newTeam("beta", 0, 1000)

	tests := []struct {
		name         string
		setup        func(deps testDeps, m *matchdb.Match)
		wantErr      error
		wantDispatch int
	}{
		{
			name: "planned match is started and dispatched",
			setup: func(deps testDeps, m *matchdb.Match) {
				deps.repo.GetByIDFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*matchdb.Match, error) {
					return m, nil
				}
				deps.teams.GetTeamsFunc = teamsLookup(alpha, beta)
			},
			wantDispatch: 1,
		},
		{
			name: "match not planned",
			setup: func(deps testDeps, m *matchdb.Match) {
				deps.repo.TransitionStateFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, from, to sharedtypes.MatchState) error {
					return apperrors.IllegalState("TransitionState", "match is IN_PROGRESS")
				}
			},
			wantErr: apperrors.ErrIllegalState,
		},
		{
			name: "dispatch failure is swallowed",
			setup: func(deps testDeps, m *matchdb.Match) {
				deps.repo.GetByIDFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*matchdb.Match, error) {
					return m, nil
				}
				deps.teams.GetTeamsFunc = teamsLookup(alpha, beta)
				deps.dispatcher.DispatchFunc = func(ctx context.Context, req DispatchRequest) error {
					return errors.New("bus down")
				}
			},
			wantDispatch: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService()
			m := newMatch(sharedtypes.MatchPhaseSwiss, sharedtypes.MatchStateInProgress, alpha, beta)
			tt.setup(deps, m)

			err := svc.StartMatch(context.Background(), m.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, deps.dispatcher.Requests)
				return
			}

			require.NoError(t, err)
			require.Len(t, deps.dispatcher.Requests, tt.wantDispatch)
			req := deps.dispatcher.Requests[0]
			assert.Equal(t, m.ID, req.MatchID)
			assert.Equal(t, []DispatchTeam{
				{ID: alpha.ID, Name: "alpha", Repo: "repo-alpha"},
				{ID: beta.ID, Name: "beta", Repo: "repo-beta"},
			}, req.Teams)
		})
	}
}

func TestFinishMatch(t *testing.T) {
	tests := []struct {
		name           string
		phase          sharedtypes.MatchPhase
		state          sharedtypes.MatchState
		winnerIsMember bool
		unfinished     int
		wantErr        error
		wantTrace      []string
		wantTeamTrace  []string
		wantRounds     int
	}{
		{
			name:           "swiss finish completes round",
			phase:          sharedtypes.MatchPhaseSwiss,
			state:          sharedtypes.MatchStateInProgress,
			winnerIsMember: true,
			wantTrace:      []string{"GetByID", "Finish", "CountUnfinished"},
			wantTeamTrace:  []string{"GetTeams", "IncrementScore"},
			wantRounds:     1,
		},
		{
			name:           "swiss finish with matches left",
			phase:          sharedtypes.MatchPhaseSwiss,
			state:          sharedtypes.MatchStateInProgress,
			winnerIsMember: true,
			unfinished:     1,
			wantTrace:      []string{"GetByID", "Finish", "CountUnfinished"},
			wantTeamTrace:  []string{"GetTeams", "IncrementScore"},
		},
		{
			name:           "queue finish never progresses",
			phase:          sharedtypes.MatchPhaseQueue,
			state:          sharedtypes.MatchStateInProgress,
			winnerIsMember: true,
			wantTrace:      []string{"GetByID", "Finish"},
			wantTeamTrace:  []string{"GetTeams", "SetQueueScore", "SetQueueScore"},
		},
		{
			name:           "planned match is rejected without mutation",
			phase:          sharedtypes.MatchPhaseSwiss,
			state:          sharedtypes.MatchStatePlanned,
			winnerIsMember: true,
			wantErr:        apperrors.ErrIllegalState,
			wantTrace:      []string{"GetByID"},
			wantTeamTrace:  []string{},
		},
		{
			name:           "finished match is rejected without mutation",
			phase:          sharedtypes.MatchPhaseElimination,
			state:          sharedtypes.MatchStateFinished,
			winnerIsMember: true,
			wantErr:        apperrors.ErrIllegalState,
			wantTrace:      []string{"GetByID"},
			wantTeamTrace:  []string{},
		},
		{
			name:          "winner not among teams",
			phase:         sharedtypes.MatchPhaseSwiss,
			state:         sharedtypes.MatchStateInProgress,
			wantErr:       apperrors.ErrNotFound,
			wantTrace:     []string{"GetByID"},
			wantTeamTrace: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService()
			alpha, beta := newTeam("alpha", 1, 1000), newTeam("beta", 0, 1000)
			m := newMatch(tt.phase, tt.state, alpha, beta)

			deps.repo.GetByIDFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*matchdb.Match, error) {
				return m, nil
			}
			deps.repo.CountUnfinishedFunc = func(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) (int, error) {
				return tt.unfinished, nil
			}
			var finishedWith []*matchdb.MatchTeamResult
			deps.repo.FinishFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID, winner sharedtypes.TeamID, results []*matchdb.MatchTeamResult) error {
				finishedWith = results
				return nil
			}
			deps.teams.GetTeamsFunc = teamsLookup(alpha, beta)

			winner := sharedtypes.NewTeamID()
			if tt.winnerIsMember {
				winner = beta.ID
			}

			view, err := svc.FinishMatch(context.Background(), FinishMatchRequest{MatchID: m.ID, WinnerID: winner})

			assert.Equal(t, tt.wantTrace, deps.repo.Trace())
			assert.Equal(t, tt.wantTeamTrace, deps.teams.Trace())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, finishedWith)
				assert.Empty(t, deps.observer.Rounds)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, sharedtypes.MatchStateFinished, view.State)
			require.NotNil(t, view.WinnerID)
			assert.Equal(t, beta.ID, *view.WinnerID)
			assert.Len(t, finishedWith, 2)
			assert.Len(t, deps.observer.Rounds, tt.wantRounds)
			if tt.wantRounds > 0 {
				assert.Equal(t, RoundKey{EventID: m.EventID, Phase: tt.phase, Round: m.Round}, deps.observer.Rounds[0])
			}
		})
	}
}

func TestFinishMatchQueueRatings(t *testing.T) {
	svc, deps := newTestService()
	alpha, beta := newTeam("alpha", 0, 1000), newTeam("beta", 0, 1000)
	m := newMatch(sharedtypes.MatchPhaseQueue, sharedtypes.MatchStateInProgress, alpha, beta)

	deps.repo.GetByIDFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*matchdb.Match, error) {
		return m, nil
	}
	deps.teams.GetTeamsFunc = teamsLookup(alpha, beta)
	ratings := map[sharedtypes.TeamID]int{}
	deps.teams.SetQueueScoreFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.TeamID, score int) error {
		ratings[id] = score
		return nil
	}

	view, err := svc.FinishMatch(context.Background(), FinishMatchRequest{MatchID: m.ID, WinnerID: alpha.ID})
	require.NoError(t, err)

	assert.Equal(t, map[sharedtypes.TeamID]int{alpha.ID: 1016, beta.ID: 984}, ratings)
	assert.Equal(t, []TeamResult{{TeamID: alpha.ID, Score: 1016}, {TeamID: beta.ID, Score: 984}}, view.Results)
}

func TestFinishMatchSavesStats(t *testing.T) {
	svc, deps := newTestService()
	alpha, beta := newTeam("alpha", 0, 1000), newTeam("beta", 0, 1000)
	m := newMatch(sharedtypes.MatchPhaseSwiss, sharedtypes.MatchStateInProgress, alpha, beta)
	deps.repo.GetByIDFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*matchdb.Match, error) {
		return m, nil
	}
	deps.repo.CountUnfinishedFunc = func(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) (int, error) {
		return 1, nil
	}
	deps.teams.GetTeamsFunc = teamsLookup(alpha, beta)
	var saved *matchdb.MatchStats
	deps.repo.SaveStatsFunc = func(ctx context.Context, db bun.IDB, stats *matchdb.MatchStats) error {
		saved = stats
		return nil
	}

	_, err := svc.FinishMatch(context.Background(), FinishMatchRequest{
		MatchID:  m.ID,
		WinnerID: alpha.ID,
		Stats:    &Stats{DamageTotal: 420, TilesTraveled: 17},
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, m.ID, saved.MatchID)
	assert.EqualValues(t, 420, saved.DamageTotal)
	assert.EqualValues(t, 17, saved.TilesTraveled)
}

func TestFinishMatchObserverErrorDoesNotFailFinish(t *testing.T) {
	svc, deps := newTestService()
	alpha, beta := newTeam("alpha", 0, 1000), newTeam("beta", 0, 1000)
	m := newMatch(sharedtypes.MatchPhaseElimination, sharedtypes.MatchStateInProgress, alpha, beta)
	deps.repo.GetByIDFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*matchdb.Match, error) {
		return m, nil
	}
	deps.teams.GetTeamsFunc = teamsLookup(alpha, beta)
	deps.observer.Err = apperrors.Integrity("NextBracketRound", "odd number of matches")

	_, err := svc.FinishMatch(context.Background(), FinishMatchRequest{MatchID: m.ID, WinnerID: alpha.ID})
	assert.NoError(t, err)
	assert.Len(t, deps.observer.Rounds, 1)
}

func TestFinishMatchMissingTeamIsIntegrityError(t *testing.T) {
	svc, deps := newTestService()
	alpha, beta := newTeam("alpha", 0, 1000), newTeam("beta", 0, 1000)
	m := newMatch(sharedtypes.MatchPhaseSwiss, sharedtypes.MatchStateInProgress, alpha, beta)
	deps.repo.GetByIDFunc = func(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*matchdb.Match, error) {
		return m, nil
	}
	deps.teams.GetTeamsFunc = func(ctx context.Context, db bun.IDB, ids []sharedtypes.TeamID) ([]*competitiondb.Team, error) {
		return []*competitiondb.Team{alpha}, nil
	}

	_, err := svc.FinishMatch(context.Background(), FinishMatchRequest{MatchID: m.ID, WinnerID: alpha.ID})
	assert.ErrorIs(t, err, apperrors.ErrIntegrity)
	assert.NotContains(t, deps.repo.Trace(), "Finish")
}
