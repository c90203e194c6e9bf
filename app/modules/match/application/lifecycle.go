package matchservice

import (
	"context"
	"log/slog"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// CreateMatch inserts a PLANNED match in its own transaction.
func (s *MatchService) CreateMatch(ctx context.Context, req CreateMatchRequest) (*MatchView, error) {
	return withTelemetry(s, ctx, "CreateMatch", req.EventID.String(), func(ctx context.Context) (*MatchView, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*MatchView, error) {
			return s.createMatchLogic(ctx, db, req)
		})
	})
}

// CreateMatchInTx inserts a PLANNED match inside the caller's transaction.
func (s *MatchService) CreateMatchInTx(ctx context.Context, db bun.IDB, req CreateMatchRequest) (*MatchView, error) {
	return withTelemetry(s, ctx, "CreateMatch", req.EventID.String(), func(ctx context.Context) (*MatchView, error) {
		return s.createMatchLogic(ctx, db, req)
	})
}

func (s *MatchService) createMatchLogic(ctx context.Context, db bun.IDB, req CreateMatchRequest) (*MatchView, error) {
	const op = "CreateMatch"

	if len(req.TeamIDs) != 2 {
		return nil, apperrors.Validation(op, "a match needs exactly 2 teams, got %d", len(req.TeamIDs))
	}
	if req.TeamIDs[0] == req.TeamIDs[1] {
		return nil, apperrors.Validation(op, "team %s cannot play against itself", req.TeamIDs[0])
	}
	if !req.Phase.Valid() {
		return nil, apperrors.Validation(op, "unknown match phase %q", req.Phase)
	}
	if req.Round < 0 {
		return nil, apperrors.Validation(op, "round must not be negative, got %d", req.Round)
	}

	match := &matchdb.Match{
		EventID: req.EventID,
		State:   sharedtypes.MatchStatePlanned,
		Phase:   req.Phase,
		Round:   req.Round,
		Ordinal: req.Ordinal,
		// Queue ladder results are public as soon as they exist.
		IsRevealed: req.Phase == sharedtypes.MatchPhaseQueue,
		Teams: []*matchdb.MatchTeam{
			{TeamID: req.TeamIDs[0]},
			{TeamID: req.TeamIDs[1]},
		},
	}
	if err := s.repo.Create(ctx, db, match); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMatchCreated(ctx, string(req.Phase))
	}
	return toView(match), nil
}

// StartMatch moves a PLANNED match to IN_PROGRESS and then dispatches it.
// Dispatch failures are logged and not returned; the match stays IN_PROGRESS.
func (s *MatchService) StartMatch(ctx context.Context, id sharedtypes.MatchID) error {
	_, err := withTelemetry(s, ctx, "StartMatch", id.String(), func(ctx context.Context) (struct{}, error) {
		req, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*DispatchRequest, error) {
			return s.startMatchLogic(ctx, db, id)
		})
		if err != nil {
			return struct{}{}, err
		}
		s.dispatch(ctx, req)
		return struct{}{}, nil
	})
	return err
}

func (s *MatchService) startMatchLogic(ctx context.Context, db bun.IDB, id sharedtypes.MatchID) (*DispatchRequest, error) {
	if err := s.repo.TransitionState(ctx, db, id, sharedtypes.MatchStatePlanned, sharedtypes.MatchStateInProgress); err != nil {
		return nil, err
	}

	match, err := s.repo.GetByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.GetTeams(ctx, db, match.TeamIDs())
	if err != nil {
		return nil, err
	}

	byID := indexTeams(teams)
	req := &DispatchRequest{
		MatchID: match.ID,
		EventID: match.EventID,
		Phase:   match.Phase,
		Round:   match.Round,
	}
	for _, teamID := range match.TeamIDs() {
		t := byID[teamID]
		if t == nil {
			return nil, apperrors.Integrity("StartMatch", "team %s of match %s is missing", teamID, match.ID)
		}
		req.Teams = append(req.Teams, DispatchTeam{ID: t.ID, Name: t.Name, Repo: t.Repo})
	}
	return req, nil
}

func (s *MatchService) dispatch(ctx context.Context, req *DispatchRequest) {
	if s.dispatcher == nil {
		s.logger.WarnContext(ctx, "No dispatcher configured, match will wait for a result",
			slog.String("match_id", req.MatchID.String()),
		)
		return
	}
	if err := s.dispatcher.Dispatch(ctx, *req); err != nil {
		s.logger.ErrorContext(ctx, "Failed to dispatch match",
			observability.CorrelationAttr(ctx),
			slog.String("match_id", req.MatchID.String()),
			slog.String("phase", string(req.Phase)),
			slog.Any("error", err),
		)
		if s.metrics != nil {
			s.metrics.RecordDispatchFailure(ctx, string(req.Phase))
		}
	}
}

// FinishMatch records the outcome of an IN_PROGRESS match. Once every match
// of a tournament round is finished the registered RoundObserver is notified.
func (s *MatchService) FinishMatch(ctx context.Context, req FinishMatchRequest) (*MatchView, error) {
	return withTelemetry(s, ctx, "FinishMatch", req.MatchID.String(), func(ctx context.Context) (*MatchView, error) {
		view, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*MatchView, error) {
			return s.finishMatchLogic(ctx, db, req)
		})
		if err != nil {
			return nil, err
		}

		if s.metrics != nil {
			s.metrics.RecordMatchFinished(ctx, string(view.Phase))
		}
		s.notifyRoundCompletion(ctx, view)
		return view, nil
	})
}

func (s *MatchService) finishMatchLogic(ctx context.Context, db bun.IDB, req FinishMatchRequest) (*MatchView, error) {
	const op = "FinishMatch"

	match, err := s.repo.GetByID(ctx, db, req.MatchID)
	if err != nil {
		return nil, err
	}
	if match.State != sharedtypes.MatchStateInProgress {
		return nil, apperrors.IllegalState(op, "match %s is %s, expected %s", match.ID, match.State, sharedtypes.MatchStateInProgress)
	}
	if !match.HasTeam(req.WinnerID) {
		return nil, apperrors.NotFound(op, "team %s does not play in match %s", req.WinnerID, match.ID)
	}

	teams, err := s.teams.GetTeams(ctx, db, match.TeamIDs())
	if err != nil {
		return nil, err
	}
	snapshot, err := buildSnapshot(match, teams)
	if err != nil {
		return nil, err
	}

	rs, err := ComputeResults(snapshot, req.WinnerID, req.Stats)
	if err != nil {
		return nil, err
	}

	results := make([]*matchdb.MatchTeamResult, 0, len(rs.Results))
	for _, r := range rs.Results {
		results = append(results, &matchdb.MatchTeamResult{TeamID: r.TeamID, Score: r.Score})
	}
	if err := s.repo.Finish(ctx, db, match.ID, rs.WinnerID, results); err != nil {
		return nil, err
	}

	for _, u := range rs.Updates {
		if u.ScoreDelta != 0 {
			if err := s.teams.IncrementScore(ctx, db, u.TeamID, u.ScoreDelta); err != nil {
				return nil, err
			}
		}
		if u.QueueScore != nil {
			if err := s.teams.SetQueueScore(ctx, db, u.TeamID, *u.QueueScore); err != nil {
				return nil, err
			}
		}
	}

	if rs.Stats != nil {
		if err := s.repo.SaveStats(ctx, db, statsModel(match.ID, rs.Stats)); err != nil {
			return nil, err
		}
	}

	winner := rs.WinnerID
	match.State = sharedtypes.MatchStateFinished
	match.WinnerID = &winner
	match.Results = results
	return toView(match), nil
}

// notifyRoundCompletion runs after the finish transaction committed. Errors are
// logged here since the match itself is already finished.
func (s *MatchService) notifyRoundCompletion(ctx context.Context, view *MatchView) {
	if view.Phase == sharedtypes.MatchPhaseQueue || s.observer == nil {
		return
	}

	logger := s.logger.With(
		observability.CorrelationAttr(ctx),
		slog.String("event_id", view.EventID.String()),
		slog.String("phase", string(view.Phase)),
		slog.Int("round", view.Round),
	)

	remaining, err := s.repo.CountUnfinished(ctx, nil, view.EventID, view.Phase, view.Round)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to count unfinished matches", slog.Any("error", err))
		return
	}
	if remaining > 0 {
		logger.DebugContext(ctx, "Round still running", slog.Int("remaining", remaining))
		return
	}

	logger.InfoContext(ctx, "Round complete, advancing")
	key := RoundKey{EventID: view.EventID, Phase: view.Phase, Round: view.Round}
	if err := s.observer.RoundCompleted(ctx, key); err != nil {
		logger.ErrorContext(ctx, "Round progression failed, operator action required", slog.Any("error", err))
	}
}

func buildSnapshot(match *matchdb.Match, teams []*competitiondb.Team) (MatchSnapshot, error) {
	byID := indexTeams(teams)
	snapshot := MatchSnapshot{ID: match.ID, State: match.State, Phase: match.Phase}
	for _, id := range match.TeamIDs() {
		t := byID[id]
		if t == nil {
			return MatchSnapshot{}, apperrors.Integrity("FinishMatch", "team %s of match %s is missing", id, match.ID)
		}
		snapshot.Teams = append(snapshot.Teams, TeamSnapshot{ID: t.ID, Score: t.Score, QueueScore: t.QueueScore})
	}
	return snapshot, nil
}

func indexTeams(teams []*competitiondb.Team) map[sharedtypes.TeamID]*competitiondb.Team {
	byID := make(map[sharedtypes.TeamID]*competitiondb.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	return byID
}

func toView(m *matchdb.Match) *MatchView {
	view := &MatchView{
		ID:         m.ID,
		EventID:    m.EventID,
		State:      m.State,
		Phase:      m.Phase,
		Round:      m.Round,
		WinnerID:   m.WinnerID,
		IsRevealed: m.IsRevealed,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		Teams:      make([]TeamRef, 0, len(m.Teams)),
		Results:    make([]TeamResult, 0, len(m.Results)),
	}
	for _, t := range m.Teams {
		view.Teams = append(view.Teams, TeamRef{ID: t.TeamID, Name: t.TeamName})
	}
	for _, r := range m.Results {
		view.Results = append(view.Results, TeamResult{TeamID: r.TeamID, Score: r.Score})
	}
	return view
}

func statsModel(id sharedtypes.MatchID, st *Stats) *matchdb.MatchStats {
	return &matchdb.MatchStats{
		MatchID:           id,
		ActionsExecuted:   st.ActionsExecuted,
		DamageDeposits:    st.DamageDeposits,
		GempilesDestroyed: st.GempilesDestroyed,
		DamageTotal:       st.DamageTotal,
		DamageSelf:        st.DamageSelf,
		DamageOpponent:    st.DamageOpponent,
		DamageUnits:       st.DamageUnits,
		DamageCores:       st.DamageCores,
		DamageWalls:       st.DamageWalls,
		UnitsSpawned:      st.UnitsSpawned,
		UnitsDestroyed:    st.UnitsDestroyed,
		CoresDestroyed:    st.CoresDestroyed,
		WallsDestroyed:    st.WallsDestroyed,
		GemsTransferred:   st.GemsTransferred,
		TilesTraveled:     st.TilesTraveled,
		GemsGained:        st.GemsGained,
	}
}
