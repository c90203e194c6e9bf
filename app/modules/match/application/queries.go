package matchservice

import (
	"context"
	"log/slog"

	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
)

// JudgeContainer is the log stream of the game server itself. Only admins see it.
const JudgeContainer = "game"

// GetMatch returns a single match as the viewer may see it.
func (s *MatchService) GetMatch(ctx context.Context, id sharedtypes.MatchID, viewer sharedtypes.ViewerRole) (*MatchView, error) {
	return withTelemetry(s, ctx, "GetMatch", id.String(), func(ctx context.Context) (*MatchView, error) {
		match, err := s.repo.GetByID(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		return maskForViewer(toView(match), viewer), nil
	})
}

// ListMatches returns the matches of an event, optionally narrowed to one phase.
func (s *MatchService) ListMatches(ctx context.Context, eventID sharedtypes.EventID, phase *sharedtypes.MatchPhase, viewer sharedtypes.ViewerRole) ([]*MatchView, error) {
	return withTelemetry(s, ctx, "ListMatches", eventID.String(), func(ctx context.Context) ([]*MatchView, error) {
		if phase != nil && !phase.Valid() {
			return nil, apperrors.Validation("ListMatches", "unknown match phase %q", *phase)
		}
		matches, err := s.repo.List(ctx, nil, matchdb.Filter{EventID: &eventID, Phase: phase})
		if err != nil {
			return nil, err
		}
		views := make([]*MatchView, 0, len(matches))
		for _, m := range matches {
			views = append(views, maskForViewer(toView(m), viewer))
		}
		return views, nil
	})
}

// maskForViewer hides the outcome of an unrevealed finished match from
// non-admin viewers by presenting it as still PLANNED.
func maskForViewer(v *MatchView, viewer sharedtypes.ViewerRole) *MatchView {
	if viewer.IsAdmin() || v.IsRevealed || v.State != sharedtypes.MatchStateFinished {
		return v
	}
	masked := *v
	masked.State = sharedtypes.MatchStatePlanned
	masked.WinnerID = nil
	masked.Results = []TeamResult{}
	return &masked
}

// RevealMatch makes the outcome of a match visible to everyone.
func (s *MatchService) RevealMatch(ctx context.Context, id sharedtypes.MatchID) error {
	_, err := withTelemetry(s, ctx, "RevealMatch", id.String(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.SetRevealed(ctx, nil, id, true)
	})
	return err
}

// GetMatchLogs returns the container logs of a match. Non-admin viewers never
// see the judge stream, and see nothing until the match is visible to them.
// A failing log service yields no streams.
func (s *MatchService) GetMatchLogs(ctx context.Context, id sharedtypes.MatchID, viewer sharedtypes.ViewerRole) ([]LogStream, error) {
	return withTelemetry(s, ctx, "GetMatchLogs", id.String(), func(ctx context.Context) ([]LogStream, error) {
		match, err := s.repo.GetByID(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		if s.logs == nil {
			return []LogStream{}, nil
		}
		if !viewer.IsAdmin() && match.State == sharedtypes.MatchStateFinished && !match.IsRevealed {
			return []LogStream{}, nil
		}

		streams, err := s.logs.FetchLogs(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to fetch match logs",
				slog.String("match_id", id.String()),
				slog.Any("error", err),
			)
			return []LogStream{}, nil
		}
		if viewer.IsAdmin() {
			return streams, nil
		}
		filtered := make([]LogStream, 0, len(streams))
		for _, st := range streams {
			if st.Container != JudgeContainer {
				filtered = append(filtered, st)
			}
		}
		return filtered, nil
	})
}

// GlobalStats sums the stats of every finished match.
func (s *MatchService) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	return withTelemetry(s, ctx, "GlobalStats", "all", func(ctx context.Context) (*GlobalStats, error) {
		g, err := s.repo.GlobalStats(ctx, nil)
		if err != nil {
			return nil, err
		}
		return &GlobalStats{
			Matches: g.Matches,
			Stats: Stats{
				ActionsExecuted:   g.ActionsExecuted,
				DamageDeposits:    g.DamageDeposits,
				GempilesDestroyed: g.GempilesDestroyed,
				DamageTotal:       g.DamageTotal,
				DamageSelf:        g.DamageSelf,
				DamageOpponent:    g.DamageOpponent,
				DamageUnits:       g.DamageUnits,
				DamageCores:       g.DamageCores,
				DamageWalls:       g.DamageWalls,
				UnitsSpawned:      g.UnitsSpawned,
				UnitsDestroyed:    g.UnitsDestroyed,
				CoresDestroyed:    g.CoresDestroyed,
				WallsDestroyed:    g.WallsDestroyed,
				GemsTransferred:   g.GemsTransferred,
				TilesTraveled:     g.TilesTraveled,
				GemsGained:        g.GemsGained,
			},
		}, nil
	})
}

// QueueRatingHistory returns the queue rating of a team after each of its
// finished queue matches, oldest first.
func (s *MatchService) QueueRatingHistory(ctx context.Context, teamID sharedtypes.TeamID) ([]RatingPoint, error) {
	return withTelemetry(s, ctx, "QueueRatingHistory", teamID.String(), func(ctx context.Context) ([]RatingPoint, error) {
		phase := sharedtypes.MatchPhaseQueue
		state := sharedtypes.MatchStateFinished
		matches, err := s.repo.List(ctx, nil, matchdb.Filter{TeamID: &teamID, Phase: &phase, State: &state})
		if err != nil {
			return nil, err
		}

		points := make([]RatingPoint, 0, len(matches))
		for _, m := range matches {
			for _, r := range m.Results {
				if r.TeamID != teamID {
					continue
				}
				points = append(points, RatingPoint{
					MatchID:  m.ID,
					PlayedAt: m.UpdatedAt,
					Rating:   r.Score,
					Won:      m.WinnerID != nil && *m.WinnerID == teamID,
				})
			}
		}
		return points, nil
	})
}
