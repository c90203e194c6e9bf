package tournamentservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
	"github.com/xuri/excelize/v2"
)

const standingsSheet = "Standings"

// TournamentTeamCount returns how many teams the elimination bracket of the
// event will hold.
func (s *TournamentService) TournamentTeamCount(ctx context.Context, eventID sharedtypes.EventID) (int, error) {
	return withTelemetry(s, ctx, "TournamentTeamCount", eventID.String(), func(ctx context.Context) (int, error) {
		if _, err := s.store.GetEvent(ctx, nil, eventID); err != nil {
			return 0, err
		}
		n, err := s.store.CountTeamsForEvent(ctx, nil, eventID)
		if err != nil {
			return 0, err
		}
		return BracketSize(n), nil
	})
}

// RecalculateBuchholz recomputes the tiebreak of every team from the Swiss
// history and returns the resulting standings.
func (s *TournamentService) RecalculateBuchholz(ctx context.Context, eventID sharedtypes.EventID) ([]Standing, error) {
	return withTelemetry(s, ctx, "RecalculateBuchholz", eventID.String(), func(ctx context.Context) ([]Standing, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) ([]Standing, error) {
			if _, err := s.store.LockEvent(ctx, db, eventID); err != nil {
				return nil, err
			}
			if _, err := s.recalculateBuchholz(ctx, db, eventID); err != nil {
				return nil, err
			}
			return s.standings(ctx, db, eventID)
		})
	})
}

func (s *TournamentService) recalculateBuchholz(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) (map[sharedtypes.TeamID]int, error) {
	teams, err := s.store.ListTeamsForEvent(ctx, db, eventID)
	if err != nil {
		return nil, err
	}

	phase := sharedtypes.MatchPhaseSwiss
	state := sharedtypes.MatchStateFinished
	played, err := s.matches.List(ctx, db, matchdb.Filter{EventID: &eventID, Phase: &phase, State: &state})
	if err != nil {
		return nil, err
	}

	scores := make([]TeamScore, 0, len(teams))
	for _, t := range teams {
		scores = append(scores, TeamScore{ID: t.ID, Score: t.Score})
	}
	outcomes := make([]Outcome, 0, len(played))
	for _, m := range played {
		o, err := outcomeOf(m)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}

	points := ComputeBuchholz(scores, outcomes)
	for _, t := range teams {
		if err := s.store.SetBuchholzPoints(ctx, db, t.ID, points[t.ID]); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "Buchholz points recalculated",
		slog.String("event_id", eventID.String()),
		slog.Int("teams", len(teams)),
		slog.Int("matches", len(outcomes)),
	)
	return points, nil
}

func outcomeOf(m *matchdb.Match) (Outcome, error) {
	const op = "Buchholz"
	if m.WinnerID == nil {
		return Outcome{}, apperrors.Integrity(op, "finished match %s has no winner", m.ID)
	}
	ids := m.TeamIDs()
	if len(ids) != 2 {
		return Outcome{}, apperrors.Integrity(op, "match %s has %d teams", m.ID, len(ids))
	}
	loser := ids[0]
	if loser == *m.WinnerID {
		loser = ids[1]
	}
	return Outcome{WinnerID: *m.WinnerID, LoserID: loser}, nil
}

// Standings returns the teams of an event in tournament ranking order.
func (s *TournamentService) Standings(ctx context.Context, eventID sharedtypes.EventID) ([]Standing, error) {
	return withTelemetry(s, ctx, "Standings", eventID.String(), func(ctx context.Context) ([]Standing, error) {
		if _, err := s.store.GetEvent(ctx, nil, eventID); err != nil {
			return nil, err
		}
		return s.standings(ctx, nil, eventID)
	})
}

func (s *TournamentService) standings(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]Standing, error) {
	teams, err := s.store.ListRankedTeams(ctx, db, eventID)
	if err != nil {
		return nil, err
	}
	return toStandings(teams), nil
}

func toStandings(teams []*competitiondb.Team) []Standing {
	out := make([]Standing, 0, len(teams))
	for i, t := range teams {
		out = append(out, Standing{
			Rank:           i + 1,
			TeamID:         t.ID,
			Name:           t.Name,
			Score:          t.Score,
			BuchholzPoints: t.BuchholzPoints,
			QueueScore:     t.QueueScore,
			HadBye:         t.HadBye,
		})
	}
	return out
}

// ExportStandingsXLSX writes the standings of an event as a spreadsheet.
func (s *TournamentService) ExportStandingsXLSX(ctx context.Context, eventID sharedtypes.EventID, w io.Writer) error {
	standings, err := s.Standings(ctx, eventID)
	if err != nil {
		return err
	}
	return WriteStandingsXLSX(standings, w)
}

// WriteStandingsXLSX renders standings into a single-sheet workbook.
func WriteStandingsXLSX(standings []Standing, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), standingsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{"Rank", "Team", "Score", "Buchholz", "Queue Rating", "Had Bye"}
	if err := f.SetSheetRow(standingsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, st := range standings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{st.Rank, st.Name, st.Score, st.BuchholzPoints, st.QueueScore, st.HadBye}
		if err := f.SetSheetRow(standingsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(standingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
