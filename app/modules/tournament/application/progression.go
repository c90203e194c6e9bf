package tournamentservice

import (
	"context"
	"log/slog"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// StartSwiss pairs round 0 of an event that is in SWISS_ROUND and has no Swiss
// matches yet.
func (s *TournamentService) StartSwiss(ctx context.Context, eventID sharedtypes.EventID) (*RoundStarted, error) {
	return withTelemetry(s, ctx, "StartSwiss", eventID.String(), func(ctx context.Context) (*RoundStarted, error) {
		started, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*RoundStarted, error) {
			const op = "StartSwiss"

			event, err := s.store.LockEvent(ctx, db, eventID)
			if err != nil {
				return nil, err
			}
			if event.State != sharedtypes.EventStateSwissRound {
				return nil, apperrors.PhaseViolation(op, "event %s is %s, expected %s", eventID, event.State, sharedtypes.EventStateSwissRound)
			}
			if event.CurrentRound != 0 {
				return nil, apperrors.PhaseViolation(op, "swiss phase of event %s is already at round %d", eventID, event.CurrentRound)
			}
			existing, err := s.matches.Count(ctx, db, phaseFilter(eventID, sharedtypes.MatchPhaseSwiss))
			if err != nil {
				return nil, err
			}
			if existing > 0 {
				return nil, apperrors.PhaseViolation(op, "swiss phase of event %s has already started", eventID)
			}

			return s.createSwissRound(ctx, db, event, 0)
		})
		if err != nil {
			return nil, err
		}
		s.startMatches(ctx, started)
		return started, nil
	})
}

// StartElimination builds round 0 of the bracket for an event that moved to
// ELIMINATION_ROUND and has no elimination matches yet.
func (s *TournamentService) StartElimination(ctx context.Context, eventID sharedtypes.EventID) (*RoundStarted, error) {
	return withTelemetry(s, ctx, "StartElimination", eventID.String(), func(ctx context.Context) (*RoundStarted, error) {
		started, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*RoundStarted, error) {
			const op = "StartElimination"

			event, err := s.store.LockEvent(ctx, db, eventID)
			if err != nil {
				return nil, err
			}
			if event.State != sharedtypes.EventStateEliminationRound {
				return nil, apperrors.PhaseViolation(op, "event %s is %s, expected %s", eventID, event.State, sharedtypes.EventStateEliminationRound)
			}
			existing, err := s.matches.Count(ctx, db, phaseFilter(eventID, sharedtypes.MatchPhaseElimination))
			if err != nil {
				return nil, err
			}
			if existing > 0 || event.CurrentRound != 0 {
				return nil, apperrors.PhaseViolation(op, "elimination phase of event %s has already started", eventID)
			}

			ranked, err := s.store.ListRankedTeams(ctx, db, eventID)
			if err != nil {
				return nil, err
			}
			ids := make([]sharedtypes.TeamID, 0, len(ranked))
			for _, t := range ranked {
				ids = append(ids, t.ID)
			}
			pairings, err := BuildFirstBracketRound(ids)
			if err != nil {
				return nil, err
			}

			s.logger.InfoContext(ctx, "Seeding elimination bracket",
				slog.String("event_id", eventID.String()),
				slog.Int("teams", len(ids)),
				slog.Int("bracket_size", len(pairings)*2),
			)
			return s.createRound(ctx, db, eventID, sharedtypes.MatchPhaseElimination, 0, pairings)
		})
		if err != nil {
			return nil, err
		}
		s.startMatches(ctx, started)
		return started, nil
	})
}

// RoundCompleted advances the event owning a finished round. It is safe to
// call more than once for the same round: the event row is locked and a round
// that is no longer current is ignored.
func (s *TournamentService) RoundCompleted(ctx context.Context, round matchservice.RoundKey) error {
	if round.Phase == sharedtypes.MatchPhaseQueue {
		return nil
	}

	_, err := withTelemetry(s, ctx, "RoundCompleted", round.EventID.String(), func(ctx context.Context) (struct{}, error) {
		started, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*RoundStarted, error) {
			event, err := s.store.LockEvent(ctx, db, round.EventID)
			if err != nil {
				return nil, err
			}
			switch round.Phase {
			case sharedtypes.MatchPhaseSwiss:
				return s.advanceSwiss(ctx, db, event, round.Round)
			case sharedtypes.MatchPhaseElimination:
				return s.advanceElimination(ctx, db, event, round.Round)
			default:
				return nil, apperrors.Validation("RoundCompleted", "unknown match phase %q", round.Phase)
			}
		})
		if err != nil {
			return struct{}{}, err
		}
		s.startMatches(ctx, started)
		return struct{}{}, nil
	})
	return err
}

func (s *TournamentService) advanceSwiss(ctx context.Context, db bun.IDB, event *competitiondb.Event, round int) (*RoundStarted, error) {
	const op = "AdvanceSwiss"

	switch event.State {
	case sharedtypes.EventStateSwissRound:
	case sharedtypes.EventStateEliminationRound, sharedtypes.EventStateFinished:
		s.logStale(ctx, event, sharedtypes.MatchPhaseSwiss, round)
		return nil, nil
	default:
		return nil, apperrors.PhaseViolation(op, "event %s is %s, expected %s", event.ID, event.State, sharedtypes.EventStateSwissRound)
	}
	if round != event.CurrentRound {
		s.logStale(ctx, event, sharedtypes.MatchPhaseSwiss, round)
		return nil, nil
	}
	if err := s.requireRoundFinished(ctx, db, op, event.ID, sharedtypes.MatchPhaseSwiss, round); err != nil {
		return nil, err
	}

	teamCount, err := s.store.CountTeamsForEvent(ctx, db, event.ID)
	if err != nil {
		return nil, err
	}

	if round+1 >= MaxSwissRounds(teamCount) {
		if _, err := s.recalculateBuchholz(ctx, db, event.ID); err != nil {
			return nil, err
		}
		if err := s.store.SetEventState(ctx, db, event.ID, sharedtypes.EventStateEliminationRound); err != nil {
			return nil, err
		}
		if err := s.store.SetCurrentRound(ctx, db, event.ID, 0); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "Swiss phase complete, event moved to elimination",
			slog.String("event_id", event.ID.String()),
			slog.Int("rounds_played", round+1),
		)
		if s.metrics != nil {
			s.metrics.RecordPhaseTransition(ctx, string(sharedtypes.EventStateSwissRound), string(sharedtypes.EventStateEliminationRound))
		}
		return nil, nil
	}

	if err := s.store.SetCurrentRound(ctx, db, event.ID, round+1); err != nil {
		return nil, err
	}
	event.CurrentRound = round + 1
	return s.createSwissRound(ctx, db, event, round+1)
}

func (s *TournamentService) advanceElimination(ctx context.Context, db bun.IDB, event *competitiondb.Event, round int) (*RoundStarted, error) {
	const op = "AdvanceElimination"

	switch event.State {
	case sharedtypes.EventStateEliminationRound:
	case sharedtypes.EventStateFinished:
		s.logStale(ctx, event, sharedtypes.MatchPhaseElimination, round)
		return nil, nil
	default:
		return nil, apperrors.PhaseViolation(op, "event %s is %s, expected %s", event.ID, event.State, sharedtypes.EventStateEliminationRound)
	}
	if round != event.CurrentRound {
		s.logStale(ctx, event, sharedtypes.MatchPhaseElimination, round)
		return nil, nil
	}
	if err := s.requireRoundFinished(ctx, db, op, event.ID, sharedtypes.MatchPhaseElimination, round); err != nil {
		return nil, err
	}

	phase := sharedtypes.MatchPhaseElimination
	state := sharedtypes.MatchStateFinished
	finished, err := s.matches.List(ctx, db, matchdb.Filter{EventID: &event.ID, Phase: &phase, Round: &round, State: &state})
	if err != nil {
		return nil, err
	}

	if len(finished) == 1 {
		if err := s.store.SetEventState(ctx, db, event.ID, sharedtypes.EventStateFinished); err != nil {
			return nil, err
		}
		attrs := []any{slog.String("event_id", event.ID.String())}
		if w := finished[0].WinnerID; w != nil {
			attrs = append(attrs, slog.String("champion", w.String()))
		}
		s.logger.InfoContext(ctx, "Bracket complete, event finished", attrs...)
		if s.metrics != nil {
			s.metrics.RecordPhaseTransition(ctx, string(sharedtypes.EventStateEliminationRound), string(sharedtypes.EventStateFinished))
		}
		return nil, nil
	}

	bracket := make([]BracketMatch, 0, len(finished))
	for _, m := range finished {
		bracket = append(bracket, BracketMatch{MatchID: m.ID, WinnerID: m.WinnerID})
	}
	pairings, err := PairWinners(bracket)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetCurrentRound(ctx, db, event.ID, round+1); err != nil {
		return nil, err
	}
	return s.createRound(ctx, db, event.ID, sharedtypes.MatchPhaseElimination, round+1, pairings)
}

// createSwissRound pairs the event's teams for round and records the bye.
func (s *TournamentService) createSwissRound(ctx context.Context, db bun.IDB, event *competitiondb.Event, round int) (*RoundStarted, error) {
	const op = "CreateSwissRound"

	teams, err := s.store.ListTeamsForEvent(ctx, db, event.ID)
	if err != nil {
		return nil, err
	}
	if len(teams) < 2 {
		return nil, apperrors.PhaseViolation(op, "event %s has %d teams, swiss needs at least 2", event.ID, len(teams))
	}
	if limit := MaxSwissRounds(len(teams)); round >= limit {
		return nil, apperrors.PhaseViolation(op, "round %d exceeds the %d swiss rounds of event %s", round, limit, event.ID)
	}

	opponents, err := s.formerOpponents(ctx, db, event.ID)
	if err != nil {
		return nil, err
	}

	players := make([]SwissPlayer, 0, len(teams))
	for _, t := range teams {
		players = append(players, SwissPlayer{ID: t.ID, Score: t.Score, HadBye: t.HadBye, Avoid: opponents[t.ID]})
	}
	pairing, err := PairSwiss(players)
	if err != nil {
		return nil, err
	}
	if pairing.Repeats > 0 {
		s.logger.WarnContext(ctx, "No repeat-free swiss pairing exists, teams meet again",
			slog.String("event_id", event.ID.String()),
			slog.Int("round", round),
			slog.Int("repeats", pairing.Repeats),
		)
	}

	if pairing.Bye != nil {
		if err := s.store.SetHadBye(ctx, db, *pairing.Bye, true); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "Team got a bye",
			slog.String("event_id", event.ID.String()),
			slog.String("team_id", pairing.Bye.String()),
			slog.Int("round", round),
		)
	}

	started, err := s.createRound(ctx, db, event.ID, sharedtypes.MatchPhaseSwiss, round, pairing.Pairings)
	if err != nil {
		return nil, err
	}
	started.Bye = pairing.Bye
	return started, nil
}

// formerOpponents maps every team to the teams it met in finished Swiss matches.
func (s *TournamentService) formerOpponents(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) (map[sharedtypes.TeamID][]sharedtypes.TeamID, error) {
	phase := sharedtypes.MatchPhaseSwiss
	state := sharedtypes.MatchStateFinished
	played, err := s.matches.List(ctx, db, matchdb.Filter{EventID: &eventID, Phase: &phase, State: &state})
	if err != nil {
		return nil, err
	}

	opponents := make(map[sharedtypes.TeamID][]sharedtypes.TeamID)
	for _, m := range played {
		ids := m.TeamIDs()
		if len(ids) != 2 {
			return nil, apperrors.Integrity("FormerOpponents", "match %s has %d teams", m.ID, len(ids))
		}
		opponents[ids[0]] = append(opponents[ids[0]], ids[1])
		opponents[ids[1]] = append(opponents[ids[1]], ids[0])
	}
	return opponents, nil
}

func (s *TournamentService) createRound(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int, pairings []Pairing) (*RoundStarted, error) {
	started := &RoundStarted{EventID: eventID, Phase: phase, Round: round}
	for i, p := range pairings {
		view, err := s.games.CreateMatchInTx(ctx, db, matchservice.CreateMatchRequest{
			EventID: eventID,
			TeamIDs: []sharedtypes.TeamID{p.Home, p.Away},
			Round:   round,
			Phase:   phase,
			Ordinal: i,
		})
		if err != nil {
			return nil, err
		}
		started.Matches = append(started.Matches, view.ID)
	}

	s.logger.InfoContext(ctx, "Round created",
		slog.String("event_id", eventID.String()),
		slog.String("phase", string(phase)),
		slog.Int("round", round),
		slog.Int("matches", len(started.Matches)),
	)
	if s.metrics != nil {
		s.metrics.RecordRoundAdvanced(ctx, string(phase))
	}
	return started, nil
}

// startMatches starts the matches of a committed round. A failed start leaves
// the match PLANNED for an operator to retry.
func (s *TournamentService) startMatches(ctx context.Context, started *RoundStarted) {
	if started == nil {
		return
	}
	for _, id := range started.Matches {
		if err := s.games.StartMatch(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to start match",
				observability.CorrelationAttr(ctx),
				slog.String("event_id", started.EventID.String()),
				slog.String("match_id", id.String()),
				slog.Any("error", err),
			)
		}
	}
}

func (s *TournamentService) requireRoundFinished(ctx context.Context, db bun.IDB, op string, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) error {
	open, err := s.matches.CountUnfinished(ctx, db, eventID, phase, round)
	if err != nil {
		return err
	}
	if open > 0 {
		return apperrors.PhaseViolation(op, "%d %s matches of round %d are not finished", open, phase, round)
	}
	return nil
}

func (s *TournamentService) logStale(ctx context.Context, event *competitiondb.Event, phase sharedtypes.MatchPhase, round int) {
	s.logger.InfoContext(ctx, "Round already advanced, ignoring",
		slog.String("event_id", event.ID.String()),
		slog.String("event_state", string(event.State)),
		slog.Int("current_round", event.CurrentRound),
		slog.String("phase", string(phase)),
		slog.Int("round", round),
	)
}

func phaseFilter(eventID sharedtypes.EventID, phase sharedtypes.MatchPhase) matchdb.Filter {
	return matchdb.Filter{EventID: &eventID, Phase: &phase}
}
