package queueservice

import (
	"context"
	"errors"
	"log/slog"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	"github.com/42core-team/arena/app/observability"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// Tick pairs queued teams of every event that admits queue play. The whole
// pass runs under the matchmaking lock; when another instance holds it the
// tick is skipped. A failing event does not stop the others.
func (s *QueueService) Tick(ctx context.Context) (*TickResult, error) {
	return withTelemetry(s, ctx, "Tick", "matchmaker", func(ctx context.Context) (*TickResult, error) {
		held, release, err := s.locker.TryAcquire(ctx, s.lockKey)
		if err != nil {
			return nil, err
		}
		if !held {
			s.logger.DebugContext(ctx, "Matchmaking lock held elsewhere, skipping tick")
			if s.metrics != nil {
				s.metrics.RecordTickSkipped(ctx)
			}
			return &TickResult{Skipped: true}, nil
		}
		defer release()

		events, err := s.store.ListEventsInStates(ctx, nil, sharedtypes.QueueEventStates)
		if err != nil {
			return nil, err
		}

		result := &TickResult{}
		for _, event := range events {
			created, err := s.drawEvent(ctx, event.ID)
			result.Matches = append(result.Matches, created...)
			if err != nil {
				s.logger.ErrorContext(ctx, "Queue draw failed for event",
					observability.CorrelationAttr(ctx),
					slog.String("event_id", event.ID.String()),
					slog.Any("error", err),
				)
				if s.metrics != nil {
					s.metrics.RecordEventFailure(ctx)
				}
				result.FailedEvents = append(result.FailedEvents, event.ID)
			}
		}

		if s.metrics != nil && len(result.Matches) > 0 {
			s.metrics.RecordPairsCreated(ctx, len(result.Matches))
		}
		return result, nil
	})
}

// drawEvent keeps drawing two distinct random teams while at least two are
// queued.
func (s *QueueService) drawEvent(ctx context.Context, eventID sharedtypes.EventID) ([]sharedtypes.MatchID, error) {
	queued, err := s.store.ListQueuedTeams(ctx, nil, eventID)
	if err != nil {
		return nil, err
	}

	pool := make([]sharedtypes.TeamID, len(queued))
	for i, t := range queued {
		pool[i] = t.ID
	}

	var created []sharedtypes.MatchID
	for len(pool) >= 2 {
		i, j := s.drawPair(len(pool))
		a, b := pool[i], pool[j]
		pool = removeIndexes(pool, i, j)

		id, claimed, err := s.createPair(ctx, eventID, a, b)
		if err != nil {
			return created, err
		}
		if !claimed {
			s.logger.WarnContext(ctx, "Queued team was taken before it could be paired",
				slog.String("event_id", eventID.String()),
				slog.String("team_a", a.String()),
				slog.String("team_b", b.String()),
			)
			continue
		}
		created = append(created, id)

		if err := s.games.StartMatch(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to start queue match, it stays planned",
				slog.String("match_id", id.String()),
				slog.Any("error", err),
			)
		}
	}
	return created, nil
}

// createPair claims both teams and creates their match in one transaction.
// claimed is false when either team left the queue in the meantime.
func (s *QueueService) createPair(ctx context.Context, eventID sharedtypes.EventID, a, b sharedtypes.TeamID) (sharedtypes.MatchID, bool, error) {
	type pair struct {
		id      sharedtypes.MatchID
		claimed bool
	}
	p, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (pair, error) {
		n, err := s.store.ClaimQueuedTeams(ctx, db, []sharedtypes.TeamID{a, b})
		if err != nil {
			return pair{}, err
		}
		if n != 2 {
			return pair{}, errClaimLost
		}
		view, err := s.games.CreateMatchInTx(ctx, db, matchservice.CreateMatchRequest{
			EventID: eventID,
			TeamIDs: []sharedtypes.TeamID{a, b},
			Phase:   sharedtypes.MatchPhaseQueue,
		})
		if err != nil {
			return pair{}, err
		}
		return pair{id: view.ID, claimed: true}, nil
	})
	if errors.Is(err, errClaimLost) {
		return sharedtypes.MatchID{}, false, nil
	}
	return p.id, p.claimed, err
}

// drawPair returns two distinct indexes below n.
func (s *QueueService) drawPair(n int) (int, int) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	i := s.rng.IntN(n)
	j := s.rng.IntN(n - 1)
	if j >= i {
		j++
	}
	return i, j
}

func removeIndexes(ids []sharedtypes.TeamID, i, j int) []sharedtypes.TeamID {
	out := make([]sharedtypes.TeamID, 0, len(ids)-2)
	for k, id := range ids {
		if k != i && k != j {
			out = append(out, id)
		}
	}
	return out
}
