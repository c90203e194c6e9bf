package queueservice

import (
	"context"
	"errors"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// errClaimLost rolls back a pair whose teams were no longer both queued.
var errClaimLost = errors.New("queued team already claimed")

// JoinQueue puts a team into the queue of its event. Joining twice is a no-op.
func (s *QueueService) JoinQueue(ctx context.Context, teamID sharedtypes.TeamID) error {
	_, err := withTelemetry(s, ctx, "JoinQueue", teamID.String(), func(ctx context.Context) (struct{}, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (struct{}, error) {
			const op = "JoinQueue"

			team, err := s.queueableTeam(ctx, db, op, teamID)
			if err != nil {
				return struct{}{}, err
			}
			if team.InQueue {
				return struct{}{}, nil
			}

			busy, err := s.matches.HasOpenMatch(ctx, db, teamID, sharedtypes.MatchPhaseQueue)
			if err != nil {
				return struct{}{}, err
			}
			if busy {
				return struct{}{}, apperrors.IllegalState(op, "team %s is still playing a queue match", teamID)
			}

			return struct{}{}, s.store.SetInQueue(ctx, db, teamID, true)
		})
	})
	return err
}

// LeaveQueue takes a team out of the queue. Leaving when not queued is a no-op.
func (s *QueueService) LeaveQueue(ctx context.Context, teamID sharedtypes.TeamID) error {
	_, err := withTelemetry(s, ctx, "LeaveQueue", teamID.String(), func(ctx context.Context) (struct{}, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (struct{}, error) {
			team, err := s.store.GetTeam(ctx, db, teamID)
			if err != nil {
				return struct{}{}, err
			}
			if !team.InQueue {
				return struct{}{}, nil
			}
			return struct{}{}, s.store.SetInQueue(ctx, db, teamID, false)
		})
	})
	return err
}

func (s *QueueService) queueableTeam(ctx context.Context, db bun.IDB, op string, teamID sharedtypes.TeamID) (*competitiondb.Team, error) {
	team, err := s.store.GetTeam(ctx, db, teamID)
	if err != nil {
		return nil, err
	}
	event, err := s.store.GetEvent(ctx, db, team.EventID)
	if err != nil {
		return nil, err
	}
	if !event.State.AdmitsQueue() {
		return nil, apperrors.PhaseViolation(op, "event %s is %s and does not admit queue play", event.ID, event.State)
	}
	return team, nil
}
