package matchservice

import (
	"context"

	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
)

// IngestResult finishes the match described by a game server result. The team
// with the lowest place wins, the first listed one on a tie. Its bot id is
// mapped back to a team through BOT_ID_MAPPING.
func (s *MatchService) IngestResult(ctx context.Context, payload *GameResultPayload) error {
	req, err := decodeResult(payload)
	if err != nil {
		return err
	}
	_, err = s.FinishMatch(ctx, req)
	return err
}

func decodeResult(payload *GameResultPayload) (FinishMatchRequest, error) {
	const op = "IngestResult"

	if payload == nil {
		return FinishMatchRequest{}, apperrors.Validation(op, "empty payload")
	}
	matchID, err := sharedtypes.ParseMatchID(payload.GameID)
	if err != nil {
		return FinishMatchRequest{}, apperrors.Wrap(apperrors.ErrValidation, op, err)
	}
	if len(payload.TeamResults) == 0 {
		return FinishMatchRequest{}, apperrors.Validation(op, "result for match %s has no placements", matchID)
	}

	best := payload.TeamResults[0]
	for _, p := range payload.TeamResults[1:] {
		if p.Place < best.Place {
			best = p
		}
	}

	mapped, ok := payload.BotIDMapping[best.ID]
	if !ok {
		return FinishMatchRequest{}, apperrors.Validation(op, "bot %q of match %s has no team mapping", best.ID, matchID)
	}
	winnerID, err := sharedtypes.ParseTeamID(mapped)
	if err != nil {
		return FinishMatchRequest{}, apperrors.Wrap(apperrors.ErrValidation, op, err)
	}

	return FinishMatchRequest{MatchID: matchID, WinnerID: winnerID, Stats: payload.Stats}, nil
}
