package matchservice

import (
	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/42core-team/arena/pkg/rating"
)

// ComputeResults derives the results and team updates of a finished match.
//
// Tournament phases award the winner one point and record 1/0 as the match
// scores. Queue matches apply the Elo update and record the new ratings.
func ComputeResults(match MatchSnapshot, winnerID sharedtypes.TeamID, stats *Stats) (ResultSet, error) {
	const op = "ComputeResults"

	if match.State != sharedtypes.MatchStateInProgress {
		return ResultSet{}, apperrors.IllegalState(op, "match %s is %s, expected %s", match.ID, match.State, sharedtypes.MatchStateInProgress)
	}
	if len(match.Teams) != 2 || match.Teams[0].ID == match.Teams[1].ID {
		return ResultSet{}, apperrors.Integrity(op, "match %s does not have two distinct teams", match.ID)
	}

	var winner, loser TeamSnapshot
	switch winnerID {
	case match.Teams[0].ID:
		winner, loser = match.Teams[0], match.Teams[1]
	case match.Teams[1].ID:
		winner, loser = match.Teams[1], match.Teams[0]
	default:
		return ResultSet{}, apperrors.NotFound(op, "team %s does not play in match %s", winnerID, match.ID)
	}

	rs := ResultSet{WinnerID: winner.ID, Stats: stats}

	switch match.Phase {
	case sharedtypes.MatchPhaseQueue:
		newWinner, newLoser := rating.Update(winner.QueueScore, loser.QueueScore)
		rs.Updates = []TeamUpdate{
			{TeamID: winner.ID, QueueScore: &newWinner},
			{TeamID: loser.ID, QueueScore: &newLoser},
		}
		rs.Results = orderedResults(match, map[sharedtypes.TeamID]int{winner.ID: newWinner, loser.ID: newLoser})
	case sharedtypes.MatchPhaseSwiss, sharedtypes.MatchPhaseElimination:
		rs.Updates = []TeamUpdate{{TeamID: winner.ID, ScoreDelta: 1}}
		rs.Results = orderedResults(match, map[sharedtypes.TeamID]int{winner.ID: 1, loser.ID: 0})
	default:
		return ResultSet{}, apperrors.Validation(op, "unknown match phase %q", match.Phase)
	}

	return rs, nil
}

func orderedResults(match MatchSnapshot, scores map[sharedtypes.TeamID]int) []TeamResult {
	out := make([]TeamResult, 0, len(match.Teams))
	for _, t := range match.Teams {
		out = append(out, TeamResult{TeamID: t.ID, Score: scores[t.ID]})
	}
	return out
}
