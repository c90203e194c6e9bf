package tournamentservice

import (
	sharedtypes "github.com/42core-team/arena/app/shared/types"
)

// ComputeBuchholz returns, for every team, the sum of the current scores of
// the opponents it beat in finished Swiss matches. Teams without wins map to 0.
// Outcomes naming unknown teams count as score 0.
func ComputeBuchholz(teams []TeamScore, outcomes []Outcome) map[sharedtypes.TeamID]int {
	scores := make(map[sharedtypes.TeamID]int, len(teams))
	points := make(map[sharedtypes.TeamID]int, len(teams))
	for _, t := range teams {
		scores[t.ID] = t.Score
		points[t.ID] = 0
	}
	for _, o := range outcomes {
		if _, ok := points[o.WinnerID]; !ok {
			continue
		}
		points[o.WinnerID] += scores[o.LoserID]
	}
	return points
}
