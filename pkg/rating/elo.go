// Package rating implements the Elo update used for queue ratings.
package rating

import "math"

const (
	// KFactor is the maximum rating change of a single match.
	KFactor = 32
	// Initial is the rating a team starts with.
	Initial = 1000
)

// Expected returns the expected score of a player rated r against opponent.
func Expected(r, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-r)/400))
}

// Update returns the new ratings of winner and loser. Results are rounded to
// the nearest integer and the loser never drops below zero.
func Update(winner, loser int) (newWinner, newLoser int) {
	newWinner = int(math.Round(float64(winner) + KFactor*(1-Expected(winner, loser))))
	newLoser = int(math.Round(float64(loser) + KFactor*(0-Expected(loser, winner))))
	if newLoser < 0 {
		newLoser = 0
	}
	return newWinner, newLoser
}
