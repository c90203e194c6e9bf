package tournamentservice

import (
	"math/bits"

	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
)

// BracketSize returns the largest power of two not above teamCount, or 0 when
// fewer than two teams are registered. Teams ranked below the cutoff do not
// enter the bracket.
func BracketSize(teamCount int) int {
	if teamCount < 2 {
		return 0
	}
	return 1 << (bits.Len(uint(teamCount)) - 1)
}

// SeedOrder returns the bracket slot order for n seeds, n a power of two. Each
// doubling mirrors the previous order: seed s in an even slot becomes s then
// 2n+1-s, in an odd slot 2n+1-s then s. For 8 seeds this is [1 8 5 4 3 6 7 2].
func SeedOrder(n int) ([]int, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, apperrors.Validation("SeedOrder", "bracket size must be a power of two >= 2, got %d", n)
	}

	order := []int{1, 2}
	for size := 2; size < n; size *= 2 {
		next := make([]int, 0, size*2)
		for i, s := range order {
			mirror := 2*size + 1 - s
			if i%2 == 0 {
				next = append(next, s, mirror)
			} else {
				next = append(next, mirror, s)
			}
		}
		order = next
	}
	return order, nil
}

// BuildFirstBracketRound pairs the top BracketSize(len(ranked)) teams by seed
// order. ranked must already be in tournament ranking order.
func BuildFirstBracketRound(ranked []sharedtypes.TeamID) ([]Pairing, error) {
	const op = "BuildFirstBracketRound"

	size := BracketSize(len(ranked))
	if size < 2 {
		return nil, apperrors.PhaseViolation(op, "a bracket needs at least 2 teams, got %d", len(ranked))
	}
	order, err := SeedOrder(size)
	if err != nil {
		return nil, err
	}

	pairings := make([]Pairing, 0, size/2)
	for i := 0; i < size; i += 2 {
		a, b := order[i], order[i+1]
		if a > b {
			a, b = b, a
		}
		pairings = append(pairings, Pairing{Home: ranked[a-1], Away: ranked[b-1]})
	}
	return pairings, nil
}

// PairWinners pairs the winners of consecutive matches of the previous round:
// match 0 against match 1, match 2 against match 3, and so on.
func PairWinners(matches []BracketMatch) ([]Pairing, error) {
	const op = "PairWinners"

	if len(matches) == 0 || len(matches)%2 != 0 {
		return nil, apperrors.PhaseViolation(op, "cannot pair %d finished matches", len(matches))
	}

	pairings := make([]Pairing, 0, len(matches)/2)
	for i := 0; i < len(matches); i += 2 {
		a, b := matches[i], matches[i+1]
		if a.WinnerID == nil {
			return nil, apperrors.Integrity(op, "match %s has no winner", a.MatchID)
		}
		if b.WinnerID == nil {
			return nil, apperrors.Integrity(op, "match %s has no winner", b.MatchID)
		}
		if *a.WinnerID == *b.WinnerID {
			return nil, apperrors.Integrity(op, "team %s won both match %s and %s", *a.WinnerID, a.MatchID, b.MatchID)
		}
		pairings = append(pairings, Pairing{Home: *a.WinnerID, Away: *b.WinnerID})
	}
	return pairings, nil
}
