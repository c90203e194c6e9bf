package tournamentservice

import (
	"cmp"
	"math/bits"
	"slices"

	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
)

// pairingBudget bounds the backtracking search for a repeat-free pairing.
const pairingBudget = 200_000

// MaxSwissRounds returns ceil(log2(teamCount)), the number of Swiss rounds an
// event with teamCount teams plays.
func MaxSwissRounds(teamCount int) int {
	if teamCount < 2 {
		return 0
	}
	return bits.Len(uint(teamCount - 1))
}

// PairSwiss pairs one Swiss round. Teams are ranked by score, keeping input
// order for ties, and paired inside their score group (top half against bottom
// half), floating down when a group cannot be closed. Teams never meet twice
// unless no other pairing exists. With an odd count the lowest ranked team
// without a bye sits out.
func PairSwiss(players []SwissPlayer) (SwissRound, error) {
	const op = "PairSwiss"

	seen := make(map[sharedtypes.TeamID]struct{}, len(players))
	for _, p := range players {
		if _, dup := seen[p.ID]; dup {
			return SwissRound{}, apperrors.Validation(op, "team %s listed twice", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	ranked := slices.Clone(players)
	slices.SortStableFunc(ranked, func(a, b SwissPlayer) int {
		return cmp.Compare(b.Score, a.Score)
	})
	g := newAvoidGraph(ranked)

	var round SwissRound
	if len(ranked)%2 == 0 {
		round.Pairings, round.Repeats = g.pair(ranked)
		return round, checkRound(op, round, len(ranked))
	}

	candidates := byeCandidates(ranked)
	for _, c := range candidates {
		if pairings, ok := g.pairStrict(without(ranked, c)); ok {
			bye := ranked[c].ID
			round = SwissRound{Pairings: pairings, Bye: &bye}
			return round, checkRound(op, round, len(ranked))
		}
	}

	// No bye candidate leaves a repeat-free pairing; keep the rotation and
	// accept repeats.
	bye := ranked[candidates[0]].ID
	round.Bye = &bye
	round.Pairings, round.Repeats = g.pairRelaxed(without(ranked, candidates[0]))
	return round, checkRound(op, round, len(ranked))
}

// byeCandidates returns indexes into ranked, lowest ranked first. Teams that
// already had a bye are only considered once everyone has had one.
func byeCandidates(ranked []SwissPlayer) []int {
	var fresh, all []int
	for i := len(ranked) - 1; i >= 0; i-- {
		all = append(all, i)
		if !ranked[i].HadBye {
			fresh = append(fresh, i)
		}
	}
	if len(fresh) > 0 {
		return fresh
	}
	return all
}

func checkRound(op string, round SwissRound, teamCount int) error {
	used := make(map[sharedtypes.TeamID]struct{}, teamCount)
	if round.Bye != nil {
		used[*round.Bye] = struct{}{}
	}
	for _, p := range round.Pairings {
		if p.Home == p.Away {
			return apperrors.Validation(op, "team %s paired against itself", p.Home)
		}
		for _, id := range []sharedtypes.TeamID{p.Home, p.Away} {
			if _, dup := used[id]; dup {
				return apperrors.Validation(op, "team %s scheduled twice in one round", id)
			}
			used[id] = struct{}{}
		}
	}
	if len(used) != teamCount {
		return apperrors.Validation(op, "paired %d of %d teams", len(used), teamCount)
	}
	return nil
}

type avoidGraph map[sharedtypes.TeamID]map[sharedtypes.TeamID]struct{}

func newAvoidGraph(players []SwissPlayer) avoidGraph {
	g := make(avoidGraph, len(players))
	link := func(a, b sharedtypes.TeamID) {
		if g[a] == nil {
			g[a] = make(map[sharedtypes.TeamID]struct{})
		}
		g[a][b] = struct{}{}
	}
	for _, p := range players {
		for _, o := range p.Avoid {
			link(p.ID, o)
			link(o, p.ID)
		}
	}
	return g
}

func (g avoidGraph) met(a, b sharedtypes.TeamID) bool {
	_, ok := g[a][b]
	return ok
}

func (g avoidGraph) pair(players []SwissPlayer) ([]Pairing, int) {
	if pairings, ok := g.pairStrict(players); ok {
		return pairings, 0
	}
	return g.pairRelaxed(players)
}

// pairStrict searches depth first for a pairing without repeats.
func (g avoidGraph) pairStrict(players []SwissPlayer) ([]Pairing, bool) {
	budget := pairingBudget
	out := make([]Pairing, 0, len(players)/2)

	var search func(rest []SwissPlayer) bool
	search = func(rest []SwissPlayer) bool {
		if len(rest) == 0 {
			return true
		}
		budget--
		if budget < 0 {
			return false
		}
		head := rest[0]
		for _, j := range partnerOrder(rest) {
			if g.met(head.ID, rest[j].ID) {
				continue
			}
			out = append(out, Pairing{Home: head.ID, Away: rest[j].ID})
			if search(without(rest, 0, j)) {
				return true
			}
			out = out[:len(out)-1]
		}
		return false
	}

	if !search(players) {
		return nil, false
	}
	return out, true
}

// pairRelaxed pairs greedily, preferring fresh opponents, and reports how many
// repeats it had to accept.
func (g avoidGraph) pairRelaxed(players []SwissPlayer) ([]Pairing, int) {
	out := make([]Pairing, 0, len(players)/2)
	repeats := 0
	rest := players
	for len(rest) > 1 {
		head := rest[0]
		order := partnerOrder(rest)
		pick := order[0]
		for _, j := range order {
			if !g.met(head.ID, rest[j].ID) {
				pick = j
				break
			}
		}
		if g.met(head.ID, rest[pick].ID) {
			repeats++
		}
		out = append(out, Pairing{Home: head.ID, Away: rest[pick].ID})
		rest = without(rest, 0, pick)
	}
	return out, repeats
}

// partnerOrder lists the preferred opponents of rest[0]. Inside its score
// group the head meets the team half a group below first, then the rest of the
// group, then lower groups in rank order.
func partnerOrder(rest []SwissPlayer) []int {
	group := 1
	for group < len(rest) && rest[group].Score == rest[0].Score {
		group++
	}

	order := make([]int, 0, len(rest)-1)
	if group > 1 {
		half := max(group/2, 1)
		for i := half; i < group; i++ {
			order = append(order, i)
		}
		for i := 1; i < half; i++ {
			order = append(order, i)
		}
	}
	for i := group; i < len(rest); i++ {
		order = append(order, i)
	}
	return order
}

// without returns a copy of players with the given indexes removed.
func without(players []SwissPlayer, drop ...int) []SwissPlayer {
	out := make([]SwissPlayer, 0, len(players))
	for i, p := range players {
		if !slices.Contains(drop, i) {
			out = append(out, p)
		}
	}
	return out
}
