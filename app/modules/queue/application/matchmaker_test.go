package queueservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	"github.com/42core-team/arena/app/observability"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

const testLockKey = 4242

func newTestService(world *FakeWorld, locker Locker, seed uint64) *QueueService {
	return NewQueueService(
		world, world, world, locker, testLockKey,
		rand.New(rand.NewPCG(seed, 0)),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		nil,
	)
}

// assertDisjoint fails when a team appears in more than one match.
func assertDisjoint(t *testing.T, world *FakeWorld) map[sharedtypes.TeamID]int {
	t.Helper()
	seen := map[sharedtypes.TeamID]int{}
	for _, m := range world.QueueMatches() {
		ids := m.TeamIDs()
		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1], "team paired with itself")
		for _, id := range ids {
			seen[id]++
			assert.Equal(t, 1, seen[id], "team %s in two matches", id)
		}
	}
	return seen
}

func TestTick_PairsEveryQueuedTeam(t *testing.T) {
	world := NewFakeWorld()
	event := world.AddEvent(sharedtypes.EventStateCodingPhase)
	teams := world.AddQueuedTeams(event.ID, 6)
	svc := newTestService(world, &FakeLocker{}, 1)

	result, err := svc.Tick(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Len(t, result.Matches, 3)
	assert.Empty(t, result.FailedEvents)

	seen := assertDisjoint(t, world)
	assert.Len(t, seen, 6)
	for _, id := range teams {
		assert.False(t, world.Team(id).InQueue)
	}
	for _, m := range world.QueueMatches() {
		assert.Equal(t, sharedtypes.MatchPhaseQueue, m.Phase)
		assert.Equal(t, sharedtypes.MatchStateInProgress, m.State)
	}
}

func TestTick_OddTeamWaits(t *testing.T) {
	world := NewFakeWorld()
	event := world.AddEvent(sharedtypes.EventStateSwissRound)
	teams := world.AddQueuedTeams(event.ID, 3)
	svc := newTestService(world, &FakeLocker{}, 7)

	result, err := svc.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)

	waiting := 0
	for _, id := range teams {
		if world.Team(id).InQueue {
			waiting++
		}
	}
	assert.Equal(t, 1, waiting)
}

func TestTick_SameSeedSamePairs(t *testing.T) {
	pairsFor := func(seed uint64) [][]int {
		world := NewFakeWorld()
		event := world.AddEvent(sharedtypes.EventStateCodingPhase)
		teams := world.AddQueuedTeams(event.ID, 8)
		index := map[sharedtypes.TeamID]int{}
		for i, id := range teams {
			index[id] = i
		}
		_, err := newTestService(world, &FakeLocker{}, seed).Tick(context.Background())
		require.NoError(t, err)

		var out [][]int
		for _, m := range world.QueueMatches() {
			ids := m.TeamIDs()
			out = append(out, []int{index[ids[0]], index[ids[1]]})
		}
		return out
	}

	assert.Equal(t, pairsFor(99), pairsFor(99))
}

func TestTick_SkipsWhenLockHeld(t *testing.T) {
	world := NewFakeWorld()
	event := world.AddEvent(sharedtypes.EventStateCodingPhase)
	world.AddQueuedTeams(event.ID, 4)
	svc := newTestService(world, &FakeLocker{Busy: true}, 1)

	result, err := svc.Tick(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Empty(t, world.QueueMatches())
	assert.Empty(t, world.Trace())
}

func TestTick_LockError(t *testing.T) {
	world := NewFakeWorld()
	svc := newTestService(world, &FakeLocker{Err: errors.New("connection reset")}, 1)

	_, err := svc.Tick(context.Background())

	assert.Error(t, err)
	assert.Empty(t, world.Trace())
}

func TestTick_IgnoresEventsClosedToQueue(t *testing.T) {
	world := NewFakeWorld()
	for _, state := range []sharedtypes.EventState{sharedtypes.EventStateTeamFinding, sharedtypes.EventStateFinished} {
		event := world.AddEvent(state)
		world.AddQueuedTeams(event.ID, 2)
	}
	svc := newTestService(world, &FakeLocker{}, 1)

	result, err := svc.Tick(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Matches)
	assert.Empty(t, world.QueueMatches())
}

func TestTick_EventFailureIsIsolated(t *testing.T) {
	world := NewFakeWorld()
	broken := world.AddEvent(sharedtypes.EventStateCodingPhase)
	healthy := world.AddEvent(sharedtypes.EventStateCodingPhase)
	world.AddQueuedTeams(broken.ID, 2)
	world.AddQueuedTeams(healthy.ID, 2)

	world.ListQueuedTeamsFunc = func(ctx context.Context, eventID sharedtypes.EventID) ([]*competitiondb.Team, error) {
		if eventID == broken.ID {
			return nil, errors.New("query timeout")
		}
		return world.listQueued(eventID), nil
	}
	svc := newTestService(world, &FakeLocker{}, 1)

	result, err := svc.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []sharedtypes.EventID{broken.ID}, result.FailedEvents)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, healthy.ID, world.QueueMatches()[0].EventID)
}

func TestTick_ClaimLostSkipsPair(t *testing.T) {
	world := NewFakeWorld()
	event := world.AddEvent(sharedtypes.EventStateCodingPhase)
	teams := world.AddQueuedTeams(event.ID, 2)

	// Listed as queued, but one team leaves before the claim.
	world.ListQueuedTeamsFunc = func(ctx context.Context, eventID sharedtypes.EventID) ([]*competitiondb.Team, error) {
		a, b := world.Team(teams[0]), world.Team(teams[1])
		require.NoError(t, world.SetInQueue(ctx, nil, teams[1], false))
		return []*competitiondb.Team{&a, &b}, nil
	}
	svc := newTestService(world, &FakeLocker{}, 1)

	result, err := svc.Tick(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Matches)
	assert.Empty(t, result.FailedEvents)
	assert.Empty(t, world.QueueMatches())
	assert.True(t, world.Team(teams[0]).InQueue, "unclaimed team keeps waiting")
}

func TestTick_StartFailureKeepsMatchPlanned(t *testing.T) {
	world := NewFakeWorld()
	event := world.AddEvent(sharedtypes.EventStateCodingPhase)
	world.AddQueuedTeams(event.ID, 2)
	world.StartMatchFunc = func(ctx context.Context, id sharedtypes.MatchID) error {
		return errors.New("dispatch unavailable")
	}
	svc := newTestService(world, &FakeLocker{}, 1)

	result, err := svc.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, sharedtypes.MatchStatePlanned, world.QueueMatches()[0].State)
}

func TestTick_ConcurrentTicksNeverShareATeam(t *testing.T) {
	tests := []struct {
		name   string
		locker Locker
	}{
		{name: "shared lock", locker: &FakeLocker{}},
		{name: "lock always granted", locker: grantAll{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			world := NewFakeWorld()
			event := world.AddEvent(sharedtypes.EventStateCodingPhase)
			world.AddQueuedTeams(event.ID, 40)

			var wg sync.WaitGroup
			for i := range 8 {
				wg.Add(1)
				go func(seed uint64) {
					defer wg.Done()
					svc := newTestService(world, tt.locker, seed)
					for range 5 {
						_, err := svc.Tick(context.Background())
						assert.NoError(t, err)
					}
				}(uint64(i))
			}
			wg.Wait()

			assertDisjoint(t, world)
		})
	}
}

// grantAll hands out the lock to everyone, leaving the claim as the only guard.
type grantAll struct{}

func (grantAll) TryAcquire(context.Context, int64) (bool, func(), error) {
	return true, func() {}, nil
}
