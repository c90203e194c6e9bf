package testutils

import (
	"context"
	"fmt"
	"testing"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/42core-team/arena/pkg/rating"
	"github.com/brianvoe/gofakeit/v7"
)

// TestDataGenerator builds events and teams with reproducible names.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator. A zero seed uses a random one.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	if seed == 0 {
		return &TestDataGenerator{faker: gofakeit.New(0)}
	}
	return &TestDataGenerator{faker: gofakeit.New(uint64(seed))}
}

// GenerateEvent returns an unsaved event in the given state.
func (g *TestDataGenerator) GenerateEvent(state sharedtypes.EventState) *competitiondb.Event {
	return &competitiondb.Event{
		ID:    sharedtypes.NewEventID(),
		Name:  fmt.Sprintf("%s %s Cup", g.faker.Adjective(), g.faker.Animal()),
		State: state,
	}
}

// GenerateTeams returns n unsaved teams of an event with unique names.
func (g *TestDataGenerator) GenerateTeams(eventID sharedtypes.EventID, n int) []*competitiondb.Team {
	teams := make([]*competitiondb.Team, n)
	for i := range teams {
		teams[i] = &competitiondb.Team{
			ID:         sharedtypes.NewTeamID(),
			EventID:    eventID,
			Name:       fmt.Sprintf("%s-%02d", g.faker.Username(), i),
			Repo:       g.faker.URL(),
			Locked:     true,
			QueueScore: rating.Initial,
		}
	}
	return teams
}

// SeedEvent inserts an event with n teams and returns them in insertion order.
func SeedEvent(t *testing.T, env *TestEnvironment, gen *TestDataGenerator, state sharedtypes.EventState, n int) (*competitiondb.Event, []*competitiondb.Team) {
	t.Helper()
	ctx := context.Background()

	event := gen.GenerateEvent(state)
	if err := env.Competition.CreateEvent(ctx, nil, event); err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	teams := gen.GenerateTeams(event.ID, n)
	for _, team := range teams {
		if err := env.Competition.CreateTeam(ctx, nil, team); err != nil {
			t.Fatalf("failed to create team %s: %v", team.Name, err)
		}
	}
	return event, teams
}
