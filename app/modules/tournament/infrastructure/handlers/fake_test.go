package tournamenthandlers

import (
	"context"
	"io"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	tournamentservice "github.com/42core-team/arena/app/modules/tournament/application"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
)

type FakeService struct {
	trace []string

	StartSwissFunc          func(ctx context.Context, eventID sharedtypes.EventID) (*tournamentservice.RoundStarted, error)
	StartEliminationFunc    func(ctx context.Context, eventID sharedtypes.EventID) (*tournamentservice.RoundStarted, error)
	RoundCompletedFunc      func(ctx context.Context, round matchservice.RoundKey) error
	TournamentTeamCountFunc func(ctx context.Context, eventID sharedtypes.EventID) (int, error)
	RecalculateBuchholzFunc func(ctx context.Context, eventID sharedtypes.EventID) ([]tournamentservice.Standing, error)
	StandingsFunc           func(ctx context.Context, eventID sharedtypes.EventID) ([]tournamentservice.Standing, error)
	ExportStandingsXLSXFunc func(ctx context.Context, eventID sharedtypes.EventID, w io.Writer) error
}

func (f *FakeService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeService) Trace() []string {
	return f.trace
}

func (f *FakeService) StartSwiss(ctx context.Context, eventID sharedtypes.EventID) (*tournamentservice.RoundStarted, error) {
	f.record("StartSwiss")
	if f.StartSwissFunc != nil {
		return f.StartSwissFunc(ctx, eventID)
	}
	return &tournamentservice.RoundStarted{EventID: eventID}, nil
}

func (f *FakeService) StartElimination(ctx context.Context, eventID sharedtypes.EventID) (*tournamentservice.RoundStarted, error) {
	f.record("StartElimination")
	if f.StartEliminationFunc != nil {
		return f.StartEliminationFunc(ctx, eventID)
	}
	return &tournamentservice.RoundStarted{EventID: eventID}, nil
}

func (f *FakeService) RoundCompleted(ctx context.Context, round matchservice.RoundKey) error {
	f.record("RoundCompleted")
	if f.RoundCompletedFunc != nil {
		return f.RoundCompletedFunc(ctx, round)
	}
	return nil
}

func (f *FakeService) TournamentTeamCount(ctx context.Context, eventID sharedtypes.EventID) (int, error) {
	f.record("TournamentTeamCount")
	if f.TournamentTeamCountFunc != nil {
		return f.TournamentTeamCountFunc(ctx, eventID)
	}
	return 0, nil
}

func (f *FakeService) RecalculateBuchholz(ctx context.Context, eventID sharedtypes.EventID) ([]tournamentservice.Standing, error) {
	f.record("RecalculateBuchholz")
	if f.RecalculateBuchholzFunc != nil {
		return f.RecalculateBuchholzFunc(ctx, eventID)
	}
	return nil, nil
}

func (f *FakeService) Standings(ctx context.Context, eventID sharedtypes.EventID) ([]tournamentservice.Standing, error) {
	f.record("Standings")
	if f.StandingsFunc != nil {
		return f.StandingsFunc(ctx, eventID)
	}
	return nil, nil
}

func (f *FakeService) ExportStandingsXLSX(ctx context.Context, eventID sharedtypes.EventID, w io.Writer) error {
	f.record("ExportStandingsXLSX")
	if f.ExportStandingsXLSXFunc != nil {
		return f.ExportStandingsXLSXFunc(ctx, eventID, w)
	}
	return nil
}

var _ tournamentservice.Service = (*FakeService)(nil)
