package matchhandlers

import (
	"context"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// FakeService is a programmable matchservice.Service.
type FakeService struct {
	trace []string

	IngestResultFunc       func(ctx context.Context, payload *matchservice.GameResultPayload) error
	GetMatchFunc           func(ctx context.Context, id sharedtypes.MatchID, viewer sharedtypes.ViewerRole) (*matchservice.MatchView, error)
	ListMatchesFunc        func(ctx context.Context, eventID sharedtypes.EventID, phase *sharedtypes.MatchPhase, viewer sharedtypes.ViewerRole) ([]*matchservice.MatchView, error)
	RevealMatchFunc        func(ctx context.Context, id sharedtypes.MatchID) error
	GetMatchLogsFunc       func(ctx context.Context, id sharedtypes.MatchID, viewer sharedtypes.ViewerRole) ([]matchservice.LogStream, error)
	GlobalStatsFunc        func(ctx context.Context) (*matchservice.GlobalStats, error)
	QueueRatingHistoryFunc func(ctx context.Context, teamID sharedtypes.TeamID) ([]matchservice.RatingPoint, error)
}

func (f *FakeService) record(step string) { f.trace = append(f.trace, step) }

func (f *FakeService) Trace() []string { return f.trace }

func (f *FakeService) CreateMatch(ctx context.Context, req matchservice.CreateMatchRequest) (*matchservice.MatchView, error) {
	f.record("CreateMatch")
	return &matchservice.MatchView{}, nil
}

func (f *FakeService) CreateMatchInTx(ctx context.Context, db bun.IDB, req matchservice.CreateMatchRequest) (*matchservice.MatchView, error) {
	f.record("CreateMatchInTx")
	return &matchservice.MatchView{}, nil
}

func (f *FakeService) StartMatch(ctx context.Context, id sharedtypes.MatchID) error {
	f.record("StartMatch")
	return nil
}

func (f *FakeService) FinishMatch(ctx context.Context, req matchservice.FinishMatchRequest) (*matchservice.MatchView, error) {
	f.record("FinishMatch")
	return &matchservice.MatchView{}, nil
}

func (f *FakeService) IngestResult(ctx context.Context, payload *matchservice.GameResultPayload) error {
	f.record("IngestResult")
	if f.IngestResultFunc != nil {
		return f.IngestResultFunc(ctx, payload)
	}
	return nil
}

func (f *FakeService) GetMatch(ctx context.Context, id sharedtypes.MatchID, viewer sharedtypes.ViewerRole) (*matchservice.MatchView, error) {
	f.record("GetMatch")
	if f.GetMatchFunc != nil {
		return f.GetMatchFunc(ctx, id, viewer)
	}
	return &matchservice.MatchView{ID: id}, nil
}

func (f *FakeService) ListMatches(ctx context.Context, eventID sharedtypes.EventID, phase *sharedtypes.MatchPhase, viewer sharedtypes.ViewerRole) ([]*matchservice.MatchView, error) {
	f.record("ListMatches")
	if f.ListMatchesFunc != nil {
		return f.ListMatchesFunc(ctx, eventID, phase, viewer)
	}
	return []*matchservice.MatchView{}, nil
}

func (f *FakeService) RevealMatch(ctx context.Context, id sharedtypes.MatchID) error {
	f.record("RevealMatch")
	if f.RevealMatchFunc != nil {
		return f.RevealMatchFunc(ctx, id)
	}
	return nil
}

func (f *FakeService) GetMatchLogs(ctx context.Context, id sharedtypes.MatchID, viewer sharedtypes.ViewerRole) ([]matchservice.LogStream, error) {
	f.record("GetMatchLogs")
	if f.GetMatchLogsFunc != nil {
		return f.GetMatchLogsFunc(ctx, id, viewer)
	}
	return []matchservice.LogStream{}, nil
}

func (f *FakeService) GlobalStats(ctx context.Context) (*matchservice.GlobalStats, error) {
	f.record("GlobalStats")
	if f.GlobalStatsFunc != nil {
		return f.GlobalStatsFunc(ctx)
	}
	return &matchservice.GlobalStats{}, nil
}

func (f *FakeService) QueueRatingHistory(ctx context.Context, teamID sharedtypes.TeamID) ([]matchservice.RatingPoint, error) {
	f.record("QueueRatingHistory")
	if f.QueueRatingHistoryFunc != nil {
		return f.QueueRatingHistoryFunc(ctx, teamID)
	}
	return nil, nil
}

func (f *FakeService) RegisterRoundObserver(observer matchservice.RoundObserver) {
	f.record("RegisterRoundObserver")
}

var _ matchservice.Service = (*FakeService)(nil)
