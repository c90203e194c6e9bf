package matchdispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchevents "github.com/42core-team/arena/app/modules/match/domain/events"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// SyntheticDispatcher plays nothing. It answers each dispatch with a random
// result on GameResultV1, which travels back through the regular ingress.
type SyntheticDispatcher struct {
	publisher message.Publisher
	logger    *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

var _ matchservice.Dispatcher = (*SyntheticDispatcher)(nil)

func NewSyntheticDispatcher(publisher message.Publisher, rng *rand.Rand, logger *slog.Logger) *SyntheticDispatcher {
	return &SyntheticDispatcher{publisher: publisher, rng: rng, logger: logger}
}

func (d *SyntheticDispatcher) Dispatch(ctx context.Context, req matchservice.DispatchRequest) error {
	if len(req.Teams) == 0 {
		return fmt.Errorf("match %s has no teams to play", req.MatchID)
	}

	result := d.fakeResult(req)
	msg, err := handlerwrapper.NewMessage(matchevents.GameResultV1, result)
	if err != nil {
		return err
	}
	if id := observability.CorrelationID(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}

	if err := d.publisher.Publish(matchevents.GameResultV1, msg); err != nil {
		return fmt.Errorf("failed to publish synthetic result for match %s: %w", req.MatchID, err)
	}

	d.logger.InfoContext(ctx, "Synthetic result published",
		slog.String("match_id", req.MatchID.String()),
		slog.String("winner", result.TeamResults[0].Name),
	)
	return nil
}

func (d *SyntheticDispatcher) fakeResult(req matchservice.DispatchRequest) *matchservice.GameResultPayload {
	d.mu.Lock()
	order := d.rng.Perm(len(req.Teams))
	stats := &matchservice.Stats{
		ActionsExecuted: int64(d.rng.IntN(5000)),
		DamageTotal:     int64(d.rng.IntN(20000)),
		UnitsSpawned:    int64(d.rng.IntN(200)),
		TilesTraveled:   int64(d.rng.IntN(10000)),
		GemsGained:      int64(d.rng.IntN(1000)),
	}
	d.mu.Unlock()

	payload := &matchservice.GameResultPayload{
		GameID:       req.MatchID.String(),
		TeamResults:  make([]matchservice.Placement, 0, len(req.Teams)),
		Stats:        stats,
		BotIDMapping: make(map[string]string, len(req.Teams)),
	}
	for place, idx := range order {
		t := req.Teams[idx]
		payload.TeamResults = append(payload.TeamResults, matchservice.Placement{
			ID:    t.ID.String(),
			Name:  t.Name,
			Place: float64(place + 1),
		})
		payload.BotIDMapping[t.ID.String()] = t.ID.String()
	}
	return payload
}
