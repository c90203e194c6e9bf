// Package matchdispatch hands started matches to the game runner.
package matchdispatch

import (
	"context"
	"fmt"
	"log/slog"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchevents "github.com/42core-team/arena/app/modules/match/domain/events"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/app/shared/handlerwrapper"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/42core-team/arena/pkg/jwt"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// Images are the container images a dispatched game runs with.
type Images struct {
	Game string
	Bot  string
}

// LiveDispatcher publishes a GameDispatchV1 message per started match.
type LiveDispatcher struct {
	publisher message.Publisher
	tokens    jwt.Service
	images    Images
	logger    *slog.Logger
}

var _ matchservice.Dispatcher = (*LiveDispatcher)(nil)

// NewLiveDispatcher creates a LiveDispatcher. tokens may be nil when no
// tournament match will ever be dispatched.
func NewLiveDispatcher(publisher message.Publisher, tokens jwt.Service, images Images, logger *slog.Logger) *LiveDispatcher {
	return &LiveDispatcher{publisher: publisher, tokens: tokens, images: images, logger: logger}
}

func (d *LiveDispatcher) Dispatch(ctx context.Context, req matchservice.DispatchRequest) error {
	payload, err := d.buildPayload(req)
	if err != nil {
		return err
	}

	msg, err := handlerwrapper.NewMessage(matchevents.GameDispatchV1, payload)
	if err != nil {
		return err
	}
	if id := observability.CorrelationID(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
	}

	if err := d.publisher.Publish(matchevents.GameDispatchV1, msg); err != nil {
		return fmt.Errorf("failed to publish dispatch for match %s: %w", req.MatchID, err)
	}

	d.logger.InfoContext(ctx, "Match dispatched",
		slog.String("match_id", req.MatchID.String()),
		slog.String("phase", string(req.Phase)),
		slog.Int("round", req.Round),
	)
	return nil
}

func (d *LiveDispatcher) buildPayload(req matchservice.DispatchRequest) (*matchevents.GameDispatchPayloadV1, error) {
	payload := &matchevents.GameDispatchPayloadV1{
		ID:    req.MatchID.String(),
		Image: d.images.Game,
		Phase: string(req.Phase),
		Round: req.Round,
		Bots:  make([]matchevents.DispatchBotV1, 0, len(req.Teams)),
	}

	for _, t := range req.Teams {
		bot := matchevents.DispatchBotV1{
			ID:    t.ID.String(),
			Name:  t.Name,
			Repo:  t.Repo,
			Image: d.images.Bot,
		}
		if req.Phase != sharedtypes.MatchPhaseQueue {
			if d.tokens == nil {
				return nil, fmt.Errorf("no token issuer configured for %s match %s", req.Phase, req.MatchID)
			}
			token, err := d.tokens.IssueRepoToken(t.ID.String(), t.Repo, req.MatchID.String())
			if err != nil {
				return nil, fmt.Errorf("failed to issue repo token for team %s: %w", t.ID, err)
			}
			bot.Token = token
		}
		payload.Bots = append(payload.Bots, bot)
	}
	return payload, nil
}
