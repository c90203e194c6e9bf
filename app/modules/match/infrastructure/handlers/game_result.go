package matchhandlers

import (
	"context"
	"errors"
	"log/slog"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/app/shared/apperrors"
	"github.com/42core-team/arena/app/shared/handlerwrapper"
)

// HandleGameResult feeds a game result into the match state machine. Every
// failure is logged and the message acked: a rejected result stays rejected on
// redelivery, and a half-applied one must be repaired by an operator.
func (h *MatchHandlers) HandleGameResult(ctx context.Context, payload *matchservice.GameResultPayload) ([]handlerwrapper.Result, error) {
	if payload == nil {
		h.logger.WarnContext(ctx, "Dropping empty game result", observability.CorrelationAttr(ctx))
		return nil, nil
	}

	err := h.service.IngestResult(ctx, payload)
	switch {
	case err == nil:
		h.logger.InfoContext(ctx, "Game result applied",
			observability.CorrelationAttr(ctx),
			slog.String("match_id", payload.GameID),
		)
	case errors.Is(err, apperrors.ErrIllegalState):
		h.logger.WarnContext(ctx, "Ignoring result for match that is not in progress",
			observability.CorrelationAttr(ctx),
			slog.String("match_id", payload.GameID),
			slog.Any("error", err),
		)
	default:
		h.logger.ErrorContext(ctx, "Failed to process game result",
			observability.CorrelationAttr(ctx),
			slog.String("match_id", payload.GameID),
			slog.Any("error", err),
		)
	}
	return nil, nil
}
