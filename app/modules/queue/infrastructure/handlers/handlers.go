package queuehandlers

import (
	"log/slog"
	"net/http"
	"strconv"

	queueservice "github.com/42core-team/arena/app/modules/queue/application"
	"github.com/42core-team/arena/app/shared/apperrors"
	"github.com/42core-team/arena/app/shared/httpapi"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// QueueHandlers implements Handlers.
type QueueHandlers struct {
	service queueservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewQueueHandlers creates a new QueueHandlers.
func NewQueueHandlers(service queueservice.Service, logger *slog.Logger, tracer trace.Tracer) *QueueHandlers {
	return &QueueHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

var _ Handlers = (*QueueHandlers)(nil)

func (h *QueueHandlers) HandleJoinQueue(w http.ResponseWriter, r *http.Request) {
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	if err := h.service.JoinQueue(r.Context(), teamID); err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "team queued")
}

func (h *QueueHandlers) HandleLeaveQueue(w http.ResponseWriter, r *http.Request) {
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	if err := h.service.LeaveQueue(r.Context(), teamID); err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteMessage(w, http.StatusOK, "team left the queue")
}

func (h *QueueHandlers) HandleRatingHistory(w http.ResponseWriter, r *http.Request) {
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	history, err := h.service.RatingHistory(r.Context(), teamID)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, history)
}

func (h *QueueHandlers) HandleRatingChart(w http.ResponseWriter, r *http.Request) {
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	img, err := h.service.RenderRatingChart(r.Context(), teamID)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to send rating chart", slog.Any("error", err))
	}
}

func (h *QueueHandlers) teamID(w http.ResponseWriter, r *http.Request) (sharedtypes.TeamID, bool) {
	id, err := sharedtypes.ParseTeamID(chi.URLParam(r, "teamID"))
	if err != nil {
		httpapi.WriteError(w, r, h.logger, apperrors.Wrap(apperrors.ErrValidation, "ParseTeamID", err))
		return sharedtypes.TeamID{}, false
	}
	return id, true
}
