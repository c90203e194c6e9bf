package tournamenthandlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	tournamentservice "github.com/42core-team/arena/app/modules/tournament/application"
	"github.com/42core-team/arena/app/shared/apperrors"
	"github.com/42core-team/arena/app/shared/httpapi"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TournamentHandlers serves the admin progression endpoints and standings.
type TournamentHandlers struct {
	service tournamentservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewTournamentHandlers creates a new TournamentHandlers.
func NewTournamentHandlers(service tournamentservice.Service, logger *slog.Logger, tracer trace.Tracer) *TournamentHandlers {
	return &TournamentHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

var _ Handlers = (*TournamentHandlers)(nil)

func (h *TournamentHandlers) HandleStartSwiss(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	started, err := h.service.StartSwiss(r.Context(), eventID)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, started)
}

func (h *TournamentHandlers) HandleStartElimination(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	started, err := h.service.StartElimination(r.Context(), eventID)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, started)
}

func (h *TournamentHandlers) HandleRecalculateBuchholz(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	standings, err := h.service.RecalculateBuchholz(r.Context(), eventID)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, standings)
}

func (h *TournamentHandlers) HandleTournamentTeamCount(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	n, err := h.service.TournamentTeamCount(r.Context(), eventID)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]int{"team_count": n})
}

func (h *TournamentHandlers) HandleStandings(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	standings, err := h.service.Standings(r.Context(), eventID)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, standings)
}

func (h *TournamentHandlers) HandleStandingsXLSX(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	// Buffer so a failed export can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.service.ExportStandingsXLSX(r.Context(), eventID, &buf); err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "standings-"+eventID.String()+".xlsx"))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to send standings export", slog.Any("error", err))
	}
}

func (h *TournamentHandlers) eventID(w http.ResponseWriter, r *http.Request) (sharedtypes.EventID, bool) {
	id, err := sharedtypes.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httpapi.WriteError(w, r, h.logger, apperrors.Wrap(apperrors.ErrValidation, "ParseEventID", err))
		return sharedtypes.EventID{}, false
	}
	return id, true
}
