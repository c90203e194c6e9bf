package matchhandlers

import (
	"net/http"
	"strings"

	"github.com/42core-team/arena/app/shared/apperrors"
	"github.com/42core-team/arena/app/shared/httpapi"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/go-chi/chi/v5"
)

func (h *MatchHandlers) HandleListMatches(w http.ResponseWriter, r *http.Request) {
	eventID, err := sharedtypes.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httpapi.WriteError(w, r, h.logger, apperrors.Wrap(apperrors.ErrValidation, "ListMatches", err))
		return
	}

	var phase *sharedtypes.MatchPhase
	if raw := r.URL.Query().Get("phase"); raw != "" {
		p := sharedtypes.MatchPhase(strings.ToUpper(raw))
		phase = &p
	}

	matches, err := h.service.ListMatches(r.Context(), eventID, phase, httpapi.Viewer(r.Context()))
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, matches)
}

func (h *MatchHandlers) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	match, err := h.service.GetMatch(r.Context(), matchID, httpapi.Viewer(r.Context()))
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, match)
}

func (h *MatchHandlers) HandleRevealMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	if err := h.service.RevealMatch(r.Context(), matchID); err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandlers) HandleGetMatchLogs(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	logs, err := h.service.GetMatchLogs(r.Context(), matchID, httpapi.Viewer(r.Context()))
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, logs)
}

func (h *MatchHandlers) HandleGlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GlobalStats(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, stats)
}

func (h *MatchHandlers) matchID(w http.ResponseWriter, r *http.Request) (sharedtypes.MatchID, bool) {
	id, err := sharedtypes.ParseMatchID(chi.URLParam(r, "matchID"))
	if err != nil {
		httpapi.WriteError(w, r, h.logger, apperrors.Wrap(apperrors.ErrValidation, "ParseMatchID", err))
		return sharedtypes.MatchID{}, false
	}
	return id, true
}
