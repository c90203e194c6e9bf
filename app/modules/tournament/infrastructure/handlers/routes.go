package tournamenthandlers

import (
	"github.com/42core-team/arena/app/shared/httpapi"
	"github.com/go-chi/chi/v5"
)

// Mount registers the tournament endpoints under the /api router.
func Mount(r chi.Router, h Handlers) {
	r.Get("/events/{eventID}/elimination/team-count", h.HandleTournamentTeamCount)
	r.Get("/events/{eventID}/standings", h.HandleStandings)
	r.Get("/events/{eventID}/standings.xlsx", h.HandleStandingsXLSX)

	r.Group(func(r chi.Router) {
		r.Use(httpapi.AdminOnly)
		r.Put("/events/{eventID}/swiss", h.HandleStartSwiss)
		r.Put("/events/{eventID}/elimination", h.HandleStartElimination)
		r.Put("/events/{eventID}/buchholz", h.HandleRecalculateBuchholz)
	})
}
