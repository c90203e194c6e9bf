package matchhandlers

import (
	"github.com/42core-team/arena/app/shared/httpapi"
	"github.com/go-chi/chi/v5"
)

// Mount registers the match endpoints under the /api router.
func Mount(r chi.Router, h Handlers) {
	r.Get("/events/{eventID}/matches", h.HandleListMatches)
	r.Get("/matches/{matchID}", h.HandleGetMatch)
	r.Get("/matches/{matchID}/logs", h.HandleGetMatchLogs)
	r.Get("/stats/global", h.HandleGlobalStats)

	r.Group(func(r chi.Router) {
		r.Use(httpapi.AdminOnly)
		r.Put("/matches/{matchID}/reveal", h.HandleRevealMatch)
	})
}
