package queuehandlers

import "github.com/go-chi/chi/v5"

// Mount registers the queue endpoints under the /api router.
func Mount(r chi.Router, h Handlers) {
	r.Post("/teams/{teamID}/queue", h.HandleJoinQueue)
	r.Delete("/teams/{teamID}/queue", h.HandleLeaveQueue)
	r.Get("/teams/{teamID}/queue-history", h.HandleRatingHistory)
	r.Get("/teams/{teamID}/queue-chart.png", h.HandleRatingChart)
}
