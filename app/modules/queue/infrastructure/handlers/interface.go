package queuehandlers

import "net/http"

// Handlers serves the casual ladder endpoints.
type Handlers interface {
	HandleJoinQueue(w http.ResponseWriter, r *http.Request)
	HandleLeaveQueue(w http.ResponseWriter, r *http.Request)
	HandleRatingHistory(w http.ResponseWriter, r *http.Request)
	HandleRatingChart(w http.ResponseWriter, r *http.Request)
}
