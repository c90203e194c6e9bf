package tournamenthandlers

import "net/http"

// Handlers is the tournament module's HTTP surface.
type Handlers interface {
	HandleStartSwiss(w http.ResponseWriter, r *http.Request)
	HandleStartElimination(w http.ResponseWriter, r *http.Request)
	HandleRecalculateBuchholz(w http.ResponseWriter, r *http.Request)
	HandleTournamentTeamCount(w http.ResponseWriter, r *http.Request)
	HandleStandings(w http.ResponseWriter, r *http.Request)
	HandleStandingsXLSX(w http.ResponseWriter, r *http.Request)
}
