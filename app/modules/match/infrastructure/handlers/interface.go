package matchhandlers

import (
	"context"
	"net/http"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	"github.com/42core-team/arena/app/shared/handlerwrapper"
)

// Handlers is the match module's bus and HTTP surface.
type Handlers interface {
	HandleGameResult(ctx context.Context, payload *matchservice.GameResultPayload) ([]handlerwrapper.Result, error)

	HandleListMatches(w http.ResponseWriter, r *http.Request)
	HandleGetMatch(w http.ResponseWriter, r *http.Request)
	HandleRevealMatch(w http.ResponseWriter, r *http.Request)
	HandleGetMatchLogs(w http.ResponseWriter, r *http.Request)
	HandleGlobalStats(w http.ResponseWriter, r *http.Request)
}
