package app

import (
	"context"
	"net/http"
	"time"

	matchhandlers "github.com/42core-team/arena/app/modules/match/infrastructure/handlers"
	queuehandlers "github.com/42core-team/arena/app/modules/queue/infrastructure/handlers"
	tournamenthandlers "github.com/42core-team/arena/app/modules/tournament/infrastructure/handlers"
	"github.com/42core-team/arena/app/shared/httpapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func (app *App) httpRouter() http.Handler {
	limiter := httpapi.NewIPRateLimiter(rate.Limit(app.Config.HTTP.RateLimit), app.Config.HTTP.RateBurst)
	return NewRouter(Routes{
		Match:      app.Modules.Match.Handlers,
		Tournament: app.Modules.Tournament.Handlers,
		Queue:      app.Modules.Queue.Handlers,
	}, limiter, app.DB, app.EventBus.Healthy)
}

// Routes groups the handlers mounted under /api.
type Routes struct {
	Match      matchhandlers.Handlers
	Tournament tournamenthandlers.Handlers
	Queue      queuehandlers.Handlers
}

// NewRouter builds the public HTTP surface. /healthz reports 503 when the
// database or the bus is down.
func NewRouter(routes Routes, limiter *httpapi.IPRateLimiter, db Pinger, busHealthy func() bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			httpapi.WriteMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		if !busHealthy() {
			httpapi.WriteMessage(w, http.StatusServiceUnavailable, "event bus unavailable")
			return
		}
		httpapi.WriteMessage(w, http.StatusOK, "ok")
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(httpapi.RateLimitMiddleware(limiter))
		r.Use(httpapi.ViewerMiddleware)
		matchhandlers.Mount(r, routes.Match)
		tournamenthandlers.Mount(r, routes.Tournament)
		queuehandlers.Mount(r, routes.Queue)
	})
	return r
}
