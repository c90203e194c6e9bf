package matchhandlers

import (
	"log/slog"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	"go.opentelemetry.io/otel/trace"
)

// MatchHandlers handles match related messages and requests.
type MatchHandlers struct {
	service matchservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewMatchHandlers creates a new MatchHandlers.
func NewMatchHandlers(service matchservice.Service, logger *slog.Logger, tracer trace.Tracer) *MatchHandlers {
	return &MatchHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

var _ Handlers = (*MatchHandlers)(nil)
