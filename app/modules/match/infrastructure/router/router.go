package matchrouter

import (
	"fmt"
	"log/slog"
	"os"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchevents "github.com/42core-team/arena/app/modules/match/domain/events"
	matchhandlers "github.com/42core-team/arena/app/modules/match/infrastructure/handlers"
	"github.com/42core-team/arena/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// MatchRouter wires the match handlers to the message router.
type MatchRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	publisher      message.Publisher
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
	metricsEnabled bool
}

// NewMatchRouter creates a MatchRouter. Router metrics are skipped when no
// registry is given or APP_ENV=test.
func NewMatchRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	prometheusRegistry *prometheus.Registry,
) *MatchRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "", "")
		metricsBuilder = &builder
	}
	return &MatchRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      handlerwrapper.TopicPublisher{Publisher: publisher},
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
		metricsEnabled: metricsBuilder != nil,
	}
}

// Configure adds the middleware and registers the handlers.
func (r *MatchRouter) Configure(handlers matchhandlers.Handlers) error {
	if r.metricsEnabled {
		r.logger.Info("Adding Prometheus router metrics middleware")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{MaxRetries: 3}.Middleware,
	)

	if err := r.RegisterHandlers(handlers); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	return nil
}

// RegisterHandlers subscribes each handler to its topic. Results a handler
// returns are published to the topic in their metadata.
func (r *MatchRouter) RegisterHandlers(handlers matchhandlers.Handlers) error {
	eventsToHandlers := map[string]message.HandlerFunc{
		matchevents.GameResultV1: handlerwrapper.WrapTyped[matchservice.GameResultPayload](
			"match."+matchevents.GameResultV1, r.logger, r.tracer, handlers.HandleGameResult,
		),
	}

	for topic, handlerFunc := range eventsToHandlers {
		handlerName := fmt.Sprintf("match.%s", topic)
		r.Router.AddHandler(
			handlerName,
			topic,
			r.subscriber,
			"",
			nil,
			func(msg *message.Message) ([]*message.Message, error) {
				messages, err := handlerFunc(msg)
				if err != nil {
					r.logger.ErrorContext(msg.Context(), "Error processing message",
						slog.String("handler", handlerName),
						slog.String("message_id", msg.UUID),
						slog.Any("error", err),
					)
					return nil, err
				}
				for _, m := range messages {
					if err := r.publisher.Publish(m.Metadata.Get(handlerwrapper.MetadataTopic), m); err != nil {
						return nil, fmt.Errorf("failed to publish from %s: %w", handlerName, err)
					}
				}
				return nil, nil
			},
		)
	}
	return nil
}

func (r *MatchRouter) Close() error {
	return r.Router.Close()
}
