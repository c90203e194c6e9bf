package matchservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/app/shared/apperrors"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MatchService implements the Service interface.
type MatchService struct {
	repo       matchdb.Repository
	teams      TeamAccessor
	dispatcher Dispatcher
	logs       LogSource
	observer   RoundObserver
	logger     *slog.Logger
	metrics    observability.MatchMetrics
	tracer     trace.Tracer
	db         *bun.DB
}

// NewMatchService creates a new MatchService.
func NewMatchService(
	repo matchdb.Repository,
	teams TeamAccessor,
	dispatcher Dispatcher,
	logs LogSource,
	logger *slog.Logger,
	metrics observability.MatchMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchService{
		repo:       repo,
		teams:      teams,
		dispatcher: dispatcher,
		logs:       logs,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		db:         db,
	}
}

// RegisterRoundObserver sets the callback run when a round completes.
// It must be called before the service handles results.
func (s *MatchService) RegisterRoundObserver(observer RoundObserver) {
	s.observer = observer
}

var _ Service = (*MatchService)(nil)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
// Domain errors are logged as warnings, anything else as an error.
func withTelemetry[T any](
	s *MatchService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "MatchService."+operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "MatchService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "MatchService", time.Since(startTime))
		}
	}()

	correlationID := observability.CorrelationAttr(ctx)
	s.logger.DebugContext(ctx, "Operation triggered", correlationID, slog.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				correlationID,
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "MatchService")
			}
			span.RecordError(err)
		}
	}()

	result, err = op(ctx)
	if err != nil {
		level := slog.LevelError
		msg := "Operation failed with error"
		if apperrors.IsDomain(err) {
			level = slog.LevelWarn
			msg = "Operation rejected"
		}
		s.logger.Log(ctx, level, msg,
			correlationID,
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", err),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "MatchService")
		}
		span.RecordError(err)
		return result, err
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "MatchService")
	}
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[T any](
	s *MatchService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (T, error),
) (T, error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result T
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
