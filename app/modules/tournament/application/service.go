package tournamentservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/app/shared/apperrors"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TournamentService implements Service.
type TournamentService struct {
	store   CompetitionStore
	matches MatchReader
	games   MatchScheduler
	logger  *slog.Logger
	metrics observability.TournamentMetrics
	tracer  trace.Tracer
	db      *bun.DB
}

// NewTournamentService creates a new TournamentService.
func NewTournamentService(
	store CompetitionStore,
	matches MatchReader,
	games MatchScheduler,
	logger *slog.Logger,
	metrics observability.TournamentMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *TournamentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TournamentService{
		store:   store,
		matches: matches,
		games:   games,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
	}
}

var _ Service = (*TournamentService)(nil)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
// Domain errors are logged as warnings, anything else as an error.
func withTelemetry[T any](
	s *TournamentService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "TournamentService."+operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "TournamentService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "TournamentService", time.Since(startTime))
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
				s.metrics.RecordOperationFailure(ctx, operationName, "TournamentService")
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
			s.metrics.RecordOperationFailure(ctx, operationName, "TournamentService")
		}
		span.RecordError(err)
		return result, err
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "TournamentService")
	}
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[T any](
	s *TournamentService,
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
