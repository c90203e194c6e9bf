package queueservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/42core-team/arena/app/observability"
	"github.com/42core-team/arena/app/shared/apperrors"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// QueueService implements Service.
type QueueService struct {
	store   CompetitionStore
	matches MatchReader
	games   MatchScheduler
	locker  Locker
	lockKey int64
	logger  *slog.Logger
	metrics observability.QueueMetrics
	tracer  trace.Tracer
	db      *bun.DB

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewQueueService creates a new QueueService. rng decides which queued teams
// meet; pass a seeded source for reproducible draws.
func NewQueueService(
	store CompetitionStore,
	matches MatchReader,
	games MatchScheduler,
	locker Locker,
	lockKey int64,
	rng *rand.Rand,
	logger *slog.Logger,
	metrics observability.QueueMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *QueueService {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &QueueService{
		store:   store,
		matches: matches,
		games:   games,
		locker:  locker,
		lockKey: lockKey,
		rng:     rng,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
	}
}

var _ Service = (*QueueService)(nil)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *QueueService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "QueueService."+operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "QueueService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "QueueService", time.Since(startTime))
		}
	}()

	correlationID := observability.CorrelationAttr(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				correlationID,
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "QueueService")
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
			s.metrics.RecordOperationFailure(ctx, operationName, "QueueService")
		}
		span.RecordError(err)
		return result, err
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "QueueService")
	}
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[T any](
	s *QueueService,
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
