package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics records the outcome of service operations.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// MatchMetrics adds match lifecycle counters.
type MatchMetrics interface {
	OperationMetrics
	RecordMatchCreated(ctx context.Context, phase string)
	RecordMatchFinished(ctx context.Context, phase string)
	RecordDispatchFailure(ctx context.Context, phase string)
}

// QueueMetrics adds matchmaker counters.
type QueueMetrics interface {
	OperationMetrics
	RecordTickSkipped(ctx context.Context)
	RecordPairsCreated(ctx context.Context, count int)
	RecordEventFailure(ctx context.Context)
}

// TournamentMetrics adds progression counters.
type TournamentMetrics interface {
	OperationMetrics
	RecordRoundAdvanced(ctx context.Context, phase string)
	RecordPhaseTransition(ctx context.Context, from, to string)
}

type promOperationMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func newPromOperationMetrics(reg prometheus.Registerer, subsystem string) *promOperationMetrics {
	labels := []string{"operation", "service"}
	m := &promOperationMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: subsystem, Name: "operation_attempts_total",
			Help: "Service operations started.",
		}, labels),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: subsystem, Name: "operation_success_total",
			Help: "Service operations that completed without error.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: subsystem, Name: "operation_failures_total",
			Help: "Service operations that returned an error.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arena", Subsystem: subsystem, Name: "operation_duration_seconds",
			Help:    "Duration of service operations.",
			Buckets: prometheus.DefBuckets,
		}, labels),
	}
	reg.MustRegister(m.attempts, m.successes, m.failures, m.duration)
	return m
}

func (m *promOperationMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *promOperationMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *promOperationMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *promOperationMetrics) RecordOperationDuration(_ context.Context, operation, service string, d time.Duration) {
	m.duration.WithLabelValues(operation, service).Observe(d.Seconds())
}

type promMatchMetrics struct {
	*promOperationMetrics
	created          *prometheus.CounterVec
	finished         *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
}

// NewMatchMetrics registers match metrics on reg.
func NewMatchMetrics(reg prometheus.Registerer) MatchMetrics {
	m := &promMatchMetrics{
		promOperationMetrics: newPromOperationMetrics(reg, "match"),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: "match", Name: "created_total", Help: "Matches created.",
		}, []string{"phase"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: "match", Name: "finished_total", Help: "Matches finished.",
		}, []string{"phase"}),
		dispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: "match", Name: "dispatch_failures_total", Help: "Failed match dispatches.",
		}, []string{"phase"}),
	}
	reg.MustRegister(m.created, m.finished, m.dispatchFailures)
	return m
}

func (m *promMatchMetrics) RecordMatchCreated(_ context.Context, phase string) {
	m.created.WithLabelValues(phase).Inc()
}

func (m *promMatchMetrics) RecordMatchFinished(_ context.Context, phase string) {
	m.finished.WithLabelValues(phase).Inc()
}

func (m *promMatchMetrics) RecordDispatchFailure(_ context.Context, phase string) {
	m.dispatchFailures.WithLabelValues(phase).Inc()
}

type promQueueMetrics struct {
	*promOperationMetrics
	skipped      prometheus.Counter
	pairs        prometheus.Counter
	eventFailure prometheus.Counter
}

// NewQueueMetrics registers matchmaker metrics on reg.
func NewQueueMetrics(reg prometheus.Registerer) QueueMetrics {
	m := &promQueueMetrics{
		promOperationMetrics: newPromOperationMetrics(reg, "queue"),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: "queue", Name: "ticks_skipped_total",
			Help: "Matchmaker ticks skipped because another instance held the lock.",
		}),
		pairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: "queue", Name: "pairs_created_total", Help: "Queue pairs drawn.",
		}),
		eventFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: "queue", Name: "event_failures_total",
			Help: "Per-event draw failures.",
		}),
	}
	reg.MustRegister(m.skipped, m.pairs, m.eventFailure)
	return m
}

func (m *promQueueMetrics) RecordTickSkipped(context.Context)           { m.skipped.Inc() }
func (m *promQueueMetrics) RecordPairsCreated(_ context.Context, n int) { m.pairs.Add(float64(n)) }
func (m *promQueueMetrics) RecordEventFailure(context.Context)          { m.eventFailure.Inc() }

type promTournamentMetrics struct {
	*promOperationMetrics
	rounds      *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewTournamentMetrics registers progression metrics on reg.
func NewTournamentMetrics(reg prometheus.Registerer) TournamentMetrics {
	m := &promTournamentMetrics{
		promOperationMetrics: newPromOperationMetrics(reg, "tournament"),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: "tournament", Name: "rounds_advanced_total", Help: "Rounds generated.",
		}, []string{"phase"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena", Subsystem: "tournament", Name: "phase_transitions_total", Help: "Event phase changes.",
		}, []string{"from", "to"}),
	}
	reg.MustRegister(m.rounds, m.transitions)
	return m
}

func (m *promTournamentMetrics) RecordRoundAdvanced(_ context.Context, phase string) {
	m.rounds.WithLabelValues(phase).Inc()
}

func (m *promTournamentMetrics) RecordPhaseTransition(_ context.Context, from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

// Noop implements every metrics interface and records nothing.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) RecordOperationAttempt(context.Context, string, string)                 {}
func (Noop) RecordOperationSuccess(context.Context, string, string)                 {}
func (Noop) RecordOperationFailure(context.Context, string, string)                 {}
func (Noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (Noop) RecordMatchCreated(context.Context, string)                             {}
func (Noop) RecordMatchFinished(context.Context, string)                            {}
func (Noop) RecordDispatchFailure(context.Context, string)                          {}
func (Noop) RecordTickSkipped(context.Context)                                      {}
func (Noop) RecordPairsCreated(context.Context, int)                                {}
func (Noop) RecordEventFailure(context.Context)                                     {}
func (Noop) RecordRoundAdvanced(context.Context, string)                            {}
func (Noop) RecordPhaseTransition(context.Context, string, string)                  {}

var (
	_ MatchMetrics      = Noop{}
	_ QueueMetrics      = Noop{}
	_ TournamentMetrics = Noop{}
)
