package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const riverQueue = "matchmaking"

// TickArgs is the periodic job enqueued by the River leader.
type TickArgs struct{}

// Kind returns the job type identifier for River
func (TickArgs) Kind() string { return "queue_matchmaking_tick" }

type tickWorker struct {
	river.WorkerDefaults[TickArgs]
	task   Task
	logger *slog.Logger
}

// Work swallows task errors: the next periodic job is the retry.
func (w *tickWorker) Work(ctx context.Context, job *river.Job[TickArgs]) error {
	if err := w.task.Run(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Scheduled task failed",
			slog.String("task", w.task.Name()),
			slog.Int64("job_id", job.ID),
			slog.Any("error", err),
		)
	}
	return nil
}

// RiverRunner schedules the task as a River periodic job. Only the elected
// leader enqueues periodic jobs, so one tick runs per interval across every
// instance sharing the database.
type RiverRunner struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	logger *slog.Logger
	task   Task
}

var _ Runner = (*RiverRunner)(nil)

func NewRiverRunner(ctx context.Context, dsn string, task Task, interval time.Duration, logger *slog.Logger) (*RiverRunner, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	runner, err := newRiverRunner(pool, task, interval, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return runner, nil
}

func newRiverRunner(pool *pgxpool.Pool, task Task, interval time.Duration, logger *slog.Logger) (*RiverRunner, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &tickWorker{task: task, logger: logger})

	periodic := river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return TickArgs{}, &river.InsertOpts{Queue: riverQueue, MaxAttempts: 1}
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			riverQueue: {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{periodic},
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &RiverRunner{pool: pool, client: client, logger: logger, task: task}, nil
}

func (r *RiverRunner) Start(ctx context.Context) error {
	if err := r.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	r.logger.InfoContext(ctx, "River scheduler started", slog.String("task", r.task.Name()))
	return nil
}

// Stop waits for running jobs and closes the pool.
func (r *RiverRunner) Stop(ctx context.Context) error {
	defer r.pool.Close()
	if err := r.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	r.logger.InfoContext(ctx, "River scheduler stopped", slog.String("task", r.task.Name()))
	return nil
}
