package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TickerRunner runs a task right away and then on every interval. Runs never
// overlap: a slow run delays the next one.
type TickerRunner struct {
	task     Task
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTickerRunner(task Task, interval time.Duration, logger *slog.Logger) *TickerRunner {
	return &TickerRunner{task: task, interval: interval, logger: logger}
}

var _ Runner = (*TickerRunner)(nil)

func (r *TickerRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)
	r.logger.InfoContext(ctx, "Ticker scheduler started",
		slog.String("task", r.task.Name()),
		slog.Duration("interval", r.interval),
	)
	return nil
}

func (r *TickerRunner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *TickerRunner) runOnce(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "Scheduled task panicked",
				slog.String("task", r.task.Name()),
				slog.Any("panic", rec),
			)
		}
	}()
	if err := r.task.Run(ctx); err != nil && ctx.Err() == nil {
		r.logger.ErrorContext(ctx, "Scheduled task failed",
			slog.String("task", r.task.Name()),
			slog.Any("error", err),
		)
	}
}

// Stop cancels the loop and waits for a running task to return, or for ctx.
func (r *TickerRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		r.logger.InfoContext(ctx, "Ticker scheduler stopped", slog.String("task", r.task.Name()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
