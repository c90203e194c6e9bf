// Package scheduler runs periodic tasks, either on an in-process ticker or as
// a River periodic job.
package scheduler

import (
	"context"
)

// Task is one unit of periodic work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner drives a Task until stopped.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TaskFunc adapts a function to Task.
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (f TaskFunc) Name() string                  { return f.TaskName }
func (f TaskFunc) Run(ctx context.Context) error { return f.Fn(ctx) }
