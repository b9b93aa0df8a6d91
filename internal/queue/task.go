package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQueueFull   = errors.New("generation queue is full")
	ErrQueueClosed = errors.New("generation queue is closed")
)

// GenerationTask identifies one admitted generation run.
type GenerationTask struct {
	JobID      uuid.UUID `json:"job_id"`
	PlanID     uuid.UUID `json:"plan_id"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Handler runs a task to completion.
type Handler func(ctx context.Context, task GenerationTask) error

// FailureHook is called when a Handler returns an error or panics.
type FailureHook func(ctx context.Context, task GenerationTask, err error)

// Dispatcher hands tasks to whatever executes them. Dispatch must not wait for
// the task to run.
type Dispatcher interface {
	Dispatch(ctx context.Context, task GenerationTask) error
}

// Runner is a Dispatcher that also executes tasks in-process.
type Runner interface {
	Dispatcher
	Start(handler Handler, onFailure FailureHook)
	Stop(ctx context.Context) error
}
