package pool

import (
	"context"

	"github.com/utkarsh5026/futurepool/internal/types"
)

// Task is a unit of work submitted to a Pool: any callable returning a value or
// failing. The context is owned by the pool; tasks are never cancelled once started,
// but the context carries the pool's rate limiter and retry deadlines.
type Task[R any] func(ctx context.Context) (R, error)

// ProcessFunc turns an argument into a result. It is the shape accepted by MapArgs,
// the equivalent of mapping one function over a sequence of inputs.
//
// Type parameters:
//   - T: The type of input argument
//   - R: The type of result produced
type ProcessFunc[T any, R any] func(ctx context.Context, arg T) (R, error)

// Future is a handle to the eventual result of a submitted task.
// It resolves exactly once, either to a value or to a *TaskError.
//
// Example:
//
//	future, err := p.Submit(task)
//	if err != nil {
//	    return err
//	}
//
//	// Option 1: Block until result is ready
//	value, err := future.Get()
//
//	// Option 2: Wait with timeout; ErrNotReady leaves the future usable
//	value, err := future.GetWithTimeout(5 * time.Second)
//
//	// Option 3: Check if ready without blocking
//	if value, err, ready := future.TryGet(); ready {
//	    ...
//	}
type Future[R any] = types.Future[R]

// Result is a resolved task outcome together with the task's submission index.
//
// Fields:
//   - Value: The value produced by the task (only valid if Error is nil)
//   - Error: The task failure, a *TaskError (nil if successful)
//   - Index: The submission index of the task
type Result[R any] = types.Result[R]

// Stats is a point-in-time snapshot of a pool's counters.
type Stats struct {
	Submitted int64 // tasks accepted by Submit
	Completed int64 // tasks that resolved with a value
	Failed    int64 // tasks that resolved with an error
	Running   int64 // tasks currently executing
	Queued    int   // tasks waiting for a free worker
}
