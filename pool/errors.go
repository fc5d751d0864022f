package pool

import (
	"errors"
	"fmt"

	"github.com/utkarsh5026/futurepool/internal/scheduler"
	"github.com/utkarsh5026/futurepool/internal/types"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown has been called.
	ErrPoolClosed = errors.New("pool is shut down")

	// ErrNotReady is returned when a wait on a future or a collector times out.
	// Nothing is lost: the same future can be waited on again.
	ErrNotReady = types.ErrNotReady

	// ErrQueueFull is returned by Submit when the pending queue is bounded, full,
	// and the pool was configured not to block.
	ErrQueueFull = scheduler.ErrQueueFull

	// ErrShutdownTimeout is returned by ShutdownContext when the context ends
	// before every worker has exited.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")

	// ErrTaskPanicked is wrapped by a TaskError whose task body panicked.
	ErrTaskPanicked = scheduler.ErrTaskPanicked
)

// TaskError is the failure of a single task, captured by the worker that ran it
// and surfaced only to whoever retrieves that task's future.
//
// Fields:
//   - Index: The submission index of the failed task
//   - Arg: The input the task was called with, when known (set by MapArgs)
//   - Err: The error returned by the task, or the recovered panic
type TaskError struct {
	Index int
	Arg   any
	Err   error
}

func (e *TaskError) Error() string {
	if e.Arg != nil {
		return fmt.Sprintf("task %d (arg %v) failed: %v", e.Index, e.Arg, e.Err)
	}
	return fmt.Sprintf("task %d failed: %v", e.Index, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
