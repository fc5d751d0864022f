package types

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotReady is returned when a wait on a future ends before the future resolves.
// The future itself is untouched; a later wait may still succeed.
var ErrNotReady = errors.New("future not ready")

// Result represents the outcome of a single submitted task.
//
// Fields:
//   - Value: The value produced by the task (only valid if Error is nil)
//   - Error: The failure captured from the task (nil if successful)
//   - Index: The submission index of the task
type Result[R any] struct {
	Value R
	Error error
	Index int
}

// Future is a one-time-resolving handle for the result of a submitted task.
//
// A future starts pending and transitions exactly once to resolved, either with a
// value or with an error. The transition is performed by whoever ran the task;
// any number of readers may block on it or poll it concurrently.
type Future[R any] struct {
	index  int
	once   sync.Once
	done   chan struct{}
	result Result[R]
}

// NewFuture creates a pending future for the task with the given submission index.
func NewFuture[R any](index int) *Future[R] {
	return &Future[R]{
		index: index,
		done:  make(chan struct{}),
	}
}

// Resolve settles the future with value and err. Only the first call has an effect;
// it reports whether this call performed the transition.
func Resolve[R any](f *Future[R], value R, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.result = Result[R]{Value: value, Error: err, Index: f.index}
		resolved = true
		close(f.done)
	})
	return resolved
}

// Index returns the submission index of the task behind this future.
func (f *Future[R]) Index() int {
	return f.index
}

// Done returns a channel that is closed once the future has resolved.
// It is meant for use in select statements.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// IsReady reports whether the future has resolved, without blocking.
func (f *Future[R]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the future resolves and returns the task's value or failure.
// Calling Get again returns the same result.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.result.Value, f.result.Error
}

// GetWithContext blocks until the future resolves or ctx is done.
//
// Returns:
//   - value, err: The task's outcome if it resolved first
//   - error: An error matching both ErrNotReady and ctx.Err() if ctx ended first
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.result.Value, f.result.Error
	default:
	}

	select {
	case <-f.done:
		return f.result.Value, f.result.Error
	case <-ctx.Done():
		var zero R
		return zero, fmt.Errorf("%w: task %d: %w", ErrNotReady, f.index, ctx.Err())
	}
}

// GetWithTimeout is GetWithContext with a relative deadline.
// A non-positive timeout waits forever.
func (f *Future[R]) GetWithTimeout(timeout time.Duration) (R, error) {
	if timeout <= 0 {
		return f.Get()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.GetWithContext(ctx)
}

// TryGet polls the future without blocking. ready is false while the task is pending.
func (f *Future[R]) TryGet() (value R, err error, ready bool) {
	if !f.IsReady() {
		return value, nil, false
	}
	return f.result.Value, f.result.Error, true
}

// Result blocks until the future resolves and returns the full result record.
func (f *Future[R]) Result() Result[R] {
	<-f.done
	return f.result
}
