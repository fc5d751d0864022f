package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/utkarsh5026/futurepool/internal/algorithms"
	"golang.org/x/time/rate"
)

// ErrTaskPanicked marks failures that were recovered from a panicking task body.
var ErrTaskPanicked = errors.New("task panicked")

// TaskFunc is the shape of every unit of work executed by a Runner.
type TaskFunc[R any] func(ctx context.Context) (R, error)

// Runner holds the per-task execution policy shared by all workers of a pool:
// rate limiting, retries with backoff and the retry hook.
type Runner struct {
	// Optional token bucket applied before each task (may be nil).
	RateLimiter *rate.Limiter

	// Maximum number of attempts per task; values below 1 mean a single attempt.
	MaxAttempts int

	// Delay calculation between attempts (may be nil for immediate retries).
	Backoff algorithms.BackoffStrategy

	// Hook called before each retry with the task index, the upcoming attempt
	// number and the error of the failed attempt.
	OnRetry func(index, attempt int, err error)

	// Hooks bracketing the task body. BeforeStart runs once the rate limiter has
	// admitted the task; AfterEnd runs only if BeforeStart did.
	BeforeStart func(index int)
	AfterEnd    func(index int, err error)
}

// Execute runs fn under the runner's policy. A panic inside fn is converted into
// an error wrapping ErrTaskPanicked so that it never takes down the worker.
func Execute[R any](ctx context.Context, r *Runner, index int, fn TaskFunc[R]) (R, error) {
	if r.RateLimiter != nil {
		if err := r.RateLimiter.Wait(ctx); err != nil {
			var zero R
			// Rate limiter's error doesn't wrap context errors, so check context explicitly
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			return zero, err
		}
	}

	if r.BeforeStart != nil {
		r.BeforeStart(index)
	}

	result, err := processWithRecovery(ctx, r, index, fn)

	if r.AfterEnd != nil {
		r.AfterEnd(index, err)
	}
	return result, err
}

func processWithRecovery[R any](ctx context.Context, r *Runner, index int, fn TaskFunc[R]) (result R, err error) {
	defer func() {
		if p := recover(); p != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("%w: %v\nstack trace:\n%s", ErrTaskPanicked, p, buf[:n])
		}
	}()

	return processWithRetry(ctx, r, index, fn)
}

// processWithRetry calls fn up to MaxAttempts times, sleeping between attempts as
// the backoff strategy dictates. The last error is returned if every attempt fails.
func processWithRetry[R any](ctx context.Context, r *Runner, index int, fn TaskFunc[R]) (R, error) {
	var result R
	var err error
	maxAttempts := max(r.MaxAttempts, 1)

	for attempt := range maxAttempts {
		if attempt > 0 && r.Backoff != nil {
			if delay := r.Backoff.NextDelay(attempt - 1); delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return result, ctx.Err()
				}
			}
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}

		if r.OnRetry != nil && attempt < maxAttempts-1 {
			r.OnRetry(index, attempt+1, err)
		}
	}

	return result, err
}
