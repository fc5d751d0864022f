package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/utkarsh5026/futurepool/internal/algorithms"
	"golang.org/x/time/rate"
)

func TestExecute_Success(t *testing.T) {
	got, err := Execute(context.Background(), &Runner{}, 0, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("expected ok, got %q (err=%v)", got, err)
	}
}

func TestExecute_RecoversPanic(t *testing.T) {
	_, err := Execute(context.Background(), &Runner{}, 3, func(ctx context.Context) (int, error) {
		panic("kaboom")
	})
	if !errors.Is(err, ErrTaskPanicked) {
		t.Fatalf("expected ErrTaskPanicked, got %v", err)
	}
	if !strings.Contains(err.Error(), "kaboom") || !strings.Contains(err.Error(), "stack trace") {
		t.Errorf("panic error should carry value and stack, got %q", err.Error())
	}
}

func TestExecute_Retry(t *testing.T) {
	var calls atomic.Int32
	var retries []int

	r := &Runner{
		MaxAttempts: 3,
		Backoff:     algorithms.New(algorithms.Constant, time.Millisecond, 0, 0),
		OnRetry: func(index, attempt int, err error) {
			if index != 7 {
				t.Errorf("expected index 7, got %d", index)
			}
			retries = append(retries, attempt)
		},
	}

	got, err := Execute(context.Background(), r, 7, func(ctx context.Context) (int, error) {
		if calls.Add(1) < 3 {
			return 0, errors.New("transient")
		}
		return 10, nil
	})
	if err != nil || got != 10 {
		t.Fatalf("expected 10 after retries, got %d (err=%v)", got, err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("unexpected retry hook calls: %v", retries)
	}
}

func TestExecute_RetryExhaustedReturnsLastError(t *testing.T) {
	var calls atomic.Int32
	_, err := Execute(context.Background(), &Runner{MaxAttempts: 2}, 0, func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("first")
		}
		return 0, errors.New("second")
	})
	if err == nil || err.Error() != "second" {
		t.Errorf("expected last error, got %v", err)
	}
}

func TestExecute_BackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := &Runner{
		MaxAttempts: 5,
		Backoff:     algorithms.New(algorithms.Constant, time.Hour, 0, 0),
	}
	start := time.Now()
	_, err := Execute(ctx, r, 0, func(ctx context.Context) (int, error) {
		return 0, errors.New("always")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("backoff ignored context cancellation")
	}
}

func TestExecute_RateLimit(t *testing.T) {
	r := &Runner{RateLimiter: rate.NewLimiter(rate.Limit(100), 1)}

	start := time.Now()
	for i := range 5 {
		if _, err := Execute(context.Background(), r, i, func(ctx context.Context) (int, error) {
			return i, nil
		}); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("rate limiter did not throttle, elapsed %v", elapsed)
	}
}

func TestExecute_RateLimitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{RateLimiter: rate.NewLimiter(rate.Limit(1), 1)}
	_, err := Execute(ctx, r, 0, func(ctx context.Context) (int, error) {
		t.Error("task must not run after cancellation")
		return 0, nil
	})
	if err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestExecute_StartEndHooks(t *testing.T) {
	var events []string
	r := &Runner{
		BeforeStart: func(index int) { events = append(events, "start") },
		AfterEnd: func(index int, err error) {
			if err == nil {
				t.Error("expected the task error in the end hook")
			}
			events = append(events, "end")
		},
	}

	_, _ = Execute(context.Background(), r, 3, func(ctx context.Context) (int, error) {
		events = append(events, "run")
		return 0, errors.New("failed")
	})
	if got := strings.Join(events, ","); got != "start,run,end" {
		t.Errorf("unexpected hook order %q", got)
	}
}

func TestExecute_HooksSkippedWhenThrottleFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	r := &Runner{
		RateLimiter: rate.NewLimiter(rate.Limit(1), 1),
		BeforeStart: func(int) { calls.Add(1) },
		AfterEnd:    func(int, error) { calls.Add(1) },
	}
	if _, err := Execute(ctx, r, 0, func(ctx context.Context) (int, error) { return 0, nil }); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if calls.Load() != 0 {
		t.Errorf("hooks ran for a task that never started: %d calls", calls.Load())
	}
}
