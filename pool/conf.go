package pool

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/utkarsh5026/futurepool/internal/algorithms"
	"golang.org/x/time/rate"
)

// BackoffType selects the delay algorithm used between retry attempts.
type BackoffType = algorithms.Kind

const (
	// BackoffExponential doubles the delay after every failed attempt (default).
	BackoffExponential = algorithms.Exponential
	// BackoffJittered adds random jitter to the exponential delay.
	BackoffJittered = algorithms.Jittered
	// BackoffConstant waits the initial delay before every retry.
	BackoffConstant = algorithms.Constant
	// BackoffDecorrelated picks each delay at random between the initial delay and
	// three times the previous delay.
	BackoffDecorrelated = algorithms.Decorrelated
)

// Option is a functional option for configuring a Pool.
type Option func(*config)

type config struct {
	queueCapacity int
	blockOnFull   bool

	maxAttempts     int
	initialDelay    time.Duration
	backoffType     BackoffType
	backoffMaxDelay time.Duration
	backoffJitter   float64

	rateLimiter *rate.Limiter

	beforeTaskStart func(index int)
	onTaskEnd       func(index int, err error)
	onRetry         func(index, attempt int, err error)

	affinity bool
	logger   zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		blockOnFull:     true,
		maxAttempts:     1,
		backoffType:     BackoffExponential,
		backoffMaxDelay: 5 * time.Second,
		backoffJitter:   0.1,
		logger:          zerolog.Nop(),
	}
}

// WithQueueCapacity bounds the number of tasks waiting for a free worker.
// If not specified (or n <= 0), the queue is unbounded and Submit never blocks.
func WithQueueCapacity(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.queueCapacity = n
		}
	}
}

// WithBlockOnFull decides what Submit does when a bounded queue is full: wait
// for space (true, the default) or fail immediately with ErrQueueFull (false).
func WithBlockOnFull(block bool) Option {
	return func(cfg *config) {
		cfg.blockOnFull = block
	}
}

// WithRetryPolicy sets a retry policy for task execution.
// maxAttempts specifies the maximum number of attempts for each task.
// initialDelay specifies the delay before the first retry; subsequent retries
// follow the configured backoff (exponential by default).
// If not specified, every task runs exactly once.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *config) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			cfg.initialDelay = initialDelay
		}
	}
}

// WithBackoff chooses the retry delay algorithm, the cap on any single delay and,
// for BackoffJittered, the jitter factor in [0, 1].
// It only matters together with WithRetryPolicy.
//
// Example:
//
//	WithRetryPolicy(5, 50*time.Millisecond),
//	WithBackoff(BackoffJittered, 2*time.Second, 0.2),
func WithBackoff(kind BackoffType, maxDelay time.Duration, jitter float64) Option {
	return func(cfg *config) {
		cfg.backoffType = kind
		if maxDelay > 0 {
			cfg.backoffMaxDelay = maxDelay
		}
		if jitter >= 0 {
			cfg.backoffJitter = jitter
		}
	}
}

// WithRateLimit sets a rate limiter for controlling task throughput.
// tasksPerSecond specifies the maximum number of tasks started per second.
// burst specifies the maximum number of tasks that can start in a burst.
// This is useful for I/O-bound tasks hitting an external service.
// If not specified, no rate limiting is applied.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithBeforeTaskStart registers a hook that runs on the worker right before a task
// body starts, with the task's submission index.
func WithBeforeTaskStart(fn func(index int)) Option {
	return func(cfg *config) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook that runs on the worker after a task finishes and
// before its future resolves. err is the task's final error, if any.
func WithOnTaskEnd(fn func(index int, err error)) Option {
	return func(cfg *config) {
		cfg.onTaskEnd = fn
	}
}

// WithOnRetry registers a hook called before every retry of a failed task.
func WithOnRetry(fn func(index, attempt int, err error)) Option {
	return func(cfg *config) {
		cfg.onRetry = fn
	}
}

// WithWorkerAffinity locks every worker goroutine to its own OS thread and, on
// Linux, pins that thread to one core. Useful for CPU-bound task bodies.
func WithWorkerAffinity() Option {
	return func(cfg *config) {
		cfg.affinity = true
	}
}

// WithLogger sets the logger used for pool lifecycle and task failure events.
// If not specified, the pool logs nothing.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
