package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/utkarsh5026/futurepool/internal/algorithms"
	"github.com/utkarsh5026/futurepool/internal/cpu"
	"github.com/utkarsh5026/futurepool/internal/scheduler"
	"github.com/utkarsh5026/futurepool/internal/types"
	"golang.org/x/sync/errgroup"
)

// Pool is a fixed-size pool of worker goroutines executing submitted tasks.
//
// All workers pull from one FIFO queue, so tasks start in submission order and at
// most Size tasks execute at the same time; completion order is not guaranteed.
// Every task resolves its own Future, and a failing or panicking task never
// affects its siblings or the pool.
//
// Type parameters:
//   - R: The result type produced by tasks
type Pool[R any] struct {
	size   int
	conf   *config
	runner *scheduler.Runner
	queue  *scheduler.FIFO[*job[R]]
	logger zerolog.Logger

	mu        sync.Mutex // orders index assignment with queue insertion
	nextIndex int

	closed atomic.Bool
	done   chan struct{} // closed when all workers have exited

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	running   atomic.Int64
}

type job[R any] struct {
	future *types.Future[R]
	task   Task[R]
	arg    any
}

// New creates a pool with size workers and starts them immediately.
// A size <= 0 defaults to runtime.GOMAXPROCS(0).
//
// Example:
//
//	p := pool.New[int](5, pool.WithQueueCapacity(100))
//	defer p.Shutdown(true)
//
//	future, err := p.Submit(func(ctx context.Context) (int, error) {
//	    return 42, nil
//	})
func New[R any](size int, opts ...Option) *Pool[R] {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Pool[R]{
		size:  size,
		conf:  cfg,
		queue: scheduler.NewFIFO[*job[R]](cfg.queueCapacity, cfg.blockOnFull),
		logger: cfg.logger.With().Str("component", "pool").Int("size", size).Logger(),
		done:   make(chan struct{}),
	}
	p.runner = &scheduler.Runner{
		RateLimiter: cfg.rateLimiter,
		MaxAttempts: cfg.maxAttempts,
		OnRetry:     cfg.onRetry,
		BeforeStart: p.taskStarted,
		AfterEnd:    p.taskEnded,
	}

	if cfg.maxAttempts > 1 {
		p.runner.Backoff = algorithms.New(cfg.backoffType, cfg.initialDelay, cfg.backoffMaxDelay, cfg.backoffJitter)
	}

	var g errgroup.Group
	for i := range size {
		g.Go(func() error {
			p.worker(i)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(p.done)
	}()

	p.logger.Debug().Msg("pool started")
	return p
}

// Size returns the number of workers, i.e. the maximum number of tasks that can
// execute concurrently.
func (p *Pool[R]) Size() int {
	return p.size
}

// Submit queues task for execution and returns its Future.
//
// Submit does not block unless the queue is bounded and full (see WithQueueCapacity
// and WithBlockOnFull).
//
// Returns:
//   - future: A handle that resolves once a worker has run the task
//   - error: ErrPoolClosed after Shutdown, ErrQueueFull for a full non-blocking queue
func (p *Pool[R]) Submit(task Task[R]) (*Future[R], error) {
	return p.submit(task, nil)
}

func (p *Pool[R]) submit(task Task[R], arg any) (*Future[R], error) {
	if task == nil {
		return nil, errors.New("pool: nil task")
	}
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	future := types.NewFuture[R](p.nextIndex)
	if err := p.queue.Push(&job[R]{future: future, task: task, arg: arg}); err != nil {
		if errors.Is(err, scheduler.ErrQueueClosed) {
			return nil, ErrPoolClosed
		}
		return nil, err
	}

	p.nextIndex++
	p.submitted.Add(1)
	return future, nil
}

// Map submits every task, then retrieves the results in submission order.
// The i-th element of the returned slice is the result of tasks[i], regardless of
// the order in which the tasks completed.
//
// Returns:
//   - results: One slot per task; slots after a failure may be unset
//   - error: The first task failure in index order, a submission error, or an
//     ErrNotReady error if ctx ends first
func (p *Pool[R]) Map(ctx context.Context, tasks []Task[R]) ([]R, error) {
	futures := make([]*Future[R], 0, len(tasks))
	for _, task := range tasks {
		f, err := p.Submit(task)
		if err != nil {
			return nil, err
		}
		futures = append(futures, f)
	}
	return Gather(ctx, futures)
}

// MapArgs applies fn to every argument on the pool and returns the results in
// argument order. A failing call yields a *TaskError carrying the argument.
//
// Example:
//
//	squares, err := pool.MapArgs(ctx, p, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
//	    return n * n, nil
//	})
func MapArgs[T any, R any](ctx context.Context, p *Pool[R], args []T, fn ProcessFunc[T, R]) ([]R, error) {
	futures := make([]*Future[R], 0, len(args))
	for _, arg := range args {
		f, err := p.submit(func(ctx context.Context) (R, error) {
			return fn(ctx, arg)
		}, arg)
		if err != nil {
			return nil, err
		}
		futures = append(futures, f)
	}
	return Gather(ctx, futures)
}

// Shutdown stops the pool from accepting new tasks. Tasks already queued still run.
// With wait set, Shutdown blocks until every queued task has completed and every
// worker has exited. Calling Shutdown more than once is safe.
//
// Shutdown must not be called with wait set from inside a task of the same pool.
func (p *Pool[R]) Shutdown(wait bool) {
	if p.closed.CompareAndSwap(false, true) {
		p.queue.Close()
		p.logger.Debug().Int("queued", p.queue.Len()).Msg("pool shutting down")
	}

	if wait {
		<-p.done
	}
}

// ShutdownContext is Shutdown(true) bounded by ctx.
//
// Returns:
//   - error: nil once all workers exited, or ErrShutdownTimeout if ctx ended first
//     (the workers keep draining in the background)
func (p *Pool[R]) ShutdownContext(ctx context.Context) error {
	p.Shutdown(false)
	return waitUntil(ctx, p.done)
}

// Done returns a channel closed once the pool has shut down and all workers exited.
func (p *Pool[R]) Done() <-chan struct{} {
	return p.done
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool[R]) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Running:   p.running.Load(),
		Queued:    p.queue.Len(),
	}
}

// worker pulls jobs until the queue is closed and drained.
func (p *Pool[R]) worker(id int) {
	if p.conf.affinity {
		release := cpu.PinWorker(id)
		defer release()
	}

	logger := p.logger.With().Int("worker", id).Logger()
	logger.Debug().Msg("worker started")

	ctx := logger.WithContext(context.Background())
	for {
		j, ok := p.queue.Pop()
		if !ok {
			logger.Debug().Msg("worker stopped")
			return
		}
		p.execute(ctx, logger, j)
	}
}

func (p *Pool[R]) execute(ctx context.Context, logger zerolog.Logger, j *job[R]) {
	index := j.future.Index()

	value, err := scheduler.Execute(ctx, p.runner, index, scheduler.TaskFunc[R](j.task))
	if err != nil {
		err = &TaskError{Index: index, Arg: j.arg, Err: err}
		p.failed.Add(1)
		logger.Debug().Err(err).Int("task", index).Msg("task failed")
	} else {
		p.completed.Add(1)
	}

	if p.conf.onTaskEnd != nil {
		p.conf.onTaskEnd(index, err)
	}

	types.Resolve(j.future, value, err)
}

// taskStarted runs after the rate limiter admitted a task, right before its body.
func (p *Pool[R]) taskStarted(index int) {
	p.running.Add(1)
	if p.conf.beforeTaskStart != nil {
		p.conf.beforeTaskStart(index)
	}
}

func (p *Pool[R]) taskEnded(int, error) {
	p.running.Add(-1)
}

// waitUntil blocks until either d is closed or ctx is done.
// It is used during graceful shutdown to wait for workers to finish.
func waitUntil(ctx context.Context, d <-chan struct{}) error {
	select {
	case <-d:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}
