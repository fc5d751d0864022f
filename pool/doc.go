// Package pool provides a bounded, futures-based worker pool for running many
// concurrent tasks and collecting their results safely.
//
// The primary type is Pool[R], a fixed set of worker goroutines pulling tasks of
// type Task[R] from one FIFO queue. Submitting a task returns a Future[R] that
// resolves exactly once with the task's value or its failure. At most Size tasks
// execute at any moment; the rest wait in the queue.
//
// # Basic Usage
//
//	p := pool.New[int](5)
//	defer p.Shutdown(true)
//
//	future, err := p.Submit(func(ctx context.Context) (int, error) {
//	    return 42, nil
//	})
//	if err != nil {
//	    return err
//	}
//	value, err := future.Get()
//
// # Collecting Results
//
// There are two retrieval strategies over a set of futures:
//
//   - Gather / Ordered: wait on each future in submission order
//   - AsCompleted / AsCompletedMap / Collector: receive each future as soon as it
//     resolves, tagged with its original position (or a caller-supplied key)
//
// Map combines Submit with ordered retrieval:
//
//	results, err := p.Map(ctx, tasks) // results[i] belongs to tasks[i]
//
// and MapArgs maps a ProcessFunc over a slice of arguments:
//
//	sizes, err := pool.MapArgs(ctx, p, urls, fetchSize)
//
// Completion order is not submission order; iterate with AsCompleted when the
// caller wants to react to whichever task finishes first:
//
//	for i, res := range pool.AsCompleted(futures) {
//	    ...
//	}
//
// # Shared State
//
// Tasks that mutate common data should do so through a state.Shared value, whose
// Transact method runs each read-modify-write under one exclusive lock.
//
// # Configuration Options
//
//   - WithQueueCapacity(n) / WithBlockOnFull(b): bound the pending queue and decide
//     whether a full queue blocks Submit or fails it with ErrQueueFull
//   - WithRetryPolicy(maxAttempts, initialDelay) / WithBackoff(...): retry failed tasks
//   - WithRateLimit(tasksPerSecond, burst): throttle task starts
//   - WithBeforeTaskStart / WithOnTaskEnd / WithOnRetry: lifecycle hooks
//   - WithWorkerAffinity(): lock workers to OS threads pinned to cores
//   - WithLogger(logger): zerolog logger for lifecycle events
//
// # Error Handling
//
// A failing task never stops its siblings or the pool. Its error (or recovered
// panic, wrapping ErrTaskPanicked) is captured in a *TaskError and surfaces only
// when its future is retrieved. Submit fails with ErrPoolClosed after Shutdown.
// Timed waits fail with an error matching ErrNotReady and leave the future intact.
//
// Tasks are never cancelled once started; Shutdown only waits for them.
package pool
