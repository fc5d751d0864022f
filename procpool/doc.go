// Package procpool is the process-backed counterpart of package pool: the same
// Submit / Future / Shutdown contract, with each task running in a separate
// worker process instead of a goroutine.
//
// Separate processes give CPU-bound task bodies true parallelism and complete
// memory isolation, at the cost of a serialization round trip per task. Because
// functions cannot cross a process boundary, task bodies are registered by name
// at package initialization and the same binary is re-executed as the worker:
//
//	var square = procpool.Register("square", func(ctx context.Context, n int) (int, error) {
//	    return n * n, nil
//	})
//
//	func main() {
//	    procpool.MaybeServe() // never returns inside a worker process
//
//	    p, err := procpool.New(4)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer p.Shutdown(true)
//
//	    squares, err := procpool.Map(ctx, p, square, []int{1, 2, 3})
//	}
//
// Futures returned by Submit are ordinary pool futures and work with
// pool.AsCompleted, pool.Gather and pool.Collector.
//
// Arguments and results are encoded as JSON. Values that do not survive the
// round trip (channels, functions, unexported state) are rejected with
// ErrNotTransferable. A worker process that dies mid-task fails only that task,
// with ErrWorkerCrashed, and is replaced for the next one.
package procpool
