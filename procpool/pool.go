package procpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/utkarsh5026/futurepool/internal/scheduler"
	"github.com/utkarsh5026/futurepool/internal/types"
	"github.com/utkarsh5026/futurepool/pool"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrWorkerCrashed resolves the future of a task whose worker process died
	// or broke the protocol before answering. The worker is replaced.
	ErrWorkerCrashed = errors.New("worker process crashed")

	// ErrNotTransferable reports an argument or result that cannot be encoded
	// to cross the process boundary.
	ErrNotTransferable = errors.New("value is not transferable")

	// ErrUnknownFunc is returned by Submit for a Func that was never registered.
	ErrUnknownFunc = errors.New("function is not registered")

	// ErrTaskPanicked is matched by the RemoteError of a task that panicked.
	ErrTaskPanicked = pool.ErrTaskPanicked
)

// Pool runs registered functions in a fixed set of child processes.
//
// Each worker process has private memory: state mutated by one task is never
// visible to tasks running in other processes or to the caller. Arguments and
// results cross the boundary as JSON, so both must survive a JSON round trip.
// Tasks start in submission order and at most Size run at the same time.
type Pool struct {
	size   int
	conf   *config
	queue  *scheduler.FIFO[*call]
	logger zerolog.Logger

	mu        sync.Mutex // orders index assignment with queue insertion
	nextIndex int

	closed atomic.Bool
	done   chan struct{}

	pidMu sync.Mutex
	pids  map[int]int // worker slot -> live pid
}

type call struct {
	index   int
	req     request
	resolve func(resp *response, err error)
}

// New creates a pool of size worker processes. A size <= 0 defaults to
// runtime.NumCPU(). Processes are started lazily by their worker slot on the
// first task it receives.
//
// The binary being executed must call MaybeServe at the top of main.
func New(size int, opts ...Option) (*Pool, error) {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating executable: %w", err)
		}
		cfg.path = exe
	}

	p := &Pool{
		size:   size,
		conf:   cfg,
		queue:  scheduler.NewFIFO[*call](0, true),
		logger: cfg.logger.With().Str("component", "procpool").Int("size", size).Logger(),
		done:   make(chan struct{}),
		pids:   make(map[int]int, size),
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

	p.logger.Debug().Str("path", cfg.path).Msg("process pool started")
	return p, nil
}

// Size returns the number of worker processes.
func (p *Pool) Size() int {
	return p.size
}

// PIDs returns the process IDs of the currently running workers.
func (p *Pool) PIDs() []int {
	p.pidMu.Lock()
	defer p.pidMu.Unlock()

	pids := make([]int, 0, len(p.pids))
	for _, pid := range p.pids {
		pids = append(pids, pid)
	}
	return pids
}

// Submit schedules f(arg) on a worker process and returns its future.
// The argument is encoded immediately, so a non-transferable argument fails here
// rather than in the worker.
//
// Returns:
//   - future: Resolves with the decoded result, or a *pool.TaskError wrapping a
//     *RemoteError or ErrWorkerCrashed
//   - error: ErrNotTransferable, ErrUnknownFunc, or pool.ErrPoolClosed after Shutdown
func Submit[A any, R any](p *Pool, f Func[A, R], arg A) (*pool.Future[R], error) {
	if _, ok := lookup(f.name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunc, f.name)
	}

	raw, err := json.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: argument of %s: %w", ErrNotTransferable, f.name, err)
	}

	if p.closed.Load() {
		return nil, pool.ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	index := p.nextIndex
	future := types.NewFuture[R](index)
	c := &call{
		index: index,
		req:   request{ID: uuid.NewString(), Func: f.name, Arg: raw},
		resolve: func(resp *response, err error) {
			var value R
			if err == nil {
				err = resp.err()
			}
			if err == nil {
				if uerr := json.Unmarshal(resp.Result, &value); uerr != nil {
					err = fmt.Errorf("%w: result of %s: %w", ErrNotTransferable, f.name, uerr)
				}
			}
			if err != nil {
				types.Resolve(future, value, &pool.TaskError{Index: index, Arg: arg, Err: err})
				return
			}
			types.Resolve(future, value, nil)
		},
	}

	if err := p.queue.Push(c); err != nil {
		if errors.Is(err, scheduler.ErrQueueClosed) {
			return nil, pool.ErrPoolClosed
		}
		return nil, err
	}

	p.nextIndex++
	return future, nil
}

// Map runs f over args on the pool and returns the results in argument order.
func Map[A any, R any](ctx context.Context, p *Pool, f Func[A, R], args []A) ([]R, error) {
	futures := make([]*pool.Future[R], 0, len(args))
	for _, arg := range args {
		fut, err := Submit(p, f, arg)
		if err != nil {
			return nil, err
		}
		futures = append(futures, fut)
	}
	return pool.Gather(ctx, futures)
}

// Shutdown stops accepting tasks. Queued tasks still run; afterwards every
// worker process is asked to exit by closing its input. With wait set, Shutdown
// blocks until all worker processes have exited. Calling it again is safe.
func (p *Pool) Shutdown(wait bool) {
	if p.closed.CompareAndSwap(false, true) {
		p.queue.Close()
		p.logger.Debug().Int("queued", p.queue.Len()).Msg("process pool shutting down")
	}

	if wait {
		<-p.done
	}
}

// Done returns a channel closed once every worker process has exited.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

func (p *Pool) worker(id int) {
	logger := p.logger.With().Int("worker", id).Logger()

	var proc *process
	defer func() {
		if proc != nil {
			p.retire(id, proc, logger)
		}
	}()

	for {
		c, ok := p.queue.Pop()
		if !ok {
			return
		}

		if proc == nil {
			var err error
			proc, err = p.spawn(id)
			if err != nil {
				logger.Error().Err(err).Msg("failed to start worker process")
				c.resolve(nil, fmt.Errorf("starting worker process: %w", err))
				continue
			}
			logger.Debug().Int("pid", proc.pid).Msg("worker process started")
		}

		resp, err := proc.roundTrip(c.req)
		if err != nil {
			logger.Warn().Err(err).Int("pid", proc.pid).Int("task", c.index).Msg("worker process crashed")
			pid := proc.pid
			proc.kill()
			p.forget(id)
			proc = nil
			c.resolve(nil, fmt.Errorf("%w: pid %d: %w", ErrWorkerCrashed, pid, err))
			continue
		}

		c.resolve(resp, nil)

		proc.tasks++
		if p.conf.maxTasksPerWorker > 0 && proc.tasks >= p.conf.maxTasksPerWorker {
			p.retire(id, proc, logger)
			proc = nil
		}
	}
}

func (p *Pool) spawn(id int) (*process, error) {
	env := append(os.Environ(),
		workerEnv+"=1",
		logLevelEnv+"="+p.logger.GetLevel().String(),
	)

	proc, err := startProcess(p.conf.path, p.conf.args, env)
	if err != nil {
		return nil, err
	}

	p.pidMu.Lock()
	p.pids[id] = proc.pid
	p.pidMu.Unlock()
	return proc, nil
}

func (p *Pool) retire(id int, proc *process, logger zerolog.Logger) {
	if err := proc.stop(); err != nil {
		logger.Warn().Err(err).Int("pid", proc.pid).Msg("worker process exited uncleanly")
	} else {
		logger.Debug().Int("pid", proc.pid).Int("tasks", proc.tasks).Msg("worker process retired")
	}
	p.forget(id)
}

func (p *Pool) forget(id int) {
	p.pidMu.Lock()
	delete(p.pids, id)
	p.pidMu.Unlock()
}
