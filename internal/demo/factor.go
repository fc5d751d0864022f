package demo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/utkarsh5026/futurepool/internal/workload"
	"github.com/utkarsh5026/futurepool/pool"
	"github.com/utkarsh5026/futurepool/procpool"
)

// Factoring modes, in the order RunFactor runs them.
const (
	FactorSequential = "sequential"
	FactorThreads    = "thread pool"
	FactorProcesses  = "process pool"
)

var factorize = procpool.Register("demo.factorize", func(ctx context.Context, n uint64) ([]uint64, error) {
	return workload.TrivialFactors(n), nil
})

type FactorOptions struct {
	Workers int
	// QueueCapacity bounds the thread pool's queue; <= 0 leaves it unbounded.
	QueueCapacity int
	Logger        zerolog.Logger

	// Bar, when set, advances once per factorized number in every mode.
	Bar *progressbar.ProgressBar

	// ProcessOptions are passed to the process pool, e.g. to pick the worker binary.
	ProcessOptions []procpool.Option
}

// RunFactor factorizes numbers sequentially, on a thread pool and on a process
// pool, and checks that all three agree. Collection stops with an error once
// ctx ends.
func RunFactor(ctx context.Context, numbers []uint64, opts FactorOptions) ([]Timing, map[uint64][]uint64, error) {
	logger := opts.Logger
	var timings []Timing

	describe := func(mode string) {
		logger.Info().Str("mode", mode).Int("numbers", len(numbers)).Msg("factorizing")
		if opts.Bar != nil {
			opts.Bar.Describe(fmt.Sprintf("Factorizing: %s", mode))
		}
	}
	step := func(n uint64, factors []uint64) {
		logger.Debug().Uint64("number", n).Interface("factors", factors).Msg("factorized")
		if opts.Bar != nil {
			_ = opts.Bar.Add(1)
		}
	}

	describe(FactorSequential)
	start := time.Now()
	want := make(map[uint64][]uint64, len(numbers))
	for _, n := range numbers {
		factors := workload.TrivialFactors(n)
		want[n] = factors
		step(n, factors)
	}
	timings = append(timings, Timing{Mode: FactorSequential, Elapsed: time.Since(start), Tasks: len(numbers)})

	describe(FactorThreads)
	start = time.Now()
	threaded, failed, err := factorOnThreads(ctx, numbers, opts, step)
	if err != nil {
		return nil, nil, err
	}
	timings = append(timings, Timing{Mode: FactorThreads, Elapsed: time.Since(start), Tasks: len(numbers), Failed: failed})
	if err := sameFactors(want, threaded); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", FactorThreads, err)
	}

	describe(FactorProcesses)
	start = time.Now()
	processed, failed, err := factorOnProcesses(ctx, numbers, opts, step)
	if err != nil {
		return nil, nil, err
	}
	timings = append(timings, Timing{Mode: FactorProcesses, Elapsed: time.Since(start), Tasks: len(numbers), Failed: failed})
	if err := sameFactors(want, processed); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", FactorProcesses, err)
	}

	if opts.Bar != nil {
		_ = opts.Bar.Finish()
	}
	return timings, want, nil
}

func factorOnThreads(ctx context.Context, numbers []uint64, opts FactorOptions, step func(uint64, []uint64)) (map[uint64][]uint64, int, error) {
	p := pool.New[[]uint64](opts.Workers,
		pool.WithLogger(opts.Logger),
		pool.WithWorkerAffinity(),
		pool.WithQueueCapacity(opts.QueueCapacity),
	)
	defer p.Shutdown(true)

	futures := make(map[*pool.Future[[]uint64]]uint64, len(numbers))
	for _, n := range numbers {
		f, err := p.Submit(func(ctx context.Context) ([]uint64, error) {
			return workload.TrivialFactors(n), nil
		})
		if err != nil {
			return nil, 0, err
		}
		futures[f] = n
	}
	return collectFactors(ctx, futures, opts.Logger, step)
}

func factorOnProcesses(ctx context.Context, numbers []uint64, opts FactorOptions, step func(uint64, []uint64)) (map[uint64][]uint64, int, error) {
	procOpts := append([]procpool.Option{procpool.WithLogger(opts.Logger)}, opts.ProcessOptions...)
	p, err := procpool.New(opts.Workers, procOpts...)
	if err != nil {
		return nil, 0, err
	}
	defer p.Shutdown(true)

	futures := make(map[*pool.Future[[]uint64]]uint64, len(numbers))
	for _, n := range numbers {
		f, err := procpool.Submit(p, factorize, n)
		if err != nil {
			return nil, 0, err
		}
		futures[f] = n
	}
	return collectFactors(ctx, futures, opts.Logger, step)
}

// collectFactors drains futures as they complete, keyed by the number each
// one factorizes.
func collectFactors(ctx context.Context, futures map[*pool.Future[[]uint64]]uint64, logger zerolog.Logger, step func(uint64, []uint64)) (map[uint64][]uint64, int, error) {
	c := pool.NewMapCollector(futures)
	defer c.Close()

	got := make(map[uint64][]uint64, len(futures))
	failed := 0
	for c.Next(ctx) {
		n, res := c.Key(), c.Result()
		if res.Error != nil {
			failed++
			logger.Error().Err(res.Error).Uint64("number", n).Msg("factorizing failed")
			continue
		}
		got[n] = res.Value
		step(n, res.Value)
	}
	if err := c.Err(); err != nil {
		return nil, failed, err
	}
	return got, failed, nil
}

func sameFactors(want, got map[uint64][]uint64) error {
	for n, factors := range want {
		if !slices.Equal(factors, got[n]) {
			return fmt.Errorf("factors of %d: got %v, want %v", n, got[n], factors)
		}
	}
	return nil
}
