// Package demo implements the futurepool command's demonstrations: a shared
// counter updated by many tasks, concurrent page fetching and thread versus
// process factoring.
package demo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/utkarsh5026/futurepool/pool"
	"github.com/utkarsh5026/futurepool/state"
)

// Collection modes of the counter demo.
const (
	CollectOrdered     = "ordered"
	CollectMap         = "map"
	CollectAsCompleted = "as-completed"
)

// CollectModes lists the accepted values of CounterOptions.Collect.
var CollectModes = []string{CollectOrdered, CollectMap, CollectAsCompleted}

type CounterOptions struct {
	Workers int
	Tasks   int
	Collect string
	// QueueCapacity bounds the pool's queue; <= 0 leaves it unbounded.
	QueueCapacity int

	// MaxPreparation bounds the random delay before a task touches the counter.
	MaxPreparation time.Duration
	// Hold is how long a task keeps the lock between reading and writing.
	Hold time.Duration

	Logger zerolog.Logger
}

// CounterResult is what one task observed.
type CounterResult struct {
	Task  int
	Value int // counter value written by the task
}

type CounterReport struct {
	Final   int
	Results []CounterResult // indexed by task
	Order   []int           // task indices in the order results were collected
	Elapsed time.Duration
}

// RunCounter submits opts.Tasks tasks that each increment one shared counter
// after a random preparation delay, and collects what every task wrote.
// The final counter value always equals the number of tasks.
func RunCounter(ctx context.Context, opts CounterOptions) (*CounterReport, error) {
	logger := opts.Logger
	counter := state.NewCounter(state.WithTrace(logger))

	p := pool.New[int](opts.Workers,
		pool.WithLogger(logger),
		pool.WithQueueCapacity(opts.QueueCapacity),
		pool.WithBeforeTaskStart(func(index int) {
			logger.Debug().Int("task", index).Msg("doing some preparation")
		}),
	)
	defer p.Shutdown(true)

	tasks := make([]pool.Task[int], opts.Tasks)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			if opts.MaxPreparation > 0 {
				time.Sleep(rand.N(opts.MaxPreparation))
			}
			return counter.Transact(func(v int) int {
				time.Sleep(opts.Hold)
				return v + 1
			}), nil
		}
	}

	start := time.Now()
	report := &CounterReport{Results: make([]CounterResult, opts.Tasks)}

	record := func(i, value int) {
		report.Results[i] = CounterResult{Task: i, Value: value}
		report.Order = append(report.Order, i)
		logger.Info().Int("task", i).Int("value", value).Msg("task done")
	}

	switch opts.Collect {
	case CollectMap:
		values, err := p.Map(ctx, tasks)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			record(i, v)
		}

	case CollectOrdered, CollectAsCompleted:
		futures := make([]*pool.Future[int], 0, len(tasks))
		for _, task := range tasks {
			f, err := p.Submit(task)
			if err != nil {
				return nil, err
			}
			futures = append(futures, f)
		}

		results := pool.Ordered(ctx, futures)
		if opts.Collect == CollectAsCompleted {
			results = pool.AsCompleted(futures)
		}
		for i, res := range results {
			if res.Error != nil {
				return nil, res.Error
			}
			record(i, res.Value)
		}

	default:
		return nil, fmt.Errorf("unknown collection mode %q, expected one of %v", opts.Collect, CollectModes)
	}

	report.Elapsed = time.Since(start)
	report.Final = counter.Load()
	logger.Info().Int("final", report.Final).Dur("elapsed", report.Elapsed).Msg("done")
	return report, nil
}
