package demo

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/utkarsh5026/futurepool/internal/workload"
	"github.com/utkarsh5026/futurepool/pool"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Fetch modes, in the order RunFetch runs them.
const (
	FetchSequential = "sequential"
	FetchGoroutines = "goroutine per url"
	FetchPool       = "pool (as completed)"
)

type FetchOptions struct {
	Workers int
	// QueueCapacity bounds the pool's queue; <= 0 leaves it unbounded.
	QueueCapacity int
	Fetcher       workload.Fetcher
	Logger        zerolog.Logger
}

// PageResult is the outcome of fetching one URL.
type PageResult struct {
	Index int
	URL   string
	Bytes int
	Err   error
}

// RunFetch fetches urls three times: one after another, with one goroutine per
// URL (at most Workers in flight), and through a pool collecting pages as they
// complete. A failed page is reported, never fatal.
func RunFetch(ctx context.Context, urls []string, opts FetchOptions) ([]Timing, map[string][]PageResult) {
	logger := opts.Logger
	pages := make(map[string][]PageResult, 3)
	var timings []Timing

	run := func(mode string, fn func() []PageResult) {
		logger.Info().Str("mode", mode).Int("urls", len(urls)).Msg("fetching")
		start := time.Now()
		results := fn()
		elapsed := time.Since(start)

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				logger.Error().Err(r.Err).Int("url", r.Index).Msg("fetch failed")
				continue
			}
			logger.Info().Int("url", r.Index).Str("href", r.URL).Int("bytes", r.Bytes).Msg("fetched")
		}
		logger.Info().Str("mode", mode).Dur("elapsed", elapsed).Msg("got all pages")

		pages[mode] = results
		timings = append(timings, Timing{Mode: mode, Elapsed: elapsed, Tasks: len(urls), Failed: failed})
	}

	run(FetchSequential, func() []PageResult {
		return fetchSequential(ctx, opts.Fetcher, urls)
	})
	run(FetchGoroutines, func() []PageResult {
		return fetchGoroutines(ctx, opts.Fetcher, urls, opts.Workers)
	})
	run(FetchPool, func() []PageResult {
		return fetchPool(ctx, urls, opts, logger)
	})

	return timings, pages
}

func fetchSequential(ctx context.Context, f workload.Fetcher, urls []string) []PageResult {
	results := make([]PageResult, 0, len(urls))
	for i, url := range urls {
		body, err := f.Fetch(ctx, url)
		results = append(results, PageResult{Index: i, URL: url, Bytes: len(body), Err: err})
	}
	return results
}

func fetchGoroutines(ctx context.Context, f workload.Fetcher, urls []string, limit int) []PageResult {
	results := make([]PageResult, len(urls))
	sem := semaphore.NewWeighted(int64(max(limit, 1)))

	var g errgroup.Group
	for i, url := range urls {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = PageResult{Index: i, URL: url, Err: err}
				return nil
			}
			defer sem.Release(1)

			body, err := f.Fetch(ctx, url)
			results[i] = PageResult{Index: i, URL: url, Bytes: len(body), Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fetchPool keys every future by its URL index, so pages can be reported in
// the order they arrive and still be matched to their URL.
func fetchPool(ctx context.Context, urls []string, opts FetchOptions, logger zerolog.Logger) []PageResult {
	f := opts.Fetcher
	p := pool.New[[]byte](opts.Workers, pool.WithLogger(logger), pool.WithQueueCapacity(opts.QueueCapacity))
	defer p.Shutdown(true)

	results := make([]PageResult, 0, len(urls))
	futures := make(map[*pool.Future[[]byte]]int, len(urls))
	for i, url := range urls {
		fut, err := p.Submit(func(ctx context.Context) ([]byte, error) {
			return f.Fetch(ctx, url)
		})
		if err != nil {
			results = append(results, PageResult{Index: i, URL: url, Err: err})
			continue
		}
		futures[fut] = i
	}

	for i, res := range pool.AsCompletedMap(futures) {
		results = append(results, PageResult{Index: i, URL: urls[i], Bytes: len(res.Value), Err: res.Error})
	}
	return results
}
