package demo

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utkarsh5026/futurepool/internal/workload"
	"github.com/utkarsh5026/futurepool/pool"
	"github.com/utkarsh5026/futurepool/procpool"
)

func TestMain(m *testing.M) {
	procpool.MaybeServe()
	os.Exit(m.Run())
}

func TestRunCounter(t *testing.T) {
	for _, mode := range CollectModes {
		t.Run(mode, func(t *testing.T) {
			const tasks = 10
			report, err := RunCounter(context.Background(), CounterOptions{
				Workers:        4,
				Tasks:          tasks,
				Collect:        mode,
				MaxPreparation: 5 * time.Millisecond,
				Hold:           time.Millisecond,
				Logger:         zerolog.Nop(),
			})
			require.NoError(t, err)
			assert.Equal(t, tasks, report.Final)

			values := make([]int, 0, tasks)
			for i, r := range report.Results {
				assert.Equal(t, i, r.Task)
				values = append(values, r.Value)
			}
			sort.Ints(values)
			if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, values); diff != "" {
				t.Errorf("every task must write a distinct value (-want +got):\n%s", diff)
			}
			assert.Len(t, report.Order, tasks)
		})
	}

	t.Run("ordered collection follows submission order", func(t *testing.T) {
		report, err := RunCounter(context.Background(), CounterOptions{
			Workers: 3, Tasks: 6, Collect: CollectOrdered, MaxPreparation: 5 * time.Millisecond, Logger: zerolog.Nop(),
		})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, report.Order)
	})

	t.Run("bounded queue", func(t *testing.T) {
		report, err := RunCounter(context.Background(), CounterOptions{
			Workers: 1, Tasks: 6, Collect: CollectAsCompleted, QueueCapacity: 1, Logger: zerolog.Nop(),
		})
		require.NoError(t, err)
		assert.Equal(t, 6, report.Final)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := RunCounter(context.Background(), CounterOptions{Workers: 1, Tasks: 1, Collect: "random", Logger: zerolog.Nop()})
		assert.Error(t, err)
	})
}

func TestRunFetch(t *testing.T) {
	fetcher := workload.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		if strings.HasSuffix(url, "broken") {
			return nil, errors.New("connection refused")
		}
		time.Sleep(5 * time.Millisecond)
		return []byte(url), nil
	})
	urls := []string{"http://a", "http://bb", "http://broken", "http://dddd"}

	timings, pages := RunFetch(context.Background(), urls, FetchOptions{Workers: 2, QueueCapacity: 1, Fetcher: fetcher, Logger: zerolog.Nop()})

	require.Len(t, timings, 3)
	for _, tm := range timings {
		assert.Equal(t, len(urls), tm.Tasks, tm.Mode)
		assert.Equal(t, 1, tm.Failed, tm.Mode)
	}

	for _, mode := range []string{FetchSequential, FetchGoroutines, FetchPool} {
		results := pages[mode]
		require.Len(t, results, len(urls), mode)
		for _, r := range results {
			assert.Equal(t, urls[r.Index], r.URL, mode)
			if r.URL == "http://broken" {
				assert.Error(t, r.Err, mode)
				continue
			}
			assert.NoError(t, r.Err, mode)
			assert.Equal(t, len(r.URL), r.Bytes, mode)
		}
	}
}

func TestRunFactor(t *testing.T) {
	numbers := []uint64{12, 97, 1001, 25739201 * 11056459}

	var out bytes.Buffer
	bar := NewProgressBar(&out, 3*len(numbers), "factorizing")

	timings, factors, err := RunFactor(context.Background(), numbers, FactorOptions{
		Workers: 2,
		Logger:  zerolog.Nop(),
		Bar:     bar,
	})
	require.NoError(t, err)

	require.Len(t, timings, 3)
	assert.Equal(t, FactorSequential, timings[0].Mode)
	assert.Equal(t, FactorThreads, timings[1].Mode)
	assert.Equal(t, FactorProcesses, timings[2].Mode)
	for _, tm := range timings {
		assert.Zero(t, tm.Failed, tm.Mode)
	}

	want := map[uint64][]uint64{
		12:                  {2, 2, 3},
		97:                  {97},
		1001:                {7, 11, 13},
		25739201 * 11056459: {11056459, 25739201},
	}
	if diff := cmp.Diff(want, factors); diff != "" {
		t.Errorf("factors mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, bar.IsFinished())
}

func TestRunFactor_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := RunFactor(ctx, []uint64{25739201 * 11056459}, FactorOptions{
		Workers:       1,
		QueueCapacity: 4,
		Logger:        zerolog.Nop(),
	})
	assert.ErrorIs(t, err, pool.ErrNotReady)
}

func TestRenderTimings(t *testing.T) {
	var buf bytes.Buffer
	err := RenderTimings(&buf, "RESULTS", []Timing{
		{Mode: "slow", Elapsed: 300 * time.Millisecond, Tasks: 3},
		{Mode: "fast", Elapsed: 100 * time.Millisecond, Tasks: 3},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "RESULTS")
	assert.Contains(t, out, "baseline")
	assert.Contains(t, out, "3.00x")
	assert.Less(t, strings.Index(out, "fast"), strings.Index(out, "slow"), "fastest mode must be ranked first")

	buf.Reset()
	require.NoError(t, RenderTimings(&buf, "EMPTY", nil))
	assert.Empty(t, buf.String())
}
