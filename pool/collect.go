package pool

import (
	"context"
	"fmt"
	"iter"
	"sync"
)

// Gather waits for every future in slice order and returns their values.
// Each wait blocks on that specific future even if later ones already resolved.
//
// Returns:
//   - results: results[i] holds the value of futures[i] for every future retrieved
//     before the first failure
//   - error: The first failure in slice order, or an ErrNotReady error if ctx ends
func Gather[R any](ctx context.Context, futures []*Future[R]) ([]R, error) {
	results := make([]R, len(futures))
	for i, f := range futures {
		v, err := f.GetWithContext(ctx)
		if err != nil {
			return results, err
		}
		results[i] = v
	}
	return results, nil
}

// Ordered yields (position, result) pairs in slice order, blocking on each future
// in turn. Task failures are yielded, not returned, so iteration continues past
// them. If ctx ends, a final pair with an ErrNotReady error is yielded for the
// future being waited on and iteration stops.
func Ordered[R any](ctx context.Context, futures []*Future[R]) iter.Seq2[int, Result[R]] {
	return func(yield func(int, Result[R]) bool) {
		for i, f := range futures {
			v, err := f.GetWithContext(ctx)
			if !yield(i, Result[R]{Value: v, Error: err, Index: f.Index()}) {
				return
			}
			if ctx.Err() != nil && !f.IsReady() {
				return
			}
		}
	}
}

// AsCompleted yields (position, result) pairs in the order the futures resolve.
// Every future is yielded exactly once; futures must be distinct. Breaking out of
// the loop early is allowed.
//
// Example:
//
//	for i, res := range pool.AsCompleted(futures) {
//	    if res.Error != nil {
//	        log.Printf("task %d failed: %v", i, res.Error)
//	        continue
//	    }
//	    results[i] = res.Value
//	}
func AsCompleted[R any](futures []*Future[R]) iter.Seq2[int, Result[R]] {
	return func(yield func(int, Result[R]) bool) {
		c := NewCollector(futures)
		defer c.Close()
		for c.Next(context.Background()) {
			if !yield(c.Key(), c.Result()) {
				return
			}
		}
	}
}

// AsCompletedMap is AsCompleted over a future-to-key mapping, for callers that
// tag each future with their own identifier (a URL, an input number, ...).
func AsCompletedMap[K comparable, R any](futures map[*Future[R]]K) iter.Seq2[K, Result[R]] {
	return func(yield func(K, Result[R]) bool) {
		c := NewMapCollector(futures)
		defer c.Close()
		for c.Next(context.Background()) {
			if !yield(c.Key(), c.Result()) {
				return
			}
		}
	}
}

// Collector retrieves futures in completion order, scanner style.
//
// Next blocks until some not-yet-returned future resolves or ctx ends. When ctx
// ends Next returns false and Err reports an ErrNotReady error; no future is lost
// and Next may be called again with a fresh context.
//
// Example:
//
//	c := pool.NewCollector(futures)
//	defer c.Close()
//	for {
//	    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	    ok := c.Next(ctx)
//	    cancel()
//	    if !ok {
//	        break
//	    }
//	    fmt.Println(c.Key(), c.Result().Value)
//	}
//	if err := c.Err(); err != nil {
//	    // timed out with c.Remaining() futures still pending
//	}
type Collector[K comparable, R any] struct {
	keys      map[*Future[R]]K
	ready     chan *Future[R]
	stop      chan struct{}
	stopOnce  sync.Once
	remaining int

	key    K
	result Result[R]
	err    error
}

// NewCollector creates a collector keyed by each future's position in futures.
// This position map is what lets completion-order retrieval recover the original
// ordering.
func NewCollector[R any](futures []*Future[R]) *Collector[int, R] {
	keys := make(map[*Future[R]]int, len(futures))
	for i, f := range futures {
		if _, dup := keys[f]; !dup {
			keys[f] = i
		}
	}
	return NewMapCollector(keys)
}

// NewMapCollector creates a collector that reports each future under its key.
func NewMapCollector[K comparable, R any](futures map[*Future[R]]K) *Collector[K, R] {
	c := &Collector[K, R]{
		keys:      futures,
		ready:     make(chan *Future[R], len(futures)),
		stop:      make(chan struct{}),
		remaining: len(futures),
	}

	for f := range futures {
		go func() {
			select {
			case <-f.Done():
				c.ready <- f
			case <-c.stop:
			}
		}()
	}
	return c
}

// Next advances to the next resolved future. It returns false when every future
// has been returned or when ctx ends first (see Err).
func (c *Collector[K, R]) Next(ctx context.Context) bool {
	c.err = nil
	if c.remaining == 0 {
		return false
	}

	// A future that already resolved wins over an expired ctx.
	select {
	case f := <-c.ready:
		c.advance(f)
		return true
	default:
	}

	select {
	case f := <-c.ready:
		c.advance(f)
		return true
	case <-ctx.Done():
		c.err = fmt.Errorf("%w: %d futures pending: %w", ErrNotReady, c.remaining, ctx.Err())
		return false
	}
}

func (c *Collector[K, R]) advance(f *Future[R]) {
	c.remaining--
	c.key = c.keys[f]
	c.result = f.Result()
}

// Key returns the key of the future returned by the last successful Next.
func (c *Collector[K, R]) Key() K {
	return c.key
}

// Result returns the result of the future returned by the last successful Next.
func (c *Collector[K, R]) Result() Result[R] {
	return c.result
}

// Err returns the error that stopped the last Next call, if any.
func (c *Collector[K, R]) Err() error {
	return c.err
}

// Remaining returns how many futures have not been returned yet.
func (c *Collector[K, R]) Remaining() int {
	return c.remaining
}

// Close releases the goroutines watching futures that were never returned.
// The collector must not be used afterwards.
func (c *Collector[K, R]) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}
