package algorithms

import (
	"math/rand/v2"
	"sync"
	"time"
)

// maxShift prevents overflow in the exponential calculation.
const maxShift = 62

// Kind selects the retry backoff algorithm.
type Kind int

const (
	// Exponential doubles the delay after every failed attempt (default).
	Exponential Kind = iota
	// Jittered is Exponential with a random ± jitter to spread out retries of
	// tasks that failed at the same moment.
	Jittered
	// Constant waits the initial delay before every retry.
	Constant
	// Decorrelated picks each delay at random between the initial delay and three
	// times the previous one (AWS-style decorrelated jitter).
	Decorrelated
)

// BackoffStrategy computes how long to wait before a retry.
// attempt is 0-indexed: 0 is the first retry after the initial failure.
// Implementations must be safe for concurrent use by all workers.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// New builds the strategy for kind. maxDelay <= 0 leaves delays uncapped and
// jitter is clamped to [0, 1].
func New(kind Kind, initialDelay, maxDelay time.Duration, jitter float64) BackoffStrategy {
	if maxDelay <= 0 {
		maxDelay = time.Duration(1<<63 - 1)
	}

	switch kind {
	case Jittered:
		return jitteredBackoff{initial: initialDelay, max: maxDelay, factor: clamp(jitter, 0, 1)}
	case Constant:
		return constantBackoff{delay: min(initialDelay, maxDelay)}
	case Decorrelated:
		return &decorrelatedBackoff{initial: initialDelay, max: maxDelay, prev: initialDelay}
	default:
		return exponentialBackoff{initial: initialDelay, max: maxDelay}
	}
}

type exponentialBackoff struct {
	initial, max time.Duration
}

// NextDelay returns initial * 2^attempt, capped at max.
func (b exponentialBackoff) NextDelay(attempt int) time.Duration {
	return exponentialDelay(attempt, b.initial, b.max)
}

type jitteredBackoff struct {
	initial, max time.Duration
	factor       float64
}

// NextDelay returns the exponential delay scaled by a random factor in
// [1-factor, 1+factor], capped at max.
func (b jitteredBackoff) NextDelay(attempt int) time.Duration {
	base := exponentialDelay(attempt, b.initial, b.max)
	if base == 0 || b.factor == 0 {
		return base
	}

	// #nosec G404 -- crypto rand not needed for backoff jitter
	multiplier := 1.0 + (rand.Float64()*2-1)*b.factor
	return clamp(time.Duration(float64(base)*multiplier), 0, b.max)
}

type constantBackoff struct {
	delay time.Duration
}

func (b constantBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	return b.delay
}

// decorrelatedBackoff derives each delay from the previous one, so the state is
// shared by every task retried through the same pool.
// Sleep = min(max, random(initial, prev*3))
type decorrelatedBackoff struct {
	initial, max time.Duration

	mu   sync.Mutex
	prev time.Duration
}

func (b *decorrelatedBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 || b.initial <= 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if attempt == 0 {
		b.prev = min(b.initial, b.max)
		return b.prev
	}

	upper := b.max
	if b.prev <= b.max/3 {
		upper = b.prev * 3
	}

	span := upper - b.initial
	if span <= 0 {
		b.prev = min(b.initial, b.max)
		return b.prev
	}

	// #nosec G404 -- crypto rand not needed for backoff jitter
	b.prev = b.initial + rand.N(span)
	return b.prev
}

func exponentialDelay(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt < 0 || initial <= 0 {
		return 0
	}
	if attempt >= maxShift {
		return maxDelay
	}

	factor := time.Duration(int64(1) << uint(attempt))
	if initial > maxDelay/factor {
		return maxDelay
	}
	return initial * factor
}

func clamp[T int64 | float64 | time.Duration](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
