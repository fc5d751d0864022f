// Package state provides lock-guarded shared values for tasks that run
// concurrently on a pool.
package state

import (
	"sync"

	"github.com/rs/zerolog"
)

// Shared is a value that concurrent tasks read and modify only through Transact.
//
// Every Transact call performs its read, compute and store while holding one
// exclusive lock, so no two transactions can observe the same previous value.
// The lock is released by a deferred unlock; a panicking transaction function
// releases it before the panic propagates.
type Shared[T any] struct {
	mu     sync.Mutex
	value  T
	logger zerolog.Logger
}

// Option configures a Shared value.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithTrace logs lock acquisition and release at debug level.
func WithTrace(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a Shared value holding initial.
func New[T any](initial T, opts ...Option) *Shared[T] {
	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return &Shared[T]{value: initial, logger: o.logger}
}

// NewCounter creates an integer counter starting at zero.
func NewCounter(opts ...Option) *Shared[int] {
	return New(0, opts...)
}

// Transact atomically replaces the value with f(current) and returns the new value.
// f runs with the lock held and must not call back into the same Shared value.
func (s *Shared[T]) Transact(f func(T) T) T {
	s.logger.Debug().Msg("acquiring lock")
	s.mu.Lock()
	defer func() {
		s.logger.Debug().Msg("releasing lock")
		s.mu.Unlock()
	}()
	s.logger.Debug().Msg("acquired lock")

	prev := s.value
	s.value = f(prev)
	s.logger.Debug().Interface("previous", prev).Interface("value", s.value).Msg("value updated")
	return s.value
}

// Load returns the current value.
func (s *Shared[T]) Load() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Increment is the transaction used by counters.
func Increment(v int) int {
	return v + 1
}
