// Package multicore runs secondary cores as goroutines and gives them the
// primitives they use to coordinate with the primary core.
package multicore

import (
	"context"
	"sync"
	"sync/atomic"
)

// A Flag is set once by one core and waited on by others. Everything the
// setter wrote before Set is visible to a waiter once Wait returns.
type Flag struct {
	once  sync.Once
	set   chan struct{}
	value atomic.Uint64
}

// NewFlag creates a clear flag.
func NewFlag() *Flag {
	return &Flag{set: make(chan struct{})}
}

// Set publishes value and releases all waiters. Only the first call has an
// effect.
func (f *Flag) Set(value uint64) {
	f.once.Do(func() {
		f.value.Store(value)
		close(f.set)
	})
}

// IsSet tells if the flag has been set, without waiting.
func (f *Flag) IsSet() bool {
	select {
	case <-f.set:
		return true
	default:
		return false
	}
}

// Wait blocks until the flag is set and returns the published value.
func (f *Flag) Wait(ctx context.Context) (uint64, error) {
	select {
	case <-f.set:
		return f.value.Load(), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
