package multicore

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a busy-waiting lock. The zero value is unlocked.
type SpinLock struct {
	state atomic.Uint32
}

// Lock acquires the lock.
func (l *SpinLock) Lock() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

// TryLock acquires the lock if it is free and tells if it did.
func (l *SpinLock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock.
func (l *SpinLock) Unlock() {
	if !l.state.CompareAndSwap(1, 0) {
		panic("unlock of unlocked spinlock")
	}
}
