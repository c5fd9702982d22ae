//go:build !lockdebug

package mutex

import (
	"sync"

	"github.com/petermattis/goid"
	"go.uber.org/atomic"
)

// RecursiveMutex wraps sync.Mutex with a recursion depth so the holding
// goroutine may lock it again. The zero value is ready to use.
//
// This is the production build: no instrumentation and no branching on
// debug state.
type RecursiveMutex struct {
	mu sync.Mutex

	// owner is the id of the goroutine holding mu, 0 when free. Written
	// only by the goroutine holding mu.
	owner atomic.Int64

	// recursion is read and written only while the mutating goroutine
	// holds mu; mu is the synchronization for its own metadata.
	recursion int32
}

// New returns a ready-to-use RecursiveMutex. The zero value works too;
// New only differs in instrumented builds, where it arms the
// collected-while-locked check.
func New() *RecursiveMutex {
	return new(RecursiveMutex)
}

// Lock acquires the mutex, blocking until it is free. A goroutine that
// already holds the mutex reenters immediately; every Lock must be paired
// with an Unlock.
func (m *RecursiveMutex) Lock() {
	gid := goid.Get()
	if m.owner.Load() == gid {
		m.recursion++
		return
	}
	m.mu.Lock()
	m.owner.Store(gid)
	m.recursion++
}

// Unlock releases one level of the hold. The caller must hold the mutex;
// unlocking an unheld RecursiveMutex leaves it in an undefined state.
// The underlying mutex is released when the depth returns to zero.
func (m *RecursiveMutex) Unlock() {
	m.recursion--
	if m.recursion == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}

// TryLock acquires the mutex without blocking and reports whether it
// succeeded. Reentry by the holding goroutine always succeeds.
func (m *RecursiveMutex) TryLock() bool {
	gid := goid.Get()
	if m.owner.Load() == gid {
		m.recursion++
		return true
	}
	if !m.mu.TryLock() {
		return false
	}
	m.owner.Store(gid)
	m.recursion++
	return true
}

// RecursionCount returns the current recursion depth. The caller must
// hold the mutex; called from a non-holding goroutine the result is
// undefined.
func (m *RecursiveMutex) RecursionCount() int {
	return int(m.recursion)
}

// HolderID returns the id of the goroutine holding the mutex, or 0 when
// it is free.
func (m *RecursiveMutex) HolderID() int64 {
	return m.owner.Load()
}

// AcquisitionCount always returns 0 in non-instrumented builds.
func (m *RecursiveMutex) AcquisitionCount() int64 { return 0 }

// ContentionCount always returns 0 in non-instrumented builds.
func (m *RecursiveMutex) ContentionCount() int64 { return 0 }

// RecursionUsed always returns false in non-instrumented builds.
func (m *RecursiveMutex) RecursionUsed() bool { return false }

// Instrumented reports whether this build carries the lockdebug
// instrumentation.
func (m *RecursiveMutex) Instrumented() bool { return false }
