//go:build lockdebug

package mutex

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/petermattis/goid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// RecursiveMutex wraps sync.Mutex with a recursion depth so the holding
// goroutine may lock it again. The zero value is ready to use.
//
// This is the lockdebug build: it keeps lifetime counters, a recursion
// latch and the holder's goroutine id, and fires the fatal handler on
// contract violations. The counters are atomics so lockstat can sample
// them without holding the lock; recursion itself is mutated only while
// mu is held.
type RecursiveMutex struct {
	mu sync.Mutex

	// owner is the id of the goroutine holding mu, 0 when free. Written
	// only by the goroutine holding mu.
	owner atomic.Int64

	// recursion is read and written only while the mutating goroutine
	// holds mu; mu is the synchronization for its own metadata.
	recursion int32

	// acquisitions counts depth 0->1 transitions: lock sessions, not
	// reentries.
	acquisitions atomic.Int64

	// contentions counts Lock calls that could not be satisfied by an
	// immediate TryLock and had to block.
	contentions atomic.Int64

	// recursionUsed latches to true the first time the depth reaches 2
	// and never resets.
	recursionUsed atomic.Bool
}

var (
	logMu  sync.Mutex
	logger = zap.NewNop()

	// onFatal is invoked on every invariant violation. The default logs
	// and panics; tests install a recording handler.
	onFatal = defaultFatal
	fatalMu sync.Mutex
)

func defaultFatal(msg string) {
	logMu.Lock()
	l := logger
	logMu.Unlock()
	l.Error(msg)
	panic(msg)
}

// SetLogger routes fatal-assertion reports through l. Instrumented
// builds only.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}

// SetFatalHandler replaces the handler invoked on invariant violations.
// A nil handler restores the default, which logs and panics.
// Instrumented builds only.
func SetFatalHandler(f func(msg string)) {
	fatalMu.Lock()
	defer fatalMu.Unlock()
	if f == nil {
		f = defaultFatal
	}
	onFatal = f
}

func fatalf(format string, args ...any) {
	fatalMu.Lock()
	f := onFatal
	fatalMu.Unlock()
	f(fmt.Sprintf(format, args...))
}

// New returns a RecursiveMutex that additionally checks, when garbage
// collected, that it is no longer held. The zero value works but skips
// that check.
func New() *RecursiveMutex {
	m := new(RecursiveMutex)
	runtime.SetFinalizer(m, finalizeCheck)
	return m
}

func finalizeCheck(m *RecursiveMutex) {
	if !m.mu.TryLock() {
		fatalf("mutex: RecursiveMutex collected while locked (holder goroutine %d)", m.owner.Load())
		return
	}
	count := m.recursion
	m.mu.Unlock()
	if count != 0 {
		fatalf("mutex: RecursiveMutex collected with recursion depth %d", count)
	}
}

// Lock acquires the mutex, blocking until it is free. A goroutine that
// already holds the mutex reenters immediately; every Lock must be paired
// with an Unlock.
func (m *RecursiveMutex) Lock() {
	gid := goid.Get()
	if m.owner.Load() == gid {
		m.recursion++
		if m.recursion == 2 && !m.recursionUsed.Load() {
			m.recursionUsed.Store(true)
		}
		return
	}
	if !m.mu.TryLock() {
		// We have contention.
		m.mu.Lock()
		m.contentions.Inc()
	}
	m.owner.Store(gid)
	m.recursion++
	m.acquisitions.Inc()
}

// Unlock releases one level of the hold. The caller must hold the mutex.
// The underlying mutex is released when the depth returns to zero.
func (m *RecursiveMutex) Unlock() {
	gid := goid.Get()
	if owner := m.owner.Load(); owner != gid {
		fatalf("mutex: Unlock of RecursiveMutex not held by this goroutine (holder %d, caller %d)", owner, gid)
		return
	}
	m.recursion--
	if m.recursion < 0 {
		fatalf("mutex: Unlock drove recursion depth below zero (%d)", m.recursion)
		return
	}
	if m.recursion == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}

// TryLock acquires the mutex without blocking and reports whether it
// succeeded. Reentry by the holding goroutine always succeeds. A failed
// TryLock is ordinary contention, not a defect, and is not counted.
func (m *RecursiveMutex) TryLock() bool {
	gid := goid.Get()
	if m.owner.Load() == gid {
		m.recursion++
		if m.recursion == 2 && !m.recursionUsed.Load() {
			m.recursionUsed.Store(true)
		}
		return true
	}
	if !m.mu.TryLock() {
		return false
	}
	m.owner.Store(gid)
	m.recursion++
	m.acquisitions.Inc()
	return true
}

// RecursionCount returns the current recursion depth. The caller must
// hold the mutex; called from a non-holding goroutine the result is
// undefined.
//
// The instrumented build probes the underlying mutex to validate the
// precondition: a successful try-lock proves no goroutine held the mutex
// at all, which fires the fatal handler. The probe goes straight to the
// underlying mutex, leaves net lock state unchanged and is not counted
// as an acquisition or contention. A call from a goroutine other than
// the holder cannot be told apart from the holder here and is documented
// as undefined rather than asserted.
func (m *RecursiveMutex) RecursionCount() int {
	if m.mu.TryLock() {
		count := m.recursion
		m.mu.Unlock()
		fatalf("mutex: RecursionCount called while the mutex is unheld")
		return int(count)
	}
	return int(m.recursion)
}

// HolderID returns the id of the goroutine holding the mutex, or 0 when
// it is free.
func (m *RecursiveMutex) HolderID() int64 {
	return m.owner.Load()
}

// AcquisitionCount returns the lifetime number of depth 0->1 transitions.
func (m *RecursiveMutex) AcquisitionCount() int64 {
	return m.acquisitions.Load()
}

// ContentionCount returns the lifetime number of Lock calls that had to
// block.
func (m *RecursiveMutex) ContentionCount() int64 {
	return m.contentions.Load()
}

// RecursionUsed reports whether the mutex has ever been held recursively.
func (m *RecursiveMutex) RecursionUsed() bool {
	return m.recursionUsed.Load()
}

// Instrumented reports whether this build carries the lockdebug
// instrumentation.
func (m *RecursiveMutex) Instrumented() bool { return true }
