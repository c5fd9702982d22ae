//go:build lockdebug

package mutex

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// captureFatals installs a recording fatal handler for the duration of
// the test.
func captureFatals(t *testing.T) *fatalRecorder {
	t.Helper()
	rec := &fatalRecorder{}
	SetFatalHandler(rec.record)
	t.Cleanup(func() { SetFatalHandler(nil) })
	return rec
}

type fatalRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *fatalRecorder) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *fatalRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestInstrumented(t *testing.T) {
	var m RecursiveMutex
	require.True(t, m.Instrumented())
}

func TestAcquisitionCountSessions(t *testing.T) {
	var m RecursiveMutex

	// Two sessions, the first with reentry: reentries must not count.
	m.Lock()
	m.Lock()
	m.Unlock()
	m.Unlock()
	m.Lock()
	m.Unlock()
	require.EqualValues(t, 2, m.AcquisitionCount())

	// TryLock sessions count the same way.
	require.True(t, m.TryLock())
	m.Unlock()
	require.EqualValues(t, 3, m.AcquisitionCount())
}

func TestRecursionUsedLatch(t *testing.T) {
	var m RecursiveMutex

	m.Lock()
	require.False(t, m.RecursionUsed(), "depth 1 must not set the latch")
	m.Lock()
	require.True(t, m.RecursionUsed(), "latch must set the moment depth reaches 2")
	m.Lock()
	m.Unlock()
	m.Unlock()
	m.Unlock()

	// The latch never resets, even after the mutex is free again.
	require.True(t, m.RecursionUsed())
	m.Lock()
	m.Unlock()
	require.True(t, m.RecursionUsed())
}

func TestContentionCount(t *testing.T) {
	var m RecursiveMutex

	m.Lock()
	require.EqualValues(t, 0, m.ContentionCount(), "an uncontended Lock must not count")

	entered := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(entered)
		m.Lock() // blocks while the main goroutine holds m
		m.Unlock()
	}()

	<-entered
	// Give the second goroutine time to fail its try-lock and park.
	time.Sleep(100 * time.Millisecond)
	m.Unlock()
	<-done

	require.EqualValues(t, 1, m.ContentionCount(), "exactly the blocked Lock must count")
	require.EqualValues(t, 2, m.AcquisitionCount())
}

func TestFailedTryLockIsNotContention(t *testing.T) {
	var m RecursiveMutex

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Lock()
		close(held)
		<-release
		m.Unlock()
	}()
	<-held

	require.False(t, m.TryLock())
	require.EqualValues(t, 0, m.ContentionCount())

	close(release)
	<-done
}

func TestRecursionCountUnheldIsFatal(t *testing.T) {
	rec := captureFatals(t)

	var m RecursiveMutex
	count := m.RecursionCount()

	msgs := rec.all()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "RecursionCount called while the mutex is unheld")
	require.Zero(t, count)

	// The probe must leave the mutex free and uncounted.
	require.True(t, m.TryLock())
	m.Unlock()
	require.EqualValues(t, 1, m.AcquisitionCount())
	require.EqualValues(t, 0, m.ContentionCount())
}

func TestUnlockUnheldIsFatal(t *testing.T) {
	rec := captureFatals(t)

	var m RecursiveMutex
	m.Unlock()

	msgs := rec.all()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "not held by this goroutine")

	// The early return must leave the mutex usable.
	m.Lock()
	require.Equal(t, 1, m.RecursionCount())
	m.Unlock()
}

func TestUnlockByNonOwnerIsFatal(t *testing.T) {
	rec := captureFatals(t)

	var m RecursiveMutex
	m.Lock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Unlock()
	}()
	<-done

	msgs := rec.all()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "not held by this goroutine")
	require.Equal(t, 1, m.RecursionCount())
	m.Unlock()
}

func TestUnlockAllUnheldIsFatal(t *testing.T) {
	rec := captureFatals(t)

	var m RecursiveMutex
	u := UnlockAll(&m)
	u.Relock()

	msgs := rec.all()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "unheld")
}

func TestDefaultHandlerLogsAndPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	var m RecursiveMutex
	require.Panics(t, func() { m.Unlock() })
	require.Equal(t, 1, logs.Len())
	require.Contains(t, logs.All()[0].Message, "not held by this goroutine")
}

func TestCollectedWhileLockedIsFatal(t *testing.T) {
	fired := make(chan string, 1)
	SetFatalHandler(func(msg string) {
		select {
		case fired <- msg:
		default:
		}
	})
	t.Cleanup(func() { SetFatalHandler(nil) })

	func() {
		m := New()
		m.Lock()
		// m leaks here while locked.
	}()

	deadline := time.After(2 * time.Second)
	for {
		runtime.GC()
		select {
		case msg := <-fired:
			require.Contains(t, msg, "collected while locked")
			return
		case <-deadline:
			t.Fatal("finalizer never reported the locked leak")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
