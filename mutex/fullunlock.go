package mutex

// FullUnlock holds the state needed to restore a recursive hold that was
// given up across all nesting levels. It is built purely on the public
// RecursiveMutex contract.
//
// Typical use is waiting while deep in a recursive hold: drop the whole
// hold so other goroutines can take the mutex, wait, then restore the
// original depth so callers further up the stack see their locks intact.
//
//	u := mutex.UnlockAll(m)
//	<-signal
//	u.Relock()
type FullUnlock struct {
	m            *RecursiveMutex
	releaseCount int
}

// UnlockAll fully releases a RecursiveMutex held by the calling goroutine,
// however deep the recursion, and returns a FullUnlock that restores the
// original depth. The caller must hold m; in instrumented builds an
// unheld m fires the fatal handler.
func UnlockAll(m *RecursiveMutex) *FullUnlock {
	// Fetch the depth before the first release.
	count := m.RecursionCount()
	u := &FullUnlock{m: m}
	for ; count > 0; count-- {
		u.releaseCount++
		m.Unlock()
	}
	return u
}

// Relock reacquires the mutex once per level released by UnlockAll,
// restoring the original recursion depth. Each reacquire may block while
// other goroutines hold the mutex; that is the intended effect. Calling
// Relock again is a no-op.
func (u *FullUnlock) Relock() {
	for u.releaseCount > 0 {
		u.releaseCount--
		u.m.Lock()
	}
}
