// Package mutex provides a recursive mutual-exclusion lock with optional,
// compile-time-selected instrumentation.
//
// RecursiveMutex layers an explicit recursion depth over sync.Mutex: the
// goroutine holding the mutex may lock it again and must unlock once per
// lock. Builds tagged lockdebug additionally maintain acquisition and
// contention counters, a one-way recursion-used latch, and fatal
// assertions on contract violations. Untagged builds carry none of that
// state, so the production lock costs the native sync.Mutex operation
// plus one integer update.
//
// FullUnlock temporarily gives up a recursive hold across all nesting
// levels, for example to let other goroutines make progress while the
// holder waits, and restores the original depth afterwards.
package mutex
