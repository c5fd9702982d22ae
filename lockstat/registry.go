// Package lockstat exposes the diagnostic counters of registered
// RecursiveMutex instances to telemetry: a named-lock registry, a text
// dump, and a Prometheus collector.
//
// In non-instrumented builds the counters read as zero; lockstat itself
// is build-tag free.
package lockstat

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/andrewbytecoder/lockit/mutex"
)

// Registry tracks RecursiveMutex instances by name.
type Registry struct {
	mu    sync.RWMutex
	locks map[string]*mutex.RecursiveMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*mutex.RecursiveMutex)}
}

var defaultRegistry = NewRegistry()

// Default returns the package-level registry used by the package
// functions.
func Default() *Registry {
	return defaultRegistry
}

// Register adds m under name. Registering a name twice is an error.
func (r *Registry) Register(name string, m *mutex.RecursiveMutex) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[name]; ok {
		return fmt.Errorf("lockstat: mutex %q already registered", name)
	}
	r.locks[name] = m
	return nil
}

// MustRegister is Register but panics on error.
func (r *Registry) MustRegister(name string, m *mutex.RecursiveMutex) {
	if err := r.Register(name, m); err != nil {
		panic(err)
	}
}

// Unregister removes the mutex registered under name, if any.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, name)
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.locks))
	for name := range r.locks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type namedLock struct {
	name string
	m    *mutex.RecursiveMutex
}

// snapshot returns the registered locks sorted by name for consistent
// output.
func (r *Registry) snapshot() []namedLock {
	r.mu.RLock()
	defer r.mu.RUnlock()
	locks := make([]namedLock, 0, len(r.locks))
	for name, m := range r.locks {
		locks = append(locks, namedLock{name: name, m: m})
	}
	sort.Slice(locks, func(i, j int) bool {
		return locks[i].name < locks[j].name
	})
	return locks
}

// Dump returns a human-readable report of every registered mutex.
func (r *Registry) Dump() string {
	locks := r.snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "=== lockit mutex stats (%d registered) ===\n", len(locks))
	for _, nl := range locks {
		fmt.Fprintf(&b, "%s: acquisitions=%d contentions=%d recursion_used=%v holder=%d\n",
			nl.name,
			nl.m.AcquisitionCount(),
			nl.m.ContentionCount(),
			nl.m.RecursionUsed(),
			nl.m.HolderID())
	}
	return b.String()
}

// Register adds m to the default registry.
func Register(name string, m *mutex.RecursiveMutex) error {
	return defaultRegistry.Register(name, m)
}

// MustRegister adds m to the default registry and panics on error.
func MustRegister(name string, m *mutex.RecursiveMutex) {
	defaultRegistry.MustRegister(name, m)
}

// Unregister removes name from the default registry.
func Unregister(name string) {
	defaultRegistry.Unregister(name)
}

// Dump reports on the default registry.
func Dump() string {
	return defaultRegistry.Dump()
}
