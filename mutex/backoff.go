package mutex

import (
	"time"

	"github.com/andrewbytecoder/lockit/clock"
)

// Clock is the time source TryLockBackoff polls against.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// config configures TryLockBackoff.
type config struct {
	clock    Clock
	interval time.Duration
}

// buildConfig combines defaults with options.
func buildConfig(opts []Option) config {
	cfg := config{
		clock:    clock.New(),
		interval: time.Millisecond,
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return cfg
}

// Option configures TryLockBackoff.
type Option interface {
	apply(*config)
}

type clockOption struct {
	c Clock
}

func (o clockOption) apply(cfg *config) { cfg.clock = o.c }

// WithClock substitutes the time source. Tests use it to drive the
// polling loop with a fake clock.
func WithClock(c Clock) Option { return clockOption{c: c} }

type intervalOption time.Duration

func (o intervalOption) apply(cfg *config) { cfg.interval = time.Duration(o) }

// WithInterval sets the polling interval. The default is one millisecond.
func WithInterval(d time.Duration) Option { return intervalOption(d) }

// TryLockBackoff polls m.TryLock until it succeeds or timeout elapses,
// and reports whether the mutex was acquired. The core mutex has no
// timeout support of its own; bounded waiting is built here, outside it,
// from the non-blocking primitive plus backoff. A successful call locks
// m exactly once, so reentry from the holding goroutine returns true
// immediately at depth+1.
func TryLockBackoff(m *RecursiveMutex, timeout time.Duration, opts ...Option) bool {
	cfg := buildConfig(opts)
	deadline := cfg.clock.Now().Add(timeout)
	for {
		if m.TryLock() {
			return true
		}
		if !cfg.clock.Now().Before(deadline) {
			return false
		}
		cfg.clock.Sleep(cfg.interval)
	}
}
