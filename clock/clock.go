// Package clock abstracts the wall clock so polling code can be driven by
// a fake time source in tests.
package clock

import (
	"time"
)

// Clock is the subset of time operations lockit needs.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration

	// Sleep pauses the calling goroutine for d.
	Sleep(d time.Duration)

	// After returns a channel that delivers the current time after d.
	After(d time.Duration) <-chan time.Time

	// NewTimer returns a timer that fires after d.
	NewTimer(d time.Duration) *time.Timer
}

// New returns a Clock backed by the system clock.
func New() Clock {
	return SystemClock{}
}

// SystemClock implements Clock using the time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (SystemClock) NewTimer(d time.Duration) *time.Timer {
	return time.NewTimer(d)
}
