// Package clock provides an injectable time source so that timer-driven
// code can run against the wall clock in production and against a
// deterministic fake in tests.
//
// Components that schedule work hold a Clock field instead of calling
// time.Now or time.AfterFunc directly:
//
//	s := &Scheduler{clock: clock.Real()}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	s := &Scheduler{clock: c}
//	c.Advance(time.Minute) // fires due timers synchronously
package clock

import "time"

// Clock abstracts the time operations used by the save widget.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for d, then calls f. The returned Timer can
	// cancel the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable one-shot scheduled call.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the
	// timer already fired or was already stopped.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
