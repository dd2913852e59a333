package interact

import "time"

// Clock abstracts time for the click/double-click window so tests can run
// the state machine against a fake clock instead of sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FakeClock is a manually advanced clock for tests.
type FakeClock struct {
	Current time.Time
}

// Now returns the fake current time.
func (f *FakeClock) Now() time.Time { return f.Current }

// Advance moves the fake clock forward by d.
func (f *FakeClock) Advance(d time.Duration) { f.Current = f.Current.Add(d) }
