// Package clock provides a clock service as an alternative to using the standard
// time package, so that the creation date written into Compact RINEX headers can be
// fixed in tests.
package clock

import "time"

// Clock yields the current time. In a real application Now returns the system
// time, in tests a chosen value.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock whose Now method returns the system time in UTC.
type SystemClock struct{}

var _ Clock = SystemClock{}

// Now returns the system time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// StoppedClock is a Clock that implements unchanging time.
type StoppedClock struct {
	time time.Time
}

var _ Clock = (*StoppedClock)(nil)

// NewStoppedClock creates a StoppedClock.
func NewStoppedClock(year int, month time.Month, day, hour, minute, second, nanosecond int, location *time.Location) *StoppedClock {
	return &StoppedClock{time: time.Date(year, month, day, hour, minute, second, nanosecond, location)}
}

// SetTime sets a new unchanging time.
func (c *StoppedClock) SetTime(t time.Time) {
	c.time = t
}

// Now always returns the same time.
func (c *StoppedClock) Now() time.Time {
	return c.time
}
