package core

import "time"

// HardwareIO defines the output side of the board needed by BodyControlSystem
type HardwareIO interface {
	Initialize() error
	Cleanup()
	WriteDigitalOutput(channel string, value bool) error
}

// Clock is a monotonic time source measured from system start.
type Clock interface {
	Now() time.Duration
}

type monotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a Clock starting at zero now.
func NewMonotonicClock() Clock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) Now() time.Duration {
	return time.Since(c.start)
}
