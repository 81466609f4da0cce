package state

import "time"

// Clock supplies the current simulated time in seconds. Time is owned by
// the scheduler driving the protocol; a live run falls back to wall time
// measured from process start.
type Clock interface {
	Now() float64
}

type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// ManualClock is advanced explicitly by a harness.
type ManualClock struct {
	T float64
}

func (c *ManualClock) Now() float64 {
	return c.T
}

func (c *ManualClock) Advance(dt float64) {
	c.T += dt
}
