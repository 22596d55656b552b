// Package clock provides the engine's monotonic reference clock.
package clock

import "time"

// Monotonic counts 100ns units since it was created. It never returns zero,
// since a zero timestamp means "not latched" to the capture path.
type Monotonic struct {
	start time.Time
}

// New returns a clock starting now.
func New() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now implements contracts.Clock.
func (m *Monotonic) Now() uint64 {
	return uint64(time.Since(m.start)/100) + 1
}
