package sim

import "sync/atomic"

// Timer is a hal.Timer whose overflow is raised by the test.
type Timer struct {
	overflow atomic.Bool
}

// Fire raises the overflow flag.
func (t *Timer) Fire() {
	t.overflow.Store(true)
}

// Overflowed reports whether Fire was called since the last Ack.
func (t *Timer) Overflowed() bool {
	return t.overflow.Load()
}

// Ack clears the overflow flag.
func (t *Timer) Ack() {
	t.overflow.Store(false)
}
