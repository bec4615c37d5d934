package hal

import (
	"sync/atomic"
	"time"
)

// ClockTimer is a Timer that overflows once per period of wall time.
// Missed periods are caught up one Ack at a time.
type ClockTimer struct {
	period time.Duration
	next   atomic.Int64
}

// NewClockTimer creates a timer with the given period. A non-positive
// period selects one millisecond.
func NewClockTimer(period time.Duration) *ClockTimer {
	if period <= 0 {
		period = time.Millisecond
	}
	t := &ClockTimer{period: period}
	t.next.Store(time.Now().Add(period).UnixNano())
	return t
}

// Overflowed reports whether the current period has elapsed.
func (t *ClockTimer) Overflowed() bool {
	return time.Now().UnixNano() >= t.next.Load()
}

// Ack starts the next period.
func (t *ClockTimer) Ack() {
	t.next.Add(int64(t.period))
}
