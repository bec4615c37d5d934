package bridge

import (
	"context"
	"time"

	"github.com/ardnew/usbmidi/pkg"
)

// Interrupt is the high-priority interrupt handler. It services the USB stack,
// then the UART, then advances the activity tick if the timer overflowed.
//
// Interrupt must not run concurrently with itself.
func (b *Bridge) Interrupt() {
	b.usb.Service()
	b.serial.Service()
	if b.timer != nil && b.timer.Overflowed() {
		b.timer.Ack()
		b.ticks.Add(1)
	}
}

// LowPriorityInterrupt is the low-priority interrupt handler. Nothing is
// routed to it.
func (b *Bridge) LowPriorityInterrupt() {}

// Ticks returns the activity tick count.
func (b *Bridge) Ticks() uint32 {
	return b.ticks.Load()
}

// RunInterrupts calls Interrupt every period until ctx is cancelled, standing
// in for the interrupt controller on hosts. Returns the context error.
func (b *Bridge) RunInterrupts(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return pkg.ErrInvalidParameter
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.Interrupt()
		}
	}
}
