package bridge

import (
	"context"
	"runtime"
	"time"

	"github.com/ardnew/usbmidi/pkg"
)

// Poll runs one iteration of the main loop and reports whether it did work.
//
// While the link is configured and not suspended, the USB status indicator is
// lit and the host-to-device pipeline runs before the device-to-host
// pipeline. Otherwise both pipelines are skipped. Activity indicators age on
// every iteration.
//
// Poll must only be called from the main loop goroutine.
func (b *Bridge) Poll() bool {
	state := b.usb.LinkState()
	linked := state.Linked()
	if linked != b.linked {
		b.linked = linked
		pkg.LogInfo(pkg.ComponentBridge, "link changed",
			"state", state.String(),
			"staged", b.staged,
			"inFlight", b.inFlight)
	}

	work := false
	if linked {
		b.setLinkIndicator(true)
		received := b.usbToMIDI()
		sent := b.midiToUSB()
		work = received || sent
	} else {
		b.setLinkIndicator(false)
	}

	b.ageIndicators()
	return work
}

// Run calls Poll until ctx is cancelled and returns the context error.
// Returns pkg.ErrAlreadyRunning if another Run is active.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer b.running.Store(false)

	pkg.LogDebug(pkg.ComponentBridge, "main loop started", "idle", b.cfg.Idle)

	var idle *time.Timer
	if b.cfg.Idle > 0 {
		idle = time.NewTimer(b.cfg.Idle)
		defer idle.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			pkg.LogDebug(pkg.ComponentBridge, "main loop stopped")
			return ctx.Err()
		default:
		}

		if b.Poll() {
			continue
		}
		if idle == nil {
			runtime.Gosched()
			continue
		}

		idle.Reset(b.cfg.Idle)
		select {
		case <-ctx.Done():
		case <-idle.C:
		}
	}
}

// IsRunning reports whether Run is active.
func (b *Bridge) IsRunning() bool {
	return b.running.Load()
}
