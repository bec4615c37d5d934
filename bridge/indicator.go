package bridge

import "github.com/ardnew/usbmidi/hal"

// indicator stretches short bursts of activity into a visible pulse.
type indicator struct {
	lit  bool
	last uint32 // tick of the most recent activity
}

// pulse lights an activity indicator and restarts its hold time.
func (b *Bridge) pulse(p hal.Pin) {
	ind := &b.indicators[p]
	ind.last = b.ticks.Load()
	if !ind.lit {
		ind.lit = true
		b.pins.SetPin(p)
	}
}

// ageIndicators turns off activity indicators whose hold time has elapsed.
// Tick arithmetic is modular, so wraparound of the counter is harmless.
func (b *Bridge) ageIndicators() {
	now := b.ticks.Load()
	for _, p := range [...]hal.Pin{hal.PinMIDIIn, hal.PinMIDIOut} {
		ind := &b.indicators[p]
		if ind.lit && now-ind.last >= b.cfg.ActivityHold {
			ind.lit = false
			b.pins.ClearPin(p)
		}
	}
}

// setLinkIndicator drives the USB status indicator.
func (b *Bridge) setLinkIndicator(on bool) {
	ind := &b.indicators[hal.PinUSB]
	if ind.lit == on {
		return
	}
	ind.lit = on
	if on {
		b.pins.SetPin(hal.PinUSB)
	} else {
		b.pins.ClearPin(hal.PinUSB)
	}
}
