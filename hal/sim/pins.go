package sim

import (
	"sync"

	"github.com/ardnew/usbmidi/hal"
)

// Pins records indicator state and counts rising edges.
type Pins struct {
	mu       sync.Mutex
	level    [hal.NumPins]bool
	pulses   [hal.NumPins]int
	onChange func(hal.Pin, bool)
}

// SetPin drives p high.
func (p *Pins) SetPin(pin hal.Pin) {
	p.set(pin, true)
}

// ClearPin drives p low.
func (p *Pins) ClearPin(pin hal.Pin) {
	p.set(pin, false)
}

// ReadPin returns the level of p.
func (p *Pins) ReadPin(pin hal.Pin) bool {
	if pin >= hal.NumPins {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level[pin]
}

// Pulses returns the number of low-to-high transitions of p.
func (p *Pins) Pulses(pin hal.Pin) int {
	if pin >= hal.NumPins {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pulses[pin]
}

// OnChange installs a hook called on every level change.
func (p *Pins) OnChange(fn func(hal.Pin, bool)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

func (p *Pins) set(pin hal.Pin, high bool) {
	if pin >= hal.NumPins {
		return
	}
	p.mu.Lock()
	changed := p.level[pin] != high
	p.level[pin] = high
	if changed && high {
		p.pulses[pin]++
	}
	hook := p.onChange
	p.mu.Unlock()

	if changed && hook != nil {
		hook(pin, high)
	}
}
