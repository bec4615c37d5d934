package hal

import "sync/atomic"

// MaxPacketSize is the bulk endpoint size of the MIDI streaming interface.
// One transfer carries up to 16 USB-MIDI event packets.
const MaxPacketSize = 64

// LinkState represents the USB link as seen by the device.
type LinkState uint8

// Link states.
const (
	LinkUnconfigured LinkState = iota // Detached, default, or addressed
	LinkConfigured                    // Configured by the host
	LinkSuspended                     // Configured but bus suspended
)

// String returns a human-readable link state name.
func (s LinkState) String() string {
	switch s {
	case LinkUnconfigured:
		return "unconfigured"
	case LinkConfigured:
		return "configured"
	case LinkSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Linked reports whether the pipelines may run: configured and not suspended.
func (s LinkState) Linked() bool {
	return s == LinkConfigured
}

// Owner identifies which side may touch a Transfer's buffer.
type Owner uint32

// Transfer owners.
const (
	OwnerApp   Owner = iota // The bridge may read or fill the buffer
	OwnerStack              // The USB stack holds the buffer; hands off
)

// String returns the owner name.
func (o Owner) String() string {
	if o == OwnerStack {
		return "stack"
	}
	return "app"
}

// Transfer is a fixed-size bulk transfer buffer with an explicit owner flag.
//
// Ownership moves from the application to the USB stack with Handoff, which
// the adapter calls when a transfer is armed or submitted, and back with
// Complete, which the adapter calls from its interrupt context once the
// hardware is done with the buffer. Data may only be touched by the current
// owner; Owner and Busy are safe to call from any context.
type Transfer struct {
	Data   [MaxPacketSize]byte
	length atomic.Uint32
	owner  atomic.Uint32
}

// Owner returns the current owner.
func (t *Transfer) Owner() Owner {
	return Owner(t.owner.Load())
}

// Busy reports whether the USB stack owns the transfer.
func (t *Transfer) Busy() bool {
	return t.Owner() == OwnerStack
}

// Len returns the number of valid bytes in Data.
func (t *Transfer) Len() int {
	return int(t.length.Load())
}

// SetLen sets the number of valid bytes, clamped to MaxPacketSize.
func (t *Transfer) SetLen(n int) {
	if n < 0 {
		n = 0
	}
	if n > MaxPacketSize {
		n = MaxPacketSize
	}
	t.length.Store(uint32(n))
}

// Bytes returns the valid portion of Data.
func (t *Transfer) Bytes() []byte {
	return t.Data[:t.Len()]
}

// Handoff passes the transfer to the USB stack.
// Returns false if the stack already owns it.
func (t *Transfer) Handoff() bool {
	return t.owner.CompareAndSwap(uint32(OwnerApp), uint32(OwnerStack))
}

// Complete returns the transfer to the application with n valid bytes.
// Returns false if the application already owns it.
func (t *Transfer) Complete(n int) bool {
	if t.Owner() != OwnerStack {
		return false
	}
	t.SetLen(n)
	return t.owner.CompareAndSwap(uint32(OwnerStack), uint32(OwnerApp))
}

// Release forces the transfer back to the application without data.
// Adapters call it when a bus reset cancels everything in flight.
func (t *Transfer) Release() {
	t.length.Store(0)
	t.owner.Store(uint32(OwnerApp))
}

// USB is the bulk MIDI endpoint pair of a USB device stack.
//
// ArmOut and SubmitIn are called from the main loop. Service is called from
// the interrupt dispatcher and is where an implementation completes transfers.
type USB interface {
	// Service processes pending USB events. Called in interrupt context.
	Service()

	// LinkState returns the current link state.
	LinkState() LinkState

	// ArmOut hands a receive transfer to the stack for the next OUT data.
	// Returns pkg.ErrBusy if the transfer is already armed.
	ArmOut(t *Transfer) error

	// SubmitIn hands a filled transfer to the stack for sending to the host.
	// Returns pkg.ErrBusy if the transfer is already in flight.
	SubmitIn(t *Transfer) error
}

// Serial is a buffered UART carrying raw MIDI bytes.
//
// ReadByte and WriteByte never block. The interrupt dispatcher calls Service
// to move bytes between the hardware and the adapter's rings.
type Serial interface {
	// Service moves bytes between hardware and the rings.
	Service()

	// Buffered returns the number of received bytes ready to read.
	Buffered() int

	// ReadByte returns the next received byte, or pkg.ErrBufferEmpty.
	ReadByte() (byte, error)

	// WriteByte queues one byte for transmission, or returns pkg.ErrBufferFull.
	WriteByte(b byte) error

	// TxPending returns the number of queued bytes not yet transmitted.
	TxPending() int
}

// Timer is a periodic tick source with an overflow flag.
type Timer interface {
	// Overflowed reports whether the timer has overflowed since the last Ack.
	Overflowed() bool

	// Ack clears the overflow flag.
	Ack()
}

// Pin identifies an activity indicator output.
type Pin uint8

// Indicator pins.
const (
	PinUSB     Pin = iota // USB link status
	PinMIDIIn             // Serial to host traffic
	PinMIDIOut            // Host to serial traffic
	NumPins
)

// String returns the pin name.
func (p Pin) String() string {
	switch p {
	case PinUSB:
		return "usb"
	case PinMIDIIn:
		return "midi-in"
	case PinMIDIOut:
		return "midi-out"
	default:
		return "unknown"
	}
}

// Pins drives the indicator outputs.
type Pins interface {
	SetPin(p Pin)
	ClearPin(p Pin)
	ReadPin(p Pin) bool
}

// NopPins discards indicator writes.
type NopPins struct{}

func (NopPins) SetPin(Pin)       {}
func (NopPins) ClearPin(Pin)     {}
func (NopPins) ReadPin(Pin) bool { return false }
