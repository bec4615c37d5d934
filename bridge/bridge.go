package bridge

import (
	"sync/atomic"
	"time"

	"github.com/ardnew/usbmidi/hal"
	"github.com/ardnew/usbmidi/midi"
	"github.com/ardnew/usbmidi/pkg"
)

// PacketsPerTransfer is the number of event packets one bulk transfer holds.
const PacketsPerTransfer = hal.MaxPacketSize / midi.PacketSize

// Default configuration values.
const (
	DefaultWriteRetries = 32
	DefaultActivityHold = 25
)

// Config holds bridge tunables. Zero fields take their defaults in New.
type Config struct {
	// Cable is the USB-MIDI virtual cable served by the bridge. Packets for
	// any other cable are counted as malformed and dropped.
	Cable uint8

	// WriteRetries bounds the attempts to queue one byte on a congested UART
	// before it is dropped.
	WriteRetries int

	// ActivityHold is how many timer ticks an activity indicator stays lit
	// after the last packet.
	ActivityHold uint32

	// Idle is how long Run sleeps after an iteration that did no work.
	// Zero yields the processor instead of sleeping.
	Idle time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Cable:        0,
		WriteRetries: DefaultWriteRetries,
		ActivityHold: DefaultActivityHold,
	}
}

func (c Config) withDefaults() Config {
	c.Cable &= 0x0F
	if c.WriteRetries <= 0 {
		c.WriteRetries = DefaultWriteRetries
	}
	if c.ActivityHold == 0 {
		c.ActivityHold = DefaultActivityHold
	}
	if c.Idle < 0 {
		c.Idle = 0
	}
	return c
}

// Stats is a snapshot of bridge counters.
type Stats struct {
	PacketsToSerial    uint64 // Event packets decoded from the host
	BytesToSerial      uint64 // MIDI bytes queued on the UART
	PacketsToHost      uint64 // Event packets staged for the host
	BytesToHost        uint64 // MIDI bytes carried by those packets
	Malformed          uint64 // Host packets skipped as unusable
	SerialDropped      uint64 // Bytes dropped on a congested UART
	TransfersReceived  uint64 // Non-empty OUT transfers consumed
	TransfersSubmitted uint64 // IN transfers handed to the stack
	InHolds            uint64 // Flushes deferred while an IN transfer was in flight
}

type counters struct {
	packetsToSerial    atomic.Uint64
	bytesToSerial      atomic.Uint64
	packetsToHost      atomic.Uint64
	bytesToHost        atomic.Uint64
	malformed          atomic.Uint64
	serialDropped      atomic.Uint64
	transfersReceived  atomic.Uint64
	transfersSubmitted atomic.Uint64
	inHolds            atomic.Uint64
}

// Bridge moves MIDI between a USB bulk endpoint pair and a UART.
//
// Two contexts drive a Bridge. The main loop calls Poll (or Run), which owns
// every field below except the tick counter. The interrupt context calls
// Interrupt, which services the adapters and advances the tick counter. The
// two meet only at transfer owner flags, adapter rings, and the tick counter.
type Bridge struct {
	cfg    Config
	usb    hal.USB
	serial hal.Serial
	timer  hal.Timer
	pins   hal.Pins

	// Host to device: both transfers stay armed, consumed in arm order.
	rx     [2]hal.Transfer
	rxNext int

	// Device to host: tx[stage] is filled while tx[stage^1] may be in flight.
	tx       [2]hal.Transfer
	stage    int
	staged   int
	inFlight bool

	enc     midi.Encoder
	scratch [midi.MaxPacketsPerByte]midi.Packet
	held    [midi.MaxPacketsPerByte]midi.Packet
	nheld   int

	ticks      atomic.Uint32
	linked     bool
	indicators [hal.NumPins]indicator

	running atomic.Bool
	stats   counters
}

// New creates a bridge over the given adapters. A nil pins disables the
// activity indicators.
func New(usb hal.USB, serial hal.Serial, timer hal.Timer, pins hal.Pins, cfg Config) *Bridge {
	if pins == nil {
		pins = hal.NopPins{}
	}
	b := &Bridge{
		cfg:    cfg.withDefaults(),
		usb:    usb,
		serial: serial,
		timer:  timer,
		pins:   pins,
	}
	b.enc = *midi.NewEncoder(b.cfg.Cable)
	return b
}

// Init arms both receive transfers. Call once before the first Poll.
func (b *Bridge) Init() error {
	for i := range b.rx {
		if b.rx[i].Busy() {
			continue
		}
		if err := b.usb.ArmOut(&b.rx[i]); err != nil {
			pkg.LogError(pkg.ComponentBridge, "arm receive transfer failed",
				"index", i,
				"error", err)
			return err
		}
	}
	for p := range b.indicators {
		b.pins.ClearPin(hal.Pin(p))
	}
	pkg.LogDebug(pkg.ComponentBridge, "bridge initialized",
		"cable", b.cfg.Cable,
		"writeRetries", b.cfg.WriteRetries,
		"activityHold", b.cfg.ActivityHold)
	return nil
}

// Config returns the effective configuration.
func (b *Bridge) Config() Config {
	return b.cfg
}

// Linked reports whether the last Poll saw a configured, unsuspended link.
func (b *Bridge) Linked() bool {
	return b.linked
}

// Stats returns a snapshot of the bridge counters. Safe from any goroutine.
func (b *Bridge) Stats() Stats {
	return Stats{
		PacketsToSerial:    b.stats.packetsToSerial.Load(),
		BytesToSerial:      b.stats.bytesToSerial.Load(),
		PacketsToHost:      b.stats.packetsToHost.Load(),
		BytesToHost:        b.stats.bytesToHost.Load(),
		Malformed:          b.stats.malformed.Load(),
		SerialDropped:      b.stats.serialDropped.Load(),
		TransfersReceived:  b.stats.transfersReceived.Load(),
		TransfersSubmitted: b.stats.transfersSubmitted.Load(),
		InHolds:            b.stats.inHolds.Load(),
	}
}
