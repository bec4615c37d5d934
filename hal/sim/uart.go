package sim

import (
	"sync"
	"sync/atomic"

	"github.com/ardnew/usbmidi/pkg"
	"github.com/ardnew/usbmidi/pkg/ring"
)

// UART is an in-memory hal.Serial backed by two SPSC rings. Inject plays the
// remote MIDI device; Service moves injected bytes into the receive ring and
// drains the transmit ring onto the simulated wire.
type UART struct {
	rx ring.Buffer
	tx ring.Buffer

	mu       sync.Mutex
	wire     []byte // injected, not yet received
	sent     []byte // transmitted
	loopback bool
	stalled  bool

	overruns atomic.Uint32
}

// NewUART creates a simulated UART.
func NewUART() *UART {
	return &UART{}
}

// Service moves bytes between the wire and the rings.
func (u *UART) Service() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.stalled {
		for {
			b, ok := u.tx.Get()
			if !ok {
				break
			}
			u.sent = append(u.sent, b)
			if u.loopback {
				u.wire = append(u.wire, b)
			}
		}
	}

	n := 0
	for n < len(u.wire) && u.rx.Put(u.wire[n]) {
		n++
	}
	if n < len(u.wire) {
		u.overruns.Add(1)
	}
	u.wire = u.wire[n:]
}

// Buffered returns the number of received bytes ready to read.
func (u *UART) Buffered() int {
	return u.rx.Used()
}

// ReadByte returns the next received byte.
func (u *UART) ReadByte() (byte, error) {
	b, ok := u.rx.Get()
	if !ok {
		return 0, pkg.ErrBufferEmpty
	}
	return b, nil
}

// WriteByte queues one byte for transmission.
func (u *UART) WriteByte(b byte) error {
	if !u.tx.Put(b) {
		return pkg.ErrBufferFull
	}
	return nil
}

// TxPending returns the number of bytes waiting in the transmit ring.
func (u *UART) TxPending() int {
	return u.tx.Used()
}

// Inject places bytes on the receive wire.
func (u *UART) Inject(data ...byte) {
	u.mu.Lock()
	u.wire = append(u.wire, data...)
	u.mu.Unlock()
}

// Transmitted returns a copy of every byte sent so far.
func (u *UART) Transmitted() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.sent...)
}

// SetLoopback wires the transmit line back to the receive line.
func (u *UART) SetLoopback(on bool) {
	u.mu.Lock()
	u.loopback = on
	u.mu.Unlock()
}

// SetTxStalled stops Service from draining the transmit ring.
func (u *UART) SetTxStalled(stalled bool) {
	u.mu.Lock()
	u.stalled = stalled
	u.mu.Unlock()
}

// Overruns returns how many Service calls found the receive ring full.
func (u *UART) Overruns() int {
	return int(u.overruns.Load())
}
