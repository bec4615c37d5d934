package serialport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/ardnew/usbmidi/hal"
	"github.com/ardnew/usbmidi/pkg"
	"github.com/ardnew/usbmidi/pkg/ring"
)

// DefaultBaudRate is the MIDI 1.0 serial rate.
const DefaultBaudRate = 31250

// readTimeout bounds a blocked read so the reader notices Close.
const readTimeout = 50 * time.Millisecond

// retryInterval is how long the reader waits for room in a full receive ring.
const retryInterval = time.Millisecond

// Conn is the part of serial.Port the adapter uses. A Read that times out
// returns 0, nil.
type Conn interface {
	io.ReadWriteCloser
}

// Port implements hal.Serial over a serial device.
//
// A reader goroutine plays the receive interrupt and is the only producer of
// the receive ring. A writer goroutine plays the transmit interrupt and is the
// only consumer of the transmit ring; Service wakes it.
type Port struct {
	conn Conn
	rx   ring.Buffer
	tx   ring.Buffer

	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed     atomic.Bool
	readBytes  atomic.Uint64
	wroteBytes atomic.Uint64
}

// Open opens the named serial device at the given baud rate, 8N1.
// A zero baud selects DefaultBaudRate.
func Open(name string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	sp, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := sp.SetReadTimeout(readTimeout); err != nil {
		sp.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}

	pkg.LogInfo(pkg.ComponentSerial, "serial port opened",
		"port", name,
		"baud", baud)
	return New(sp), nil
}

// List returns the names of the serial devices present on the system.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

// New starts the adapter over an open connection.
func New(conn Conn) *Port {
	p := &Port{
		conn: conn,
		kick: make(chan struct{}, 1),
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.wg.Add(2)
	go p.readLoop()
	go p.writeLoop()
	return p
}

// Close stops the adapter and closes the connection. Bytes still queued for
// transmission are discarded.
func (p *Port) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return pkg.ErrNotRunning
	}
	p.cancel()
	err := p.conn.Close()
	p.wg.Wait()
	pkg.LogDebug(pkg.ComponentSerial, "serial port closed",
		"read", p.readBytes.Load(),
		"written", p.wroteBytes.Load())
	return err
}

// Service wakes the writer if bytes are queued.
func (p *Port) Service() {
	if p.tx.Used() == 0 {
		return
	}
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Buffered returns the number of received bytes ready to read.
func (p *Port) Buffered() int {
	return p.rx.Used()
}

// ReadByte returns the next received byte.
func (p *Port) ReadByte() (byte, error) {
	b, ok := p.rx.Get()
	if !ok {
		return 0, pkg.ErrBufferEmpty
	}
	return b, nil
}

// WriteByte queues one byte for transmission.
func (p *Port) WriteByte(b byte) error {
	if !p.tx.Put(b) {
		return pkg.ErrBufferFull
	}
	return nil
}

// TxPending returns the number of bytes not yet handed to the device.
func (p *Port) TxPending() int {
	return p.tx.Used()
}

func (p *Port) readLoop() {
	defer p.wg.Done()

	var buf [ring.Size]byte
	for {
		n, err := p.conn.Read(buf[:])
		if p.ctx.Err() != nil {
			return
		}
		if err != nil {
			pkg.LogWarn(pkg.ComponentSerial, "serial read failed", "error", err)
			return
		}
		p.readBytes.Add(uint64(n))

		// Hold the rest until the main loop makes room; the device buffers
		// anything that arrives meanwhile.
		for pending := buf[:n]; len(pending) > 0; {
			pending = pending[p.rx.Write(pending):]
			if len(pending) == 0 {
				break
			}
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(retryInterval):
			}
		}
	}
}

func (p *Port) writeLoop() {
	defer p.wg.Done()

	var buf [ring.Size]byte
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.kick:
		}

		for {
			n := p.tx.Read(buf[:])
			if n == 0 {
				break
			}
			if _, err := p.conn.Write(buf[:n]); err != nil {
				if p.ctx.Err() != nil {
					return
				}
				pkg.LogWarn(pkg.ComponentSerial, "serial write failed",
					"bytes", n,
					"error", err)
				continue
			}
			p.wroteBytes.Add(uint64(n))
		}
	}
}

var _ hal.Serial = (*Port)(nil)
