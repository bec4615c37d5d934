package serialport

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbmidi/pkg"
	"github.com/ardnew/usbmidi/pkg/ring"
)

// fakeConn is an in-memory serial device. Reads time out like a real port.
type fakeConn struct {
	mu       sync.Mutex
	incoming []byte
	written  []byte
	closed   bool
}

func (c *fakeConn) Read(p []byte) (int, error) {
	deadline := time.Now().Add(5 * time.Millisecond)
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return 0, io.EOF
		}
		if len(c.incoming) > 0 {
			n := copy(p, c.incoming)
			c.incoming = c.incoming[n:]
			c.mu.Unlock()
			return n, nil
		}
		c.mu.Unlock()
		if time.Now().After(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	c.written = append(c.written, p...)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) feed(data ...byte) {
	c.mu.Lock()
	c.incoming = append(c.incoming, data...)
	c.mu.Unlock()
}

func (c *fakeConn) output() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.written...)
}

func TestReceive(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn)
	defer p.Close()

	_, err := p.ReadByte()
	require.ErrorIs(t, err, pkg.ErrBufferEmpty)

	conn.feed(0x90, 0x40, 0x7F)
	require.Eventually(t, func() bool { return p.Buffered() == 3 }, time.Second, time.Millisecond)

	for _, want := range []byte{0x90, 0x40, 0x7F} {
		b, err := p.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, want, b)
	}
}

func TestReceiveBackpressure(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn)
	defer p.Close()

	data := make([]byte, ring.Size+100)
	for i := range data {
		data[i] = byte(i)
	}
	conn.feed(data...)
	require.Eventually(t, func() bool { return p.Buffered() == ring.Size }, time.Second, time.Millisecond)

	var got []byte
	require.Eventually(t, func() bool {
		for {
			b, err := p.ReadByte()
			if err != nil {
				break
			}
			got = append(got, b)
		}
		return len(got) == len(data)
	}, time.Second, time.Millisecond)
	assert.Equal(t, data, got)
}

func TestTransmit(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn)
	defer p.Close()

	for _, b := range []byte{0xC0, 0x05} {
		require.NoError(t, p.WriteByte(b))
	}
	assert.Equal(t, 2, p.TxPending())

	// Nothing moves until the interrupt runs.
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, conn.output())

	p.Service()
	require.Eventually(t, func() bool { return len(conn.output()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []byte{0xC0, 0x05}, conn.output())
	assert.Zero(t, p.TxPending())
}

func TestTransmitFull(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn)
	defer p.Close()

	for i := range ring.Size {
		require.NoError(t, p.WriteByte(byte(i)))
	}
	require.ErrorIs(t, p.WriteByte(0), pkg.ErrBufferFull)
}

func TestClose(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn)
	require.NoError(t, p.Close())
	require.ErrorIs(t, p.Close(), pkg.ErrNotRunning)
}
