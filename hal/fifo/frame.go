package fifo

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardnew/usbmidi/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// Message types on the wire. Every message is framed as
// [type, len_lo, len_hi, payload...].
const (
	msgData      = 0x02 // Bulk payload on ep1_out or ep1_in
	msgReset     = 0x12 // Bus reset
	msgConfigure = 0x20 // Host selected the configuration
	msgSuspend   = 0x21 // Bus suspended
	msgResume    = 0x22 // Bus resumed
)

// Header size for messages.
const headerSize = 3 // type (1) + length (2)

// maxFrameSize is the largest frame either side sends.
const maxFrameSize = headerSize + hal.MaxPacketSize

// Connection signal bytes (one-way signaling to host).
const (
	sigConnect    = 0x01
	sigDisconnect = 0x00
)

// FIFO file names inside a device directory.
const (
	fifoHostToDevice = "host_to_device"
	fifoConnection   = "connection"
	fifoEPOut        = "ep1_out"
	fifoEPIn         = "ep1_in"
)

// devicePrefix starts the name of every device directory on the bus.
const devicePrefix = "device-"

// pollInterval bounds how long a blocked read waits before rechecking for
// cancellation.
const pollInterval = 100 * time.Millisecond

// readFull reads exactly len(buf) bytes, retrying on read timeouts until ctx
// is done.
func readFull(ctx context.Context, f *os.File, buf []byte) error {
	total := 0
	for total < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.SetReadDeadline(time.Now().Add(pollInterval))
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// readFrame reads one message into buf and returns its type and payload.
// Payloads larger than buf are discarded and reported as pkg.ErrBufferTooSmall.
func readFrame(ctx context.Context, f *os.File, buf []byte) (byte, []byte, error) {
	if err := readFull(ctx, f, buf[:headerSize]); err != nil {
		return 0, nil, err
	}
	typ := buf[0]
	n := int(binary.LittleEndian.Uint16(buf[1:3]))
	if n == 0 {
		return typ, nil, nil
	}
	if n > len(buf) {
		var sink [hal.MaxPacketSize]byte
		for n > 0 {
			m := min(n, len(sink))
			if err := readFull(ctx, f, sink[:m]); err != nil {
				return 0, nil, err
			}
			n -= m
		}
		return typ, nil, pkg.ErrBufferTooSmall
	}
	if err := readFull(ctx, f, buf[:n]); err != nil {
		return 0, nil, err
	}
	return typ, buf[:n], nil
}

// writeFrame frames data into buf and writes it to f in one call so that
// concurrent writers to a pipe never interleave.
func writeFrame(f *os.File, buf []byte, typ byte, data []byte) error {
	n := len(data)
	if headerSize+n > len(buf) {
		return pkg.ErrBufferTooSmall
	}
	buf[0] = typ
	binary.LittleEndian.PutUint16(buf[1:3], uint16(n))
	copy(buf[headerSize:], data)

	total := headerSize + n
	written := 0
	for written < total {
		m, err := f.Write(buf[written:total])
		written += m
		if err != nil {
			return err
		}
	}
	return nil
}

// createFIFO creates a named pipe, replacing any stale file.
func createFIFO(dir, name string) error {
	path := filepath.Join(dir, name)
	os.Remove(path)
	if err := syscall.Mkfifo(path, 0o666); err != nil {
		return fmt.Errorf("mkfifo %s: %w", name, err)
	}
	return nil
}

// openFIFO opens a named pipe without blocking on the other end.
func openFIFO(dir, name string, flag int) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), flag|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}
