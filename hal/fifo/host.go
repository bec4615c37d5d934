package fifo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ardnew/usbmidi/hal"
	"github.com/ardnew/usbmidi/midi"
	"github.com/ardnew/usbmidi/pkg"
)

// ErrNotConnected indicates the device went away.
var ErrNotConnected = errors.New("device not connected")

// Host is the host end of a FIFO device. It plays the USB host for tools and
// tests: it sends link events and OUT transfers and reads IN transfers.
type Host struct {
	dir string

	connection *os.File
	control    *os.File
	epOut      *os.File
	epIn       *os.File

	writeMu  sync.Mutex
	writeBuf [maxFrameSize]byte

	readMu  sync.Mutex
	readBuf [maxFrameSize]byte
}

// Dial waits until a device on busDir signals connection and opens its
// endpoints. Returns ctx.Err() if none appears in time.
func Dial(ctx context.Context, busDir string) (*Host, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if dir := findDevice(busDir); dir != "" {
			h, err := connect(ctx, dir)
			if err == nil {
				return h, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			pkg.LogDebug(pkg.ComponentHost, "device not ready", "dir", dir, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// findDevice returns the newest device directory on the bus, or "".
func findDevice(busDir string) string {
	entries, err := os.ReadDir(busDir)
	if err != nil {
		return ""
	}

	var (
		newest  string
		modTime time.Time
	)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), devicePrefix) {
			continue
		}
		dir := filepath.Join(busDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, fifoConnection)); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(modTime) {
			newest, modTime = dir, info.ModTime()
		}
	}
	return newest
}

// connect waits for the connect signal from dir and opens the endpoints.
func connect(ctx context.Context, dir string) (*Host, error) {
	conn, err := openFIFO(dir, fifoConnection, os.O_RDWR)
	if err != nil {
		return nil, err
	}

	sigCtx, cancel := context.WithTimeout(ctx, 10*pollInterval)
	defer cancel()

	var sig [1]byte
	if err := readFull(sigCtx, conn, sig[:]); err != nil {
		conn.Close()
		return nil, err
	}
	if sig[0] != sigConnect {
		conn.Close()
		return nil, ErrNotConnected
	}

	h := &Host{dir: dir, connection: conn}
	files := []struct {
		f    **os.File
		name string
		flag int
	}{
		{&h.control, fifoHostToDevice, os.O_WRONLY},
		{&h.epOut, fifoEPOut, os.O_WRONLY},
		{&h.epIn, fifoEPIn, os.O_RDONLY},
	}
	for _, file := range files {
		if *file.f, err = openFIFO(dir, file.name, file.flag); err != nil {
			h.Close()
			return nil, err
		}
	}

	pkg.LogInfo(pkg.ComponentHost, "device connected", "dir", dir)
	return h, nil
}

// Dir returns the device directory.
func (h *Host) Dir() string {
	return h.dir
}

// Configure tells the device it has been configured.
func (h *Host) Configure() error {
	return h.send(h.control, msgConfigure, nil)
}

// Suspend suspends the bus.
func (h *Host) Suspend() error {
	return h.send(h.control, msgSuspend, nil)
}

// Resume resumes a suspended bus.
func (h *Host) Resume() error {
	return h.send(h.control, msgResume, nil)
}

// Reset issues a bus reset. The device must be configured again afterwards.
func (h *Host) Reset() error {
	return h.send(h.control, msgReset, nil)
}

// WriteTransfer sends one bulk OUT transfer of at most hal.MaxPacketSize bytes.
func (h *Host) WriteTransfer(data []byte) error {
	if len(data) > hal.MaxPacketSize {
		return pkg.ErrBufferTooSmall
	}
	return h.send(h.epOut, msgData, data)
}

// WritePackets sends event packets, as many per transfer as fit.
func (h *Host) WritePackets(packets ...midi.Packet) error {
	var buf [hal.MaxPacketSize]byte
	for len(packets) > 0 {
		n := 0
		for n < len(packets) && (n+1)*midi.PacketSize <= len(buf) {
			packets[n].MarshalTo(buf[n*midi.PacketSize:])
			n++
		}
		if err := h.WriteTransfer(buf[:n*midi.PacketSize]); err != nil {
			return err
		}
		packets = packets[n:]
	}
	return nil
}

// ReadTransfer reads one bulk IN transfer into buf.
func (h *Host) ReadTransfer(ctx context.Context, buf []byte) (int, error) {
	h.readMu.Lock()
	defer h.readMu.Unlock()

	typ, payload, err := readFrame(ctx, h.epIn, h.readBuf[:])
	if err != nil {
		return 0, err
	}
	if typ != msgData {
		return 0, fmt.Errorf("ep1_in message %#02x: %w", typ, pkg.ErrProtocol)
	}
	if len(payload) > len(buf) {
		return 0, pkg.ErrBufferTooSmall
	}
	return copy(buf, payload), nil
}

// ReadPackets reads one bulk IN transfer and splits it into event packets.
// Trailing bytes that do not form a whole packet are discarded.
func (h *Host) ReadPackets(ctx context.Context) ([]midi.Packet, error) {
	var buf [hal.MaxPacketSize]byte
	n, err := h.ReadTransfer(ctx, buf[:])
	if err != nil {
		return nil, err
	}

	packets := make([]midi.Packet, 0, n/midi.PacketSize)
	for off := 0; off+midi.PacketSize <= n; off += midi.PacketSize {
		var p midi.Packet
		midi.ParsePacket(buf[off:n], &p)
		packets = append(packets, p)
	}
	return packets, nil
}

// Close closes the host end of every pipe.
func (h *Host) Close() error {
	for _, f := range []**os.File{&h.control, &h.epOut, &h.epIn, &h.connection} {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	}
	return nil
}

func (h *Host) send(f *os.File, typ byte, data []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if f == nil {
		return ErrNotConnected
	}
	if err := writeFrame(f, h.writeBuf[:], typ, data); err != nil {
		return fmt.Errorf("write %#02x: %w", typ, err)
	}
	return nil
}
