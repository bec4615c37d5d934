package fifo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardnew/usbmidi/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// outQueueDepth is the number of host transfers buffered ahead of Service.
const outQueueDepth = 8

// outFrame is one OUT transfer read from the host.
type outFrame struct {
	data [hal.MaxPacketSize]byte
	n    int
}

// USB implements hal.USB over named pipes (FIFOs).
//
// Each device creates a unique subdirectory under the bus directory. The
// host writes bulk OUT data to ep1_out and link events to host_to_device, and
// reads bulk IN data from ep1_in. Background goroutines do the blocking pipe
// I/O; Service, called from the interrupt context, moves their results into
// armed transfers and completes finished IN transfers.
type USB struct {
	busDir    string
	deviceDir string
	uuid      string

	hostToDeviceRead *os.File
	epOutRead        *os.File
	epInWrite        *os.File
	connectionWrite  *os.File

	link         atomic.Uint32
	resetPending atomic.Bool

	// Armed receive transfers in arm order, and IN transfers awaiting
	// completion. Shared by the main loop and Service.
	mutex    sync.Mutex
	armed    []*hal.Transfer
	inFlight []*hal.Transfer

	outCh  chan outFrame
	inCh   chan *hal.Transfer
	doneCh chan *hal.Transfer

	initDone bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a FIFO-based USB adapter rooted at busDir.
func New(busDir string) *USB {
	return &USB{
		busDir: busDir,
		armed:  make([]*hal.Transfer, 0, 2),
		outCh:  make(chan outFrame, outQueueDepth),
		inCh:   make(chan *hal.Transfer, 2),
		doneCh: make(chan *hal.Transfer, 2),
	}
}

// generateUUID generates a random UUID using crypto/rand.
func generateUUID() (string, error) {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return "", err
	}
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80
	return hex.EncodeToString(uuid[:]), nil
}

// Init creates the device directory and its FIFOs and starts the pipe
// goroutines. The device is not visible to a host until Start.
func (u *USB) Init(ctx context.Context) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if u.initDone {
		return pkg.ErrAlreadyRunning
	}

	uuid, err := generateUUID()
	if err != nil {
		return fmt.Errorf("generate uuid: %w", err)
	}
	u.uuid = uuid
	u.deviceDir = filepath.Join(u.busDir, devicePrefix+uuid)

	if err := os.MkdirAll(u.deviceDir, 0o755); err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}
	for _, name := range []string{fifoHostToDevice, fifoConnection, fifoEPOut, fifoEPIn} {
		if err := createFIFO(u.deviceDir, name); err != nil {
			u.cleanup()
			return err
		}
	}

	// O_RDWR keeps every pipe open while no host is attached.
	files := []struct {
		f    **os.File
		name string
	}{
		{&u.connectionWrite, fifoConnection},
		{&u.hostToDeviceRead, fifoHostToDevice},
		{&u.epOutRead, fifoEPOut},
		{&u.epInWrite, fifoEPIn},
	}
	for _, file := range files {
		if *file.f, err = openFIFO(u.deviceDir, file.name, os.O_RDWR); err != nil {
			u.cleanup()
			return err
		}
	}

	u.ctx, u.cancel = context.WithCancel(ctx)
	u.wg.Add(3)
	go u.controlLoop()
	go u.outLoop()
	go u.inLoop()

	u.initDone = true
	pkg.LogInfo(pkg.ComponentHAL, "fifo usb initialized",
		"busDir", u.busDir,
		"deviceDir", u.deviceDir,
		"uuid", u.uuid)
	return nil
}

// Start signals connection to the host.
func (u *USB) Start() error {
	u.mutex.Lock()
	f := u.connectionWrite
	done := u.initDone
	u.mutex.Unlock()

	if !done {
		return pkg.ErrNotConfigured
	}
	if _, err := f.Write([]byte{sigConnect}); err != nil {
		return fmt.Errorf("signal connect: %w", err)
	}
	pkg.LogInfo(pkg.ComponentHAL, "fifo usb attached")
	return nil
}

// Stop signals disconnection, stops the pipe goroutines, and removes the
// device directory.
func (u *USB) Stop() error {
	u.mutex.Lock()
	if !u.initDone {
		u.mutex.Unlock()
		return pkg.ErrNotRunning
	}
	u.initDone = false
	u.connectionWrite.Write([]byte{sigDisconnect})
	u.cancel()
	// Unblock a writer stuck on a host that stopped reading.
	u.epInWrite.SetWriteDeadline(time.Now())
	u.mutex.Unlock()

	u.wg.Wait()

	u.mutex.Lock()
	defer u.mutex.Unlock()
	u.releaseLocked()
	u.cleanup()
	u.link.Store(uint32(hal.LinkUnconfigured))
	pkg.LogInfo(pkg.ComponentHAL, "fifo usb stopped")
	return nil
}

// cleanup closes all FIFOs and removes the device directory.
func (u *USB) cleanup() {
	for _, f := range []**os.File{&u.hostToDeviceRead, &u.epOutRead, &u.epInWrite, &u.connectionWrite} {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	}
	if u.deviceDir != "" {
		os.RemoveAll(u.deviceDir)
	}
}

// DeviceDir returns the device subdirectory path.
func (u *USB) DeviceDir() string {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.deviceDir
}

// UUID returns the device's unique identifier.
func (u *USB) UUID() string {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.uuid
}

// Service applies a pending bus reset, completes IN transfers the writer has
// finished, and fills armed receive transfers with queued host data.
func (u *USB) Service() {
	if u.resetPending.Swap(false) {
		// IN transfers still belong to the writer; they complete normally.
		u.mutex.Lock()
		u.releaseArmedLocked()
		u.mutex.Unlock()
		u.drainOut()
		u.link.Store(uint32(hal.LinkUnconfigured))
		pkg.LogInfo(pkg.ComponentUSB, "bus reset")
	}

	for u.completeIn() {
	}

	u.mutex.Lock()
	defer u.mutex.Unlock()
	for len(u.armed) > 0 {
		var fr outFrame
		select {
		case fr = <-u.outCh:
		default:
			return
		}
		t := u.armed[0]
		u.armed = u.armed[1:]
		copy(t.Data[:], fr.data[:fr.n])
		t.Complete(fr.n)
	}
}

// LinkState returns the link state last set by the host.
func (u *USB) LinkState() hal.LinkState {
	return hal.LinkState(u.link.Load())
}

// ArmOut queues a receive transfer for the next host OUT transfer.
func (u *USB) ArmOut(t *hal.Transfer) error {
	if !t.Handoff() {
		return pkg.ErrBusy
	}
	u.mutex.Lock()
	u.armed = append(u.armed, t)
	u.mutex.Unlock()
	return nil
}

// SubmitIn hands a transfer to the pipe writer.
func (u *USB) SubmitIn(t *hal.Transfer) error {
	if !t.Handoff() {
		return pkg.ErrBusy
	}
	u.mutex.Lock()
	u.inFlight = append(u.inFlight, t)
	u.mutex.Unlock()

	select {
	case u.inCh <- t:
		return nil
	default:
		// Unreachable with at most two transfers in flight.
		u.mutex.Lock()
		u.inFlight = removeTransfer(u.inFlight, t)
		u.mutex.Unlock()
		t.Release()
		return pkg.ErrBusy
	}
}

// completeIn completes one IN transfer the writer has finished.
// Returns false if there was none.
func (u *USB) completeIn() bool {
	select {
	case t := <-u.doneCh:
		u.mutex.Lock()
		u.inFlight = removeTransfer(u.inFlight, t)
		u.mutex.Unlock()
		t.Complete(t.Len())
		return true
	default:
		return false
	}
}

// releaseArmedLocked returns every armed receive transfer to the application.
func (u *USB) releaseArmedLocked() {
	for _, t := range u.armed {
		t.Release()
	}
	u.armed = u.armed[:0]
}

// releaseLocked returns every transfer to the application.
func (u *USB) releaseLocked() {
	u.releaseArmedLocked()
	for _, t := range u.inFlight {
		t.Release()
	}
	u.inFlight = u.inFlight[:0]
}

// drainOut discards host data queued before a reset.
func (u *USB) drainOut() {
	for {
		select {
		case <-u.outCh:
		default:
			return
		}
	}
}

func removeTransfer(list []*hal.Transfer, t *hal.Transfer) []*hal.Transfer {
	for i, x := range list {
		if x == t {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// controlLoop applies link events from the host.
func (u *USB) controlLoop() {
	defer u.wg.Done()

	var buf [maxFrameSize]byte
	for {
		typ, _, err := readFrame(u.ctx, u.hostToDeviceRead, buf[:])
		if err != nil {
			if u.ctx.Err() != nil {
				return
			}
			if errors.Is(err, pkg.ErrBufferTooSmall) {
				pkg.LogWarn(pkg.ComponentHAL, "oversized control message", "type", typ)
				continue
			}
			pkg.LogWarn(pkg.ComponentHAL, "control read failed", "error", err)
			return
		}

		switch typ {
		case msgConfigure, msgResume:
			u.setLink(hal.LinkConfigured)
		case msgSuspend:
			if u.LinkState() == hal.LinkConfigured {
				u.setLink(hal.LinkSuspended)
			}
		case msgReset:
			u.resetPending.Store(true)
		default:
			pkg.LogWarn(pkg.ComponentHAL, "unknown message type", "type", typ)
		}
	}
}

func (u *USB) setLink(s hal.LinkState) {
	if hal.LinkState(u.link.Swap(uint32(s))) != s {
		pkg.LogInfo(pkg.ComponentUSB, "link state", "state", s.String())
	}
}

// outLoop reads host OUT transfers from ep1_out.
func (u *USB) outLoop() {
	defer u.wg.Done()

	var buf [maxFrameSize]byte
	for {
		typ, payload, err := readFrame(u.ctx, u.epOutRead, buf[:])
		if err != nil {
			if u.ctx.Err() != nil {
				return
			}
			if errors.Is(err, pkg.ErrBufferTooSmall) {
				pkg.LogWarn(pkg.ComponentHAL, "oversized OUT transfer dropped")
				continue
			}
			pkg.LogWarn(pkg.ComponentHAL, "ep1_out read failed", "error", err)
			return
		}
		if typ != msgData {
			pkg.LogWarn(pkg.ComponentHAL, "unexpected message on ep1_out", "type", typ)
			continue
		}

		var fr outFrame
		fr.n = copy(fr.data[:], payload)
		select {
		case u.outCh <- fr:
		case <-u.ctx.Done():
			return
		}
	}
}

// inLoop writes submitted IN transfers to ep1_in.
func (u *USB) inLoop() {
	defer u.wg.Done()

	var buf [maxFrameSize]byte
	for {
		select {
		case <-u.ctx.Done():
			return
		case t := <-u.inCh:
			if err := writeFrame(u.epInWrite, buf[:], msgData, t.Bytes()); err != nil {
				pkg.LogWarn(pkg.ComponentHAL, "ep1_in write failed", "error", err)
			}
			select {
			case u.doneCh <- t:
			case <-u.ctx.Done():
				return
			}
		}
	}
}

var _ hal.USB = (*USB)(nil)
