package sim

import (
	"sync"
	"sync/atomic"

	"github.com/ardnew/usbmidi/hal"
	"github.com/ardnew/usbmidi/midi"
	"github.com/ardnew/usbmidi/pkg"
)

// USB is an in-memory hal.USB. The test plays the host: SendOut queues OUT
// data that Service delivers into armed transfers, and Service completes
// submitted IN transfers and records their payloads unless held.
type USB struct {
	mu       sync.Mutex
	link     atomic.Uint32
	outQueue [][]byte
	armed    []*hal.Transfer
	inFlight []*hal.Transfer
	sent     [][]byte
	holdIn   bool
	onArm    func(*hal.Transfer)

	submitted atomic.Uint32
	rejected  atomic.Uint32
}

// NewUSB creates a simulated USB port in the configured state.
func NewUSB() *USB {
	u := &USB{}
	u.link.Store(uint32(hal.LinkConfigured))
	return u
}

// Service delivers queued OUT data and completes IN transfers.
func (u *USB) Service() {
	u.mu.Lock()
	defer u.mu.Unlock()

	for len(u.outQueue) > 0 && len(u.armed) > 0 {
		t := u.armed[0]
		n := copy(t.Data[:], u.outQueue[0])
		u.armed = u.armed[1:]
		u.outQueue = u.outQueue[1:]
		t.Complete(n)
	}

	if u.holdIn {
		return
	}
	for _, t := range u.inFlight {
		u.sent = append(u.sent, append([]byte(nil), t.Bytes()...))
		t.Complete(t.Len())
	}
	u.inFlight = u.inFlight[:0]
}

// LinkState returns the simulated link state.
func (u *USB) LinkState() hal.LinkState {
	return hal.LinkState(u.link.Load())
}

// SetLinkState changes the simulated link state.
func (u *USB) SetLinkState(s hal.LinkState) {
	u.link.Store(uint32(s))
}

// ArmOut queues a receive transfer.
func (u *USB) ArmOut(t *hal.Transfer) error {
	if !t.Handoff() {
		u.rejected.Add(1)
		return pkg.ErrBusy
	}
	u.mu.Lock()
	u.armed = append(u.armed, t)
	hook := u.onArm
	u.mu.Unlock()

	if hook != nil {
		hook(t)
	}
	return nil
}

// SubmitIn queues an IN transfer for the host.
func (u *USB) SubmitIn(t *hal.Transfer) error {
	if !t.Handoff() {
		u.rejected.Add(1)
		return pkg.ErrBusy
	}
	u.mu.Lock()
	u.inFlight = append(u.inFlight, t)
	u.mu.Unlock()
	u.submitted.Add(1)
	return nil
}

// SendOut queues data from the host, split into endpoint-sized transfers.
func (u *USB) SendOut(data []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for len(data) > 0 {
		n := min(len(data), hal.MaxPacketSize)
		u.outQueue = append(u.outQueue, append([]byte(nil), data[:n]...))
		data = data[n:]
	}
}

// SendPackets queues event packets from the host.
func (u *USB) SendPackets(packets ...midi.Packet) {
	buf := make([]byte, 0, len(packets)*midi.PacketSize)
	for _, p := range packets {
		buf = append(buf, p[:]...)
	}
	u.SendOut(buf)
}

// PendingOut returns the number of host transfers not yet delivered.
func (u *USB) PendingOut() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.outQueue)
}

// Armed returns the number of receive transfers waiting for data.
func (u *USB) Armed() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.armed)
}

// InFlight returns the number of IN transfers not yet completed.
func (u *USB) InFlight() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.inFlight)
}

// HoldIn stalls IN completion, as when the host stops reading.
func (u *USB) HoldIn(hold bool) {
	u.mu.Lock()
	u.holdIn = hold
	u.mu.Unlock()
}

// OnArm installs a hook called after each successful ArmOut.
func (u *USB) OnArm(fn func(*hal.Transfer)) {
	u.mu.Lock()
	u.onArm = fn
	u.mu.Unlock()
}

// Sent returns copies of the completed IN payloads in order.
func (u *USB) Sent() [][]byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([][]byte, len(u.sent))
	copy(out, u.sent)
	return out
}

// SentPackets returns every event packet sent to the host in order.
func (u *USB) SentPackets() []midi.Packet {
	var out []midi.Packet
	for _, payload := range u.Sent() {
		var p midi.Packet
		for len(payload) >= midi.PacketSize {
			midi.ParsePacket(payload, &p)
			out = append(out, p)
			payload = payload[midi.PacketSize:]
		}
	}
	return out
}

// Submitted returns the number of accepted IN submissions.
func (u *USB) Submitted() int {
	return int(u.submitted.Load())
}

// Rejected returns the number of ArmOut and SubmitIn calls refused with
// pkg.ErrBusy.
func (u *USB) Rejected() int {
	return int(u.rejected.Load())
}

// Reset simulates a bus reset: every transfer returns to the application and
// the link drops to unconfigured.
func (u *USB) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, t := range u.armed {
		t.Release()
	}
	for _, t := range u.inFlight {
		t.Release()
	}
	u.armed = nil
	u.inFlight = nil
	u.outQueue = nil
	u.link.Store(uint32(hal.LinkUnconfigured))
}
