package bridge

import (
	"github.com/ardnew/usbmidi/hal"
	"github.com/ardnew/usbmidi/midi"
	"github.com/ardnew/usbmidi/pkg"
)

// midiToUSB reclaims the in-flight IN transfer when the stack is done with
// it, frames buffered serial bytes into the staging transfer, and submits the
// staging transfer when it is full or the UART has nothing more to give.
// Returns true if any state changed.
func (b *Bridge) midiToUSB() bool {
	work := false

	if b.inFlight && !b.tx[b.stage^1].Busy() {
		b.tx[b.stage^1].SetLen(0)
		b.inFlight = false
		work = true
	}

	if b.staged == PacketsPerTransfer && !b.flush() {
		return work
	}

	for b.staged < PacketsPerTransfer {
		if b.nheld > 0 {
			b.stagePacket(b.held[0])
			copy(b.held[:], b.held[1:b.nheld])
			b.nheld--
			work = true
			continue
		}

		c, err := b.serial.ReadByte()
		if err != nil {
			break
		}
		work = true
		for _, p := range b.enc.AppendByte(b.scratch[:0], c) {
			if b.staged < PacketsPerTransfer {
				b.stagePacket(p)
				continue
			}
			b.held[b.nheld] = p
			b.nheld++
		}
	}

	if b.staged > 0 && (b.staged == PacketsPerTransfer || b.serial.Buffered() == 0) {
		if b.flush() {
			work = true
		}
	}
	return work
}

// stagePacket appends p to the staging transfer.
func (b *Bridge) stagePacket(p midi.Packet) {
	t := &b.tx[b.stage]
	p.MarshalTo(t.Data[b.staged*midi.PacketSize:])
	b.staged++
	b.stats.packetsToHost.Add(1)
	b.stats.bytesToHost.Add(uint64(p.Len()))
	b.pulse(hal.PinMIDIIn)
}

// flush submits the staging transfer unless an IN transfer is in flight, then
// swaps the roles of the two IN transfers. Returns true if submitted.
func (b *Bridge) flush() bool {
	if b.inFlight {
		b.stats.inHolds.Add(1)
		return false
	}

	t := &b.tx[b.stage]
	t.SetLen(b.staged * midi.PacketSize)
	if err := b.usb.SubmitIn(t); err != nil {
		pkg.LogWarn(pkg.ComponentBridge, "submit IN transfer failed",
			"packets", b.staged,
			"error", err)
		return false
	}

	b.stats.transfersSubmitted.Add(1)
	b.inFlight = true
	b.stage ^= 1
	b.staged = 0
	return true
}
