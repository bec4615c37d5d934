package bridge

import (
	"runtime"

	"github.com/ardnew/usbmidi/hal"
	"github.com/ardnew/usbmidi/midi"
	"github.com/ardnew/usbmidi/pkg"
)

// usbToMIDI consumes the next receive transfer if the stack has returned it,
// writes every decoded MIDI byte to the UART, and re-arms the transfer.
// Returns true if a transfer was consumed.
func (b *Bridge) usbToMIDI() bool {
	t := &b.rx[b.rxNext]
	if t.Busy() {
		return false
	}

	data := t.Bytes()
	if len(data) > 0 {
		b.stats.transfersReceived.Add(1)
		if b.decodeTransfer(data) > 0 {
			b.pulse(hal.PinMIDIOut)
		}
	}

	// The buffer is free again only now that every packet has been written.
	t.SetLen(0)
	if err := b.usb.ArmOut(t); err != nil {
		pkg.LogWarn(pkg.ComponentBridge, "re-arm receive transfer failed",
			"index", b.rxNext,
			"error", err)
	}
	b.rxNext ^= 1
	return true
}

// decodeTransfer writes the MIDI bytes of each whole packet in data to the
// UART and returns the number of packets decoded.
func (b *Bridge) decodeTransfer(data []byte) int {
	var (
		p       midi.Packet
		msg     [3]byte
		decoded int
	)
	for len(data) >= midi.PacketSize {
		midi.ParsePacket(data, &p)
		data = data[midi.PacketSize:]

		if p == (midi.Packet{}) {
			// Zero padding after the last event.
			continue
		}
		if p.Cable() != b.cfg.Cable {
			b.malformed(p, "foreign cable")
			continue
		}
		n := p.Decode(msg[:])
		if n == 0 {
			b.malformed(p, "reserved code index")
			continue
		}

		decoded++
		b.stats.packetsToSerial.Add(1)
		for _, c := range msg[:n] {
			b.writeSerial(c)
		}
	}

	if len(data) > 0 {
		b.stats.malformed.Add(1)
		pkg.LogDebug(pkg.ComponentBridge, "partial packet in transfer",
			"bytes", len(data))
	}
	return decoded
}

// writeSerial queues one byte, retrying a bounded number of times while the
// UART is congested. The byte is dropped once the retries run out.
func (b *Bridge) writeSerial(c byte) {
	for range b.cfg.WriteRetries {
		if err := b.serial.WriteByte(c); err == nil {
			b.stats.bytesToSerial.Add(1)
			return
		}
		runtime.Gosched()
	}
	b.stats.serialDropped.Add(1)
	if pkg.DebugEnabled() {
		pkg.LogDebug(pkg.ComponentSerial, "dropped byte on congested uart",
			"byte", c,
			"txPending", b.serial.TxPending())
	}
}

func (b *Bridge) malformed(p midi.Packet, reason string) {
	b.stats.malformed.Add(1)
	if pkg.DebugEnabled() {
		pkg.LogDebug(pkg.ComponentCodec, "skipped packet",
			"reason", reason,
			"packet", p.String())
	}
}
