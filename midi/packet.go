package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Packet is a 4-byte USB-MIDI event packet.
//
//	byte 0: cable number (high nibble) | code index number (low nibble)
//	byte 1..3: MIDI bytes, unused positions zero
type Packet [PacketSize]byte

// NewPacket builds a packet from its fields.
func NewPacket(cable uint8, cin CodeIndex, b0, b1, b2 byte) Packet {
	return Packet{(cable&0x0F)<<4 | byte(cin&0x0F), b0, b1, b2}
}

// ParsePacket copies the first PacketSize bytes of data into out.
// Returns false if data is too short.
func ParsePacket(data []byte, out *Packet) bool {
	if len(data) < PacketSize {
		return false
	}
	copy(out[:], data[:PacketSize])
	return true
}

// MarshalTo writes the packet to buf.
// Returns the number of bytes written (4), or 0 if buf is too small.
func (p Packet) MarshalTo(buf []byte) int {
	if len(buf) < PacketSize {
		return 0
	}
	copy(buf, p[:])
	return PacketSize
}

// Cable returns the virtual cable (jack) number.
func (p Packet) Cable() uint8 {
	return p[0] >> 4
}

// CodeIndex returns the code index number.
func (p Packet) CodeIndex() CodeIndex {
	return CodeIndex(p[0] & 0x0F)
}

// Len returns the number of MIDI bytes the packet carries.
func (p Packet) Len() int {
	return p.CodeIndex().Len()
}

// Decode copies the MIDI bytes carried by the packet into out and returns the
// count. Reserved code index numbers decode to zero bytes, as does an out
// slice too short to hold the run; malformed packets never raise an error.
func (p Packet) Decode(out []byte) int {
	n := p.Len()
	if n > len(out) {
		return 0
	}
	return copy(out, p[1:1+n])
}

// Decode returns the MIDI bytes carried by p as a new slice.
func Decode(p Packet) []byte {
	var run [3]byte
	n := p.Decode(run[:])
	return append([]byte(nil), run[:n]...)
}

// String renders the packet with its decoded message. Complete messages are
// described by gomidi; SysEx fragments and unparsed bytes are shown as hex.
func (p Packet) String() string {
	var run [3]byte
	n := p.Decode(run[:])
	cin := p.CodeIndex()

	switch {
	case n == 0:
		return fmt.Sprintf("cable=%d cin=%s raw=% X", p.Cable(), cin, p[:])
	case cin.IsSysEx() && !(n == 1 && run[0] != StatusEndOfSysEx):
		return fmt.Sprintf("cable=%d cin=%s data=% X", p.Cable(), cin, run[:n])
	case cin == CINSingleByte && !IsRealtime(run[0]):
		return fmt.Sprintf("cable=%d cin=%s data=% X", p.Cable(), cin, run[:n])
	}
	return fmt.Sprintf("cable=%d cin=%s %s", p.Cable(), cin, gomidi.Message(run[:n]).String())
}
