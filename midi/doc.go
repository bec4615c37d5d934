// Package midi implements the USB-MIDI event packet codec used by the bridge.
//
// USB-MIDI carries MIDI over a bulk endpoint pair as a sequence of 4-byte
// event packets. The first byte holds the virtual cable number and a Code
// Index Number (CIN) that says how many of the following three bytes are
// meaningful:
//
//	         byte 0         byte 1   byte 2   byte 3
//	+--------+--------+--------+--------+--------+
//	| cable  |  CIN   | MIDI_0 | MIDI_1 | MIDI_2 |
//	+--------+--------+--------+--------+--------+
//
// # Decoding
//
// Decoding is stateless. [Packet.Decode] copies the 0-3 bytes a packet carries;
// reserved CINs decode to nothing rather than failing, so a malformed packet
// from the host can never halt the bridge.
//
// # Encoding
//
// A serial MIDI stream has no packet boundaries, so [Encoder] reconstructs
// framing one byte at a time:
//
//	enc := midi.NewEncoder(0)
//	var scratch [midi.MaxPacketsPerByte]midi.Packet
//	for _, b := range serialBytes {
//	    for _, p := range enc.AppendByte(scratch[:0], b) {
//	        stage(p)
//	    }
//	}
//
// The encoder honors running status, splits SysEx into CIN 0x4 chunks closed by
// a CIN 0x5/0x6/0x7 packet, and passes realtime bytes (0xF8-0xFF) straight
// through as single-byte packets without disturbing a SysEx in progress.
package midi
