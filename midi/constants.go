package midi

// PacketSize is the size of a USB-MIDI event packet in bytes.
const PacketSize = 4

// MaxPacketsPerByte is the most packets Encoder.AppendByte can emit for a
// single input byte (an interrupted SysEx flushes two pending bytes, then the
// interrupting byte may itself complete a packet).
const MaxPacketsPerByte = 3

// CodeIndex is the 4-bit Code Index Number (CIN) of a USB-MIDI event packet
// (USB MIDI 1.0 Table 4-1).
type CodeIndex uint8

// Code Index Numbers.
const (
	CINMisc            CodeIndex = 0x0 // Reserved for future extension
	CINCableEvent      CodeIndex = 0x1 // Reserved for future cable events
	CINSysCommon2      CodeIndex = 0x2 // Two-byte system common (MTC, song select)
	CINSysCommon3      CodeIndex = 0x3 // Three-byte system common (song position)
	CINSysExStart      CodeIndex = 0x4 // SysEx starts or continues
	CINSysExEnd1       CodeIndex = 0x5 // Single-byte system common, or SysEx ends with one byte
	CINSysExEnd2       CodeIndex = 0x6 // SysEx ends with two bytes
	CINSysExEnd3       CodeIndex = 0x7 // SysEx ends with three bytes
	CINNoteOff         CodeIndex = 0x8 // Note off
	CINNoteOn          CodeIndex = 0x9 // Note on
	CINPolyKeyPress    CodeIndex = 0xA // Polyphonic key pressure
	CINControlChange   CodeIndex = 0xB // Control change
	CINProgramChange   CodeIndex = 0xC // Program change
	CINChannelPressure CodeIndex = 0xD // Channel pressure
	CINPitchBend       CodeIndex = 0xE // Pitch bend change
	CINSingleByte      CodeIndex = 0xF // Single byte, passed through unparsed
)

// cinLength maps each CIN to the number of MIDI bytes its packet carries.
var cinLength = [16]uint8{
	0, 0, 2, 3, 3, 1, 2, 3,
	3, 3, 3, 3, 2, 2, 3, 1,
}

// Len returns the number of MIDI bytes carried by a packet with this CIN.
// Reserved CINs carry no bytes.
func (c CodeIndex) Len() int {
	return int(cinLength[c&0x0F])
}

// IsReserved reports whether the CIN is reserved and carries no MIDI data.
func (c CodeIndex) IsReserved() bool {
	return c&0x0F <= CINCableEvent
}

// IsChannel reports whether the CIN tags a channel voice message.
func (c CodeIndex) IsChannel() bool {
	return c >= CINNoteOff && c <= CINPitchBend
}

// IsSysEx reports whether the CIN belongs to a SysEx run. CINSysExEnd1 is
// ambiguous on its own; it also carries single-byte system common messages.
func (c CodeIndex) IsSysEx() bool {
	return c >= CINSysExStart && c <= CINSysExEnd3
}

// String returns a short human-readable CIN name.
func (c CodeIndex) String() string {
	switch c & 0x0F {
	case CINMisc:
		return "misc"
	case CINCableEvent:
		return "cable-event"
	case CINSysCommon2:
		return "syscommon-2"
	case CINSysCommon3:
		return "syscommon-3"
	case CINSysExStart:
		return "sysex-start"
	case CINSysExEnd1:
		return "sysex-end-1"
	case CINSysExEnd2:
		return "sysex-end-2"
	case CINSysExEnd3:
		return "sysex-end-3"
	case CINNoteOff:
		return "note-off"
	case CINNoteOn:
		return "note-on"
	case CINPolyKeyPress:
		return "poly-key-pressure"
	case CINControlChange:
		return "control-change"
	case CINProgramChange:
		return "program-change"
	case CINChannelPressure:
		return "channel-pressure"
	case CINPitchBend:
		return "pitch-bend"
	default:
		return "single-byte"
	}
}

// MIDI status bytes.
const (
	StatusNoteOff         = 0x80
	StatusNoteOn          = 0x90
	StatusPolyKeyPress    = 0xA0
	StatusControlChange   = 0xB0
	StatusProgramChange   = 0xC0
	StatusChannelPressure = 0xD0
	StatusPitchBend       = 0xE0

	StatusSysEx        = 0xF0
	StatusTimeCode     = 0xF1
	StatusSongPosition = 0xF2
	StatusSongSelect   = 0xF3
	StatusTuneRequest  = 0xF6
	StatusEndOfSysEx   = 0xF7

	StatusTimingClock   = 0xF8
	StatusStart         = 0xFA
	StatusContinue      = 0xFB
	StatusStop          = 0xFC
	StatusActiveSensing = 0xFE
	StatusSystemReset   = 0xFF
)

// IsStatus reports whether b is a status byte.
func IsStatus(b byte) bool {
	return b&0x80 != 0
}

// IsRealtime reports whether b is a system realtime byte. Realtime bytes never
// carry data and may appear anywhere in the stream, including inside SysEx.
func IsRealtime(b byte) bool {
	return b >= StatusTimingClock
}

// messageLength returns the total length of a message that begins with the
// given status byte, or 0 for SysEx delimiters and undefined status bytes.
func messageLength(status byte) int {
	switch {
	case status < 0x80:
		return 0
	case status < 0xC0, status >= 0xE0 && status < 0xF0:
		return 3
	case status < 0xE0:
		return 2
	}
	switch status {
	case StatusTimeCode, StatusSongSelect:
		return 2
	case StatusSongPosition:
		return 3
	case StatusTuneRequest:
		return 1
	case StatusTimingClock, 0xF9, StatusStart, StatusContinue,
		StatusStop, 0xFD, StatusActiveSensing, StatusSystemReset:
		return 1
	}
	return 0
}

// codeIndexFor returns the CIN that frames a complete non-SysEx message.
func codeIndexFor(status byte, length int) CodeIndex {
	if status < 0xF0 {
		return CodeIndex(status >> 4)
	}
	switch length {
	case 2:
		return CINSysCommon2
	case 3:
		return CINSysCommon3
	}
	if IsRealtime(status) {
		return CINSingleByte
	}
	return CINSysExEnd1
}
