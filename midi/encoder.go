package midi

// State is the framing state of an Encoder.
type State uint8

// Encoder states.
const (
	StateIdle        State = iota // Between messages
	StateExpectData1              // Status seen, first data byte pending
	StateExpectData2              // First data byte seen, second pending
	StateInSysEx                  // Inside a SysEx run
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExpectData1:
		return "expect-data1"
	case StateExpectData2:
		return "expect-data2"
	case StateInSysEx:
		return "in-sysex"
	default:
		return "unknown"
	}
}

// Encoder reassembles a raw serial MIDI byte stream into USB-MIDI event
// packets. Bytes arrive one at a time; a packet is emitted only once the
// message it frames is complete, so a message split across several serial
// reads still produces exactly one packet.
//
// The encoder tracks running status for channel messages and chunks SysEx
// into three-byte packets. Realtime bytes are recognized before the state
// machine runs and are emitted immediately as single-byte packets.
//
// The zero value encodes on cable 0.
type Encoder struct {
	cable  uint8
	state  State
	status byte // running status, 0 when none
	need   int  // total length of the message being assembled
	n      int  // bytes assembled in buf
	buf    [3]byte
}

// NewEncoder creates an encoder that stamps packets with the given cable.
func NewEncoder(cable uint8) *Encoder {
	return &Encoder{cable: cable & 0x0F}
}

// Cable returns the cable number stamped on emitted packets.
func (e *Encoder) Cable() uint8 {
	return e.cable
}

// State returns the current framing state.
func (e *Encoder) State() State {
	return e.state
}

// Reset discards any partial message and running status.
func (e *Encoder) Reset() {
	e.state = StateIdle
	e.status = 0
	e.need = 0
	e.n = 0
}

// AppendByte feeds one serial byte and appends any completed packets to dst.
// At most MaxPacketsPerByte packets are appended; with enough spare capacity
// in dst the call does not allocate.
func (e *Encoder) AppendByte(dst []Packet, b byte) []Packet {
	if IsRealtime(b) {
		return append(dst, NewPacket(e.cable, CINSingleByte, b, 0, 0))
	}
	if IsStatus(b) {
		return e.statusByte(dst, b)
	}
	return e.dataByte(dst, b)
}

// AppendBytes feeds a run of serial bytes and appends completed packets to dst.
func (e *Encoder) AppendBytes(dst []Packet, run []byte) []Packet {
	for _, b := range run {
		dst = e.AppendByte(dst, b)
	}
	return dst
}

// Encode frames a complete byte run on the given cable with a fresh encoder.
// Trailing partial messages are not emitted.
func Encode(run []byte, cable uint8) []Packet {
	e := NewEncoder(cable)
	return e.AppendBytes(make([]Packet, 0, len(run)/2+1), run)
}

func (e *Encoder) statusByte(dst []Packet, b byte) []Packet {
	if b == StatusEndOfSysEx {
		if e.state != StateInSysEx {
			e.Reset()
			return append(dst, NewPacket(e.cable, CINSingleByte, b, 0, 0))
		}
		e.buf[e.n] = b
		e.n++
		dst = append(dst, e.emit(CINSysExEnd1+CodeIndex(e.n-1)))
		e.state = StateIdle
		return dst
	}

	dst = e.abortSysEx(dst)
	e.n = 0

	if b == StatusSysEx {
		e.status = 0
		e.state = StateInSysEx
		e.buf[0] = b
		e.n = 1
		return dst
	}

	length := messageLength(b)
	if b >= 0xF0 {
		// System common clears running status.
		e.status = 0
	} else {
		e.status = b
	}

	switch length {
	case 0:
		e.state = StateIdle
		return append(dst, NewPacket(e.cable, CINSingleByte, b, 0, 0))
	case 1:
		e.state = StateIdle
		return append(dst, NewPacket(e.cable, CINSysExEnd1, b, 0, 0))
	}

	e.buf[0] = b
	e.n = 1
	e.need = length
	e.state = StateExpectData1
	return dst
}

func (e *Encoder) dataByte(dst []Packet, b byte) []Packet {
	switch e.state {
	case StateInSysEx:
		e.buf[e.n] = b
		e.n++
		if e.n == len(e.buf) {
			dst = append(dst, e.emit(CINSysExStart))
		}
		return dst

	case StateIdle:
		if e.status == 0 {
			return append(dst, NewPacket(e.cable, CINSingleByte, b, 0, 0))
		}
		// Running status: the stored status opens a new message.
		e.buf[0] = e.status
		e.n = 1
		e.need = messageLength(e.status)
		e.state = StateExpectData1
	}

	e.buf[e.n] = b
	e.n++
	if e.n < e.need {
		e.state = StateExpectData2
		return dst
	}
	e.state = StateIdle
	return append(dst, e.emit(codeIndexFor(e.buf[0], e.need)))
}

// abortSysEx flushes the bytes of an unterminated SysEx run as single-byte
// packets so that none are lost when a new status byte interrupts it.
func (e *Encoder) abortSysEx(dst []Packet) []Packet {
	if e.state != StateInSysEx {
		return dst
	}
	for i := 0; i < e.n; i++ {
		dst = append(dst, NewPacket(e.cable, CINSingleByte, e.buf[i], 0, 0))
	}
	e.n = 0
	e.state = StateIdle
	return dst
}

// emit frames the assembled bytes and clears the assembly buffer.
func (e *Encoder) emit(cin CodeIndex) Packet {
	var p Packet
	p[0] = e.cable<<4 | byte(cin)
	copy(p[1:], e.buf[:e.n])
	e.n = 0
	return p
}
