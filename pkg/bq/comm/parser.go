package comm

// Parser reassembles host frames from a byte stream.
type Parser struct {
	state   parseState
	frame   *Frame
	recvLen int
	crc     uint16
	crcLo   byte
}

// ParseResult is the outcome of one parsing step.
type ParseResult struct {
	// Frame is set when a frame completed with a valid CRC.
	Frame *Frame
	// Err is set when the byte was dropped or a frame was discarded.
	Err error
}

type parseState int

const (
	stateOpcode parseState = iota // waiting for opcode
	stateDevice                   // waiting for device byte
	stateRegHi                    // waiting for register high byte
	stateRegLo                    // waiting for register low byte
	stateData                     // waiting for data
	stateCRCLo                    // waiting for crc low byte
	stateCRCHi                    // waiting for crc high byte
)

// Idle indicates no frame is partially received.
func (p *Parser) Idle() bool {
	return p.state == stateOpcode
}

// Reset drops any partially received frame.
func (p *Parser) Reset() {
	p.state, p.frame = stateOpcode, nil
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	if p.state != stateCRCLo && p.state != stateCRCHi {
		p.crc = UpdateCRC16(p.crc, []byte{b})
	}
	switch p.state {
	case stateOpcode:
		t, n, err := DecodeOpcode(b)
		if err != nil {
			pr.Err = err
			return
		}
		p.frame = &Frame{Type: t, Data: make([]byte, n)}
		p.crc, p.recvLen = UpdateCRC16(CRC16Init, []byte{b}), 0
		if t.HasDevice() {
			p.state = stateDevice
		} else {
			p.state = stateRegHi
		}
	case stateDevice:
		p.frame.Device = b
		p.state = stateRegHi
	case stateRegHi:
		p.frame.Register = uint16(b) << 8
		p.state = stateRegLo
	case stateRegLo:
		p.frame.Register |= uint16(b)
		p.state = stateData
	case stateData:
		p.frame.Data[p.recvLen] = b
		p.recvLen++
		if p.recvLen >= len(p.frame.Data) {
			p.state = stateCRCLo
		}
	case stateCRCLo:
		p.crcLo = b
		p.state = stateCRCHi
	case stateCRCHi:
		f := p.frame
		p.Reset()
		if p.crcLo != byte(p.crc) || b != byte(p.crc>>8) {
			pr.Err = ErrCRCMismatch
			return
		}
		pr.Frame = f
	}
	return
}

// ParseFrames parses all complete frames in b. Bytes of a trailing
// incomplete frame are reported as ErrShortFrame.
func ParseFrames(b []byte) ([]*Frame, error) {
	var p Parser
	var frames []*Frame
	for _, c := range b {
		pr := p.Parse(c)
		if pr.Err != nil {
			return frames, pr.Err
		}
		if pr.Frame != nil {
			frames = append(frames, pr.Frame)
		}
	}
	if !p.Idle() {
		return frames, ErrShortFrame
	}
	return frames, nil
}
