package comm

import "fmt"

// Response is a reply frame from one device.
type Response struct {
	Device   byte
	Register uint16
	Data     []byte
}

// Len returns the encoded size including the CRC.
func (r *Response) Len() int {
	return len(r.Data) + ResponseOverhead
}

// AppendTo appends the encoded reply to dst.
func (r *Response) AppendTo(dst []byte) ([]byte, error) {
	if l := len(r.Data); l < 1 || l > MaxReadLen {
		return dst, fmt.Errorf("%w: %d data bytes", ErrInvalidLength, l)
	}
	start := len(dst)
	dst = append(dst, byte(len(r.Data)-1), r.Device, byte(r.Register>>8), byte(r.Register))
	dst = append(dst, r.Data...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc), byte(crc>>8)), nil
}

// Value decodes the data big-endian. Only meaningful for up to 8 bytes.
func (r *Response) Value() uint64 {
	return Value(r.Data)
}

// String implements fmt.Stringer.
func (r *Response) String() string {
	return fmt.Sprintf("dev=%d reg=0x%04x data=% x", r.Device, r.Register, r.Data)
}

// ResponseLength returns the number of bytes the replies to a read request
// for n bytes occupy on a chain of the given length.
func ResponseLength(t WriteType, n, chainLength int) int {
	return (n + ResponseOverhead) * t.ResponseFrames(chainLength)
}

// ParseResponses splits a stream of device replies. When verify is set
// each CRC is checked. The replies decoded before an error are returned
// together with it.
func ParseResponses(b []byte, verify bool) ([]Response, error) {
	var rs []Response
	for len(b) > 0 {
		n := int(b[0]) + 1
		l := n + ResponseOverhead
		if len(b) < l {
			return rs, fmt.Errorf("%w: %d of %d bytes", ErrShortFrame, len(b), l)
		}
		if verify && !CheckCRC(b[:l]) {
			return rs, fmt.Errorf("%w: device %d", ErrCRCMismatch, b[1])
		}
		rs = append(rs, Response{
			Device:   b[1],
			Register: uint16(b[2])<<8 | uint16(b[3]),
			Data:     append([]byte(nil), b[4:4+n]...),
		})
		b = b[l:]
	}
	return rs, nil
}
