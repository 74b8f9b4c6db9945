package comm

import (
	"fmt"
	"io"
)

// Frame size limits.
const (
	// MaxWriteLen is the largest payload of a write frame.
	MaxWriteLen = 8
	// MaxReadLen is the largest number of bytes a read request may ask for.
	MaxReadLen = 128
	// MaxFrameLen is the size of the largest host frame.
	MaxFrameLen = 1 + 1 + 2 + MaxWriteLen + 2
	// ResponseOverhead is the number of non-data bytes in a device reply.
	ResponseOverhead = 6
)

// Frame is a host to device command.
type Frame struct {
	Type     WriteType
	Device   byte
	Register uint16
	Data     []byte
}

// Len returns the encoded size including the CRC.
func (f *Frame) Len() int {
	n := 1 + 2 + len(f.Data) + 2
	if f.Type.HasDevice() {
		n++
	}
	return n
}

// Validate checks the frame can be encoded.
func (f *Frame) Validate() error {
	if !f.Type.IsValid() {
		return ErrInvalidWriteType
	}
	if l := len(f.Data); l < 1 || l > MaxWriteLen {
		return fmt.Errorf("%w: %d data bytes", ErrInvalidLength, l)
	}
	return nil
}

// AppendTo appends the encoded frame to dst.
func (f *Frame) AppendTo(dst []byte) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return dst, err
	}
	start := len(dst)
	dst = append(dst, f.Type.Opcode(len(f.Data)))
	if f.Type.HasDevice() {
		dst = append(dst, f.Device)
	}
	dst = append(dst, byte(f.Register>>8), byte(f.Register))
	dst = append(dst, f.Data...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc), byte(crc>>8)), nil
}

// Bytes returns encoded bytes for sending.
func (f *Frame) Bytes() ([]byte, error) {
	return f.AppendTo(make([]byte, 0, f.Len()))
}

// WriteTo writes encoded bytes.
func (f *Frame) WriteTo(w io.Writer) (n int, err error) {
	var buf [MaxFrameLen]byte
	b, err := f.AppendTo(buf[:0])
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	if f.Type.HasDevice() {
		return fmt.Sprintf("%s dev=%d reg=0x%04x data=% x", f.Type, f.Device, f.Register, f.Data)
	}
	return fmt.Sprintf("%s reg=0x%04x data=% x", f.Type, f.Register, f.Data)
}

// Encode builds a frame in a new buffer.
func Encode(t WriteType, device byte, register uint16, data []byte) ([]byte, error) {
	f := Frame{Type: t, Device: device, Register: register, Data: data}
	return f.Bytes()
}

// ReadRequestLength returns the data byte of a read request for n bytes.
func ReadRequestLength(n int) (byte, error) {
	if n < 1 || n > MaxReadLen {
		return 0, fmt.Errorf("%w: read of %d bytes", ErrInvalidLength, n)
	}
	return byte(n - 1), nil
}

// NewReadRequest builds a read request frame for n bytes of register.
func NewReadRequest(t WriteType, device byte, register uint16, n int) (*Frame, error) {
	if !t.IsValid() || !t.ExpectsResponse() {
		return nil, ErrInvalidWriteType
	}
	l, err := ReadRequestLength(n)
	if err != nil {
		return nil, err
	}
	return &Frame{Type: t, Device: device, Register: register, Data: []byte{l}}, nil
}

// PutValue stores the low n bytes of v big-endian into a new slice.
func PutValue(v uint64, n int) ([]byte, error) {
	if n < 1 || n > MaxWriteLen {
		return nil, fmt.Errorf("%w: %d data bytes", ErrInvalidLength, n)
	}
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b, nil
}

// Value decodes big-endian bytes (at most 8).
func Value(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
