package comm

import (
	"fmt"
	"strconv"
	"strings"
)

// WriteType selects the addressing class of a frame and whether the
// addressed devices reply.
type WriteType byte

// Write types. The values are the opcode bits 6..4.
const (
	SingleRead  WriteType = 0x00
	SingleWrite WriteType = 0x10
	StackRead   WriteType = 0x20
	StackWrite  WriteType = 0x30
	AllRead     WriteType = 0x40
	AllWrite    WriteType = 0x50
)

// Class is the addressing class of a WriteType.
type Class byte

// Addressing classes.
const (
	// ClassSingle addresses one device by its ordinal.
	ClassSingle Class = 0x00
	// ClassStack addresses every device except the base.
	ClassStack Class = 0x20
	// ClassAll addresses every device.
	ClassAll Class = 0x40
)

const (
	opcodeFrame    byte = 0x80
	opcodeTypeMask byte = 0x70
	opcodeLenMask  byte = 0x0f
	writeBit       byte = 0x10
)

// WriteTypes lists all defined write types.
var WriteTypes = []WriteType{SingleRead, SingleWrite, StackRead, StackWrite, AllRead, AllWrite}

var writeTypeNames = map[WriteType]string{
	SingleRead:  "sgl_r",
	SingleWrite: "sgl_nr",
	StackRead:   "stk_r",
	StackWrite:  "stk_nr",
	AllRead:     "all_r",
	AllWrite:    "all_nr",
}

// IsValid indicates t is one of the defined write types.
func (t WriteType) IsValid() bool {
	return byte(t)&^opcodeTypeMask == 0 && t <= AllWrite
}

// IsWrite indicates the frame is silent (no reply) and carries its
// payload length in the opcode.
func (t WriteType) IsWrite() bool {
	return byte(t)&writeBit != 0
}

// ExpectsResponse indicates the addressed devices reply.
func (t WriteType) ExpectsResponse() bool {
	return !t.IsWrite()
}

// Class returns the addressing class.
func (t WriteType) Class() Class {
	return Class(byte(t) &^ writeBit)
}

// HasDevice indicates the frame carries the target device byte.
func (t WriteType) HasDevice() bool {
	return t.Class() == ClassSingle
}

// Opcode builds the opcode byte for a frame carrying n data bytes.
func (t WriteType) Opcode(n int) byte {
	op := opcodeFrame | byte(t)
	if t.IsWrite() {
		op |= byte(n-1) & opcodeLenMask
	}
	return op
}

// ResponseFrames returns how many reply frames a request of this type
// produces on a chain of the given length.
func (t WriteType) ResponseFrames(chainLength int) int {
	if !t.ExpectsResponse() {
		return 0
	}
	switch t.Class() {
	case ClassStack:
		return chainLength - 1
	case ClassAll:
		return chainLength
	default:
		return 1
	}
}

// String implements fmt.Stringer.
func (t WriteType) String() string {
	if name, ok := writeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("WriteType(0x%02x)", byte(t))
}

// ParseWriteType accepts either a name (e.g. "sgl_r", case-insensitive,
// optional "frmwrt_" prefix) or a numeric value (e.g. "0x10").
func ParseWriteType(s string) (WriteType, error) {
	name := strings.TrimPrefix(strings.ToLower(s), "frmwrt_")
	for t, n := range writeTypeNames {
		if n == name {
			return t, nil
		}
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWriteType, s)
	}
	if t := WriteType(v); t.IsValid() {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWriteType, s)
}

// DecodeOpcode splits an opcode into its write type and the number of
// data bytes which follow the register address.
func DecodeOpcode(op byte) (WriteType, int, error) {
	if op&opcodeFrame == 0 {
		return 0, 0, ErrInvalidOpcode
	}
	t := WriteType(op & opcodeTypeMask)
	if !t.IsValid() {
		return 0, 0, ErrInvalidOpcode
	}
	if !t.IsWrite() {
		if op&opcodeLenMask != 0 {
			return 0, 0, ErrInvalidOpcode
		}
		return t, 1, nil
	}
	n := int(op&opcodeLenMask) + 1
	if n > MaxWriteLen {
		return 0, 0, ErrInvalidOpcode
	}
	return t, n, nil
}
