package comm

import "errors"

var (
	// ErrInvalidLength indicates a payload or read length which can't be
	// represented in a frame.
	ErrInvalidLength = errors.New("invalid length")
	// ErrInvalidOpcode indicates a byte which is not a valid frame opcode.
	ErrInvalidOpcode = errors.New("invalid opcode")
	// ErrInvalidWriteType indicates a WriteType outside the defined set.
	ErrInvalidWriteType = errors.New("invalid write type")
	// ErrCRCMismatch indicates the CRC trailer doesn't match the frame.
	ErrCRCMismatch = errors.New("crc mismatch")
	// ErrShortFrame indicates the data ends in the middle of a frame.
	ErrShortFrame = errors.New("short frame")
)
