package stack

import (
	"errors"
	"fmt"

	"github.com/robotalks/bms.go/pkg/bq/comm"
	"github.com/robotalks/bms.go/pkg/framework"
)

var (
	// ErrInvalidLength is returned for a register size which can't be sent.
	ErrInvalidLength = comm.ErrInvalidLength
	// ErrInvalidWriteType is returned when a read uses a write type which
	// expects no response, or the write type is undefined.
	ErrInvalidWriteType = comm.ErrInvalidWriteType
	// ErrCRCMismatch is returned by verified reads.
	ErrCRCMismatch = comm.ErrCRCMismatch
	// ErrTimeout indicates no reply byte arrived within the read timeout.
	ErrTimeout = errors.New("timeout")
	// ErrPartialResponse indicates fewer bytes than expected were received.
	ErrPartialResponse = errors.New("partial response")
	// ErrInvalidConfig indicates an unusable chain configuration.
	ErrInvalidConfig = errors.New("invalid config")
)

// MismatchError reports a device answering with an unexpected address.
type MismatchError struct {
	Ordinal byte
	Got     byte
	Err     error
}

// Error implements error.
func (e *MismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device %d: address readback failed: %v", e.Ordinal, e.Err)
	}
	return fmt.Sprintf("device %d: address readback 0x%02x", e.Ordinal, e.Got)
}

// Unwrap returns the read error if any.
func (e *MismatchError) Unwrap() error {
	return e.Err
}

// AddressMismatchError is returned when auto-addressing verification fails.
type AddressMismatchError struct {
	framework.AggregatedError
}

// Error implements error.
func (e *AddressMismatchError) Error() string {
	return "auto-address verification failed: " + e.AggregatedError.Error()
}

// Mismatches returns the individual failures.
func (e *AddressMismatchError) Mismatches() []*MismatchError {
	var m []*MismatchError
	for _, err := range e.Errors {
		var me *MismatchError
		if errors.As(err, &me) {
			m = append(m, me)
		}
	}
	return m
}
