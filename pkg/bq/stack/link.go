package stack

import (
	"time"

	"periph.io/x/periph/conn/gpio"
)

// Link is the half-duplex UART to the base device.
type Link interface {
	// Write transmits b.
	Write(b []byte) (int, error)
	// Buffered returns the number of received bytes ready to read without
	// waiting for more.
	Buffered() int
	// Read reads received bytes. It returns 0 when nothing more arrives
	// within the link's own read timeout.
	Read(b []byte) (int, error)
	// Configure (re)starts the UART at baud, 8N1.
	Configure(baud uint32) error
	// Break stops the UART, drives TX low for d and releases it high.
	Break(d time.Duration) error
}

// WakePin drives the active-low wake input of the base device.
type WakePin interface {
	Out(l gpio.Level) error
}
