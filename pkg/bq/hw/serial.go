// Package hw connects a chain to host hardware.
package hw

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// DefaultByteTimeout is the longest silence inside a reply burst.
const DefaultByteTimeout = 2 * time.Millisecond

// SerialLink implements stack.Link over a serial port.
type SerialLink struct {
	Path string

	port    serial.Port
	pending []byte
	scratch [256]byte
	lock    sync.Mutex
}

// OpenSerial opens the port at baud, 8N1.
func OpenSerial(path string, baud uint32) (*SerialLink, error) {
	port, err := serial.Open(path, modeFor(baud))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(DefaultByteTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set timeout %s: %w", path, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush %s: %w", path, err)
	}
	glog.V(1).Infof("opened %s at %d", path, baud)
	return &SerialLink{Path: path, port: port}, nil
}

func modeFor(baud uint32) *serial.Mode {
	return &serial.Mode{
		BaudRate: int(baud),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Write implements stack.Link.
func (l *SerialLink) Write(b []byte) (int, error) {
	return l.port.Write(b)
}

// Buffered implements stack.Link. It never waits for input.
func (l *SerialLink) Buffered() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	if len(l.pending) == 0 {
		l.poll()
	}
	return len(l.pending)
}

// poll reads what has already arrived, with the port made non-blocking for
// the single read.
func (l *SerialLink) poll() {
	if err := l.port.SetReadTimeout(0); err != nil {
		glog.Warningf("%s: set timeout: %v", l.Path, err)
		return
	}
	defer func() {
		if err := l.port.SetReadTimeout(DefaultByteTimeout); err != nil {
			glog.Warningf("%s: set timeout: %v", l.Path, err)
		}
	}()
	n, err := l.port.Read(l.scratch[:])
	if err != nil {
		glog.Warningf("%s: %v", l.Path, err)
	}
	l.pending = append(l.pending, l.scratch[:n]...)
}

// Read implements stack.Link.
func (l *SerialLink) Read(b []byte) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if len(l.pending) > 0 {
		n := copy(b, l.pending)
		l.pending = l.pending[n:]
		return n, nil
	}
	return l.port.Read(b)
}

// Configure implements stack.Link.
func (l *SerialLink) Configure(baud uint32) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.pending = nil
	if err := l.port.SetMode(modeFor(baud)); err != nil {
		return fmt.Errorf("%s: set baud %d: %w", l.Path, baud, err)
	}
	return nil
}

// Break implements stack.Link.
func (l *SerialLink) Break(d time.Duration) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.pending = nil
	if err := l.port.Break(d); err != nil {
		return fmt.Errorf("%s: break: %w", l.Path, err)
	}
	return nil
}

// Close closes the port.
func (l *SerialLink) Close() error {
	return l.port.Close()
}
