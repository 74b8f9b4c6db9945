package stack

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/bms.go/pkg/bq/comm"
)

// MaxDevices is the longest supported chain.
const MaxDevices = 64

// DefaultBaud is the link rate after a communication reset.
const DefaultBaud uint32 = 1000000

// Config defines the chain.
type Config struct {
	// Devices is the number of devices in the chain.
	Devices int
	// Baud is the rate negotiated by BringUp.
	Baud uint32
	// VerifyCRC enables CRC checks on replies.
	VerifyCRC bool
	Timing    Timing
	Registers RegisterMap
	// Clock executes delays, DefaultClock if nil.
	Clock Clock
}

// DefaultConfig returns the configuration of a single device at 1M.
func DefaultConfig() Config {
	return Config{
		Devices:   1,
		Baud:      DefaultBaud,
		Timing:    DefaultTiming(),
		Registers: DefaultRegisterMap(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Devices < 1 || c.Devices > MaxDevices {
		return fmt.Errorf("%w: %d devices", ErrInvalidConfig, c.Devices)
	}
	if err := c.Timing.Validate(); err != nil {
		return err
	}
	return c.Registers.Validate()
}

// Chain is the bus master of a daisy chain. All operations are serialized.
type Chain struct {
	cfg   Config
	link  Link
	wake  WakePin
	clock Clock

	baud uint32
	lock sync.Mutex
}

// NewChain creates a Chain over link. wake may be nil if Wake is never
// used. The link is assumed to run at cfg.Baud.
func NewChain(link Link, wake WakePin, cfg Config) (*Chain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	c := &Chain{cfg: cfg, link: link, wake: wake, clock: cfg.Clock, baud: cfg.Baud}
	if c.clock == nil {
		c.clock = DefaultClock
	}
	return c, nil
}

// Devices returns the chain length.
func (c *Chain) Devices() int {
	return c.cfg.Devices
}

// Config returns the chain configuration.
func (c *Chain) Config() Config {
	return c.cfg
}

// Baud returns the current link rate.
func (c *Chain) Baud() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.baud
}

// WriteRegister writes the low n bytes of value, big-endian, to register
// of the devices selected by wt. device is used only by single frames.
// Response types are sent as given: their opcode carries no length and any
// replies are left in the link. It returns the number of bytes transmitted.
func (c *Chain) WriteRegister(device byte, register uint16, value uint64, n int, wt comm.WriteType) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.writeRegister(device, register, value, n, wt)
}

// ReadRegister requests n bytes of register from the devices selected by
// wt and reads the replies into buf. A zero timeout uses Timing.ReadTimeout.
// It returns the number of bytes received.
func (c *Chain) ReadRegister(device byte, register uint16, buf []byte, n int, timeout time.Duration, wt comm.WriteType) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.readRegister(device, register, buf, n, timeout, wt)
}

// ReadResponses is ReadRegister returning the decoded replies. Replies
// decoded before an error are returned with it.
func (c *Chain) ReadResponses(device byte, register uint16, n int, wt comm.WriteType) ([]comm.Response, error) {
	if n < 1 || n > comm.MaxReadLen {
		return nil, fmt.Errorf("%w: read of %d bytes", ErrInvalidLength, n)
	}
	buf := make([]byte, comm.ResponseLength(wt, n, c.cfg.Devices))
	c.lock.Lock()
	got, err := c.readRegister(device, register, buf, n, 0, wt)
	c.lock.Unlock()
	if got == 0 {
		return nil, err
	}
	rs, perr := comm.ParseResponses(buf[:got], c.cfg.VerifyCRC)
	if err == nil {
		err = perr
	}
	return rs, err
}

func (c *Chain) writeRegister(device byte, register uint16, value uint64, n int, wt comm.WriteType) (int, error) {
	data, err := comm.PutValue(value, n)
	if err != nil {
		return 0, err
	}
	if !wt.IsValid() {
		return 0, fmt.Errorf("%w: 0x%02x", ErrInvalidWriteType, byte(wt))
	}
	return c.send(&comm.Frame{Type: wt, Device: device, Register: register, Data: data})
}

func (c *Chain) readRegister(device byte, register uint16, buf []byte, n int, timeout time.Duration, wt comm.WriteType) (int, error) {
	req, err := comm.NewReadRequest(wt, device, register, n)
	if err != nil {
		return 0, err
	}
	expected := comm.ResponseLength(wt, n, c.cfg.Devices)
	if expected == 0 {
		return 0, fmt.Errorf("%w: %s without stack devices", ErrInvalidWriteType, wt)
	}
	if len(buf) < expected {
		return 0, fmt.Errorf("%w: buffer of %d bytes for %d byte reply", ErrInvalidLength, len(buf), expected)
	}
	if _, err = c.send(req); err != nil {
		return 0, err
	}
	for i := range buf {
		buf[i] = 0
	}
	if timeout <= 0 {
		timeout = c.cfg.Timing.ReadTimeout
	}
	// time spent in Buffered counts against the timeout
	start := c.clock.Now()
	for c.link.Buffered() == 0 {
		waited := c.clock.Now().Sub(start)
		if waited >= timeout {
			glog.V(1).Infof("read %s reg 0x%04x: no reply in %v", wt, register, waited)
			return 0, ErrTimeout
		}
		step := c.cfg.Timing.ReadPoll
		if left := timeout - waited; left < step {
			step = left
		}
		c.clock.Sleep(step)
	}
	got := 0
	for got < expected {
		r, err := c.link.Read(buf[got:expected])
		got += r
		if err != nil {
			return got, err
		}
		if r == 0 {
			break
		}
	}
	glog.V(2).Infof("RX % x", buf[:got])
	if c.cfg.VerifyCRC {
		if _, err := comm.ParseResponses(buf[:got], true); err != nil && got == expected {
			return got, err
		}
	}
	if got < expected {
		return got, fmt.Errorf("%w: %d of %d bytes", ErrPartialResponse, got, expected)
	}
	return got, nil
}

func (c *Chain) send(f *comm.Frame) (int, error) {
	var buf [comm.MaxFrameLen]byte
	b, err := f.AppendTo(buf[:0])
	if err != nil {
		return 0, err
	}
	glog.V(2).Infof("TX %s: % x", f, b)
	n, err := c.link.Write(b)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", f.Type, err)
	}
	return n, nil
}
