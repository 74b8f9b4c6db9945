// Package sim simulates a daisy chain of monitors behind a host link.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"periph.io/x/periph/conn/gpio"

	"github.com/robotalks/bms.go/pkg/bq/comm"
	"github.com/robotalks/bms.go/pkg/bq/stack"
)

// ResetBreak is the shortest break the devices take as a communication
// reset, which returns them to stack.ResetBaud.
const ResetBreak = 400 * time.Microsecond

// OpKind identifies a recorded host operation.
type OpKind int

// Operation kinds.
const (
	OpWrite OpKind = iota
	OpConfigure
	OpBreak
	OpWake
)

func (k OpKind) String() string {
	switch k {
	case OpWrite:
		return "write"
	case OpConfigure:
		return "configure"
	case OpBreak:
		return "break"
	case OpWake:
		return "wake"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Op is a recorded host operation.
type Op struct {
	Kind     OpKind
	Data     []byte
	Baud     uint32
	Duration time.Duration
	Level    gpio.Level
}

func (o Op) String() string {
	switch o.Kind {
	case OpWrite:
		return fmt.Sprintf("write % x", o.Data)
	case OpConfigure:
		return fmt.Sprintf("configure %d", o.Baud)
	case OpBreak:
		return fmt.Sprintf("break %v", o.Duration)
	case OpWake:
		return fmt.Sprintf("wake %s", o.Level)
	}
	return o.Kind.String()
}

// Chain is a simulated chain. It implements stack.Link and stack.WakePin.
type Chain struct {
	regs    stack.RegisterMap
	devices []*Device

	hostBaud  uint32
	chainBaud uint32
	parser    comm.Parser
	rx        []byte
	latched   int
	addrMode  bool
	ops       []Op

	mute     bool
	corrupt  bool
	truncate int

	lock sync.Mutex
}

// New creates a chain of n awake devices at stack.DefaultBaud.
func New(n int, regs stack.RegisterMap) *Chain {
	c := &Chain{
		regs:      regs,
		hostBaud:  stack.DefaultBaud,
		chainBaud: stack.DefaultBaud,
	}
	for i := 0; i < n; i++ {
		c.devices = append(c.devices, newDevice())
	}
	return c
}

// Len returns the number of devices.
func (c *Chain) Len() int {
	return len(c.devices)
}

// Device returns the device at position i counted from the base.
func (c *Chain) Device(i int) *Device {
	return c.devices[i]
}

// Baud returns the rate the devices communicate at.
func (c *Chain) Baud() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.chainBaud
}

// SetMute makes the chain stop replying.
func (c *Chain) SetMute(mute bool) {
	c.lock.Lock()
	c.mute = mute
	c.lock.Unlock()
}

// SetCorrupt flips a bit in every reply.
func (c *Chain) SetCorrupt(corrupt bool) {
	c.lock.Lock()
	c.corrupt = corrupt
	c.lock.Unlock()
}

// SetTruncate drops the last n bytes of every reply burst.
func (c *Chain) SetTruncate(n int) {
	c.lock.Lock()
	c.truncate = n
	c.lock.Unlock()
}

// Ops returns the recorded host operations.
func (c *Chain) Ops() []Op {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]Op(nil), c.ops...)
}

// ResetOps clears the recorded host operations.
func (c *Chain) ResetOps() {
	c.lock.Lock()
	c.ops = nil
	c.lock.Unlock()
}

// Written returns all bytes written by the host since the last ResetOps.
func (c *Chain) Written() []byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	var b []byte
	for _, op := range c.ops {
		if op.Kind == OpWrite {
			b = append(b, op.Data...)
		}
	}
	return b
}

// Write implements stack.Link.
func (c *Chain) Write(b []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.ops = append(c.ops, Op{Kind: OpWrite, Data: append([]byte(nil), b...)})
	if c.hostBaud != c.chainBaud {
		glog.V(2).Infof("sim: %d bytes lost, host at %d chain at %d", len(b), c.hostBaud, c.chainBaud)
		c.parser.Reset()
		return len(b), nil
	}
	for _, v := range b {
		pr := c.parser.Parse(v)
		if pr.Err != nil {
			glog.V(2).Infof("sim: %v", pr.Err)
		}
		if pr.Frame != nil {
			c.handle(pr.Frame)
		}
	}
	return len(b), nil
}

// Buffered implements stack.Link.
func (c *Chain) Buffered() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.rx)
}

// Read implements stack.Link.
func (c *Chain) Read(b []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	n := copy(b, c.rx)
	c.rx = c.rx[n:]
	return n, nil
}

// Configure implements stack.Link.
func (c *Chain) Configure(baud uint32) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.ops = append(c.ops, Op{Kind: OpConfigure, Baud: baud})
	c.hostBaud = baud
	return nil
}

// Break implements stack.Link.
func (c *Chain) Break(d time.Duration) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.ops = append(c.ops, Op{Kind: OpBreak, Duration: d})
	c.parser.Reset()
	if d >= ResetBreak {
		c.chainBaud = stack.ResetBaud
	}
	return nil
}

// Out implements stack.WakePin.
func (c *Chain) Out(l gpio.Level) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.ops = append(c.ops, Op{Kind: OpWake, Level: l})
	return nil
}

func (c *Chain) handle(f *comm.Frame) {
	targets := c.targets(f)
	if f.Type.IsWrite() {
		for _, d := range targets {
			c.write(d, f.Register, f.Data)
		}
		return
	}
	if c.mute {
		return
	}
	var out []byte
	n := int(f.Data[0]) + 1
	for i := len(targets) - 1; i >= 0; i-- {
		d := targets[i]
		r := comm.Response{Device: d.Address, Register: f.Register, Data: d.read(f.Register, n)}
		start := len(out)
		out, _ = r.AppendTo(out)
		if c.corrupt {
			out[start+4] ^= 0x01
		}
	}
	if c.truncate > 0 {
		if c.truncate >= len(out) {
			out = out[:0]
		} else {
			out = out[:len(out)-c.truncate]
		}
	}
	c.rx = append(c.rx, out...)
}

func (c *Chain) targets(f *comm.Frame) []*Device {
	switch f.Type.Class() {
	case comm.ClassAll:
		return c.devices
	case comm.ClassStack:
		return c.devices[1:]
	}
	var ds []*Device
	for _, d := range c.devices {
		if d.Address == f.Device {
			ds = append(ds, d)
		}
	}
	return ds
}

func (c *Chain) write(d *Device, register uint16, data []byte) {
	switch {
	case register == c.regs.DevAddrUser && c.addrMode:
		if d != c.devices[0] {
			return
		}
		// broadcast address writes latch positionally, one per write
		if c.latched < len(c.devices) {
			l := c.devices[c.latched]
			l.SetRegister(register, data[0])
			l.Address = data[0]
			c.latched++
		}
		return
	case register == c.regs.DevAddrUser:
		d.write(register, data)
		d.Address = data[0]
		return
	case register == c.regs.Control1 && d == c.devices[0]:
		c.addrMode = data[0]&stack.Control1AddrWrite != 0
		c.latched = 0
	case register == c.regs.CommCtrl && len(data) == 2:
		if s, ok := lookupCommCtrl(data[0]); ok && d == c.devices[len(c.devices)-1] {
			c.chainBaud = s.Baud
		}
	}
	d.write(register, data)
}

func lookupCommCtrl(v byte) (stack.BaudSetting, bool) {
	for _, s := range stack.BaudSettings {
		if byte(s.Value>>8) == v {
			return s, true
		}
	}
	return stack.BaudSetting{}, false
}
