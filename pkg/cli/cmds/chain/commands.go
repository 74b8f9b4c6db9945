// Package chain provides console commands driving a daisy chain.
package chain

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/bms.go/pkg/bq/comm"
	"github.com/robotalks/bms.go/pkg/bq/stack"
	"github.com/robotalks/bms.go/pkg/cli/sh"
)

// Reply is a device reply as printed by the console.
type Reply struct {
	Device   byte   `json:"device"`
	Register uint16 `json:"register"`
	Data     string `json:"data"`
	Value    uint64 `json:"value"`
}

func (r Reply) String() string {
	return fmt.Sprintf("dev=%d reg=0x%04x data=%s value=0x%x", r.Device, r.Register, r.Data, r.Value)
}

// ReadResult is the outcome of a read command.
type ReadResult struct {
	Received int     `json:"received"`
	Replies  []Reply `json:"replies"`
	Error    string  `json:"error,omitempty"`
}

func (r ReadResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "received %d bytes", r.Received)
	for _, reply := range r.Replies {
		sb.WriteString("\n")
		sb.WriteString(reply.String())
	}
	if r.Error != "" {
		sb.WriteString("\nerror: ")
		sb.WriteString(r.Error)
	}
	return sb.String()
}

// ReadArgs are the parameters of a read.
type ReadArgs struct {
	Device   byte
	Register uint16
	Len      int
	Timeout  time.Duration
	Type     comm.WriteType
}

// ParseReadArgs parses "ID ADDR LEN [TIMEOUT(ms)] [TYPE]". The arguments
// may also be given comma separated in a single word, optionally led by
// "READ", e.g. "READ,0x01,0x0104,1,100,0x00".
func ParseReadArgs(args []string) (a ReadArgs, err error) {
	args = splitArgs(args)
	if len(args) > 0 && strings.EqualFold(args[0], "read") {
		args = args[1:]
	}
	if len(args) < 3 {
		return a, fmt.Errorf("ID ADDR LEN required")
	}
	a.Type = comm.SingleRead
	if a.Device, err = parseByte("ID", args[0]); err != nil {
		return
	}
	if a.Register, err = parseRegister(args[1]); err != nil {
		return
	}
	if a.Len, err = parseLen("LEN", args[2], comm.MaxReadLen); err != nil {
		return
	}
	if len(args) > 3 {
		ms, e := strconv.ParseUint(args[3], 0, 32)
		if e != nil {
			return a, fmt.Errorf("invalid TIMEOUT: %v", e)
		}
		a.Timeout = time.Duration(ms) * time.Millisecond
	}
	if len(args) > 4 {
		if a.Type, err = comm.ParseWriteType(args[4]); err != nil {
			return
		}
		if a.Type.IsWrite() {
			return a, fmt.Errorf("invalid TYPE: %s is not a read", a.Type)
		}
	}
	return
}

// WriteArgs are the parameters of a write.
type WriteArgs struct {
	Device   byte
	Register uint16
	Value    uint64
	Len      int
	Type     comm.WriteType
}

// ParseWriteArgs parses "ID ADDR VALUE [LEN] [TYPE]".
func ParseWriteArgs(args []string) (a WriteArgs, err error) {
	args = splitArgs(args)
	if len(args) < 3 {
		return a, fmt.Errorf("ID ADDR VALUE required")
	}
	a.Len, a.Type = 1, comm.SingleWrite
	if a.Device, err = parseByte("ID", args[0]); err != nil {
		return
	}
	if a.Register, err = parseRegister(args[1]); err != nil {
		return
	}
	if a.Value, err = strconv.ParseUint(args[2], 0, 64); err != nil {
		return a, fmt.Errorf("invalid VALUE: %v", err)
	}
	if len(args) > 3 {
		if a.Len, err = parseLen("LEN", args[3], comm.MaxWriteLen); err != nil {
			return
		}
	}
	if len(args) > 4 {
		if a.Type, err = comm.ParseWriteType(args[4]); err != nil {
			return
		}
	}
	return
}

// Read performs a read and collects the decoded replies.
func Read(ch *stack.Chain, a ReadArgs) ReadResult {
	buf := make([]byte, comm.ResponseLength(a.Type, a.Len, ch.Devices()))
	got, err := ch.ReadRegister(a.Device, a.Register, buf, a.Len, a.Timeout, a.Type)
	res := ReadResult{Received: got, Replies: []Reply{}}
	rs, perr := comm.ParseResponses(buf[:got], ch.Config().VerifyCRC)
	if err == nil {
		err = perr
	}
	for _, r := range rs {
		res.Replies = append(res.Replies, Reply{
			Device:   r.Device,
			Register: r.Register,
			Data:     hex.EncodeToString(r.Data),
			Value:    r.Value(),
		})
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func splitArgs(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, s := range strings.Split(arg, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func parseByte(name, s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return byte(v), nil
}

func parseRegister(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid ADDR: %v", err)
	}
	return uint16(v), nil
}

func parseLen(name, s string, max int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	if v < 1 || v > max {
		return 0, fmt.Errorf("invalid %s: %d not in 1..%d", name, v, max)
	}
	return v, nil
}

func chainOf(c *ishell.Context) *stack.Chain {
	return sh.ShellFrom(c).Env.Chain
}

// simple runs op and prints OK on success.
func simple(op func(*stack.Chain) error) func(c *ishell.Context) {
	return sh.MustBeOpen(func(c *ishell.Context) {
		if err := op(chainOf(c)); err != nil {
			c.Err(err)
			return
		}
		c.Println("OK")
	})
}

func addressed(op func(*stack.Chain) (bool, error)) func(c *ishell.Context) {
	return sh.MustBeOpen(func(c *ishell.Context) {
		ok, err := op(chainOf(c))
		if err != nil {
			c.Err(err)
		}
		sh.Print(c, map[string]bool{"addressed": ok})
	})
}

var (
	// ReadCmd reads a register.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r", "READ"},
		Help:    "ID ADDR LEN [TIMEOUT(ms)] [TYPE]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			a, err := ParseReadArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, Read(chainOf(c), a))
		}),
	}

	// WriteCmd writes a register.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "ID ADDR VALUE [LEN] [TYPE]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			a, err := ParseWriteArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			n, err := chainOf(c).WriteRegister(a.Device, a.Register, a.Value, a.Len, a.Type)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, map[string]int{"sent": n})
		}),
	}

	// DumpCmd reads a register from every device.
	DumpCmd = ishell.Cmd{
		Name:    "dump",
		Aliases: []string{"d"},
		Help:    "ADDR [LEN]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("ADDR required"))
				return
			}
			a := ReadArgs{Len: 1, Type: comm.AllRead}
			var err error
			if a.Register, err = parseRegister(c.Args[0]); err != nil {
				c.Err(err)
				return
			}
			if len(c.Args) > 1 {
				if a.Len, err = parseLen("LEN", c.Args[1], comm.MaxReadLen); err != nil {
					c.Err(err)
					return
				}
			}
			sh.Print(c, Read(chainOf(c), a))
		}),
	}

	// WakeCmd pulses the wake pin.
	WakeCmd = ishell.Cmd{
		Name: "wake",
		Help: "",
		Func: simple((*stack.Chain).Wake),
	}

	// ClearCmd sends a communication clear.
	ClearCmd = ishell.Cmd{
		Name: "clear",
		Help: "",
		Func: simple((*stack.Chain).CommClear),
	}

	// SleepToActiveCmd wakes the chain from sleep.
	SleepToActiveCmd = ishell.Cmd{
		Name:    "sleep2active",
		Aliases: []string{"s2a"},
		Help:    "",
		Func:    simple((*stack.Chain).SleepToActive),
	}

	// ResetCmd resets communication and selects a rate.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "[BAUD]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			ch := chainOf(c)
			baud := ch.Config().Baud
			if len(c.Args) > 0 {
				v, err := strconv.ParseUint(c.Args[0], 0, 32)
				if err != nil {
					c.Err(fmt.Errorf("invalid BAUD: %v", err))
					return
				}
				baud = uint32(v)
			}
			if err := ch.CommReset(baud); err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, map[string]uint32{"baud": ch.Baud()})
		}),
	}

	// AutoAddressCmd assigns device addresses.
	AutoAddressCmd = ishell.Cmd{
		Name:    "autoaddr",
		Aliases: []string{"aa"},
		Help:    "",
		Func:    addressed((*stack.Chain).AutoAddress),
	}

	// BringUpCmd wakes, resets and addresses the chain.
	BringUpCmd = ishell.Cmd{
		Name:    "bringup",
		Aliases: []string{"up"},
		Help:    "",
		Func:    addressed((*stack.Chain).BringUp),
	}
)

func init() {
	sh.AddCmds(
		&ReadCmd,
		&WriteCmd,
		&DumpCmd,
		&WakeCmd,
		&ClearCmd,
		&SleepToActiveCmd,
		&ResetCmd,
		&AutoAddressCmd,
		&BringUpCmd,
	)
}
