package chain

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/bms.go/pkg/bq/sim"
	"github.com/robotalks/bms.go/pkg/cli/sh"
)

func mustBeSim(fn func(c *ishell.Context, s *sim.Chain)) func(c *ishell.Context) {
	return sh.MustBeOpen(func(c *ishell.Context) {
		s := sh.ShellFrom(c).Env.Sim
		if s == nil {
			c.Err(fmt.Errorf("link is not simulated"))
			return
		}
		fn(c, s)
	})
}

func parseSwitch(args []string) (bool, error) {
	if len(args) < 1 {
		return false, fmt.Errorf("on|off required")
	}
	switch args[0] {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return strconv.ParseBool(args[0])
}

// SimCmd controls a simulated chain.
var SimCmd = ishell.Cmd{
	Name: "sim",
	Help: "simulated chain controls",
}

func init() {
	SimCmd.AddCmd(&ishell.Cmd{
		Name: "ops",
		Help: "[clear]",
		Func: mustBeSim(func(c *ishell.Context, s *sim.Chain) {
			if len(c.Args) > 0 && c.Args[0] == "clear" {
				s.ResetOps()
				return
			}
			for _, op := range s.Ops() {
				c.Println(op.String())
			}
		}),
	})
	SimCmd.AddCmd(&ishell.Cmd{
		Name: "mute",
		Help: "on|off",
		Func: mustBeSim(func(c *ishell.Context, s *sim.Chain) {
			on, err := parseSwitch(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s.SetMute(on)
		}),
	})
	SimCmd.AddCmd(&ishell.Cmd{
		Name: "corrupt",
		Help: "on|off",
		Func: mustBeSim(func(c *ishell.Context, s *sim.Chain) {
			on, err := parseSwitch(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s.SetCorrupt(on)
		}),
	})
	SimCmd.AddCmd(&ishell.Cmd{
		Name: "truncate",
		Help: "BYTES",
		Func: mustBeSim(func(c *ishell.Context, s *sim.Chain) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("BYTES required"))
				return
			}
			n, err := strconv.Atoi(c.Args[0])
			if err != nil || n < 0 {
				c.Err(fmt.Errorf("invalid BYTES: %q", c.Args[0]))
				return
			}
			s.SetTruncate(n)
		}),
	})
	SimCmd.AddCmd(&ishell.Cmd{
		Name: "devices",
		Help: "",
		Func: mustBeSim(func(c *ishell.Context, s *sim.Chain) {
			regs := sh.ShellFrom(c).Env.Chain.Config().Registers
			for i := 0; i < s.Len(); i++ {
				d := s.Device(i)
				c.Printf("%d: addr=%d role=%s\n", i, d.Address, d.Role(regs))
			}
		}),
	})
	sh.AddCmds(&SimCmd)
}
