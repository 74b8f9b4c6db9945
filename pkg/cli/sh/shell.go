package sh

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/bms.go/pkg/bq/env"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell  *ishell.Shell
	Config *env.Config
	Env    *env.Env
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

// ErrNotOpen is reported by commands requiring an open link.
var ErrNotOpen = errors.New("link not open")

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&InfoCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an open link.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Env == nil {
			c.Err(ErrNotOpen)
			return
		}
		fn(c)
	}
}

// Print prints v as JSON when requested, otherwise with its text form.
func Print(c *ishell.Context, v interface{}) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(v)
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Open opens the link in linkURL, or the configured one if empty.
func (s *Shell) Open(linkURL string) error {
	conf := *s.Config
	if linkURL != "" {
		conf.LinkURL = linkURL
	}
	s.Close()
	e, err := conf.Open()
	if err != nil {
		return err
	}
	s.Env = e
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", conf.LinkURL))
	return nil
}

// Close closes the current link.
func (s *Shell) Close() {
	if s.Env != nil {
		if err := s.Env.Close(); err != nil {
			log.Printf("close %s: %v", s.Env.Config.LinkURL, err)
		}
		s.Env = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen && s.Config.LinkURL != "" {
		if s.Interactive {
			s.Shell.Printf("Opening %s ...\n", s.Config.LinkURL)
		}
		if err := s.Open(""); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.LinkURL, err)
		}
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// chainInfo is printed by the info command.
type chainInfo struct {
	Link      string `json:"link"`
	Devices   int    `json:"devices"`
	Baud      uint32 `json:"baud"`
	VerifyCRC bool   `json:"verify_crc"`
	Simulated bool   `json:"simulated"`
}

func (i chainInfo) String() string {
	s := fmt.Sprintf("%s: %d devices at %d baud", i.Link, i.Devices, i.Baud)
	if i.VerifyCRC {
		s += ", crc checked"
	}
	if i.Simulated {
		s += " (simulated)"
	}
	return s
}

var (
	// OpenCmd opens a link.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[LINK-URL]",
		Func: func(c *ishell.Context) {
			var linkURL string
			if len(c.Args) > 0 {
				linkURL = c.Args[0]
			}
			if err := ShellFrom(c).Open(linkURL); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the current link.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// InfoCmd shows the opened chain.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"i"},
		Help:    "",
		Func: MustBeOpen(func(c *ishell.Context) {
			e := ShellFrom(c).Env
			cfg := e.Chain.Config()
			Print(c, chainInfo{
				Link:      e.Config.LinkURL,
				Devices:   e.Chain.Devices(),
				Baud:      e.Chain.Baud(),
				VerifyCRC: cfg.VerifyCRC,
				Simulated: e.Sim != nil,
			})
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoOpen(true).Run(flag.Args()...)
}
