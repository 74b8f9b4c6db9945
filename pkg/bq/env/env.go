// Package env sets up a chain from command line flags and environment.
package env

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strconv"

	"github.com/robotalks/bms.go/pkg/bq/hw"
	"github.com/robotalks/bms.go/pkg/bq/sim"
	"github.com/robotalks/bms.go/pkg/bq/stack"
)

// Config provides common options to open a chain.
type Config struct {
	// LinkURL selects the link, e.g.
	//   serial:///dev/ttyUSB0?wake=GPIO17
	//   sim://3
	LinkURL string
	// Devices is the chain length. sim:// URLs with a host override it.
	Devices int
	// Baud is the rate negotiated on bring-up.
	Baud uint
	// VerifyCRC enables reply CRC checks.
	VerifyCRC bool

	// MQTTBrokerURL specifies the MQTT broker for telemetry.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// MonitorID identifies this host in telemetry topics.
	MonitorID string
}

var defaultConfig = Config{
	LinkURL:       "serial:///dev/ttyUSB0?wake=GPIO17",
	Devices:       1,
	Baud:          uint(stack.DefaultBaud),
	MQTTBrokerURL: "mqtt://localhost:1883/bms/",
}

func init() {
	if val := os.Getenv("BQ_LINK"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("BQ_DEVICES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			defaultConfig.Devices = n
		}
	}
	if val := os.Getenv("BQ_BAUD"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			defaultConfig.Baud = uint(n)
		}
	}
	if val := os.Getenv("BQ_VERIFY_CRC"); val != "" {
		defaultConfig.VerifyCRC, _ = strconv.ParseBool(val)
	}
	if val := os.Getenv("BQ_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("BQ_MONITOR_ID"); val != "" {
		defaultConfig.MonitorID = val
	} else {
		defaultConfig.MonitorID = MachineID()
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Link URL (serial:///dev/tty...?wake=PIN or sim://N)")
	flag.IntVar(&defaultConfig.Devices, "devices", defaultConfig.Devices, "Number of devices in the chain")
	flag.UintVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Link baud rate")
	flag.BoolVar(&defaultConfig.VerifyCRC, "verify-crc", defaultConfig.VerifyCRC, "Verify CRC of replies")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.MonitorID, "id", defaultConfig.MonitorID, "Monitor ID")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is an opened chain.
type Env struct {
	Config *Config
	Chain  *stack.Chain
	// Sim is set when the link is simulated.
	Sim *sim.Chain

	closer io.Closer
}

// ChainConfig builds the stack configuration.
func (c *Config) ChainConfig() stack.Config {
	cfg := stack.DefaultConfig()
	cfg.Devices = c.Devices
	cfg.Baud = uint32(c.Baud)
	cfg.VerifyCRC = c.VerifyCRC
	return cfg
}

// Open opens the link and creates the chain.
func (c *Config) Open() (*Env, error) {
	u, err := url.Parse(c.LinkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %w", err)
	}
	cfg := c.ChainConfig()
	e := &Env{Config: c}
	var link stack.Link
	var wake stack.WakePin
	switch u.Scheme {
	case "sim":
		if u.Host != "" {
			if cfg.Devices, err = strconv.Atoi(u.Host); err != nil {
				return nil, fmt.Errorf("invalid sim chain length %q", u.Host)
			}
		}
		e.Sim = sim.New(cfg.Devices, cfg.Registers)
		link, wake = e.Sim, e.Sim
	case "serial":
		if u.Path == "" {
			return nil, errors.New("serial link requires a device path")
		}
		port, err := hw.OpenSerial(u.Path, cfg.Baud)
		if err != nil {
			return nil, err
		}
		link, e.closer = port, port
		if name := u.Query().Get("wake"); name != "" {
			pin, err := hw.OpenWakePin(name)
			if err != nil {
				port.Close()
				return nil, err
			}
			wake = pin
		}
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
	if e.Chain, err = stack.NewChain(link, wake, cfg); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// MustOpen opens the chain and fails on error.
func (c *Config) MustOpen() *Env {
	e, err := c.Open()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// Close releases the link.
func (e *Env) Close() error {
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}
