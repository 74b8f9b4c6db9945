package stack

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"periph.io/x/periph/conn/gpio"

	"github.com/robotalks/bms.go/pkg/bq/comm"
)

// ErrNoWakePin is returned by Wake on a chain without wake pin.
var ErrNoWakePin = errors.New("no wake pin")

// ResetBaud is the rate used to send the baud selection.
const ResetBaud uint32 = 250000

// BaudSetting is the COMM_CTRL and DAISY_CHAIN_CTRL pair selecting a rate.
type BaudSetting struct {
	Baud  uint32
	Value uint16
}

// BaudSettings lists the supported rates.
var BaudSettings = []BaudSetting{
	{Baud: 1000000, Value: 0x3c3c},
	{Baud: 500000, Value: 0x383c},
	{Baud: 250000, Value: 0x343c},
	{Baud: 125000, Value: 0x303c},
}

// LookupBaud finds the setting of baud.
func LookupBaud(baud uint32) (BaudSetting, bool) {
	for _, s := range BaudSettings {
		if s.Baud == baud {
			return s, true
		}
	}
	return BaudSetting{}, false
}

// Wake pulses the wake pin and waits for every device to power up.
func (c *Chain) Wake() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.wakeUp()
}

func (c *Chain) wakeUp() error {
	if c.wake == nil {
		return ErrNoWakePin
	}
	glog.V(1).Info("wake")
	if err := c.wake.Out(gpio.Low); err != nil {
		return fmt.Errorf("wake: %w", err)
	}
	c.clock.Sleep(c.cfg.Timing.WakePulse)
	if err := c.wake.Out(gpio.High); err != nil {
		return fmt.Errorf("wake: %w", err)
	}
	c.clock.Sleep(c.cfg.Timing.WakePerDevice * time.Duration(c.cfg.Devices))
	return nil
}

// CommClear holds the link low for the comm-clear bit periods at the
// current rate, resetting the receivers' framing.
func (c *Chain) CommClear() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	glog.V(1).Info("comm clear")
	return c.link.Break(BitPeriods(c.baud, c.cfg.Timing.CommClearBits))
}

// SleepToActive brings sleeping devices back to active.
func (c *Chain) SleepToActive() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	glog.V(1).Info("sleep to active")
	if err := c.link.Break(c.cfg.Timing.SleepToActivePulse); err != nil {
		return err
	}
	if err := c.link.Configure(c.baud); err != nil {
		return err
	}
	c.clock.Sleep(c.cfg.Timing.SleepToActivePerDevice * time.Duration(c.cfg.Devices))
	return nil
}

// CommReset resets the communication of all devices and switches the
// chain and the host to baud. An unsupported baud selects DefaultBaud.
func (c *Chain) CommReset(baud uint32) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.commReset(baud)
}

func (c *Chain) commReset(baud uint32) error {
	t := &c.cfg.Timing
	setting, ok := LookupBaud(baud)
	settle := t.ResetSettle
	if !ok {
		glog.Warningf("unsupported baud rate %d, using %d", baud, DefaultBaud)
		setting, _ = LookupBaud(DefaultBaud)
	} else if baud == DefaultBaud {
		settle = t.ResetSettleFast
	}
	glog.V(1).Infof("comm reset to %d", setting.Baud)

	if err := c.link.Break(t.ResetPulse); err != nil {
		return err
	}
	if err := c.link.Configure(ResetBaud); err != nil {
		return err
	}
	c.baud = ResetBaud
	if _, err := c.writeRegister(0, c.cfg.Registers.CommCtrl, uint64(setting.Value), 2, comm.AllWrite); err != nil {
		return err
	}
	c.clock.Sleep(settle)
	if setting.Baud != ResetBaud {
		if err := c.link.Configure(setting.Baud); err != nil {
			return err
		}
		c.baud = setting.Baud
	}
	c.clock.Sleep(t.ResetFinal)
	return nil
}

// BringUp wakes the chain, negotiates the configured baud and assigns
// addresses.
func (c *Chain) BringUp() (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.wakeUp(); err != nil {
		return false, err
	}
	if err := c.commReset(c.cfg.Baud); err != nil {
		return false, err
	}
	return c.autoAddress()
}
