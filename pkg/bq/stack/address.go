package stack

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/bms.go/pkg/bq/comm"
)

// AutoAddress assigns ordinals 0..N-1 along the chain, configures the
// topology roles and reads every address back. It returns false with an
// *AddressMismatchError when any readback differs. Nothing is retried or
// rolled back.
func (c *Chain) AutoAddress() (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.autoAddress()
}

func (c *Chain) autoAddress() (bool, error) {
	regs, n := &c.cfg.Registers, c.cfg.Devices
	step := func(device byte, register uint16, value byte, wt comm.WriteType) error {
		if _, err := c.writeRegister(device, register, uint64(value), 1, wt); err != nil {
			return fmt.Errorf("auto-address: %w", err)
		}
		c.clock.Sleep(c.cfg.Timing.AddressStep)
		return nil
	}

	glog.V(1).Infof("auto-addressing %d devices", n)
	// ECC_TEST dummy write syncs the device DLLs.
	if err := step(0, regs.ECCTest, 0, comm.AllWrite); err != nil {
		return false, err
	}
	if err := step(0, regs.Config, 0, comm.AllWrite); err != nil {
		return false, err
	}
	if err := step(0, regs.Control1, Control1AddrWrite, comm.AllWrite); err != nil {
		return false, err
	}
	for i := 0; i < n; i++ {
		if err := step(0, regs.DevAddrUser, byte(i), comm.AllWrite); err != nil {
			return false, err
		}
	}
	for i := 0; i < n; i++ {
		if err := step(byte(i), regs.Config, byte(RoleOf(byte(i), n)), comm.SingleWrite); err != nil {
			return false, err
		}
	}

	var buf [comm.ResponseOverhead + 1]byte
	for i := 0; i < n; i++ {
		_, err := c.readRegister(byte(i), regs.ECCTest, buf[:], 1, 0, comm.SingleRead)
		if err != nil && !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrPartialResponse) {
			return false, fmt.Errorf("auto-address: %w", err)
		}
		c.clock.Sleep(c.cfg.Timing.AddressStep)
	}

	if err := step(0, regs.DaisyChainCtrl, DaisyChainBase, comm.SingleWrite); err != nil {
		return false, err
	}
	if err := step(1, regs.CommCtrl, CommCtrlStack, comm.StackWrite); err != nil {
		return false, err
	}
	if err := step(byte(n-1), regs.DaisyChainCtrl, DaisyChainTop, comm.SingleWrite); err != nil {
		return false, err
	}

	var errs AddressMismatchError
	c.clock.Sleep(c.cfg.Timing.VerifyStep)
	for i := 0; i < n; i++ {
		_, err := c.readRegister(byte(i), regs.DevAddrUser, buf[:], 1, 0, comm.SingleRead)
		got := buf[4]
		if err != nil {
			errs.Add(&MismatchError{Ordinal: byte(i), Got: got, Err: err})
		} else if got != byte(i) {
			errs.Add(&MismatchError{Ordinal: byte(i), Got: got})
		}
		glog.V(1).Infof("device %d address 0x%02x", i, got)
		c.clock.Sleep(c.cfg.Timing.VerifyStep)
	}
	c.clock.Sleep(c.cfg.Timing.AddressStep)
	if errs.Len() > 0 {
		glog.Warningf("auto-address: %v", errs.Errors)
		return false, &errs
	}
	return true, nil
}
