package stack

import (
	"fmt"
	"time"

	"periph.io/x/periph/conn/physic"
)

// Timing holds every delay used by the chain sequences.
type Timing struct {
	// WakePulse is how long the wake pin is held low.
	WakePulse time.Duration
	// WakePerDevice is the shutdown to active transition per device.
	WakePerDevice time.Duration
	// CommClearBits is the length of the comm-clear break in bit periods.
	CommClearBits int
	// SleepToActivePulse is how long TX is held low to leave sleep.
	SleepToActivePulse time.Duration
	// SleepToActivePerDevice is the sleep to active transition per device.
	SleepToActivePerDevice time.Duration
	// ResetPulse is how long TX is held low for a communication reset.
	ResetPulse time.Duration
	// ResetSettleFast follows the baud write when switching to 1M.
	ResetSettleFast time.Duration
	// ResetSettle follows the baud write for the other rates.
	ResetSettle time.Duration
	// ResetFinal ends the communication reset.
	ResetFinal time.Duration
	// AddressStep follows each auto-addressing step.
	AddressStep time.Duration
	// VerifyStep follows each address readback.
	VerifyStep time.Duration
	// ReadPoll is the interval between checks for a reply.
	ReadPoll time.Duration
	// ReadTimeout bounds the wait for the first reply byte.
	ReadTimeout time.Duration
}

// Wake pulse bounds, exclusive.
const (
	MinWakePulse = 250 * time.Microsecond
	MaxWakePulse = 300 * time.Microsecond
)

// DefaultTiming returns the device datasheet timings.
func DefaultTiming() Timing {
	return Timing{
		WakePulse:              275 * time.Microsecond,
		WakePerDevice:          12 * time.Millisecond,
		CommClearBits:          17,
		SleepToActivePulse:     260 * time.Microsecond,
		SleepToActivePerDevice: 170 * time.Microsecond,
		ResetPulse:             500 * time.Microsecond,
		ResetSettleFast:        500 * time.Microsecond,
		ResetSettle:            250 * time.Microsecond,
		ResetFinal:             100 * time.Microsecond,
		AddressStep:            100 * time.Millisecond,
		VerifyStep:             10 * time.Millisecond,
		ReadPoll:               5 * time.Millisecond,
		ReadTimeout:            50 * time.Millisecond,
	}
}

// Validate checks the timings are usable.
func (t *Timing) Validate() error {
	if t.WakePulse <= MinWakePulse || t.WakePulse >= MaxWakePulse {
		return fmt.Errorf("%w: wake pulse %v outside (%v, %v)", ErrInvalidConfig, t.WakePulse, MinWakePulse, MaxWakePulse)
	}
	if t.ReadPoll <= 0 {
		return fmt.Errorf("%w: read poll interval %v", ErrInvalidConfig, t.ReadPoll)
	}
	if t.ReadTimeout < 0 {
		return fmt.Errorf("%w: read timeout %v", ErrInvalidConfig, t.ReadTimeout)
	}
	if t.CommClearBits <= 0 {
		return fmt.Errorf("%w: comm clear of %d bits", ErrInvalidConfig, t.CommClearBits)
	}
	return nil
}

// BitPeriods returns the duration of n bits at baud.
func BitPeriods(baud uint32, n int) time.Duration {
	if baud == 0 {
		return 0
	}
	f := physic.Frequency(baud) * physic.Hertz
	return time.Duration(n) * f.Period()
}

// Clock executes delays and measures elapsed time.
type Clock interface {
	Sleep(time.Duration)
	Now() time.Time
}

// SleepClock delays using time.Sleep. Delays below SpinBelow busy-wait
// instead, as the scheduler can't honor them.
type SleepClock struct {
	SpinBelow time.Duration
}

// DefaultClock is used when a chain is configured without a clock.
var DefaultClock Clock = &SleepClock{SpinBelow: time.Millisecond}

// Now implements Clock.
func (c *SleepClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.
func (c *SleepClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if d >= c.SpinBelow {
		time.Sleep(d)
		return
	}
	for deadline := time.Now().Add(d); time.Now().Before(deadline); {
	}
}
