package stack_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"

	"github.com/robotalks/bms.go/pkg/bq/sim"
	"github.com/robotalks/bms.go/pkg/bq/stack"
)

func TestWake(t *testing.T) {
	c, s, clock := newSimChain(t, 3)
	require.NoError(t, c.Wake())
	require.Equal(t, []sim.Op{
		{Kind: sim.OpWake, Level: gpio.Low},
		{Kind: sim.OpWake, Level: gpio.High},
	}, s.Ops())
	require.Equal(t, []time.Duration{275 * time.Microsecond, 36 * time.Millisecond}, clock.sleeps)

	cfg := stack.DefaultConfig()
	nowake, err := stack.NewChain(s, nil, cfg)
	require.NoError(t, err)
	require.ErrorIs(t, nowake.Wake(), stack.ErrNoWakePin)
}

func TestCommClear(t *testing.T) {
	c, s, _ := newSimChain(t, 2)
	require.NoError(t, c.CommClear())
	require.Equal(t, []sim.Op{{Kind: sim.OpBreak, Duration: 17 * time.Microsecond}}, s.Ops())
}

func TestSleepToActive(t *testing.T) {
	c, s, clock := newSimChain(t, 4)
	require.NoError(t, c.SleepToActive())
	require.Equal(t, []sim.Op{
		{Kind: sim.OpBreak, Duration: 260 * time.Microsecond},
		{Kind: sim.OpConfigure, Baud: 1000000},
	}, s.Ops())
	require.Equal(t, []time.Duration{680 * time.Microsecond}, clock.sleeps)
}

func TestCommReset(t *testing.T) {
	testCases := []struct {
		name    string
		baud    uint32
		value   []byte
		settle  time.Duration
		final   uint32
		reopens bool
	}{
		{"1M", 1000000, []byte{0x3c, 0x3c}, 500 * time.Microsecond, 1000000, true},
		{"500k", 500000, []byte{0x38, 0x3c}, 250 * time.Microsecond, 500000, true},
		{"250k", 250000, []byte{0x34, 0x3c}, 250 * time.Microsecond, 250000, false},
		{"125k", 125000, []byte{0x30, 0x3c}, 250 * time.Microsecond, 125000, true},
		{"unsupported", 9600, []byte{0x3c, 0x3c}, 250 * time.Microsecond, 1000000, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, s, clock := newSimChain(t, 2)
			require.NoError(t, c.CommReset(tc.baud))
			ops := s.Ops()
			require.Equal(t, sim.Op{Kind: sim.OpBreak, Duration: 500 * time.Microsecond}, ops[0])
			require.Equal(t, sim.Op{Kind: sim.OpConfigure, Baud: 250000}, ops[1])
			require.Equal(t, sim.OpWrite, ops[2].Kind)
			require.Equal(t, append([]byte{0xd1, 0x00, 0x10}, tc.value...), ops[2].Data[:5])
			if tc.reopens {
				require.Len(t, ops, 4)
				require.Equal(t, sim.Op{Kind: sim.OpConfigure, Baud: tc.final}, ops[3])
			} else {
				require.Len(t, ops, 3)
			}
			require.Equal(t, []time.Duration{tc.settle, 100 * time.Microsecond}, clock.sleeps)
			require.Equal(t, tc.final, c.Baud())
			require.Equal(t, tc.final, s.Baud())
		})
	}
}

func TestBringUp(t *testing.T) {
	cfg := stack.DefaultConfig()
	cfg.Devices, cfg.Baud = 3, 500000
	cfg.Clock = &recordingClock{}
	s := sim.New(3, cfg.Registers)
	c, err := stack.NewChain(s, s, cfg)
	require.NoError(t, err)

	ok, err := c.BringUp()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(500000), c.Baud())
	require.Equal(t, uint32(500000), s.Baud())
	for i := 0; i < 3; i++ {
		require.Equal(t, byte(i), s.Device(i).Address)
	}

	ops := s.Ops()
	require.Equal(t, sim.OpWake, ops[0].Kind)
	require.Equal(t, sim.OpWake, ops[1].Kind)
	require.Equal(t, sim.OpBreak, ops[2].Kind)
}

func TestAutoAddressWrongBaud(t *testing.T) {
	c, s, _ := newSimChain(t, 2)
	require.NoError(t, s.Break(time.Millisecond))
	ok, err := c.AutoAddress()
	require.False(t, ok)
	require.ErrorIs(t, err, stack.ErrTimeout)

	require.NoError(t, c.CommReset(1000000))
	ok, err = c.AutoAddress()
	require.NoError(t, err)
	require.True(t, ok)
}
