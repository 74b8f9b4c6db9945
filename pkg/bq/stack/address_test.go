package stack_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/bms.go/pkg/bq/sim"
	"github.com/robotalks/bms.go/pkg/bq/stack"
)

type recordingClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *recordingClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *recordingClock) Now() time.Time {
	return c.now
}

func newSimChain(t *testing.T, n int) (*stack.Chain, *sim.Chain, *recordingClock) {
	cfg := stack.DefaultConfig()
	cfg.Devices = n
	clock := &recordingClock{}
	cfg.Clock = clock
	s := sim.New(n, cfg.Registers)
	c, err := stack.NewChain(s, s, cfg)
	require.NoError(t, err)
	return c, s, clock
}

func TestAutoAddress(t *testing.T) {
	testCases := []struct {
		devices int
		roles   []stack.Role
	}{
		{1, []stack.Role{stack.RoleBaseTop}},
		{2, []stack.Role{stack.RoleBase, stack.RoleTop}},
		{3, []stack.Role{stack.RoleBase, stack.RoleStack, stack.RoleTop}},
		{5, []stack.Role{stack.RoleBase, stack.RoleStack, stack.RoleStack, stack.RoleStack, stack.RoleTop}},
	}
	regs := stack.DefaultRegisterMap()
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d devices", tc.devices), func(t *testing.T) {
			c, s, _ := newSimChain(t, tc.devices)
			ok, err := c.AutoAddress()
			require.NoError(t, err)
			require.True(t, ok)
			for i := 0; i < tc.devices; i++ {
				d := s.Device(i)
				require.Equal(t, byte(i), d.Address)
				require.Equal(t, byte(i), d.Register(regs.DevAddrUser))
				require.Equal(t, tc.roles[i], d.Role(regs))
			}
			require.Equal(t, stack.DaisyChainTop, s.Device(tc.devices-1).Register(regs.DaisyChainCtrl))
			if tc.devices > 1 {
				require.Equal(t, stack.DaisyChainBase, s.Device(0).Register(regs.DaisyChainCtrl))
				require.Equal(t, stack.CommCtrlStack, s.Device(1).Register(regs.CommCtrl))
				require.Equal(t, byte(0), s.Device(0).Register(regs.CommCtrl))
			}
		})
	}
}

func TestAutoAddressSequence(t *testing.T) {
	c, s, clock := newSimChain(t, 3)
	ok, err := c.AutoAddress()
	require.NoError(t, err)
	require.True(t, ok)

	var writes [][]byte
	for _, op := range s.Ops() {
		if op.Kind == sim.OpWrite {
			writes = append(writes, op.Data)
		}
	}
	// 3 setup writes, 3 address writes, 3 role writes, 3 dummy reads,
	// 3 link configuration writes, 3 readbacks
	require.Len(t, writes, 18)
	require.Equal(t, []byte{0xd0, 0x01, 0x1a, 0x00}, writes[0][:4])
	require.Equal(t, []byte{0xd0, 0x00, 0x01, 0x00}, writes[1][:4])
	require.Equal(t, []byte{0xd0, 0x01, 0x05, 0x01}, writes[2][:4])
	for i := 0; i < 3; i++ {
		require.Equal(t, []byte{0xd0, 0x01, 0x04, byte(i)}, writes[3+i][:4])
	}
	require.Equal(t, []byte{0x90, 0x00, 0x00, 0x01, 0x00}, writes[6][:5])
	require.Equal(t, []byte{0x90, 0x01, 0x00, 0x01, 0x02}, writes[7][:5])
	require.Equal(t, []byte{0x90, 0x02, 0x00, 0x01, 0x03}, writes[8][:5])
	for i := 0; i < 3; i++ {
		require.Equal(t, []byte{0x80, byte(i), 0x01, 0x1a, 0x00}, writes[9+i][:5])
	}
	require.Equal(t, []byte{0x90, 0x00, 0x00, 0x11, 0x0d}, writes[12][:5])
	require.Equal(t, []byte{0xb0, 0x00, 0x10, 0x04}, writes[13][:4])
	require.Equal(t, []byte{0x90, 0x02, 0x00, 0x11, 0x32}, writes[14][:5])
	for i := 0; i < 3; i++ {
		require.Equal(t, []byte{0x80, byte(i), 0x01, 0x04, 0x00}, writes[15+i][:5])
	}

	var steps, verifies int
	for _, d := range clock.sleeps {
		switch d {
		case 100 * time.Millisecond:
			steps++
		case 10 * time.Millisecond:
			verifies++
		}
	}
	require.Equal(t, 16, steps)
	require.Equal(t, 4, verifies)
}

func TestAutoAddressIdempotent(t *testing.T) {
	c, s, _ := newSimChain(t, 4)
	for i := 0; i < 3; i++ {
		ok, err := c.AutoAddress()
		require.NoError(t, err)
		require.True(t, ok)
		for j := 0; j < 4; j++ {
			require.Equal(t, byte(j), s.Device(j).Address)
		}
	}
}

func TestAutoAddressMismatch(t *testing.T) {
	c, s, _ := newSimChain(t, 3)
	s.Device(1).Pin(stack.DefaultRegisterMap().DevAddrUser, 0x07)
	ok, err := c.AutoAddress()
	require.False(t, ok)
	var mismatch *stack.AddressMismatchError
	require.True(t, errors.As(err, &mismatch))
	ms := mismatch.Mismatches()
	require.Len(t, ms, 1)
	require.Equal(t, byte(1), ms[0].Ordinal)
	require.Equal(t, byte(0x07), ms[0].Got)
	require.NoError(t, ms[0].Err)
}

func TestAutoAddressNoReply(t *testing.T) {
	c, s, _ := newSimChain(t, 2)
	s.SetMute(true)
	ok, err := c.AutoAddress()
	require.False(t, ok)
	require.ErrorIs(t, err, stack.ErrTimeout)
	var mismatch *stack.AddressMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Len(t, mismatch.Mismatches(), 2)
}
