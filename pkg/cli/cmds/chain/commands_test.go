package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/bms.go/pkg/bq/comm"
	"github.com/robotalks/bms.go/pkg/bq/sim"
	"github.com/robotalks/bms.go/pkg/bq/stack"
)

// noDelay advances virtual time without sleeping.
type noDelay struct {
	now time.Time
}

func (c *noDelay) Sleep(d time.Duration) { c.now = c.now.Add(d) }
func (c *noDelay) Now() time.Time        { return c.now }

func TestParseReadArgs(t *testing.T) {
	testCases := []struct {
		name   string
		args   []string
		expect ReadArgs
	}{
		{"defaults", []string{"1", "0x0104", "1"},
			ReadArgs{Device: 1, Register: 0x0104, Len: 1, Type: comm.SingleRead}},
		{"console form", []string{"READ,0x01,0x2000,8,1000,0x40"},
			ReadArgs{Device: 1, Register: 0x2000, Len: 8, Timeout: time.Second, Type: comm.AllRead}},
		{"named type", []string{"0", "0x10", "2", "20", "stk_r"},
			ReadArgs{Register: 0x10, Len: 2, Timeout: 20 * time.Millisecond, Type: comm.StackRead}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := ParseReadArgs(tc.args)
			require.NoError(t, err)
			require.Equal(t, tc.expect, a)
		})
	}

	for _, args := range [][]string{
		{"1", "2"},
		{"256", "0", "1"},
		{"0", "0x10000", "1"},
		{"0", "0", "0"},
		{"0", "0", "129"},
		{"0", "0", "1", "x"},
		{"0", "0", "1", "0", "all_nr"},
	} {
		_, err := ParseReadArgs(args)
		require.Error(t, err, "%v", args)
	}
}

func TestParseWriteArgs(t *testing.T) {
	a, err := ParseWriteArgs([]string{"2", "0x0021", "1"})
	require.NoError(t, err)
	require.Equal(t, WriteArgs{Device: 2, Register: 0x21, Value: 1, Len: 1, Type: comm.SingleWrite}, a)

	a, err = ParseWriteArgs([]string{"0,0x0010,0x3c3c,2,frmwrt_all_nr"})
	require.NoError(t, err)
	require.Equal(t, WriteArgs{Register: 0x10, Value: 0x3c3c, Len: 2, Type: comm.AllWrite}, a)

	_, err = ParseWriteArgs([]string{"0", "0x10", "1", "9"})
	require.Error(t, err)
	a, err = ParseWriteArgs([]string{"1", "0x10", "0x1234", "2", "sgl_r"})
	require.NoError(t, err)
	require.Equal(t, comm.SingleRead, a.Type)
	_, err = ParseWriteArgs([]string{"0", "0x10", "1", "1", "0x60"})
	require.Error(t, err)
}

func TestRead(t *testing.T) {
	cfg := stack.DefaultConfig()
	cfg.Devices, cfg.Clock, cfg.VerifyCRC = 2, &noDelay{}, true
	s := sim.New(cfg.Devices, cfg.Registers)
	for i := 0; i < cfg.Devices; i++ {
		s.Device(i).Address = byte(i)
		s.Device(i).SetRegister(0x0300, byte(0x10+i))
	}
	ch, err := stack.NewChain(s, s, cfg)
	require.NoError(t, err)

	res := Read(ch, ReadArgs{Register: 0x0300, Len: 1, Type: comm.AllRead})
	require.Empty(t, res.Error)
	require.Equal(t, 14, res.Received)
	require.Equal(t, []Reply{
		{Device: 1, Register: 0x0300, Data: "11", Value: 0x11},
		{Device: 0, Register: 0x0300, Data: "10", Value: 0x10},
	}, res.Replies)
	require.Contains(t, res.String(), "dev=1 reg=0x0300 data=11 value=0x11")

	s.SetMute(true)
	res = Read(ch, ReadArgs{Register: 0x0300, Len: 1, Type: comm.SingleRead})
	require.Zero(t, res.Received)
	require.Empty(t, res.Replies)
	require.Equal(t, stack.ErrTimeout.Error(), res.Error)
	s.SetMute(false)

	s.SetTruncate(2)
	res = Read(ch, ReadArgs{Register: 0x0300, Len: 1, Type: comm.AllRead})
	require.Equal(t, 12, res.Received)
	require.Len(t, res.Replies, 1)
	require.NotEmpty(t, res.Error)
}
