package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/bms.go/pkg/bq/comm"
	"github.com/robotalks/bms.go/pkg/bq/sim"
	"github.com/robotalks/bms.go/pkg/bq/stack"
	fx "github.com/robotalks/bms.go/pkg/framework"
	"github.com/robotalks/bms.go/pkg/telemetry/msgs"
)

// noDelay advances virtual time without sleeping.
type noDelay struct {
	now time.Time
}

func (c *noDelay) Sleep(d time.Duration) { c.now = c.now.Add(d) }
func (c *noDelay) Now() time.Time        { return c.now }

type collector struct {
	lock sync.Mutex
	msgs []fx.Message
}

func (c *collector) Publish(msg fx.Message) error {
	c.lock.Lock()
	c.msgs = append(c.msgs, msg)
	c.lock.Unlock()
	return nil
}

func (c *collector) snapshot() []fx.Message {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]fx.Message(nil), c.msgs...)
}

func newSimChain(t *testing.T, n int) (*stack.Chain, *sim.Chain) {
	cfg := stack.DefaultConfig()
	cfg.Devices, cfg.Clock = n, &noDelay{}
	s := sim.New(n, cfg.Registers)
	c, err := stack.NewChain(s, s, cfg)
	require.NoError(t, err)
	return c, s
}

func runLoop(t *testing.T, m *Monitor, until func() bool) {
	loop := fx.NewLoop()
	loop.Interval = time.Millisecond
	loop.Add(m)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	require.Eventually(t, until, 2*time.Second, time.Millisecond)
	cancel()
	require.Equal(t, context.Canceled, <-done)
}

func TestMonitorBringUpAndPoll(t *testing.T) {
	chain, _ := newSimChain(t, 3)
	regs := stack.DefaultRegisterMap()
	pub := &collector{}
	m := &Monitor{
		ID:        "m1",
		Chain:     chain,
		Watches:   []Watch{{Register: regs.DevAddrUser, Len: 1, Type: comm.AllRead}},
		Publisher: pub,
		BringUp:   true,
	}
	runLoop(t, m, func() bool { return len(pub.snapshot()) >= 7 })

	published := pub.snapshot()
	status, ok := published[0].(*msgs.ChainStatus)
	require.True(t, ok)
	require.True(t, status.Addressed)
	require.Equal(t, uint32(3), status.Devices)
	require.Equal(t, uint32(1000000), status.Baud)
	require.Equal(t, "m1", status.MonitorID)

	for i := 0; i < 3; i++ {
		r, ok := published[1+i].(*msgs.RegisterReading)
		require.True(t, ok)
		require.Equal(t, uint32(2-i), r.Device)
		require.Equal(t, []byte{byte(2 - i)}, r.Data)
	}
	for i := byte(0); i < 3; i++ {
		r := m.Latest(i, regs.DevAddrUser)
		require.NotNil(t, r)
		require.Equal(t, uint64(i), r.Value())
	}
}

func TestMonitorBringUpFailure(t *testing.T) {
	chain, s := newSimChain(t, 2)
	s.Device(1).Pin(stack.DefaultRegisterMap().DevAddrUser, 9)
	pub := &collector{}
	m := &Monitor{ID: "m1", Chain: chain, Publisher: pub, BringUp: true}
	runLoop(t, m, func() bool { return len(pub.snapshot()) >= 1 })

	status := pub.snapshot()[0].(*msgs.ChainStatus)
	require.False(t, status.Addressed)
	require.Equal(t, []uint32{1}, status.Mismatched)
	require.NotEmpty(t, status.Message)
}

func TestMonitorReadFailure(t *testing.T) {
	chain, s := newSimChain(t, 2)
	s.SetMute(true)
	pub := &collector{}
	m := &Monitor{
		ID:        "m1",
		Chain:     chain,
		Watches:   []Watch{{Register: 0x0200, Len: 2, Type: comm.SingleRead, Device: 1}},
		Publisher: pub,
	}
	runLoop(t, m, func() bool { return len(pub.snapshot()) >= 1 })

	failure, ok := pub.snapshot()[0].(*msgs.ReadFailure)
	require.True(t, ok)
	require.Equal(t, uint32(0x0200), failure.Register)
	require.Equal(t, stack.ErrTimeout.Error(), failure.Message)
}
