// Package monitor polls chain registers and publishes the readings.
package monitor

import (
	"errors"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/bms.go/pkg/bq/comm"
	"github.com/robotalks/bms.go/pkg/bq/stack"
	fx "github.com/robotalks/bms.go/pkg/framework"
	"github.com/robotalks/bms.go/pkg/telemetry/msgs"
)

// Publisher sends telemetry messages.
type Publisher interface {
	Publish(fx.Message) error
}

// Monitor polls the watched registers on every loop iteration.
type Monitor struct {
	ID        string
	Chain     *stack.Chain
	Watches   []Watch
	Publisher Publisher
	// BringUp runs the chain bring-up before the first poll.
	BringUp bool

	latest map[readingKey]*msgs.RegisterReading
	lock   sync.RWMutex
}

type readingKey struct {
	device   uint32
	register uint32
}

// AddToLoop implements LoopAdder.
func (m *Monitor) AddToLoop(loop *fx.Loop) {
	if m.BringUp {
		loop.PreRunAt(fx.PrLvAcquire, fx.ControlFunc(m.bringUp))
	}
	loop.AddController(fx.PrLvAcquire, fx.ControlFunc(m.Poll))
	loop.AddController(fx.PrLvProcess, fx.ControlFunc(m.Record))
	if m.Publisher != nil {
		loop.AddController(fx.PrLvPublish, fx.ControlFunc(m.Publish))
	}
}

func (m *Monitor) bringUp(ctx fx.ControlContext) error {
	ok, err := m.Chain.BringUp()
	status := &msgs.ChainStatus{
		MonitorID: m.ID,
		Devices:   uint32(m.Chain.Devices()),
		Baud:      m.Chain.Baud(),
		Addressed: ok,
		Timestamp: ctx.Time().UnixNano(),
	}
	if err != nil {
		status.Message = err.Error()
		var mismatch *stack.AddressMismatchError
		if errors.As(err, &mismatch) {
			for _, e := range mismatch.Mismatches() {
				status.Mismatched = append(status.Mismatched, uint32(e.Ordinal))
			}
		}
	}
	ctx.Messages().AddMessages(status)
	return err
}

// Poll reads every watched register.
func (m *Monitor) Poll(ctx fx.ControlContext) error {
	ts := ctx.Time().UnixNano()
	for _, w := range m.Watches {
		rs, err := m.Chain.ReadResponses(w.Device, w.Register, w.Len, w.Type)
		for _, r := range rs {
			ctx.Messages().AddMessages(&msgs.RegisterReading{
				MonitorID: m.ID,
				Device:    uint32(r.Device),
				Register:  uint32(r.Register),
				Data:      r.Data,
				Timestamp: ts,
			})
		}
		if err != nil {
			glog.V(1).Infof("poll %s: %v", w, err)
			ctx.Messages().AddMessages(&msgs.ReadFailure{
				MonitorID: m.ID,
				Register:  uint32(w.Register),
				Message:   err.Error(),
				Received:  uint32(len(rs) * (w.Len + comm.ResponseOverhead)),
				Timestamp: ts,
			})
		}
	}
	return nil
}

// Record keeps the latest reading per device and register.
func (m *Monitor) Record(ctx fx.ControlContext) error {
	ctx.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		if r, ok := mc.CurrentMessage().(*msgs.RegisterReading); ok {
			m.lock.Lock()
			if m.latest == nil {
				m.latest = make(map[readingKey]*msgs.RegisterReading)
			}
			m.latest[readingKey{device: r.Device, register: r.Register}] = r
			m.lock.Unlock()
		}
	}))
	return nil
}

// Publish sends all telemetry messages of the iteration.
func (m *Monitor) Publish(ctx fx.ControlContext) error {
	var errs fx.AggregatedError
	ctx.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mc fx.MessageProcessingContext) {
		if msg, ok := mc.CurrentMessage().(msgs.SerializableMessage); ok {
			errs.Add(m.Publisher.Publish(msg))
			mc.MessageTaken()
		}
	}))
	return errs.Aggregate()
}

// Latest returns the last reading of a register of a device.
func (m *Monitor) Latest(device byte, register uint16) *msgs.RegisterReading {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.latest[readingKey{device: uint32(device), register: uint32(register)}]
}
