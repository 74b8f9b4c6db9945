// Package telemetry carries monitor messages over packet transports.
package telemetry

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/bms.go/pkg/framework"
	"github.com/robotalks/bms.go/pkg/telemetry/msgs"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Publisher encodes messages and writes them to every registered writer.
type Publisher struct {
	writers []PacketWriter
	lock    sync.Mutex
}

// Add registers writers.
func (p *Publisher) Add(writers ...PacketWriter) *Publisher {
	p.lock.Lock()
	p.writers = append(p.writers, writers...)
	p.lock.Unlock()
	return p
}

// Len returns the number of writers.
func (p *Publisher) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.writers)
}

// Publish sends msg to all writers. Failing writers don't stop the others.
func (p *Publisher) Publish(msg fx.Message) error {
	pkt, err := msgs.Encode(msg)
	if err != nil {
		return err
	}
	p.lock.Lock()
	writers := p.writers
	p.lock.Unlock()
	var errs fx.AggregatedError
	for _, w := range writers {
		errs.Add(w.WritePacket(pkt))
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder. Writers needing a background runner
// are started with the loop.
func (p *Publisher) AddToLoop(loop *fx.Loop) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, w := range p.writers {
		if adder, ok := w.(fx.LoopAdder); ok {
			loop.Add(adder)
		} else if runnable, ok := w.(fx.Runnable); ok {
			loop.AddRunnable(runnable)
		}
	}
}

// Close closes writers implementing io.Closer.
func (p *Publisher) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	var errs fx.AggregatedError
	for _, w := range p.writers {
		if closer, ok := w.(io.Closer); ok {
			errs.Add(closer.Close())
		}
	}
	return errs.Aggregate()
}

// Receiver decodes packets and dispatches the messages.
type Receiver struct {
	Reader  PacketReader
	Handler fx.MessageHandler
}

// Run implements Runnable. Undecodable packets are skipped.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		pkt, err := r.Reader.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		msg, err := msgs.Decode(pkt)
		if err != nil {
			glog.Warningf("drop packet: %v", err)
			continue
		}
		if h := r.Handler; h != nil {
			h.HandleMessage(ctx, msg)
		}
	}
}
