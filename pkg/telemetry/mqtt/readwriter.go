package mqtt

import (
	"context"
	"io"
)

// Topic conventions, relative to the queue prefix.
const (
	TelemetryTopic = "telemetry"
	StatusTopic    = "status"
)

// MonitorTopic returns the telemetry topic of a monitor. id "+" matches
// every monitor.
func MonitorTopic(id string) string {
	return id + "/" + TelemetryTopic
}

// ReadWriter implements telemetry.PacketReadWriter.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, 16)}
}

// ForMonitor publishes to the monitor's telemetry topic.
func (p *ReadWriter) ForMonitor(id string) *ReadWriter {
	p.PubTopic = MonitorTopic(id)
	return p
}

// ForWatcher subscribes to telemetry of monitor id, or all with "+".
func (p *ReadWriter) ForWatcher(id string) *ReadWriter {
	p.SubTopic = MonitorTopic(id)
	return p
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	pkt, ok := <-p.packetCh
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable. It subscribes when SubTopic is set.
func (p *ReadWriter) Run(ctx context.Context) error {
	if p.SubTopic == "" {
		<-ctx.Done()
		return ctx.Err()
	}
	defer close(p.packetCh)
	sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	p.packetCh <- payload
}
