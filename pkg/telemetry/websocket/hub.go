package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// DefaultPath is where the Hub is served.
const DefaultPath = "/telemetry"

// Hub serves websocket clients and copies every written packet to all
// of them. It implements telemetry.PacketWriter and framework.Runnable.
type Hub struct {
	Addr string

	conns map[*ReadWriter]struct{}
	lock  sync.RWMutex
}

// NewHub creates a Hub listening on addr, e.g. ":8080".
func NewHub(addr string) *Hub {
	return &Hub{Addr: addr, conns: make(map[*ReadWriter]struct{})}
}

// Handler returns the websocket handler for HTTP muxes.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.conns)
}

// WritePacket implements PacketWriter. Clients failing to receive are
// dropped.
func (h *Hub) WritePacket(pkt []byte) error {
	h.lock.RLock()
	conns := make([]*ReadWriter, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.lock.RUnlock()
	for _, c := range conns {
		if err := c.WritePacket(pkt); err != nil {
			glog.V(1).Infof("websocket client dropped: %v", err)
			c.Close()
		}
	}
	return nil
}

// Run implements Runnable.
func (h *Hub) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.Addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

// Serve serves clients on ln until ctx is done.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, h.Handler())
	srv := &http.Server{Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	glog.Infof("telemetry websocket on %s%s", ln.Addr(), DefaultPath)
	select {
	case <-ctx.Done():
		srv.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (h *Hub) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	rw := New(conn)
	h.lock.Lock()
	h.conns[rw] = struct{}{}
	h.lock.Unlock()
	defer func() {
		h.lock.Lock()
		delete(h.conns, rw)
		h.lock.Unlock()
	}()
	// clients only listen, reading detects the close
	for {
		if _, err := rw.ReadPacket(); err != nil {
			return
		}
	}
}
