package hw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort serves reads from chunks, one chunk per Read. With no chunk
// left a Read blocks for the read timeout, like a real port.
type fakePort struct {
	serial.Port

	chunks   [][]byte
	written  []byte
	mode     *serial.Mode
	breaks   []time.Duration
	timeout  time.Duration
	readWith []time.Duration
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.readWith = append(p.readWith, p.timeout)
	if len(p.chunks) == 0 {
		time.Sleep(p.timeout)
		return 0, nil
	}
	n := copy(b, p.chunks[0])
	if n < len(p.chunks[0]) {
		p.chunks[0] = p.chunks[0][n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) SetMode(m *serial.Mode) error {
	p.mode = m
	return nil
}

func (p *fakePort) SetReadTimeout(d time.Duration) error {
	p.timeout = d
	return nil
}

func (p *fakePort) Break(d time.Duration) error {
	p.breaks = append(p.breaks, d)
	return nil
}

func TestModeFor(t *testing.T) {
	m := modeFor(250000)
	require.Equal(t, 250000, m.BaudRate)
	require.Equal(t, 8, m.DataBits)
	require.Equal(t, serial.NoParity, m.Parity)
	require.Equal(t, serial.OneStopBit, m.StopBits)
}

func TestSerialLinkBuffered(t *testing.T) {
	port := &fakePort{chunks: [][]byte{{1, 2, 3}, {4, 5}}, timeout: DefaultByteTimeout}
	l := &SerialLink{Path: "fake", port: port}

	require.Equal(t, 3, l.Buffered())
	require.Equal(t, 3, l.Buffered())

	buf := make([]byte, 8)
	n, err := l.Read(buf[:2])
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, buf[:n])
	n, err = l.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{3}, buf[:n])
	n, err = l.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5}, buf[:n])
	require.Zero(t, l.Buffered())

	n, err = l.Write([]byte{0x90})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []byte{0x90}, port.written)
}

func TestSerialLinkDropsPendingOnReconfigure(t *testing.T) {
	port := &fakePort{chunks: [][]byte{{0xff, 0x00}}, timeout: DefaultByteTimeout}
	l := &SerialLink{Path: "fake", port: port}
	require.Equal(t, 2, l.Buffered())

	require.NoError(t, l.Break(500*time.Microsecond))
	require.Equal(t, []time.Duration{500 * time.Microsecond}, port.breaks)
	require.NoError(t, l.Configure(1000000))
	require.Equal(t, 1000000, port.mode.BaudRate)
	require.Zero(t, l.Buffered())
}

func TestSerialLinkBufferedDoesNotWait(t *testing.T) {
	port := &fakePort{timeout: DefaultByteTimeout}
	l := &SerialLink{Path: "fake", port: port}

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.Zero(t, l.Buffered())
	}
	require.Less(t, time.Since(start), 3*DefaultByteTimeout)
	require.Equal(t, []time.Duration{0, 0, 0}, port.readWith)
	require.Equal(t, DefaultByteTimeout, port.timeout)

	// reads of a burst still wait for the next byte
	buf := make([]byte, 4)
	n, err := l.Read(buf)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, DefaultByteTimeout, port.readWith[3])
}
