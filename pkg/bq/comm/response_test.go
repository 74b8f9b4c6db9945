package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseResponses(t *testing.T) {
	replies := []Response{
		{Device: 2, Register: 0x0104, Data: []byte{0x02}},
		{Device: 1, Register: 0x0104, Data: []byte{0x01}},
		{Device: 0, Register: 0x0104, Data: []byte{0x00}},
	}
	var b []byte
	for i := range replies {
		var err error
		b, err = replies[i].AppendTo(b)
		require.NoError(t, err)
	}
	require.Len(t, b, ResponseLength(AllRead, 1, 3))
	require.Equal(t, []byte{0x00, 0x01, 0x01, 0x04, 0x01}, b[7:12])

	rs, err := ParseResponses(b, true)
	require.NoError(t, err)
	require.Equal(t, replies, rs)
	require.Equal(t, uint64(1), rs[1].Value())

	t.Run("short", func(t *testing.T) {
		rs, err := ParseResponses(b[:len(b)-1], true)
		require.ErrorIs(t, err, ErrShortFrame)
		require.Len(t, rs, 2)
	})

	t.Run("crc", func(t *testing.T) {
		c := append([]byte(nil), b...)
		c[11] ^= 0x10
		rs, err := ParseResponses(c, true)
		require.ErrorIs(t, err, ErrCRCMismatch)
		require.Len(t, rs, 1)
		rs, err = ParseResponses(c, false)
		require.NoError(t, err)
		require.Len(t, rs, 3)
		require.Equal(t, []byte{0x11}, rs[1].Data)
	})
}

func TestResponseMultiByte(t *testing.T) {
	r := Response{Device: 5, Register: 0x0200, Data: []byte{0xde, 0xad, 0xbe, 0xef}}
	b, err := r.AppendTo(nil)
	require.NoError(t, err)
	require.Len(t, b, r.Len())
	require.Equal(t, byte(3), b[0])
	require.True(t, CheckCRC(b))
	require.Equal(t, uint64(0xdeadbeef), r.Value())

	_, err = (&Response{}).AppendTo(nil)
	require.ErrorIs(t, err, ErrInvalidLength)
}
