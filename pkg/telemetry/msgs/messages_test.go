package msgs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	testCases := []struct {
		name string
		msg  SerializableMessage
	}{
		{"reading", &RegisterReading{MonitorID: "m1", Device: 2, Register: 0x0104, Data: []byte{0x02}, Timestamp: 1234}},
		{"failure", &ReadFailure{MonitorID: "m1", Register: 0x0200, Message: "timeout", Received: 7}},
		{"status", &ChainStatus{MonitorID: "m1", Devices: 3, Baud: 1000000, Mismatched: []uint32{1, 2}, Message: "mismatch"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.msg)
			require.NoError(t, err)
			msg, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, tc.msg, msg)
		})
	}
}

func TestDecodeUnknown(t *testing.T) {
	typed := &Typed{TypeID: GroupCustom | 1}
	_, err := typed.Decode()
	require.IsType(t, &ErrUnknownType{}, err)

	_, err = TypedFrom(nil)
	require.Equal(t, ErrNotSerializable, err)
}

func TestRegisterReadingValue(t *testing.T) {
	m := &RegisterReading{Data: []byte{0x12, 0x34}, Timestamp: 5e9}
	require.Equal(t, uint64(0x1234), m.Value())
	require.Equal(t, int64(5), m.Time().Unix())
}
