package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	testCases := []struct {
		topic, filter string
		match         bool
	}{
		{"m1/telemetry", "m1/telemetry", true},
		{"m1/telemetry", "+/telemetry", true},
		{"m1/status", "+/telemetry", false},
		{"m1/telemetry", "#", true},
		{"m1/telemetry", "m1/#", true},
		{"m1", "m1/#", true},
		{"m1/telemetry/x", "+/telemetry", false},
		{"m1", "+/telemetry", false},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.match, MatchTopic(tc.topic, tc.filter), "%s ~ %s", tc.topic, tc.filter)
	}
}

func TestClientOptionsFromURL(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://u:p@broker:1883/bms/?client-id=abc")
	require.NoError(t, err)
	require.Equal(t, "bms/", prefix)
	require.Equal(t, "abc", opts.ClientID)
	require.Equal(t, "u", opts.Username)
	require.Equal(t, "p", opts.Password)
	require.Len(t, opts.Servers, 1)
	require.Equal(t, "tcp://broker:1883", opts.Servers[0].String())

	opts, prefix, err = ClientOptionsFromURL("ssl://broker:8883")
	require.NoError(t, err)
	require.Empty(t, prefix)
	require.Equal(t, "ssl://broker:8883", opts.Servers[0].String())
}

func TestMonitorTopic(t *testing.T) {
	require.Equal(t, "m1/telemetry", MonitorTopic("m1"))
	require.True(t, MatchTopic(MonitorTopic("m1"), MonitorTopic("+")))
}
