// Package msgs defines the telemetry published by chain monitors.
package msgs

// Telemetry is published by a monitor (bqmon) and consumed by watchers
// (bqwatch) or any MQTT/websocket subscriber. Each message travels wrapped
// in Typed, which carries the type ID and the protobuf encoding.
//
// Producer: monitor
// Consumer: watchers, dashboards
