package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/bms.go/pkg/framework"
)

// RegisterReading is the value of a register of one device.
type RegisterReading struct {
	MonitorID string `protobuf:"bytes,1,opt,name=monitor_id,proto3" json:"monitor_id,omitempty"`
	Device    uint32 `protobuf:"varint,2,opt,name=device,proto3" json:"device,omitempty"`
	Register  uint32 `protobuf:"varint,3,opt,name=register,proto3" json:"register,omitempty"`
	Data      []byte `protobuf:"bytes,4,opt,name=data,proto3" json:"data,omitempty"`
	Timestamp int64  `protobuf:"varint,5,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// NewMessage implements Message.
func (m *RegisterReading) NewMessage() fx.Message { return &RegisterReading{} }

// TypeID implements SerializableMessage.
func (m *RegisterReading) TypeID() uint32 { return RegisterReadingTypeID }

// Serializable implements SerializableMessage.
func (m *RegisterReading) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *RegisterReading) ProtoMessage() {}

// Reset implements proto.Message.
func (m *RegisterReading) Reset() { *m = RegisterReading{} }

// String implements proto.Message.
func (m *RegisterReading) String() string { return proto.CompactTextString(m) }

// Value decodes Data big-endian.
func (m *RegisterReading) Value() uint64 {
	var v uint64
	for _, b := range m.Data {
		v = v<<8 | uint64(b)
	}
	return v
}

// Time returns the sampling time.
func (m *RegisterReading) Time() time.Time {
	return time.Unix(0, m.Timestamp)
}

// ReadFailure reports a register poll without usable reply.
type ReadFailure struct {
	MonitorID string `protobuf:"bytes,1,opt,name=monitor_id,proto3" json:"monitor_id,omitempty"`
	Register  uint32 `protobuf:"varint,2,opt,name=register,proto3" json:"register,omitempty"`
	Message   string `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
	Received  uint32 `protobuf:"varint,4,opt,name=received,proto3" json:"received,omitempty"`
	Timestamp int64  `protobuf:"varint,5,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// NewMessage implements Message.
func (m *ReadFailure) NewMessage() fx.Message { return &ReadFailure{} }

// TypeID implements SerializableMessage.
func (m *ReadFailure) TypeID() uint32 { return ReadFailureTypeID }

// Serializable implements SerializableMessage.
func (m *ReadFailure) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ReadFailure) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ReadFailure) Reset() { *m = ReadFailure{} }

// String implements proto.Message.
func (m *ReadFailure) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *ReadFailure) Error() string { return m.Message }

// ChainStatus is published after a bring-up attempt.
type ChainStatus struct {
	MonitorID  string   `protobuf:"bytes,1,opt,name=monitor_id,proto3" json:"monitor_id,omitempty"`
	Devices    uint32   `protobuf:"varint,2,opt,name=devices,proto3" json:"devices,omitempty"`
	Baud       uint32   `protobuf:"varint,3,opt,name=baud,proto3" json:"baud,omitempty"`
	Addressed  bool     `protobuf:"varint,4,opt,name=addressed,proto3" json:"addressed,omitempty"`
	Mismatched []uint32 `protobuf:"varint,5,rep,packed,name=mismatched,proto3" json:"mismatched,omitempty"`
	Message    string   `protobuf:"bytes,6,opt,name=message,proto3" json:"message,omitempty"`
	Timestamp  int64    `protobuf:"varint,7,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// NewMessage implements Message.
func (m *ChainStatus) NewMessage() fx.Message { return &ChainStatus{} }

// TypeID implements SerializableMessage.
func (m *ChainStatus) TypeID() uint32 { return ChainStatusTypeID }

// Serializable implements SerializableMessage.
func (m *ChainStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ChainStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ChainStatus) Reset() { *m = ChainStatus{} }

// String implements proto.Message.
func (m *ChainStatus) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupChain    uint32 = 0x00010000
	GroupRegister uint32 = 0x00020000
	GroupCustom   uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	ChainStatusTypeID     uint32 = TypeIDKindEvent | GroupChain | 0x0000
	RegisterReadingTypeID uint32 = TypeIDKindEvent | GroupRegister | 0x0000
	ReadFailureTypeID     uint32 = TypeIDKindEvent | GroupRegister | 0x0001
)
