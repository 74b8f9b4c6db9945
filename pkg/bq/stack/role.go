package stack

import "fmt"

// Role is the topology role of a device, as encoded in CONFIG.
type Role byte

// Roles.
const (
	RoleBase    Role = 0x00
	RoleBaseTop Role = 0x01
	RoleStack   Role = 0x02
	RoleTop     Role = 0x03
)

// RoleOf returns the role of the device at ordinal in a chain.
func RoleOf(ordinal byte, chainLength int) Role {
	switch {
	case chainLength == 1:
		return RoleBaseTop
	case ordinal == 0:
		return RoleBase
	case int(ordinal) == chainLength-1:
		return RoleTop
	default:
		return RoleStack
	}
}

// IsBase indicates the device talks to the host.
func (r Role) IsBase() bool {
	return r == RoleBase || r == RoleBaseTop
}

// IsTop indicates the device terminates the chain.
func (r Role) IsTop() bool {
	return r == RoleTop || r == RoleBaseTop
}

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RoleBase:
		return "base"
	case RoleBaseTop:
		return "base+top"
	case RoleStack:
		return "stack"
	case RoleTop:
		return "top"
	}
	return fmt.Sprintf("Role(0x%02x)", byte(r))
}
