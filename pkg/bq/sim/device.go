package sim

import "github.com/robotalks/bms.go/pkg/bq/stack"

// Device is one simulated monitor.
type Device struct {
	// Address is the ordinal the device answers single frames to.
	Address byte

	regs   map[uint16]byte
	pinned map[uint16]bool
}

func newDevice() *Device {
	return &Device{regs: make(map[uint16]byte), pinned: make(map[uint16]bool)}
}

// Register returns the value of a register.
func (d *Device) Register(addr uint16) byte {
	return d.regs[addr]
}

// SetRegister stores a register value unless it is pinned.
func (d *Device) SetRegister(addr uint16, v byte) {
	if !d.pinned[addr] {
		d.regs[addr] = v
	}
}

// Pin fixes a register value. Later writes are ignored.
func (d *Device) Pin(addr uint16, v byte) {
	d.regs[addr] = v
	d.pinned[addr] = true
}

// Role returns the role configured in CONFIG.
func (d *Device) Role(regs stack.RegisterMap) stack.Role {
	return stack.Role(d.regs[regs.Config])
}

func (d *Device) write(addr uint16, data []byte) {
	for i, v := range data {
		d.SetRegister(addr+uint16(i), v)
	}
}

func (d *Device) read(addr uint16, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = d.regs[addr+uint16(i)]
	}
	return b
}
