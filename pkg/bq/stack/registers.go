package stack

import "fmt"

// RegisterMap names the registers touched by the bring-up and addressing
// sequences.
type RegisterMap struct {
	Config         uint16
	Control1       uint16
	DevAddrUser    uint16
	CommCtrl       uint16
	DaisyChainCtrl uint16
	ECCTest        uint16
}

// DefaultRegisterMap returns the BQ79606 register addresses.
func DefaultRegisterMap() RegisterMap {
	return RegisterMap{
		Config:         0x0001,
		CommCtrl:       0x0010,
		DaisyChainCtrl: 0x0011,
		DevAddrUser:    0x0104,
		Control1:       0x0105,
		ECCTest:        0x011a,
	}
}

// Validate checks DAISY_CHAIN_CTRL directly follows COMM_CTRL, which the
// two-byte baud write relies on.
func (m *RegisterMap) Validate() error {
	if m.DaisyChainCtrl != m.CommCtrl+1 {
		return fmt.Errorf("%w: DAISY_CHAIN_CTRL 0x%04x doesn't follow COMM_CTRL 0x%04x",
			ErrInvalidConfig, m.DaisyChainCtrl, m.CommCtrl)
	}
	return nil
}

// Register values written by the sequences.
const (
	// Control1AddrWrite enables auto-address latching of DEVADD_USR.
	Control1AddrWrite byte = 0x01
	// DaisyChainBase configures the base device's daisy chain interface.
	DaisyChainBase byte = 0x0d
	// CommCtrlStack configures stack devices' communication.
	CommCtrlStack byte = 0x04
	// DaisyChainTop configures the top device's daisy chain interface.
	DaisyChainTop byte = 0x32
)
