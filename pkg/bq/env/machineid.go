package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves an ID identifying the host, derived from the
// machine ID so it isn't exposed on the wire. It falls back to the host
// name.
func MachineID() string {
	id, err := machineid.ProtectedID("bms")
	if err == nil {
		return id
	}
	glog.V(1).Infof("machine id: %v", err)
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "bms"
}
