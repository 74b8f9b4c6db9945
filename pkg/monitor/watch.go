package monitor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/bms.go/pkg/bq/comm"
)

// Watch is a register polled periodically.
type Watch struct {
	Register uint16
	Len      int
	Type     comm.WriteType
	// Device is the target of single reads.
	Device byte
}

// String implements fmt.Stringer in the form accepted by ParseWatch.
func (w Watch) String() string {
	s := fmt.Sprintf("0x%04x:%d:%s", w.Register, w.Len, w.Type)
	if w.Type.HasDevice() {
		s += fmt.Sprintf("@%d", w.Device)
	}
	return s
}

// ParseWatch parses REG[:LEN[:TYPE[@DEVICE]]], e.g. "0x0104:1:all_r" or
// "0x0200:2:sgl_r@3". LEN defaults to 1 and TYPE to all_r.
func ParseWatch(s string) (w Watch, err error) {
	w.Len, w.Type = 1, comm.AllRead
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return w, fmt.Errorf("invalid watch %q", s)
	}
	reg, err := strconv.ParseUint(parts[0], 0, 16)
	if err != nil {
		return w, fmt.Errorf("invalid watch register %q: %w", parts[0], err)
	}
	w.Register = uint16(reg)
	if len(parts) > 1 {
		if w.Len, err = strconv.Atoi(parts[1]); err != nil {
			return w, fmt.Errorf("invalid watch length %q: %w", parts[1], err)
		}
		if _, err = comm.ReadRequestLength(w.Len); err != nil {
			return w, err
		}
	}
	if len(parts) > 2 {
		typ := parts[2]
		if i := strings.IndexByte(typ, '@'); i >= 0 {
			dev, err := strconv.ParseUint(typ[i+1:], 0, 8)
			if err != nil {
				return w, fmt.Errorf("invalid watch device %q: %w", typ[i+1:], err)
			}
			w.Device, typ = byte(dev), typ[:i]
		}
		if w.Type, err = comm.ParseWriteType(typ); err != nil {
			return w, err
		}
		if !w.Type.ExpectsResponse() {
			return w, fmt.Errorf("%w: %s can't be polled", comm.ErrInvalidWriteType, w.Type)
		}
	}
	return w, nil
}

// ParseWatches parses a comma separated list of watches.
func ParseWatches(s string) ([]Watch, error) {
	var watches []Watch
	for _, item := range strings.Split(s, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		w, err := ParseWatch(item)
		if err != nil {
			return nil, err
		}
		watches = append(watches, w)
	}
	return watches, nil
}
