// internal/mirror/writer.go
package mirror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soya0924/shoe0522/internal/status"
)

// registerWriter is the transport contract the status writer needs.
type registerWriter interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Plan locates the status block inside the status memory.
type Plan struct {
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// StatusWriter delivers link status into a status block verbatim.
// The first write and every write after a failure is a full block write;
// otherwise only changed slots are written.
type StatusWriter struct {
	plan Plan
	cli  registerWriter

	needFull bool
	last     []uint16
	nameRegs []uint16
}

// live slots, in write order
var liveSlots = []struct {
	slot int
	name string
}{
	{status.SlotHealthCode, "health"},
	{status.SlotLastErrorFlag, "last_error"},
	{status.SlotReconnectAttempts, "attempts"},
	{status.SlotMaxReconnectAttempts, "max_attempts"},
}

func NewStatusWriter(plan Plan, cli registerWriter) (*StatusWriter, error) {
	if cli == nil {
		return nil, errors.New("status writer: client required")
	}
	return &StatusWriter{
		plan:     plan,
		cli:      cli,
		needFull: true,
		nameRegs: status.EncodeDeviceName(plan.DeviceName),
	}, nil
}

// WriteStatus writes s into the block.
func (sw *StatusWriter) WriteStatus(s status.ConnectionStatus) error {
	regs := status.Encode(s)
	base := sw.baseAddr()

	if sw.needFull {
		copy(regs[status.SlotDeviceNameStart:status.SlotDeviceNameEnd+1], sw.nameRegs)

		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base, regs); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = regs
		return nil
	}

	var errs []string
	for _, ls := range liveSlots {
		if sw.last[ls.slot] == regs[ls.slot] {
			continue
		}
		if err := sw.cli.WriteRegisters(
			sw.plan.UnitID,
			base+uint16(ls.slot),
			[]uint16{regs[ls.slot]},
		); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", ls.slot, ls.name, err))
			continue
		}
		sw.last[ls.slot] = regs[ls.slot]
	}

	if len(errs) > 0 {
		// any partial failure re-asserts the whole block on the next write
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (sw *StatusWriter) baseAddr() uint16 {
	return sw.plan.BaseSlot * status.SlotsPerDevice
}
