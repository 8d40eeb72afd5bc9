// internal/status/encode.go
package status

// Health maps a status to its block health code.
func Health(s ConnectionStatus) uint16 {
	switch s.State {
	case StateConnected:
		return HealthOK
	case StateOpening:
		return HealthOpening
	case StateGivenUp:
		return HealthGivenUp
	case StateDisconnected:
		if s.LastError == "" && s.ReconnectAttempts == 0 {
			return HealthUnknown
		}
		return HealthError
	}
	return HealthUnknown
}

// Encode converts a status into the live slots of a status block.
// Device name slots are left zero; the mirror owns them.
// No IO. No side effects.
func Encode(s ConnectionStatus) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = Health(s)
	if s.LastError != "" {
		regs[SlotLastErrorFlag] = 1
	}
	regs[SlotReconnectAttempts] = clampU16(s.ReconnectAttempts)
	regs[SlotMaxReconnectAttempts] = clampU16(s.MaxReconnectAttempts)

	return regs
}

// EncodeDeviceName packs up to 16 ASCII characters into 8 registers,
// two bytes per register, big-endian. Non-printable bytes become '?'.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}

func clampU16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v)
}
