// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/soya0924/shoe0522/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	b := cfg.Bridge

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if len(b.Device.Endpoints) == 0 && len(b.Device.ScanGlobs) == 0 {
		return fmt.Errorf("device: endpoints or scan_globs must be set")
	}
	if b.Device.BaudRate <= 0 {
		return fmt.Errorf("device: baud_rate must be positive, got %d", b.Device.BaudRate)
	}
	if b.Device.DataBits < 5 || b.Device.DataBits > 8 {
		return fmt.Errorf("device: data_bits must be 5-8, got %d", b.Device.DataBits)
	}
	if b.Device.StopBits != 1 && b.Device.StopBits != 2 {
		return fmt.Errorf("device: stop_bits must be 1 or 2, got %d", b.Device.StopBits)
	}
	switch strings.ToUpper(b.Device.Parity) {
	case "N", "E", "O":
	default:
		return fmt.Errorf("device: parity must be N, E or O, got %q", b.Device.Parity)
	}
	if b.Device.ReadTimeoutMs <= 0 {
		return fmt.Errorf("device: read_timeout_ms must be positive")
	}
	if b.Device.MaxLineBytes < 64 {
		return fmt.Errorf("device: max_line_bytes must be at least 64, got %d", b.Device.MaxLineBytes)
	}

	// ------------------------------------------------------------
	// RECONNECT
	// ------------------------------------------------------------

	if b.Reconnect.BaseDelayMs <= 0 || b.Reconnect.MaxDelayMs <= 0 {
		return fmt.Errorf("reconnect: delays must be positive")
	}
	if b.Reconnect.BaseDelayMs > b.Reconnect.MaxDelayMs {
		return fmt.Errorf(
			"reconnect: base_delay_ms %d exceeds max_delay_ms %d",
			b.Reconnect.BaseDelayMs,
			b.Reconnect.MaxDelayMs,
		)
	}
	if b.Reconnect.MaxAttempts <= 0 {
		return fmt.Errorf("reconnect: max_attempts must be positive, got %d", b.Reconnect.MaxAttempts)
	}

	// ------------------------------------------------------------
	// RETENTION
	// ------------------------------------------------------------

	if b.Retention.Path == "" {
		return fmt.Errorf("retention: path is required")
	}
	if b.Retention.WindowHours <= 0 {
		return fmt.Errorf("retention: window_hours must be positive")
	}

	// ------------------------------------------------------------
	// LISTENERS
	// ------------------------------------------------------------

	if b.Live.Addr == "" {
		return fmt.Errorf("live: addr is required")
	}
	if !strings.HasPrefix(b.Live.Path, "/") {
		return fmt.Errorf("live: path must start with /, got %q", b.Live.Path)
	}
	if b.Live.QueueSize < 2 {
		return fmt.Errorf("live: queue_size must be at least 2, got %d", b.Live.QueueSize)
	}
	if b.Live.WriteTimeoutMs <= 0 {
		return fmt.Errorf("live: write_timeout_ms must be positive")
	}
	if b.HTTP.Addr == "" {
		return fmt.Errorf("http: addr is required")
	}
	if b.HTTP.Addr == b.Live.Addr {
		return fmt.Errorf("http.addr and live.addr must differ, both are %q", b.HTTP.Addr)
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	switch strings.ToLower(b.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", b.Logging.Level)
	}
	switch strings.ToLower(b.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", b.Logging.Format)
	}

	// ------------------------------------------------------------
	// STATUS MEMORY (OPT-IN)
	// ------------------------------------------------------------

	sm := b.StatusMemory
	for i := 0; i < len(sm.DeviceName); i++ {
		if sm.DeviceName[i] > 0x7F {
			return fmt.Errorf("status_memory: device_name must contain ASCII characters only")
		}
	}
	if sm.Enabled() {
		if sm.TimeoutMs <= 0 {
			return fmt.Errorf("status_memory: timeout_ms must be positive")
		}
		// base address must fit the 16-bit register space
		if int(sm.BaseSlot)*status.SlotsPerDevice+status.SlotsPerDevice > 65536 {
			return fmt.Errorf("status_memory: base_slot %d out of range", sm.BaseSlot)
		}
	}

	return nil
}
