// internal/config/normalize.go
package config

import (
	"path/filepath"
	"strings"

	"github.com/soya0924/shoe0522/internal/status"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	b := &cfg.Bridge

	b.Device.Parity = strings.ToUpper(b.Device.Parity)
	b.Logging.Level = strings.ToLower(b.Logging.Level)
	b.Logging.Format = strings.ToLower(b.Logging.Format)
	b.Retention.Path = filepath.Clean(b.Retention.Path)

	// ------------------------------------------------------------
	// STATUS MEMORY NORMALIZATION (OPT-IN)
	// ------------------------------------------------------------

	if !b.StatusMemory.Enabled() {
		return
	}

	// ASCII already validated; truncate to the block's name capacity
	if len(b.StatusMemory.DeviceName) > status.DeviceNameMaxChars {
		b.StatusMemory.DeviceName = b.StatusMemory.DeviceName[:status.DeviceNameMaxChars]
	}
}
