// internal/config/load.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PortEnv overrides http.addr with ":<PORT>" when set.
const PortEnv = "PORT"

// Load reads a YAML config file and applies defaults.
// An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyDefaults()

	if port := os.Getenv(PortEnv); port != "" {
		cfg.Bridge.HTTP.Addr = ":" + port
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	b := &c.Bridge

	if b.Device.Match == nil {
		// Matching is case-sensitive; rfcomm covers the Linux glob default.
		b.Device.Match = []string{"HC-05", "tty.Bluetooth", "COM", "rfcomm"}
	}
	if b.Device.ScanGlobs == nil {
		b.Device.ScanGlobs = []string{"/dev/tty.*", "/dev/rfcomm*", "/dev/ttyUSB*"}
	}
	if b.Device.BaudRate == 0 {
		b.Device.BaudRate = 9600
	}
	if b.Device.DataBits == 0 {
		b.Device.DataBits = 8
	}
	if b.Device.StopBits == 0 {
		b.Device.StopBits = 1
	}
	if b.Device.Parity == "" {
		b.Device.Parity = "N"
	}
	if b.Device.ReadTimeoutMs == 0 {
		b.Device.ReadTimeoutMs = 1000
	}
	if b.Device.MaxLineBytes == 0 {
		b.Device.MaxLineBytes = 4096
	}

	if b.Reconnect.BaseDelayMs == 0 {
		b.Reconnect.BaseDelayMs = 1000
	}
	if b.Reconnect.MaxDelayMs == 0 {
		b.Reconnect.MaxDelayMs = 30_000
	}
	if b.Reconnect.MaxAttempts == 0 {
		b.Reconnect.MaxAttempts = 5
	}

	if b.Retention.Path == "" {
		b.Retention.Path = "./data/steps_data.json"
	}
	if b.Retention.WindowHours == 0 {
		b.Retention.WindowHours = 30 * 24
	}

	if b.Live.Addr == "" {
		b.Live.Addr = ":8080"
	}
	if b.Live.Path == "" {
		b.Live.Path = "/"
	}
	if b.Live.QueueSize == 0 {
		b.Live.QueueSize = 64
	}
	if b.Live.WriteTimeoutMs == 0 {
		b.Live.WriteTimeoutMs = 10_000
	}

	if b.HTTP.Addr == "" {
		b.HTTP.Addr = ":3000"
	}

	if b.Logging.Level == "" {
		b.Logging.Level = "info"
	}
	if b.Logging.Format == "" {
		b.Logging.Format = "text"
	}

	if b.StatusMemory.Enabled() {
		if b.StatusMemory.UnitID == 0 {
			b.StatusMemory.UnitID = 1
		}
		if b.StatusMemory.TimeoutMs == 0 {
			b.StatusMemory.TimeoutMs = 1000
		}
	}
}
