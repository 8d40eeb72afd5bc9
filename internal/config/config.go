// internal/config/config.go
package config

type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

type BridgeConfig struct {
	Device       DeviceConfig       `yaml:"device"`
	Reconnect    ReconnectConfig    `yaml:"reconnect"`
	Retention    RetentionConfig    `yaml:"retention"`
	Live         LiveConfig         `yaml:"live"`
	HTTP         HTTPConfig         `yaml:"http"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Logging      LoggingConfig      `yaml:"logging"`
	StatusMemory StatusMemoryConfig `yaml:"status_memory"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	// Static endpoints are tried before glob matches.
	Endpoints []string `yaml:"endpoints"`
	ScanGlobs []string `yaml:"scan_globs"`
	Match     []string `yaml:"match"`

	BaudRate      int    `yaml:"baud_rate"`
	DataBits      int    `yaml:"data_bits"`
	StopBits      int    `yaml:"stop_bits"`
	Parity        string `yaml:"parity"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	MaxLineBytes  int    `yaml:"max_line_bytes"`
}

// ---- RECONNECT ----

type ReconnectConfig struct {
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
	MaxAttempts int `yaml:"max_attempts"`
}

// ---- RETENTION ----

type RetentionConfig struct {
	Path        string `yaml:"path"`
	WindowHours int    `yaml:"window_hours"`
}

// ---- LIVE PUSH ----

type LiveConfig struct {
	Addr           string `yaml:"addr"`
	Path           string `yaml:"path"`
	QueueSize      int    `yaml:"queue_size"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

// ---- HTTP QUERY API ----

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// ---- OBSERVABILITY ----

type MetricsConfig struct {
	// nil means enabled
	Enabled *bool `yaml:"enabled"`
}

func (m MetricsConfig) On() bool { return m.Enabled == nil || *m.Enabled }

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---- STATUS MEMORY (optional, opt-in) ----

type StatusMemoryConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	BaseSlot   uint16 `yaml:"base_slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

func (s StatusMemoryConfig) Enabled() bool { return s.Endpoint != "" }
