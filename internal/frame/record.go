// internal/frame/record.go
package frame

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the ISO-8601 form used on the wire and on disk.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Reserved keys. Anything else the device sends is carried in Extra.
const (
	keySteps     = "steps"
	keyTimestamp = "timestamp"
	keyDeviceID  = "deviceId"
)

// Record is one accepted sensor reading.
// Timestamp and DeviceID are always set by the bridge, never by the device.
type Record struct {
	Steps     int64
	Timestamp time.Time
	DeviceID  string

	// Extra holds passthrough fields verbatim. Never mutated after Decode.
	Extra map[string]json.RawMessage
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Extra)+3)
	for k, v := range r.Extra {
		out[k] = v
	}

	var err error
	if out[keySteps], err = json.Marshal(r.Steps); err != nil {
		return nil, err
	}
	if out[keyTimestamp], err = json.Marshal(r.Timestamp.UTC().Format(TimeLayout)); err != nil {
		return nil, err
	}
	if out[keyDeviceID], err = json.Marshal(r.DeviceID); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("frame: record is not an object")
	}

	var rec Record

	if raw, ok := fields[keySteps]; ok {
		if err := json.Unmarshal(raw, &rec.Steps); err != nil {
			return fmt.Errorf("frame: record steps: %w", err)
		}
	}

	if raw, ok := fields[keyTimestamp]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("frame: record timestamp: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("frame: record timestamp: %w", err)
		}
		rec.Timestamp = ts
	}

	if raw, ok := fields[keyDeviceID]; ok {
		if err := json.Unmarshal(raw, &rec.DeviceID); err != nil {
			return fmt.Errorf("frame: record deviceId: %w", err)
		}
	}

	delete(fields, keySteps)
	delete(fields, keyTimestamp)
	delete(fields, keyDeviceID)
	if len(fields) > 0 {
		rec.Extra = fields
	}

	*r = rec
	return nil
}
