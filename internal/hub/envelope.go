// internal/hub/envelope.go
package hub

import (
	"encoding/json"

	"github.com/soya0924/shoe0522/internal/frame"
	"github.com/soya0924/shoe0522/internal/status"
)

// Message types pushed to live clients.
const (
	TypeStatus      = "bluetooth_status"
	TypeInitialData = "initial_data"
	TypeStepData    = "step_data"
)

// EncodeStatus returns the status envelope: the status fields flattened
// next to "type".
func EncodeStatus(s status.ConnectionStatus) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(TypeStatus)

	return json.Marshal(fields)
}

type initialData struct {
	Type string         `json:"type"`
	Data []frame.Record `json:"data"`
}

// EncodeInitialData returns the full-history envelope. A nil slice encodes as [].
func EncodeInitialData(records []frame.Record) ([]byte, error) {
	if records == nil {
		records = []frame.Record{}
	}
	return json.Marshal(initialData{Type: TypeInitialData, Data: records})
}

type stepData struct {
	Type string       `json:"type"`
	Data frame.Record `json:"data"`
}

// EncodeRecord returns the live record envelope.
func EncodeRecord(rec frame.Record) ([]byte, error) {
	return json.Marshal(stepData{Type: TypeStepData, Data: rec})
}
