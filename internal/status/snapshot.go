// internal/status/snapshot.go
package status

import "encoding/json"

// State is the connection manager's lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateOpening      State = "opening"
	StateConnected    State = "connected"
	StateGivenUp      State = "given_up"
)

// ConnectionStatus is the process-wide link health snapshot.
// It carries no logic and no memory beyond the current state.
type ConnectionStatus struct {
	IsConnected          bool
	LastError            string
	ReconnectAttempts    int
	MaxReconnectAttempts int
	State                State
}

type wireStatus struct {
	IsConnected          bool    `json:"isConnected"`
	LastError            *string `json:"lastError"`
	ReconnectAttempts    int     `json:"reconnectAttempts"`
	MaxReconnectAttempts int     `json:"maxReconnectAttempts"`
	State                State   `json:"state"`
}

func (s ConnectionStatus) wire() wireStatus {
	w := wireStatus{
		IsConnected:          s.IsConnected,
		ReconnectAttempts:    s.ReconnectAttempts,
		MaxReconnectAttempts: s.MaxReconnectAttempts,
		State:                s.State,
	}
	if s.LastError != "" {
		msg := s.LastError
		w.LastError = &msg
	}
	return w
}

// MarshalJSON encodes an empty LastError as null.
func (s ConnectionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

func (s *ConnectionStatus) UnmarshalJSON(b []byte) error {
	var w wireStatus
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = ConnectionStatus{
		IsConnected:          w.IsConnected,
		ReconnectAttempts:    w.ReconnectAttempts,
		MaxReconnectAttempts: w.MaxReconnectAttempts,
		State:                w.State,
	}
	if w.LastError != nil {
		s.LastError = *w.LastError
	}
	return nil
}
