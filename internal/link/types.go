// internal/link/types.go
package link

import (
	"github.com/soya0924/shoe0522/internal/frame"
	"github.com/soya0924/shoe0522/internal/status"
)

// EventKind discriminates manager events.
type EventKind int

const (
	// StatusEvent carries the status produced by a transition.
	StatusEvent EventKind = iota + 1
	// RecordEvent carries one accepted record.
	RecordEvent
)

func (k EventKind) String() string {
	switch k {
	case StatusEvent:
		return "status"
	case RecordEvent:
		return "record"
	}
	return "unknown"
}

// Event is emitted by the Manager in generation order.
// Exactly one of Status / Record is meaningful, depending on Kind.
type Event struct {
	Kind   EventKind
	Status status.ConnectionStatus
	Record frame.Record
}
