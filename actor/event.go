package actor

import (
	"context"
	"time"
)

// EventKind is an outbound AssignmentEvent kind. Spelling (CANCELED with
// one L, INTERUPTED with one R) matches spec.md §3's wire enum literally
// -- this is a contract string exchanged with the server, not a Go
// identifier, so it is not "corrected".
type EventKind string

const (
	EventBound       EventKind = "BOUND"
	EventQueued      EventKind = "QUEUED"
	EventProgress    EventKind = "PROGRESS"
	EventLog         EventKind = "LOG"
	EventYield       EventKind = "YIELD"
	EventDone        EventKind = "DONE"
	EventError       EventKind = "ERROR"
	EventCritical    EventKind = "CRITICAL"
	EventCanceled    EventKind = "CANCELED"
	EventInterrupted EventKind = "INTERUPTED"
	EventPaused      EventKind = "PAUSED"
	EventResumed     EventKind = "RESUMED"
)

// Event is one outbound AssignmentEvent. Per-assignment ordering is FIFO
// and must be preserved by whatever EventSink the Agent wires in front of
// the transport.
type Event struct {
	AssignmentID string         `json:"assignmentId"`
	Kind         EventKind      `json:"kind"`
	Level        string         `json:"level,omitempty"`
	Returns      map[string]any `json:"returns,omitempty"`
	Message      string         `json:"message,omitempty"`
	Percentage   *float64       `json:"percentage,omitempty"`
	Ts           time.Time      `json:"ts"`
}

// EventSink is the Agent-side collaborator an Actor emits events through.
// Mirrors the teacher's JobProgressEmitter's relationship to its Queue:
// the Actor never touches the transport directly.
type EventSink interface {
	EmitEvent(ctx context.Context, ev Event) error
}
