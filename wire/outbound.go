package wire

import (
	"encoding/json"
	"time"

	"github.com/arkitektio/rekuest-next/actor"
	"github.com/arkitektio/rekuest-next/definition"
	"github.com/arkitektio/rekuest-next/port"
	"github.com/arkitektio/rekuest-next/statesync"
)

// ImplementationInfo pairs a Definition with its content-addressed Hash
// (definition.Definition.Hash) for the agent's INIT announcement.
type ImplementationInfo struct {
	Hash       string                 `json:"hash"`
	Definition *definition.Definition `json:"definition"`
}

// StateInfo announces one of the agent's replicated states at INIT time:
// its schema and the current revisioned snapshot, so a fresh subscriber
// need not wait for the first Envelope to see a baseline.
type StateInfo struct {
	Name     string         `json:"name"`
	Schema   *port.Port     `json:"schema"`
	Snapshot map[string]any `json:"snapshot"`
	Rev      int            `json:"rev"`
}

// Init is the agent's session-opening reply to HELLO: every
// implementation it can run and every state it replicates.
type Init struct {
	Kind            Kind                 `json:"kind"`
	InstanceID      string               `json:"instanceId"`
	Implementations []ImplementationInfo `json:"implementations"`
	States          []StateInfo          `json:"states"`
}

// NewInit builds an Init message, stamping KindInit.
func NewInit(instanceID string, impls []ImplementationInfo, states []StateInfo) Init {
	return Init{Kind: KindInit, InstanceID: instanceID, Implementations: impls, States: states}
}

// EventMessage wraps an actor.Event for the wire under the "event" key;
// it is not embedded anonymously because actor.Event's own Kind field
// (BOUND/PROGRESS/DONE/...) would otherwise collide with the envelope's
// "kind" field (EVENT) at the same JSON tag.
type EventMessage struct {
	Kind  Kind        `json:"kind"`
	Event actor.Event `json:"event"`
}

// NewEvent wraps ev as an outbound EVENT message.
func NewEvent(ev actor.Event) EventMessage {
	return EventMessage{Kind: KindEvent, Event: ev}
}

// EnvelopeMessage wraps a statesync.Envelope for the wire under the
// "envelope" key, for the same reason EventMessage nests rather than
// embeds.
type EnvelopeMessage struct {
	Kind     Kind               `json:"kind"`
	Envelope statesync.Envelope `json:"envelope"`
}

// NewEnvelope wraps env as an outbound ENVELOPE message.
func NewEnvelope(env statesync.Envelope) EnvelopeMessage {
	return EnvelopeMessage{Kind: KindEnvelope, Envelope: env}
}

// Pong answers a Ping.
type Pong struct {
	Kind Kind      `json:"kind"`
	Ts   time.Time `json:"ts"`
}

// NewPong builds a Pong stamped with the given time (callers supply Ts
// rather than this package calling time.Now, keeping it deterministic
// for tests).
func NewPong(ts time.Time) Pong {
	return Pong{Kind: KindPong, Ts: ts}
}

// Ack acknowledges receipt of an inbound message the server expects a
// reply to outside of the Event/Envelope streams (e.g. Provide).
type Ack struct {
	Kind      Kind   `json:"kind"`
	MessageID string `json:"messageId"`
}

// NewAck builds an Ack for messageID.
func NewAck(messageID string) Ack {
	return Ack{Kind: KindAck, MessageID: messageID}
}

// Encode marshals any outbound message value (Init, EventMessage,
// EnvelopeMessage, Pong, Ack) to its wire JSON form.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}
