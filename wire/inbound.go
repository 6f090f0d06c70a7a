package wire

import "encoding/json"

// Hello announces the start of a session; the agent replies with INIT.
type Hello struct{}

// Assign asks the agent to run one assignment against a previously
// provided implementation.
type Assign struct {
	ID                string         `json:"id"`
	ImplementationRef string         `json:"implementationRef"`
	Args              map[string]any `json:"args"`
	Reference         string         `json:"reference,omitempty"`
	Parent            string         `json:"parent,omitempty"`
	User              string         `json:"user,omitempty"`
}

// Cancel requests cooperative, resumable-acknowledgment cancellation of
// a running assignment (terminal event: CANCELED).
type Cancel struct {
	ID string `json:"id"`
}

// Interrupt requests a non-resumable stop (terminal event: INTERUPTED).
type Interrupt struct {
	ID string `json:"id"`
}

// Pause requests that a running assignment suspend at its next
// cooperative checkpoint.
type Pause struct {
	ID string `json:"id"`
}

// Resume clears a pending or active pause on an assignment.
type Resume struct {
	ID string `json:"id"`
}

// Provide asks the agent to make one of its registered implementations
// available for assignment by its server-assigned id.
type Provide struct {
	ImplementationID string `json:"implementationId"`
}

// Unprovide withdraws a previously provided implementation.
type Unprovide struct {
	ImplementationID string `json:"implementationId"`
}

// Ping is a liveness probe; the agent replies with PONG.
type Ping struct{}

// InitReply acknowledges the agent's INIT, binding each definition hash
// the agent announced to the server-assigned implementation id that
// ASSIGN/PROVIDE/UNPROVIDE messages reference from then on.
type InitReply struct {
	Bindings map[string]string `json:"bindings"`
}

// Catchup asks the agent to republish a state's current snapshot (used
// by a subscriber that detected a missed Envelope via BaseRev).
type Catchup struct {
	StateName string `json:"stateName"`
	FromRev   int    `json:"fromRev"`
}

type kindEnvelope struct {
	Kind Kind `json:"kind"`
}

// DecodeInbound sniffs raw's "kind" field and unmarshals the rest into
// the matching concrete type, returned as `any` for the caller (the
// Agent's inboundLoop) to type-switch on.
func DecodeInbound(raw []byte) (Kind, any, error) {
	var k kindEnvelope
	if err := json.Unmarshal(raw, &k); err != nil {
		return "", nil, err
	}

	var (
		payload any
		err     error
	)
	switch k.Kind {
	case KindHello:
		var m Hello
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindAssign:
		var m Assign
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindCancel:
		var m Cancel
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindInterrupt:
		var m Interrupt
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindPause:
		var m Pause
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindResume:
		var m Resume
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindProvide:
		var m Provide
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindUnprovide:
		var m Unprovide
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindPing:
		var m Ping
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindInitReply:
		var m InitReply
		err = json.Unmarshal(raw, &m)
		payload = m
	case KindCatchup:
		var m Catchup
		err = json.Unmarshal(raw, &m)
		payload = m
	default:
		return k.Kind, nil, &UnknownKindError{Kind: k.Kind}
	}
	if err != nil {
		return k.Kind, nil, err
	}
	return k.Kind, payload, nil
}
