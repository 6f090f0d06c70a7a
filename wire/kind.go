// Package wire implements the control-plane message codec: the tagged
// JSON envelope shared between the Agent and the server, decoding
// inbound messages by their "kind" field and encoding outbound ones with
// it set. Grounded on the teacher's `server/wslogs/message.go` (the flat,
// single-purpose JSON message struct idiom -- Message/Batch) and
// `plugin/grpc/protocol`'s domain<->wire conversion helpers, adapted from
// a fixed log-message shape to a kind-tagged sum type since the control
// plane multiplexes many message shapes over one channel.
package wire

// Kind tags every control-plane message with which shape its remaining
// fields follow. Values match spec.md §6 literally.
type Kind string

const (
	// Inbound: server -> agent.
	KindHello     Kind = "HELLO"
	KindAssign    Kind = "ASSIGN"
	KindCancel    Kind = "CANCEL"
	KindInterrupt Kind = "INTERRUPT"
	KindPause     Kind = "PAUSE"
	KindResume    Kind = "RESUME"
	KindProvide   Kind = "PROVIDE"
	KindUnprovide Kind = "UNPROVIDE"
	KindPing      Kind = "PING"
	KindInitReply Kind = "INIT_REPLY"
	KindCatchup   Kind = "CATCHUP"

	// Outbound: agent -> server.
	KindInit     Kind = "INIT"
	KindEvent    Kind = "EVENT"
	KindEnvelope Kind = "ENVELOPE"
	KindPong     Kind = "PONG"
	KindAck      Kind = "ACK"
)
