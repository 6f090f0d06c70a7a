package wire

import "fmt"

// UnknownKindError is returned by DecodeInbound when a message's "kind"
// field does not name a recognized inbound kind.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("wire: unknown message kind %q", e.Kind)
}
