package wire_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkitektio/rekuest-next/actor"
	"github.com/arkitektio/rekuest-next/statesync"
	"github.com/arkitektio/rekuest-next/wire"
)

func TestDecodeInbound_Assign(t *testing.T) {
	raw := []byte(`{"kind":"ASSIGN","id":"a1","implementationRef":"deadbeef","args":{"x":1}}`)
	kind, payload, err := wire.DecodeInbound(raw)
	require.NoError(t, err)
	assert.Equal(t, wire.KindAssign, kind)

	assign, ok := payload.(wire.Assign)
	require.True(t, ok)
	assert.Equal(t, "a1", assign.ID)
	assert.Equal(t, "deadbeef", assign.ImplementationRef)
	assert.Equal(t, float64(1), assign.Args["x"])
}

func TestDecodeInbound_CancelPauseResume(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		kind wire.Kind
	}{
		{`{"kind":"CANCEL","id":"a1"}`, wire.KindCancel},
		{`{"kind":"INTERRUPT","id":"a1"}`, wire.KindInterrupt},
		{`{"kind":"PAUSE","id":"a1"}`, wire.KindPause},
		{`{"kind":"RESUME","id":"a1"}`, wire.KindResume},
	} {
		kind, payload, err := wire.DecodeInbound([]byte(tc.raw))
		require.NoError(t, err)
		assert.Equal(t, tc.kind, kind)
		assert.NotNil(t, payload)
	}
}

func TestDecodeInbound_UnknownKind(t *testing.T) {
	_, _, err := wire.DecodeInbound([]byte(`{"kind":"NONSENSE"}`))
	require.Error(t, err)
	var unk *wire.UnknownKindError
	assert.ErrorAs(t, err, &unk)
	assert.Equal(t, wire.Kind("NONSENSE"), unk.Kind)
}

func TestDecodeInbound_MalformedJSON(t *testing.T) {
	_, _, err := wire.DecodeInbound([]byte(`not json`))
	require.Error(t, err)
}

func TestEncodeEvent_NotDecodableAsInbound(t *testing.T) {
	ev := actor.Event{
		AssignmentID: "a1",
		Kind:         actor.EventDone,
		Returns:      map[string]any{"result": 42},
		Ts:           time.Unix(0, 0).UTC(),
	}
	msg := wire.NewEvent(ev)
	b, err := wire.Encode(msg)
	require.NoError(t, err)

	kind, payload, err := wire.DecodeInbound(b)
	// EVENT is not an inbound kind, so decode must fail with UnknownKindError
	// even though encoding succeeded -- this asserts the two dispatch tables
	// are intentionally disjoint, not a round trip of the same message.
	require.Error(t, err)
	assert.Equal(t, wire.KindEvent, kind)
	assert.Nil(t, payload)
}

func TestEncodeEnvelope(t *testing.T) {
	env := statesync.Envelope{
		StateName: "progress",
		Rev:       1,
		BaseRev:   0,
		Ts:        time.Unix(0, 0).UTC(),
		Patches: []statesync.EnvelopePatch{
			{Op: statesync.OpReplace, Path: "/count", Value: float64(3)},
		},
	}
	msg := wire.NewEnvelope(env)
	b, err := wire.Encode(msg)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"ENVELOPE"`)
	assert.Contains(t, string(b), `"stateName":"progress"`)
}

func TestEncodeInitPongAck(t *testing.T) {
	init := wire.NewInit("agent-1", nil, nil)
	b, err := wire.Encode(init)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"INIT"`)
	assert.Contains(t, string(b), `"instanceId":"agent-1"`)

	pong := wire.NewPong(time.Unix(0, 0).UTC())
	b, err = wire.Encode(pong)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"PONG"`)

	ack := wire.NewAck("msg-1")
	b, err = wire.Encode(ack)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"ACK"`)
	assert.Contains(t, string(b), `"messageId":"msg-1"`)
}
