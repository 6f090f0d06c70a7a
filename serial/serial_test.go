package serial_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkitektio/rekuest-next/port"
	"github.com/arkitektio/rekuest-next/registry"
	"github.com/arkitektio/rekuest-next/serial"
	"github.com/arkitektio/rekuest-next/shelf"
)

func newExpander() *serial.Expander {
	return serial.New(registry.New(), shelf.New())
}

func TestExpandArgs_ScalarsAndDefault(t *testing.T) {
	e := newExpander()
	args := []*port.Port{
		{Key: "count", Kind: port.KindInt},
		{Key: "label", Kind: port.KindString, Default: "fallback"},
		{Key: "flag", Kind: port.KindBool, Nullable: true},
	}

	out, err := e.ExpandArgs(context.Background(), args, map[string]any{
		"count": float64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out["count"])
	assert.Equal(t, "fallback", out["label"])
	assert.Nil(t, out["flag"])
}

func TestExpandArgs_MissingRequiredFails(t *testing.T) {
	e := newExpander()
	args := []*port.Port{{Key: "count", Kind: port.KindInt}}

	_, err := e.ExpandArgs(context.Background(), args, map[string]any{})
	assert.Error(t, err)
}

func TestExpandShrink_ListRoundTrip(t *testing.T) {
	e := newExpander()
	p := &port.Port{
		Key:      "items",
		Kind:     port.KindList,
		Children: []*port.Port{{Key: "item", Kind: port.KindInt}},
	}

	expanded, err := e.Expand(context.Background(), p, []any{float64(1), float64(2), float64(3)}, true, []string{"items"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, expanded)

	shrunk, err := e.Shrink(context.Background(), p, []any{1, 2, 3}, []string{"items"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, shrunk)
}

func TestExpandShrink_Union(t *testing.T) {
	e := newExpander()
	p := &port.Port{
		Key:  "payload",
		Kind: port.KindUnion,
		Children: []*port.Port{
			{Key: "payload_0", Kind: port.KindInt},
			{Key: "payload_1", Kind: port.KindString},
		},
	}

	expanded, err := e.Expand(context.Background(), p, map[string]any{"use": float64(1), "value": "hi"}, true, []string{"payload"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "hi", expanded)

	shrunk, err := e.Shrink(context.Background(), p, "hi", []string{"payload"}, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"use": 1, "value": "hi"}, shrunk)
}

func TestExpandShrink_MemoryStructure(t *testing.T) {
	e := newExpander()
	id := "local.cursor"
	p := &port.Port{Key: "cursor", Kind: port.KindMemoryStructure, Identifier: &id}

	type cursor struct{ pos int }
	c := &cursor{pos: 7}

	key, err := e.Shrink(context.Background(), p, c, []string{"cursor"}, 0)
	require.NoError(t, err)

	expanded, err := e.Expand(context.Background(), p, key, true, []string{"cursor"}, 0)
	require.NoError(t, err)
	assert.Same(t, c, expanded)
}

func TestExpandShrink_Date(t *testing.T) {
	e := newExpander()
	p := &port.Port{Key: "at", Kind: port.KindDate}

	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	shrunk, err := e.Shrink(context.Background(), p, now, []string{"at"}, 0)
	require.NoError(t, err)

	expanded, err := e.Expand(context.Background(), p, shrunk, true, []string{"at"}, 0)
	require.NoError(t, err)
	assert.True(t, now.Equal(expanded.(time.Time)))
}

func TestExpand_ZSuffixDateParses(t *testing.T) {
	e := newExpander()
	p := &port.Port{Key: "at", Kind: port.KindDate}

	expanded, err := e.Expand(context.Background(), p, "2026-07-31T10:00:00Z", true, []string{"at"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2026, expanded.(time.Time).Year())
}

func TestShrink_BoolCoercion(t *testing.T) {
	e := newExpander()
	p := &port.Port{Key: "ok", Kind: port.KindBool}

	v, err := e.Shrink(context.Background(), p, "true", []string{"ok"}, 0)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = e.Shrink(context.Background(), p, "maybe", []string{"ok"}, 0)
	assert.Error(t, err)
}

func TestSerialError_FormatsPathTree(t *testing.T) {
	e := newExpander()
	p := &port.Port{Key: "count", Kind: port.KindInt}

	_, err := e.Expand(context.Background(), p, "not-a-number", true, []string{"count"}, 1)
	require.Error(t, err)
	var serr *serial.Error
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Error(), "- count")
	assert.Contains(t, serr.Error(), "port: count (INT)")
}
