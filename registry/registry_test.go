package registry_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkitektio/rekuest-next/registry"
)

type dataset struct {
	id string
}

func (d dataset) StructureID() string { return d.id }

type localScratch struct {
	Value int
}

func TestRegistry_LocalCatchAll(t *testing.T) {
	r := registry.New()

	p, err := r.GetPortForType(reflect.TypeOf(localScratch{}), "scratch", false)
	require.NoError(t, err)
	assert.Equal(t, "MEMORY_STRUCTURE", string(p.Kind))
	require.NotNil(t, p.Identifier)
	assert.Contains(t, *p.Identifier, "localscratch")

	_, err = r.GetShrinker(reflect.TypeOf(localScratch{}))
	assert.Error(t, err, "LOCAL scope structures must not expose a shrinker")
}

func TestRegistry_GlobalHookRoundTrip(t *testing.T) {
	_, _, globalHook := registry.DefaultHooks()
	datasetType := reflect.TypeOf(dataset{})
	globalHook.RegisterGlobal(datasetType, func(_ context.Context, id string) (any, error) {
		return dataset{id: id}, nil
	})

	hooks := []registry.Hook{globalHook, registry.NewLocalHook()}
	r := registry.New(registry.WithHooks(hooks...))

	p, err := r.GetPortForType(datasetType, "input", false)
	require.NoError(t, err)
	assert.Equal(t, "STRUCTURE", string(p.Kind))

	shrunk, err := r.Shrink(context.Background(), dataset{id: "ds-1"})
	require.NoError(t, err)
	assert.Equal(t, "ds-1", shrunk)

	expanded, err := r.Expand(context.Background(), *p.Identifier, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, dataset{id: "ds-1"}, expanded)
}

func TestRegistry_AutoRegisterDisabled(t *testing.T) {
	r := registry.New(registry.WithAllowAutoRegister(false))

	_, err := r.GetPortForType(reflect.TypeOf(localScratch{}), "scratch", false)
	assert.Error(t, err, "auto-register disabled means unseen types must fail closed")
}

func TestRegistry_CopyFromDefault(t *testing.T) {
	base := registry.New()
	_, err := base.GetPortForType(reflect.TypeOf(localScratch{}), "scratch", false)
	require.NoError(t, err)

	derived := registry.New(registry.CopyFrom(base), registry.WithAllowAutoRegister(false))

	s, err := derived.GetStructureForType(reflect.TypeOf(localScratch{}))
	require.NoError(t, err)
	assert.Equal(t, registry.ScopeLocal, s.Scope)
}

func TestRegistry_OverwriteRejectedByDefault(t *testing.T) {
	r := registry.New()
	err := r.Register(&registry.FullFilledStructure{
		Type:       reflect.TypeOf(localScratch{}),
		Identifier: "dup",
		Scope:      registry.ScopeLocal,
		Predicate:  func(any) bool { return true },
	})
	require.NoError(t, err)

	err = r.Register(&registry.FullFilledStructure{
		Type:       reflect.TypeOf(dataset{}),
		Identifier: "dup",
		Scope:      registry.ScopeLocal,
		Predicate:  func(any) bool { return true },
	})
	assert.Error(t, err, "rebinding an identifier to a different type must fail without WithAllowOverwrites")
}
