package definition_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkitektio/rekuest-next/definition"
	"github.com/arkitektio/rekuest-next/port"
	"github.com/arkitektio/rekuest-next/registry"
)

func TestBuild_ScalarArgsAndInjection(t *testing.T) {
	reg := registry.New()

	args := []definition.ParamSpec{
		{Name: "ctx", Type: reflect.TypeOf(struct{}{}), Inject: definition.InjectContext, LockNames: []string{"db"}},
		{Name: "count", Type: reflect.TypeOf(0)},
		{Name: "label", Type: reflect.TypeOf(""), Default: "x"},
	}
	returns := []definition.ParamSpec{
		{Name: "return0", Type: reflect.TypeOf(true)},
	}

	def, inj, err := definition.Build(reg, "double", definition.KindFunction, args, returns)
	require.NoError(t, err)

	require.Len(t, def.Args, 2, "the injected ctx parameter must not become a wire Port")
	assert.Equal(t, "count", def.Args[0].Key)
	assert.Equal(t, port.KindInt, def.Args[0].Kind)
	assert.Equal(t, "label", def.Args[1].Key)
	assert.Equal(t, "x", def.Args[1].Default)

	require.Len(t, def.Returns, 1)
	assert.Equal(t, port.KindBool, def.Returns[0].Kind)

	require.Contains(t, inj.ByName, "ctx")
	assert.Equal(t, []string{"db"}, inj.ByName["ctx"].LockNames)
	assert.Equal(t, []string{"db"}, inj.RequiredLockNames())
}

func TestBuild_ValidatorDependencyMustNameSiblingPort(t *testing.T) {
	reg := registry.New()

	args := []definition.ParamSpec{
		{Name: "a", Type: reflect.TypeOf(0)},
		{
			Name: "b", Type: reflect.TypeOf(0),
			Validators: []port.Validator{{Function: "(self, a) => self > a", Dependencies: []string{"missing"}}},
		},
	}

	_, _, err := definition.Build(reg, "compare", definition.KindFunction, args, nil)
	assert.Error(t, err, "a validator dependency that does not name a sibling port must be rejected at build time")
}

func TestDefinition_HashIsStableAndContentAddressed(t *testing.T) {
	reg := registry.New()
	args := []definition.ParamSpec{{Name: "n", Type: reflect.TypeOf(0)}}

	def1, _, err := definition.Build(reg, "identity", definition.KindFunction, args, nil)
	require.NoError(t, err)
	def2, _, err := definition.Build(reg, "identity", definition.KindFunction, args, nil)
	require.NoError(t, err)

	h1, err := def1.Hash()
	require.NoError(t, err)
	h2, err := def2.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "structurally identical definitions must hash identically")

	def2.Description = "changed"
	h3, err := def2.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "a changed field must change the hash")
}

func TestDefinitionRegistry_MergeStrictRejectsOverlap(t *testing.T) {
	a := definition.New()
	b := definition.New()

	a.RegisterAtInterface("double", &definition.Registration{Definition: &definition.Definition{Name: "double"}})
	b.RegisterAtInterface("double", &definition.Registration{Definition: &definition.Definition{Name: "double"}})

	err := a.Merge(b, true)
	assert.Error(t, err)

	err = a.Merge(b, false)
	assert.NoError(t, err)
}
