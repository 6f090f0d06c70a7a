package commands

import (
	"context"
	"reflect"

	"github.com/arkitektio/rekuest-next/actor"
	"github.com/arkitektio/rekuest-next/definition"
	"github.com/arkitektio/rekuest-next/registry"
)

// buildDemoRegistry constructs a reference definition.Registry with one
// trivial FUNCTION implementation ("rekuest.demo.echo"), so `run`/
// `register` have something concrete to announce and exercise without
// depending on an external implementation package. Real deployments
// embed this module as a library and call definition.Build/
// Registry.RegisterAtInterface for their own callables instead of
// linking against this command package.
func buildDemoRegistry() (*definition.Registry, *registry.Registry) {
	structReg := registry.New()
	defReg := definition.New()

	def, inj, err := definition.Build(structReg, "rekuest.demo.echo", definition.KindFunction,
		[]definition.ParamSpec{{Name: "value", Type: reflect.TypeOf("")}},
		[]definition.ParamSpec{{Name: "value", Type: reflect.TypeOf("")}},
	)
	if err != nil {
		// A fixed, hand-written ParamSpec set cannot fail Build; treat any
		// failure here as a programming error in this demo registration.
		panic(err)
	}

	defReg.RegisterAtInterface("rekuest.demo.echo", &definition.Registration{
		Definition:        def,
		Injections:        inj,
		StructureRegistry: structReg,
		Builder: func() (any, error) {
			return actor.NewFunc(func(ctx context.Context, h *actor.Handle, args map[string]any) (map[string]any, error) {
				return map[string]any{"value": args["value"]}, nil
			}), nil
		},
	})

	return defReg, structReg
}
