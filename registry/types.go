package registry

import (
	"context"
	"reflect"

	"github.com/arkitektio/rekuest-next/port"
)

// Scope determines whether a structure can round-trip across the wire
// (GLOBAL) or only has meaning inside this process (LOCAL, backed by the
// Shelver).
type Scope string

const (
	ScopeLocal  Scope = "LOCAL"
	ScopeGlobal Scope = "GLOBAL"
)

// Shrinker converts a typed value down to a wire-safe string id.
type Shrinker func(ctx context.Context, value any) (string, error)

// Expander converts a wire string id back to a typed value.
type Expander func(ctx context.Context, id string) (any, error)

// Predicator reports whether a runtime value is an instance of the type
// this FullFilledStructure describes -- used to pick a UNION branch.
type Predicator func(value any) bool

// DefaultConverter converts a raw default value (as declared at
// registration time) into the type's canonical in-memory representation.
type DefaultConverter func(value any) (any, error)

// FullFilledStructure is the concrete contract a Go type fulfils in a
// Registry.
type FullFilledStructure struct {
	Type                reflect.Type
	Identifier          string
	Scope               Scope
	Shrink              Shrinker
	Expand              Expander
	Predicate           Predicator
	ConvertDefault      DefaultConverter
	DefaultWidget       *port.Widget
	DefaultReturnWidget *port.Widget
}

// Validate enforces the data-model invariant that a GLOBAL-scope structure
// must supply both a shrinker and an expander.
func (f *FullFilledStructure) Validate() error {
	if f.Scope == ScopeGlobal && (f.Shrink == nil || f.Expand == nil) {
		return &Error{Op: "fulfill_registration", Identifier: f.Identifier,
			Reason: "GLOBAL scope requires both a shrinker and an expander"}
	}
	if f.Predicate == nil {
		return &Error{Op: "fulfill_registration", Identifier: f.Identifier,
			Reason: "a predicate is required to resolve UNION branches"}
	}
	return nil
}
