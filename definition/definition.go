// Package definition builds and hashes Definitions: the content-addressed
// schema describing a callable's name, kind, argument/return Port trees,
// and grouping metadata. Mirrors rekuest_next/definition/{registry,utils}.py,
// realized without runtime signature introspection per the Design Note
// ("explicit registration APIs" rather than reflecting over a Go func).
package definition

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/arkitektio/rekuest-next/port"
	"github.com/arkitektio/rekuest-next/registry"
)

// Kind distinguishes a one-shot callable from a streaming one.
type Kind string

const (
	KindFunction  Kind = "FUNCTION"
	KindGenerator Kind = "GENERATOR"
)

// Definition is the content-addressed schema shared between the Agent's
// implementation registration and the server's call-matching logic.
type Definition struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Kind        Kind         `json:"kind"`
	Args        []*port.Port `json:"args"`
	Returns     []*port.Port `json:"returns"`
	Interfaces  []string     `json:"interfaces,omitempty"`
	PortGroups  []string     `json:"portGroups,omitempty"`
	IsTestFor   []string     `json:"isTestFor,omitempty"`
	Collections []string     `json:"collections,omitempty"`
}

// Hash returns the content-addressed, stable identity of the Definition:
// SHA-256 over its canonical JSON encoding. Go map iteration is randomized
// at runtime but json.Marshal already sorts map keys, and all Definition
// fields are already ordered slices, so encoding/json's default output is
// canonical here without a bespoke canonicalizer.
func (d *Definition) Hash() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// InjectKind classifies a parameter that is supplied by the runtime rather
// than expanded from the wire.
type InjectKind string

const (
	InjectNone          InjectKind = ""
	InjectContext       InjectKind = "context"
	InjectState         InjectKind = "state"
	InjectReadOnlyState InjectKind = "readonly_state"
)

// ParamSpec is the explicit, user-authored description of one parameter or
// return value that the Definition Builder turns into a Port (or, for
// injected parameters, a sidecar Injection record instead). This replaces
// Python's `inspect.signature` + `typing.Annotated` introspection, per
// spec.md §9's Design Note on runtime-decorator/introspection patterns.
type ParamSpec struct {
	Name         string
	Type         reflect.Type
	Nullable     bool
	Inject       InjectKind
	LockNames    []string
	Label        string
	Description  string
	Default      any
	Validators   []port.Validator
	Effects      []port.Effect
	Widgets      []port.Widget
}

// Injection records that a built Definition's callable expects a runtime
// value injected at a given argument position rather than unmarshaled from
// the wire, plus which locks must be held before the call.
type Injection struct {
	Position  int
	Name      string
	Kind      InjectKind
	LockNames []string
}

// Injections is the position/name-keyed sidecar table the Definition
// Builder returns alongside a Definition, per spec.md §4.B step 2 ("Record
// their names and required locks for the runtime").
type Injections struct {
	ByPosition map[int]*Injection
	ByName     map[string]*Injection
}

// RequiredLockNames returns the deduplicated, sorted set of lock names
// required across all injected parameters -- the set the Actor must
// acquire (via locks.Manager.AcquireSet) before invoking the callable.
func (inj *Injections) RequiredLockNames() []string {
	set := map[string]struct{}{}
	for _, i := range inj.ByPosition {
		for _, n := range i.LockNames {
			set[n] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build constructs a Definition and its Injections sidecar from explicit
// parameter specs, mirroring spec.md §4.B's five build steps:
//  1. args/returns become Port trees in declaration order (done by the
//     caller passing args/returns already in order).
//  2. injected params (Inject != InjectNone) are skipped as wire Ports and
//     recorded in Injections instead.
//  3. remaining params consult reg to build non-scalar Ports, merging
//     widgets/validators/effects/defaults/label/description.
//  4. defaults go through the structure's ConvertDefault.
//  5. validator dependency lists must name sibling port keys.
func Build(reg *registry.Registry, name string, kind Kind, args, returns []ParamSpec) (*Definition, *Injections, error) {
	inj := &Injections{ByPosition: map[int]*Injection{}, ByName: map[string]*Injection{}}

	argPorts := make([]*port.Port, 0, len(args))
	for i, a := range args {
		if a.Inject != InjectNone {
			injection := &Injection{Position: i, Name: a.Name, Kind: a.Inject, LockNames: a.LockNames}
			inj.ByPosition[i] = injection
			inj.ByName[a.Name] = injection
			continue
		}
		p, err := buildPort(reg, a)
		if err != nil {
			return nil, nil, err
		}
		argPorts = append(argPorts, p)
	}

	returnPorts := make([]*port.Port, 0, len(returns))
	for _, r := range returns {
		p, err := buildPort(reg, r)
		if err != nil {
			return nil, nil, err
		}
		returnPorts = append(returnPorts, p)
	}

	if err := validateDependencies(argPorts); err != nil {
		return nil, nil, err
	}

	d := &Definition{
		Name:    name,
		Kind:    kind,
		Args:    argPorts,
		Returns: returnPorts,
	}
	return d, inj, nil
}

// buildPort turns one ParamSpec into a Port, consulting the registry for
// non-scalar kinds and converting the declared default through the
// structure's ConvertDefault where applicable.
func buildPort(reg *registry.Registry, spec ParamSpec) (*port.Port, error) {
	var p *port.Port
	isScalar := false

	if scalar, ok := scalarKindFor(spec.Type); ok {
		p = &port.Port{Key: spec.Name, Kind: scalar, Nullable: spec.Nullable}
		isScalar = true
	} else {
		built, err := reg.GetPortForType(spec.Type, spec.Name, spec.Nullable)
		if err != nil {
			return nil, &Error{Op: "build_port", Param: spec.Name, Reason: err.Error()}
		}
		p = built
	}

	p.Label = spec.Label
	p.Description = spec.Description
	p.Validators = spec.Validators
	p.Effects = spec.Effects
	p.Widgets = append(p.Widgets, spec.Widgets...)

	if spec.Default != nil {
		converted := spec.Default
		if !isScalar {
			if s, err := reg.GetStructureForType(spec.Type); err == nil && s.ConvertDefault != nil {
				if v, err := s.ConvertDefault(spec.Default); err == nil {
					converted = v
				}
			}
		}
		p.Default = converted
	}

	if err := p.Validate(); err != nil {
		return nil, &Error{Op: "build_port", Param: spec.Name, Reason: err.Error()}
	}
	return p, nil
}

// scalarKindFor maps Go's built-in kinds onto the spec's scalar Port
// kinds. time.Time is treated specially by callers wishing DATE semantics
// (it has its own reflect.Type and is checked by identity, not reflect.Kind,
// so it is intentionally absent here and left to the registry/caller).
func scalarKindFor(t reflect.Type) (port.Kind, bool) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return port.KindInt, true
	case reflect.Float32, reflect.Float64:
		return port.KindFloat, true
	case reflect.String:
		return port.KindString, true
	case reflect.Bool:
		return port.KindBool, true
	default:
		return "", false
	}
}

// validateDependencies enforces spec.md §4.B step 5: every validator's
// declared dependency must name a sibling port's key.
func validateDependencies(ports []*port.Port) error {
	keys := make(map[string]struct{}, len(ports))
	for _, p := range ports {
		keys[p.Key] = struct{}{}
	}
	for _, p := range ports {
		for _, v := range p.Validators {
			for _, dep := range v.Dependencies {
				if _, ok := keys[dep]; !ok {
					return &Error{Op: "validate_dependencies", Param: p.Key,
						Reason: "validator dependency " + dep + " does not name a sibling port"}
				}
			}
		}
	}
	return nil
}
