package registry

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Hook is queried by a Registry for any type it has not yet seen. The
// first hook in the ordered hook chain whose IsApplicable returns true
// wins; its Apply builds the FullFilledStructure.
type Hook interface {
	IsApplicable(t reflect.Type) bool
	Apply(t reflect.Type) (*FullFilledStructure, error)
}

// Enumer is implemented by Go enum-like types (string-backed constants)
// that want EnumHook to auto-register them. Name returns the wire-visible
// enum member name.
type Enumer interface {
	EnumName() string
}

// EnumMember pairs a member's wire-visible name with its value, supplied
// in declaration order by callers that register an enum type -- Go has
// no runtime reflection over a type's declared constants the way
// Python's Enum.__members__ does. The order is what ordinal lookup
// indexes into (see expand in Apply, below).
type EnumMember struct {
	Name  string
	Value any
}

// enumRegistration holds both a name->value index (for name lookup) and
// the original ordered slice (for ordinal lookup).
type enumRegistration struct {
	t       reflect.Type
	members []EnumMember
	byName  map[string]any
}

// EnumHook recognizes types registered via RegisterEnum and builds a
// GLOBAL-scope structure whose shrink/expand round-trip through the
// member's name, mirroring structures/hooks/enum.py's build_enum_shrink_expand.
type EnumHook struct {
	registrations map[reflect.Type]*enumRegistration
}

// NewEnumHook creates an empty enum hook. Call RegisterEnum for each enum
// type before the hook is consulted by the registry's auto-register path.
func NewEnumHook() *EnumHook {
	return &EnumHook{registrations: make(map[reflect.Type]*enumRegistration)}
}

// RegisterEnum declares an enum type and its members, in declaration
// order, so the hook can later build shrink/expand closures for it.
func (h *EnumHook) RegisterEnum(t reflect.Type, members []EnumMember) {
	byName := make(map[string]any, len(members))
	for _, m := range members {
		byName[m.Name] = m.Value
	}
	h.registrations[t] = &enumRegistration{t: t, members: members, byName: byName}
}

func (h *EnumHook) IsApplicable(t reflect.Type) bool {
	_, ok := h.registrations[t]
	return ok
}

func (h *EnumHook) Apply(t reflect.Type) (*FullFilledStructure, error) {
	reg, ok := h.registrations[t]
	if !ok {
		return nil, fmt.Errorf("enum hook: %s was not registered via RegisterEnum", t)
	}

	shrink := func(_ context.Context, value any) (string, error) {
		e, ok := value.(Enumer)
		if !ok {
			return "", fmt.Errorf("enum hook: value of type %T does not implement Enumer", value)
		}
		return e.EnumName(), nil
	}
	expand := func(_ context.Context, id string) (any, error) {
		if v, ok := reg.byName[id]; ok {
			return v, nil
		}
		// Not a known name -- spec.md's ENUM expand rule also accepts a
		// positional ordinal into the registered member order.
		if ord, err := strconv.Atoi(id); err == nil {
			if ord >= 0 && ord < len(reg.members) {
				return reg.members[ord].Value, nil
			}
		}
		return nil, fmt.Errorf("enum hook: %s has no member named or at ordinal %q", t, id)
	}
	predicate := func(value any) bool {
		return reflect.TypeOf(value) == t
	}

	return &FullFilledStructure{
		Type:       t,
		Identifier: classToIdentifier(t),
		Scope:      ScopeGlobal,
		Shrink:     shrink,
		Expand:     expand,
		Predicate:  predicate,
		ConvertDefault: func(v any) (any, error) {
			if e, ok := v.(Enumer); ok {
				return e.EnumName(), nil
			}
			return v, nil
		},
	}, nil
}

// GlobalStructure is implemented by types that can round-trip across the
// wire by id: they know how to shrink themselves to a string id and a
// registered package-level function knows how to expand that id back.
// Mirrors structures/hooks/global_structure.py's duck-typed aexpand/ashrink
// contract, made explicit per the Design Note on duck-typed protocols.
type GlobalStructure interface {
	StructureID() string
}

// globalRegistration pairs a GlobalStructure type with its expander, since
// expand has no receiver to dispatch on (the id is all we have).
type globalRegistration struct {
	expand Expander
}

// GlobalHook recognizes types registered via RegisterGlobal: their shrink
// is `StructureID()`, their expand is the function supplied at
// registration. GLOBAL scope per the data model's FullFilledStructure
// invariant.
type GlobalHook struct {
	registrations map[reflect.Type]*globalRegistration
}

func NewGlobalHook() *GlobalHook {
	return &GlobalHook{registrations: make(map[reflect.Type]*globalRegistration)}
}

// RegisterGlobal declares a GLOBAL-scope type and the function used to
// expand a wire id back into an instance of it.
func (h *GlobalHook) RegisterGlobal(t reflect.Type, expand Expander) {
	h.registrations[t] = &globalRegistration{expand: expand}
}

func (h *GlobalHook) IsApplicable(t reflect.Type) bool {
	_, ok := h.registrations[t]
	return ok
}

func (h *GlobalHook) Apply(t reflect.Type) (*FullFilledStructure, error) {
	reg, ok := h.registrations[t]
	if !ok {
		return nil, fmt.Errorf("global hook: %s was not registered via RegisterGlobal", t)
	}

	shrink := func(_ context.Context, value any) (string, error) {
		gs, ok := value.(GlobalStructure)
		if !ok {
			return "", fmt.Errorf("global hook: value of type %T does not implement GlobalStructure", value)
		}
		return gs.StructureID(), nil
	}

	return &FullFilledStructure{
		Type:           t,
		Identifier:     classToIdentifier(t),
		Scope:          ScopeGlobal,
		Shrink:         shrink,
		Expand:         reg.expand,
		Predicate:      func(value any) bool { return reflect.TypeOf(value) == t },
		ConvertDefault: func(v any) (any, error) { return v, nil },
	}, nil
}

// LocalHook is the catch-all hook: any type is applicable, scope is LOCAL,
// shrink/expand are left nil (the Serializer routes LOCAL-scope values
// through the Shelver instead). Mirrors structures/hooks/local_structure.py.
type LocalHook struct{}

func NewLocalHook() *LocalHook { return &LocalHook{} }

func (h *LocalHook) IsApplicable(t reflect.Type) bool { return true }

func (h *LocalHook) Apply(t reflect.Type) (*FullFilledStructure, error) {
	return &FullFilledStructure{
		Type:           t,
		Identifier:     classToIdentifier(t),
		Scope:          ScopeLocal,
		Shrink:         nil,
		Expand:         nil,
		Predicate:      func(value any) bool { return reflect.TypeOf(value) == t },
		ConvertDefault: func(v any) (any, error) { return v, nil },
	}, nil
}

// classToIdentifier derives the lowercased "module.name"-style identifier
// spec.md §3 requires, from a Go type's package path and name.
func classToIdentifier(t reflect.Type) string {
	pkg := t.PkgPath()
	name := t.Name()
	if idx := strings.LastIndex(pkg, "/"); idx >= 0 {
		pkg = pkg[idx+1:]
	}
	if pkg == "" {
		return strings.ToLower(name)
	}
	return strings.ToLower(pkg) + "." + strings.ToLower(name)
}

// DefaultHooks returns the hook chain tried by a new Registry before
// falling back to error (or auto-registration is disallowed): enum, then
// global, then the local catch-all. Callers typically call RegisterEnum /
// RegisterGlobal on the returned enum/global hooks before use.
func DefaultHooks() (hooks []Hook, enumHook *EnumHook, globalHook *GlobalHook) {
	enumHook = NewEnumHook()
	globalHook = NewGlobalHook()
	return []Hook{enumHook, globalHook, NewLocalHook()}, enumHook, globalHook
}
