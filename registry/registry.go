// Package registry implements the Structure Registry: a type <-> wire
// identifier map with pluggable hooks for auto-registration, mirroring
// structures/registry.py's StructureRegistry.
package registry

import (
	"context"
	"reflect"
	"sync"

	"github.com/arkitektio/rekuest-next/port"
)

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithHooks replaces the default hook chain (enum, global, local) with a
// caller-supplied ordered chain.
func WithHooks(hooks ...Hook) Option {
	return func(r *Registry) { r.hooks = hooks }
}

// WithAllowAutoRegister toggles whether GetPortForType may consult the hook
// chain for a type it has not seen, or must fail closed. Mirrors the
// Python registry's allow_auto_register flag.
func WithAllowAutoRegister(allow bool) Option {
	return func(r *Registry) { r.allowAutoRegister = allow }
}

// WithAllowOverwrites toggles whether Register may replace an identifier
// that is already bound to a different type.
func WithAllowOverwrites(allow bool) Option {
	return func(r *Registry) { r.allowOverwrites = allow }
}

// CopyFrom seeds the new Registry with every FullFilledStructure already
// held by an existing one, mirroring the Python registry's
// `copy_from_default` composition pattern used to derive an agent-local
// registry from a package-level default.
func CopyFrom(src *Registry) Option {
	return func(r *Registry) {
		src.mu.RLock()
		defer src.mu.RUnlock()
		for id, s := range src.byIdentifier {
			r.byIdentifier[id] = s
			r.byType[s.Type] = s
		}
	}
}

// Registry maps Go types to their FullFilledStructure and back, consulting
// an ordered hook chain to fill in structures it has not seen before.
type Registry struct {
	mu                sync.RWMutex
	byType            map[reflect.Type]*FullFilledStructure
	byIdentifier      map[string]*FullFilledStructure
	hooks             []Hook
	allowAutoRegister bool
	allowOverwrites   bool
}

// New constructs a Registry. By default it auto-registers via
// DefaultHooks() (enum, global, local-catch-all) and disallows overwrites.
func New(opts ...Option) *Registry {
	hooks, _, _ := DefaultHooks()
	r := &Registry{
		byType:            make(map[reflect.Type]*FullFilledStructure),
		byIdentifier:      make(map[string]*FullFilledStructure),
		hooks:             hooks,
		allowAutoRegister: true,
		allowOverwrites:   false,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds a fully built FullFilledStructure explicitly, bypassing
// the hook chain. Returns a *Error if the identifier is already bound to a
// different type and overwrites are disallowed.
func (r *Registry) Register(s *FullFilledStructure) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byIdentifier[s.Identifier]; ok && existing.Type != s.Type && !r.allowOverwrites {
		return &Error{Op: "register", Identifier: s.Identifier,
			Reason: "already bound to " + existing.Type.String()}
	}
	r.byType[s.Type] = s
	r.byIdentifier[s.Identifier] = s
	return nil
}

// resolve returns the FullFilledStructure for t, consulting the hook chain
// and caching the result if allowAutoRegister is set and t is unseen.
func (r *Registry) resolve(t reflect.Type) (*FullFilledStructure, error) {
	r.mu.RLock()
	if s, ok := r.byType[t]; ok {
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	if !r.allowAutoRegister {
		return nil, &Error{Op: "resolve", Reason: "no structure registered for " + t.String() + " and auto-register is disabled"}
	}

	for _, h := range r.hooks {
		if !h.IsApplicable(t) {
			continue
		}
		s, err := h.Apply(t)
		if err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.byType[t] = s
		r.byIdentifier[s.Identifier] = s
		r.mu.Unlock()
		return s, nil
	}
	return nil, &Error{Op: "resolve", Reason: "no hook in the chain claimed " + t.String()}
}

// GetStructureForType resolves the FullFilledStructure bound to a Go type,
// auto-registering via the hook chain if needed and allowed.
func (r *Registry) GetStructureForType(t reflect.Type) (*FullFilledStructure, error) {
	return r.resolve(t)
}

// GetStructureForIdentifier resolves the FullFilledStructure bound to a
// wire identifier. Auto-registration cannot help here since a bare
// identifier carries no Go type to apply hooks against.
func (r *Registry) GetStructureForIdentifier(identifier string) (*FullFilledStructure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byIdentifier[identifier]
	if !ok {
		return nil, &Error{Op: "lookup", Identifier: identifier, Reason: "no structure registered"}
	}
	return s, nil
}

// GetPortForType builds the Port describing t -- STRUCTURE/MEMORY_STRUCTURE
// kind per the structure's scope, carrying its identifier and default
// widget. Used by the Definition Builder when it encounters a parameter or
// return type not covered by a scalar Kind.
func (r *Registry) GetPortForType(t reflect.Type, key string, nullable bool) (*port.Port, error) {
	s, err := r.resolve(t)
	if err != nil {
		return nil, err
	}
	kind := port.KindStructure
	if s.Scope == ScopeLocal {
		kind = port.KindMemoryStructure
	}
	id := s.Identifier
	p := &port.Port{
		Key:        key,
		Kind:       kind,
		Nullable:   nullable,
		Identifier: &id,
	}
	if s.DefaultWidget != nil {
		p.Widgets = append(p.Widgets, *s.DefaultWidget)
	}
	return p, nil
}

// GetShrinker returns the shrink function for t, or an error if t resolves
// to a LOCAL-scope structure (LOCAL values never shrink to a wire id --
// they route through the Shelver instead).
func (r *Registry) GetShrinker(t reflect.Type) (Shrinker, error) {
	s, err := r.resolve(t)
	if err != nil {
		return nil, err
	}
	if s.Shrink == nil {
		return nil, &Error{Op: "get_shrinker", Identifier: s.Identifier, Reason: "structure is LOCAL scope and has no shrinker"}
	}
	return s.Shrink, nil
}

// GetExpander returns the expand function for a wire identifier.
func (r *Registry) GetExpander(identifier string) (Expander, error) {
	s, err := r.GetStructureForIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	if s.Expand == nil {
		return nil, &Error{Op: "get_expander", Identifier: identifier, Reason: "structure is LOCAL scope and has no expander"}
	}
	return s.Expand, nil
}

// GetPredicator returns the predicate used to test whether a runtime value
// is an instance of the type bound to identifier -- used by the
// Serializer to pick a UNION branch in declaration order.
func (r *Registry) GetPredicator(identifier string) (Predicator, error) {
	s, err := r.GetStructureForIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	return s.Predicate, nil
}

// Shrink is a convenience wrapper resolving t's shrinker and invoking it.
func (r *Registry) Shrink(ctx context.Context, value any) (string, error) {
	t := reflect.TypeOf(value)
	shrink, err := r.GetShrinker(t)
	if err != nil {
		return "", err
	}
	return shrink(ctx, value)
}

// Expand is a convenience wrapper resolving identifier's expander and
// invoking it.
func (r *Registry) Expand(ctx context.Context, identifier, id string) (any, error) {
	expand, err := r.GetExpander(identifier)
	if err != nil {
		return nil, err
	}
	return expand(ctx, id)
}
