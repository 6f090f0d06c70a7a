package definition

import (
	"sync"

	"github.com/arkitektio/rekuest-next/registry"
)

// Builder constructs the actor.Runnable for a bound assignment to the
// implementation registered at a given interface, returned as `any` so
// this package does not need to import `actor` (which itself imports
// `definition` for Injections) -- the agent package performs the type
// assertion to actor.Runnable when it invokes a Builder.
type Builder func() (any, error)

// Registration bundles everything the Agent needs to serve one interface:
// its Definition, the Injections sidecar, the Structure Registry it was
// built against, its actor Builder, and named dependencies on other
// interfaces (spec.md's `isTestFor`/dependency graph).
type Registration struct {
	Definition        *Definition
	Injections        *Injections
	StructureRegistry *registry.Registry
	Builder           Builder
	Dependencies      map[string]string
}

// Registry maps interface name -> Registration, mirroring
// rekuest_next/definition/registry.py's DefinitionRegistry. Concurrency-safe
// since registration may happen while the Agent's inbound loop is already
// reading it to dispatch an ASSIGN.
type Registry struct {
	mu          sync.RWMutex
	byInterface map[string]*Registration
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{byInterface: make(map[string]*Registration)}
}

// RegisterAtInterface binds a Registration to an interface name.
func (r *Registry) RegisterAtInterface(iface string, reg *Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byInterface[iface] = reg
}

// GetRegistration looks up the Registration bound to iface.
func (r *Registry) GetRegistration(iface string) (*Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byInterface[iface]
	if !ok {
		return nil, &Error{Op: "get_registration", Param: iface, Reason: "no registration for interface"}
	}
	return reg, nil
}

// Interfaces returns every registered interface name.
func (r *Registry) Interfaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byInterface))
	for k := range r.byInterface {
		out = append(out, k)
	}
	return out
}

// Definitions returns every registered Definition, for the Agent's INIT
// handshake payload.
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.byInterface))
	for _, reg := range r.byInterface {
		out = append(out, reg.Definition)
	}
	return out
}

// Merge folds other's registrations into r. When strict is true, an
// interface present in both registries is a fatal error (mirrors the
// Python registry's `merge_with(strict=True)`), otherwise other wins.
func (r *Registry) Merge(other *Registry, strict bool) error {
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	for iface, reg := range other.byInterface {
		if _, exists := r.byInterface[iface]; exists && strict {
			return &Error{Op: "merge", Param: iface, Reason: "cannot merge registries with the same interface in strict mode"}
		}
		r.byInterface[iface] = reg
	}
	return nil
}
