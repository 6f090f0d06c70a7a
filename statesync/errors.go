package statesync

import "fmt"

// LockViolationError is returned by PutPatch when a mutation is observed
// outside the set of locks the state's Config declared as required --
// e.g. an actor mutating shared state after its context/lock set expired,
// or a caller that never acquired the lock at all.
type LockViolationError struct {
	StateName string
	Missing   []string
}

func (e *LockViolationError) Error() string {
	return fmt.Sprintf("statesync: state %q mutated without holding required lock(s) %v", e.StateName, e.Missing)
}

// PortResolutionError is returned when a patch's path cannot be resolved
// against the state's schema, so the value can't be shrunk for the wire.
type PortResolutionError struct {
	StateName string
	Path      string
}

func (e *PortResolutionError) Error() string {
	return fmt.Sprintf("statesync: state %q has no port for path %q", e.StateName, e.Path)
}
