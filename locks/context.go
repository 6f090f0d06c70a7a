package locks

import "context"

type heldKey struct{}

// WithHeld annotates ctx with the set of lock names currently held by the
// calling goroutine, so that downstream collaborators -- notably
// statesync.Worker -- can verify a required lock is actually held at the
// point a state mutation is observed, without threading a Release value
// through every call site. Neither the Agent nor the Actor calls WithHeld;
// the ctx a caller passes to statesync.Observe carries only the names the
// caller attached to it here.
func WithHeld(ctx context.Context, names []string) context.Context {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return context.WithValue(ctx, heldKey{}, set)
}

// HasAll reports whether every name in required was present in the set
// passed to WithHeld for ctx. An empty required set is always satisfied.
func HasAll(ctx context.Context, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set, _ := ctx.Value(heldKey{}).(map[string]struct{})
	for _, n := range required {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}
