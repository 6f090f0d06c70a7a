// Package shelf implements the Shelver: a process-local keyed store for
// values whose Structure scope is LOCAL -- values that cannot or should
// not round-trip across the wire (open file handles, live cursors,
// in-memory models). Mirrors rekuest_next/actors/types.py's Shelver
// protocol (`aput_on_shelve`/`aget_from_shelve`).
package shelf

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Shelf is a process-wide store with no eviction beyond process lifetime,
// per spec.md §4.D: "entries are garbage collected transitively when the
// holding value becomes unreachable". Go's GC will collect an entry's
// value once removed from the map; Shelf never removes an entry itself,
// so callers that want that collection must call Delete explicitly once a
// MEMORY_STRUCTURE's owning assignment has terminated.
type Shelf struct {
	values  sync.Map // string -> any
	counter uint64
}

// New constructs an empty Shelf.
func New() *Shelf {
	return &Shelf{}
}

// Put stores value under a freshly minted key and returns it. The key
// combines a monotonic per-process counter with a random UUID suffix so it
// is both ordered (useful in logs) and never reused across process
// restarts or GC cycles -- keys must be opaque to the wire per spec.md
// §4.D's "must not be reused across processes" invariant.
func (s *Shelf) Put(value any) string {
	n := atomic.AddUint64(&s.counter, 1)
	key := fmt.Sprintf("shelf_%d_%s", n, uuid.NewString())
	s.values.Store(key, value)
	return key
}

// Get retrieves the value stored under key, failing with a typed
// not-found error if absent.
func (s *Shelf) Get(key string) (any, error) {
	v, ok := s.values.Load(key)
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return v, nil
}

// Delete removes key from the shelf, allowing its value to be garbage
// collected once no other reference survives. The Actor does not call it on
// assignment termination; a shelved value stays until Delete is called.
func (s *Shelf) Delete(key string) {
	s.values.Delete(key)
}

// NotFoundError reports a Get against a key the Shelf never held or has
// since deleted.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return "shelf: no value held for key " + e.Key
}
