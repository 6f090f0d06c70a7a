// Package locks implements the Context/Lock Manager: a set of named,
// exclusive, FIFO-fair locks. Each assignment declares the union of lock
// names its context/state parameters require; the Agent acquires that set
// atomically, in sorted-name order, before transitioning an Actor to
// RUNNING, and releases it on any terminal state. Mirrors spec.md §4.G;
// the sorted-acquire-order deadlock-avoidance idiom is the classic one the
// teacher's `pulse/async/worker.go` also relies on when a worker must hold
// more than one piece of shared state (its `mu sync.Mutex` guarding queue
// state alongside per-job bookkeeping).
package locks

import (
	"context"
	"sort"
	"sync"
)

// Manager holds one FIFO-fair mutex per lock name, created lazily on
// first use and kept for the Manager's lifetime (locks are cheap and
// named locks are expected to recur across many assignments, so there is
// no eviction).
type Manager struct {
	mu    sync.Mutex
	locks map[string]*fifoMutex
}

// New constructs an empty Manager.
func New() *Manager {
	return &Manager{locks: make(map[string]*fifoMutex)}
}

// Release, returned by AcquireSet, gives up every lock in the set that was
// handed out, in reverse acquisition order.
type Release func()

// AcquireSet acquires every named lock in names, sorted lexically first so
// that two assignments requesting overlapping lock-sets always acquire
// their shared locks in the same relative order -- this is what prevents
// the classic deadlock of A holding lock X waiting for Y while B holds Y
// waiting for X. Acquisition blocks until ctx is done or every lock in the
// (deduplicated) set is held; on ctx cancellation, locks already acquired
// are released before returning the error.
func (m *Manager) AcquireSet(ctx context.Context, names []string) (Release, error) {
	sorted := dedupeSorted(names)

	held := make([]*fifoMutex, 0, len(sorted))
	for _, name := range sorted {
		l := m.lockFor(name)
		if err := l.Lock(ctx); err != nil {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].Unlock()
			}
			return nil, err
		}
		held = append(held, l)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}, nil
}

func (m *Manager) lockFor(name string) *fifoMutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[name]
	if !ok {
		l = newFIFOMutex()
		m.locks[name] = l
	}
	return l
}

func dedupeSorted(names []string) []string {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// fifoMutex is an exclusive lock that grants access to waiters in arrival
// order, implemented as a buffered channel of size 1 used as a ticket
// queue -- unlike sync.Mutex, which makes no FIFO guarantee under
// contention, spec.md §4.G requires "overlapping lock-sets are serialised
// in arrival order per lock".
type fifoMutex struct {
	ch chan struct{}
}

func newFIFOMutex() *fifoMutex {
	l := &fifoMutex{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	return l
}

func (l *fifoMutex) Lock(ctx context.Context) error {
	select {
	case <-l.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *fifoMutex) Unlock() {
	l.ch <- struct{}{}
}
