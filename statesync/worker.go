package statesync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/arkitektio/rekuest-next/errors"
	"github.com/arkitektio/rekuest-next/locks"
	"github.com/arkitektio/rekuest-next/logger"
	"github.com/arkitektio/rekuest-next/port"
	"github.com/arkitektio/rekuest-next/registry"
	"github.com/arkitektio/rekuest-next/serial"
	"github.com/arkitektio/rekuest-next/shelf"
)

// Publisher is the Agent-side collaborator a Worker hands finished
// envelopes to. Mirrors state_worker.py's StatePublisher protocol.
type Publisher interface {
	PublishEnvelope(ctx context.Context, stateName string, env Envelope) error
}

// Config describes the fixed, per-state parameters a Worker is built
// with -- the parts of EventedConfig the Python worker reads off
// config.state_schema/state_name/publish_interval/structure_registry.
type Config struct {
	StateName         string
	StateSchema       *port.Port // root MODEL port describing the state struct
	PublishInterval   time.Duration
	StructureRegistry *registry.Registry
	RequiredLockNames []string
}

// Worker manages the buffer, squashing, shrinking, and publish loop for a
// single state instance using an event-driven queue. One Worker exists per
// state registered with the Agent.
type Worker struct {
	name              string
	schema            *port.Port
	interval          time.Duration
	requiredLockNames []string

	stateRef  any
	expander  *serial.Expander
	publisher Publisher

	stateMu    sync.Mutex
	lastShrunk map[string]any
	rev        int

	queueMu sync.Mutex
	queue   []Patch
	signal  chan struct{}

	running bool
}

// New constructs a Worker over stateInstance (a pointer to the caller's
// state struct), publishing through publisher, sharing sh for
// MEMORY_STRUCTURE fields embedded in the state.
func New(stateInstance any, publisher Publisher, sh *shelf.Shelf, cfg Config) *Worker {
	return &Worker{
		name:              cfg.StateName,
		schema:            cfg.StateSchema,
		interval:          cfg.PublishInterval,
		requiredLockNames: cfg.RequiredLockNames,
		stateRef:          stateInstance,
		expander:          serial.New(cfg.StructureRegistry, sh),
		publisher:         publisher,
		signal:            make(chan struct{}, 1),
	}
}

// Name returns the state name this Worker replicates.
func (w *Worker) Name() string { return w.name }

// Schema returns the root MODEL port describing this state's shape, for
// the Agent's INIT/CATCHUP announcements.
func (w *Worker) Schema() *port.Port { return w.schema }

// GetRevision returns the current serialized state and its revision
// number, lazily performing the initial shrink if the Worker hasn't been
// started (or hasn't flushed) yet.
func (w *Worker) GetRevision(ctx context.Context) (RevisedState, error) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	if w.lastShrunk == nil {
		shrunk, err := w.shrinkState(ctx)
		if err != nil {
			return RevisedState{}, err
		}
		w.lastShrunk = shrunk
	}
	return RevisedState{Revision: w.rev, Data: w.lastShrunk}, nil
}

// PutPatch is called synchronously -- typically by a Proxy setter -- to
// buffer a state mutation. It rejects the mutation outright if ctx does
// not carry every lock name this state's Config declared as required (see
// locks.WithHeld), rather than silently accepting a mutation made outside
// the actor's held lock set.
func (w *Worker) PutPatch(ctx context.Context, p Patch) error {
	if !locks.HasAll(ctx, w.requiredLockNames) {
		return &LockViolationError{StateName: w.name, Missing: w.requiredLockNames}
	}

	w.queueMu.Lock()
	w.queue = append(w.queue, p)
	w.queueMu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
	return nil
}

// Run is the event-driven heartbeat loop: block until a patch arrives,
// debounce for Config.PublishInterval to collect more, drain and flush the
// batch, repeat. Returns when ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.stateMu.Lock()
	if w.lastShrunk == nil {
		shrunk, err := w.shrinkState(ctx)
		if err != nil {
			w.stateMu.Unlock()
			return err
		}
		w.lastShrunk = shrunk
	}
	w.stateMu.Unlock()

	w.running = true
	for w.running {
		select {
		case <-ctx.Done():
			w.running = false
			return ctx.Err()
		case <-w.signal:
		}

		if w.interval > 0 {
			select {
			case <-ctx.Done():
				w.running = false
				return ctx.Err()
			case <-time.After(w.interval):
			}
		}

		batch := w.drain()
		if len(batch) == 0 {
			continue
		}
		if err := w.flush(ctx, batch); err != nil {
			logger.Errorw("statesync: flush failed", "state", w.name, "error", err)
		}
	}
	return nil
}

// Flush forces an immediate flush of whatever patches are currently
// queued, bypassing the debounce window -- the runtime behind the
// Actor back-channel helper `publish(state)`. A no-op if nothing is
// queued.
func (w *Worker) Flush(ctx context.Context) error {
	batch := w.drain()
	if len(batch) == 0 {
		return nil
	}
	return w.flush(ctx, batch)
}

func (w *Worker) drain() []Patch {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	batch := w.queue
	w.queue = nil
	return batch
}

// flush squashes a batch to one patch per path (last-write-wins in arrival
// order), shrinks each surviving patch's value, applies the batch
// atomically to the local snapshot, bumps rev, and publishes the envelope.
func (w *Worker) flush(ctx context.Context, batch []Patch) error {
	squashed := squash(batch)
	if len(squashed) == 0 {
		return nil
	}

	networkPatches := make([]EnvelopePatch, 0, len(squashed))
	for _, p := range squashed {
		var safeValue any
		if p.Op == OpAdd || p.Op == OpReplace {
			target := resolvePortForPath(w.schema, p.Path)
			if target == nil {
				return &PortResolutionError{StateName: w.name, Path: p.Path}
			}
			shrunk, err := w.expander.Shrink(ctx, target, p.Value, []string{target.Key}, 0)
			if err != nil {
				return errors.Wrapf(err, "statesync: shrinking patch for %s%s", w.name, p.Path)
			}
			safeValue = shrunk
		}
		networkPatches = append(networkPatches, EnvelopePatch{Op: p.Op, Path: p.Path, Value: safeValue})
	}

	w.stateMu.Lock()
	baseRev := w.rev
	if err := w.applyLocked(networkPatches); err != nil {
		w.stateMu.Unlock()
		return errors.Wrap(err, "statesync: applying patch batch to snapshot")
	}
	w.rev++
	rev := w.rev
	w.stateMu.Unlock()

	env := Envelope{
		StateName: w.name,
		Rev:       rev,
		BaseRev:   baseRev,
		Ts:        time.Now(),
		Patches:   networkPatches,
	}
	return w.publisher.PublishEnvelope(ctx, w.name, env)
}

// applyLocked applies patches to lastShrunk via a full marshal/apply/
// unmarshal round trip through github.com/evanphx/json-patch, since that
// library operates on raw JSON documents rather than map[string]any
// in-place. Caller must hold stateMu.
func (w *Worker) applyLocked(patches []EnvelopePatch) error {
	if w.lastShrunk == nil {
		return nil
	}

	docJSON, err := json.Marshal(w.lastShrunk)
	if err != nil {
		return err
	}
	patchJSON, err := json.Marshal(patches)
	if err != nil {
		return err
	}

	jp, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return err
	}
	applied, err := jp.Apply(docJSON)
	if err != nil {
		return err
	}

	var next map[string]any
	if err := json.Unmarshal(applied, &next); err != nil {
		return err
	}
	w.lastShrunk = next
	return nil
}

func (w *Worker) shrinkState(ctx context.Context) (map[string]any, error) {
	shrunk, err := w.expander.Shrink(ctx, w.schema, w.stateRef, []string{w.name}, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "statesync: initial shrink of state %s", w.name)
	}
	m, ok := shrunk.(map[string]any)
	if !ok {
		return nil, errors.Newf("statesync: state %s did not shrink to an object", w.name)
	}
	return m, nil
}

// squash keeps only the last operation observed for each distinct path,
// preserving arrival order for ties -- a plain map overwrite achieves this
// since patches is iterated in arrival order.
func squash(patches []Patch) []Patch {
	latest := make(map[string]Patch, len(patches))
	order := make([]string, 0, len(patches))
	for _, p := range patches {
		if _, seen := latest[p.Path]; !seen {
			order = append(order, p.Path)
		}
		latest[p.Path] = p
	}
	out := make([]Patch, 0, len(order))
	for _, path := range order {
		out = append(out, latest[path])
	}
	return out
}
