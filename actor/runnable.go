package actor

import "context"

// YieldFunc is how a generator Runnable posts an intermediate value; the
// Actor turns each call into a YIELD event. Safe to call from a worker
// goroutine (the sync-generator case): it's backed by the same EventSink
// the rest of the Actor uses.
type YieldFunc func(values map[string]any) error

// Runnable is the target callable an Actor invokes, built by a
// definition.Builder. The four spec.md §4.E variants (async function,
// sync function, async generator, sync generator) are distinguished by
// Kind() (function vs. generator) and Threaded() (whether the callable
// may block, and must therefore be dispatched to its own goroutine and
// cooperatively polled via Handle.Pausepoint rather than ctx
// cancellation).
type Runnable interface {
	Kind() Kind
	Threaded() bool
	Invoke(ctx context.Context, h *Handle, args map[string]any, yield YieldFunc) (map[string]any, error)
}

// Kind mirrors definition.Kind without importing the definition package
// from actor, the same dependency-inversion the Registration's Builder
// uses to avoid a definition<->actor import cycle.
type Kind string

const (
	KindFunction  Kind = "FUNCTION"
	KindGenerator Kind = "GENERATOR"
)

// Func adapts a plain async function -- one honouring ctx cancellation
// directly -- to Runnable.
type Func func(ctx context.Context, h *Handle, args map[string]any) (map[string]any, error)

type funcActor struct{ fn Func }

// NewFunc builds a Runnable for an async function variant: scheduled as a
// cooperative task, suspension points are any blocking call honouring ctx.
func NewFunc(fn Func) Runnable { return funcActor{fn: fn} }

func (funcActor) Kind() Kind        { return KindFunction }
func (funcActor) Threaded() bool    { return false }
func (f funcActor) Invoke(ctx context.Context, h *Handle, args map[string]any, _ YieldFunc) (map[string]any, error) {
	return f.fn(ctx, h, args)
}

// SyncFunc adapts a blocking function dispatched to its own goroutine;
// cancellation is delivered as a "please stop" flag polled via
// Handle.Pausepoint, not ctx -- the callable is not handed a ctx at all.
type SyncFunc func(h *Handle, args map[string]any) (map[string]any, error)

type syncFuncActor struct{ fn SyncFunc }

// NewSyncFunc builds a Runnable for a sync function variant.
func NewSyncFunc(fn SyncFunc) Runnable { return syncFuncActor{fn: fn} }

func (syncFuncActor) Kind() Kind     { return KindFunction }
func (syncFuncActor) Threaded() bool { return true }
func (f syncFuncActor) Invoke(_ context.Context, h *Handle, args map[string]any, _ YieldFunc) (map[string]any, error) {
	return f.fn(h, args)
}

// Generator adapts an async generator: each call to yield becomes a YIELD
// event, cancellation delivered on the next suspension (ctx.Done()).
type Generator func(ctx context.Context, h *Handle, args map[string]any, yield YieldFunc) (map[string]any, error)

type generatorActor struct{ fn Generator }

// NewGenerator builds a Runnable for an async generator variant.
func NewGenerator(fn Generator) Runnable { return generatorActor{fn: fn} }

func (generatorActor) Kind() Kind     { return KindGenerator }
func (generatorActor) Threaded() bool { return false }
func (g generatorActor) Invoke(ctx context.Context, h *Handle, args map[string]any, yield YieldFunc) (map[string]any, error) {
	return g.fn(ctx, h, args, yield)
}

// SyncGenerator adapts a blocking generator driven on its own goroutine;
// each yielded value is posted through yield, which is safe to call from
// that goroutine.
type SyncGenerator func(h *Handle, args map[string]any, yield YieldFunc) (map[string]any, error)

type syncGeneratorActor struct{ fn SyncGenerator }

// NewSyncGenerator builds a Runnable for a sync generator variant.
func NewSyncGenerator(fn SyncGenerator) Runnable { return syncGeneratorActor{fn: fn} }

func (syncGeneratorActor) Kind() Kind     { return KindGenerator }
func (syncGeneratorActor) Threaded() bool { return true }
func (g syncGeneratorActor) Invoke(_ context.Context, h *Handle, args map[string]any, yield YieldFunc) (map[string]any, error) {
	return g.fn(h, args, yield)
}
