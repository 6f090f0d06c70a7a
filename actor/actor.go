package actor

import (
	"context"
	"sync"
	"time"

	"github.com/arkitektio/rekuest-next/definition"
	"github.com/arkitektio/rekuest-next/errors"
	"github.com/arkitektio/rekuest-next/locks"
	"github.com/arkitektio/rekuest-next/serial"
)

// Injector supplies the runtime value for an injected parameter (a
// Context or State/ReadOnlyState wrapper) at assignment-run time. The
// Agent registers one per interface alongside the Builder.
type Injector func(position int, injection *definition.Injection) (any, error)

// Actor is a single live assignment: one per AssignmentID, owning the
// lifecycle from NEW through a terminal state.
type Actor struct {
	AssignmentID string

	reg      *definition.Registration
	runnable Runnable
	expander *serial.Expander
	locks    *locks.Manager
	sink     EventSink
	inject   Injector

	mu    sync.Mutex
	state State

	pauseRequested  bool
	cancelRequested bool
	interrupted     bool
	resumeCh        chan struct{}
	cancelRun       context.CancelFunc
}

// New constructs an Actor for one assignment, bound to reg's Definition/
// Injections and runnable (typically reg.Builder()'s result, asserted to
// Runnable by the caller -- see definition.Builder's doc comment on why
// that assertion lives at the call site rather than in this package).
func New(assignmentID string, reg *definition.Registration, runnable Runnable, expander *serial.Expander, lm *locks.Manager, sink EventSink, inject Injector) *Actor {
	return &Actor{
		AssignmentID: assignmentID,
		reg:          reg,
		runnable:     runnable,
		expander:     expander,
		locks:        lm,
		sink:         sink,
		inject:       inject,
		state:        StateNew,
		resumeCh:     make(chan struct{}),
	}
}

// State returns the Actor's current lifecycle state.
func (a *Actor) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Actor) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Run drives the Actor through its entire lifecycle: BOUND, QUEUED (lock
// acquisition), RUNNING (expand args, invoke, shrink returns), and a
// terminal state, emitting the matching event at each transition. It
// returns only once a terminal state has been reached and its event sent:
// nil after DONE, the failure's error after any other terminal state.
func (a *Actor) Run(ctx context.Context, raw map[string]any) error {
	workCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancelRun = cancel
	a.mu.Unlock()
	defer cancel()

	a.setState(StateBound)
	if err := a.emit(ctx, Event{Kind: EventBound}); err != nil {
		return err
	}

	a.setState(StateQueued)
	if err := a.emit(ctx, Event{Kind: EventQueued}); err != nil {
		return err
	}

	lockNames := a.reg.Injections.RequiredLockNames()
	release, err := a.locks.AcquireSet(workCtx, lockNames)
	if err != nil {
		return a.terminate(ctx, StateCritical, EventCritical, errors.Wrap(err, "actor: acquiring required locks"))
	}
	defer release()

	args, err := a.expander.ExpandArgs(workCtx, a.reg.Definition.Args, raw)
	if err != nil {
		return a.terminate(ctx, StateCritical, EventCritical, errors.Wrap(err, "actor: expanding assignment args"))
	}
	if err := a.injectArgs(args); err != nil {
		return a.terminate(ctx, StateCritical, EventCritical, err)
	}

	a.setState(StateRunning)

	values, yielded, runErr := a.invoke(workCtx, args)
	if runErr != nil {
		a.mu.Lock()
		cancelRequested := a.cancelRequested
		interrupted := a.interrupted
		a.mu.Unlock()

		switch {
		case interrupted:
			return a.terminate(ctx, StateInterrupted, EventInterrupted, runErr)
		case cancelRequested || ctx.Err() != nil:
			return a.terminate(ctx, StateCancelled, EventCanceled, runErr)
		case classifyFailure(runErr):
			return a.terminate(ctx, StateError, EventError, runErr)
		default:
			return a.terminate(ctx, StateCritical, EventCritical, runErr)
		}
	}

	returns, err := a.expander.ShrinkReturns(ctx, a.reg.Definition.Returns, values)
	if err != nil {
		return a.terminate(ctx, StateCritical, EventCritical, errors.Wrap(err, "actor: shrinking return values"))
	}

	if !yielded {
		if err := a.emit(ctx, Event{Kind: EventYield, Returns: returns}); err != nil {
			return err
		}
	}
	return a.terminate(ctx, StateDone, EventDone, nil)
}

// injectArgs resolves and splices injected (Context/State) values into
// args by name, using the Actor's Injector.
func (a *Actor) injectArgs(args map[string]any) error {
	for name, injection := range a.reg.Injections.ByName {
		v, err := a.inject(injection.Position, injection)
		if err != nil {
			return errors.Wrapf(err, "actor: injecting parameter %s", name)
		}
		args[name] = v
	}
	return nil
}

func (a *Actor) invoke(ctx context.Context, args map[string]any) (values map[string]any, yielded bool, err error) {
	h := newHandle(ctx, a)
	yieldFn := func(vals map[string]any) error {
		yielded = true
		return a.emit(ctx, Event{Kind: EventYield, Returns: vals})
	}

	if !a.runnable.Threaded() {
		values, err = a.runnable.Invoke(ctx, h, args, yieldFn)
		return values, yielded, err
	}

	// Threaded (sync) variants run on their own goroutine and cannot be
	// stopped via ctx; they cooperate via Pausepoint's cancel-flag poll, and
	// invoke waits for the goroutine to return even after Cancel/Interrupt.
	type result struct {
		values map[string]any
		err    error
	}
	done := make(chan result, 1)
	go func() {
		v, e := a.runnable.Invoke(ctx, h, args, yieldFn)
		done <- result{values: v, err: e}
	}()

	r := <-done
	return r.values, yielded, r.err
}

// terminate transitions the Actor to a terminal state and emits the
// matching final event, serializing err's message for ERROR/CRITICAL/
// CANCELLED/INTERRUPTED terminations. It returns the sink's error if the
// event could not be emitted, otherwise err itself (nil for DONE).
func (a *Actor) terminate(ctx context.Context, state State, kind EventKind, err error) error {
	a.setState(state)
	ev := Event{Kind: kind}
	if err != nil {
		ev.Message = err.Error()
	}
	if emitErr := a.emit(ctx, ev); emitErr != nil {
		return emitErr
	}
	return err
}

func (a *Actor) emit(ctx context.Context, ev Event) error {
	ev.AssignmentID = a.AssignmentID
	ev.Ts = time.Now()
	return a.sink.EmitEvent(ctx, ev)
}

// Cancel requests cooperative cancellation: it cancels the per-run ctx
// Run derived from its parent, releasing a ctx-aware (non-threaded)
// Runnable blocked on ctx.Done() at its next suspension; for threaded
// Runnables, Pausepoint observes cancelRequested on its next poll and
// returns a cancellation error.
func (a *Actor) Cancel() {
	a.mu.Lock()
	a.cancelRequested = true
	cancel := a.cancelRun
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.wakeIfPaused()
}

// Interrupt requests a non-resumable stop, acknowledged with INTERRUPTED
// rather than CANCELLED.
func (a *Actor) Interrupt() {
	a.mu.Lock()
	a.cancelRequested = true
	a.interrupted = true
	cancel := a.cancelRun
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.wakeIfPaused()
}

// Pause requests that the Actor suspend at its next Pausepoint call.
func (a *Actor) Pause() {
	a.mu.Lock()
	a.pauseRequested = true
	a.mu.Unlock()
}

// Resume clears a pending pause and wakes a Runnable blocked in
// Pausepoint.
func (a *Actor) Resume() {
	a.mu.Lock()
	a.pauseRequested = false
	a.mu.Unlock()
	a.wakeIfPaused()
}

func (a *Actor) wakeIfPaused() {
	select {
	case a.resumeCh <- struct{}{}:
	default:
	}
}

// pausepoint implements Handle.Pausepoint: blocks while a pause is
// pending, wakes on Resume/Cancel/Interrupt, and returns a cancellation
// error if cancelRequested is set (either on entry or after waking).
func (a *Actor) pausepoint(ctx context.Context) error {
	a.mu.Lock()
	cancelled := a.cancelRequested
	paused := a.pauseRequested
	a.mu.Unlock()
	if cancelled {
		return errors.New("actor: cancellation requested")
	}
	if !paused {
		return nil
	}

	a.setState(StatePaused)
	_ = a.emit(ctx, Event{Kind: EventPaused})
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.resumeCh:
		}
		a.mu.Lock()
		cancelled = a.cancelRequested
		paused = a.pauseRequested
		a.mu.Unlock()
		if cancelled {
			return errors.New("actor: cancellation requested")
		}
		if !paused {
			break
		}
	}
	a.setState(StateRunning)
	_ = a.emit(ctx, Event{Kind: EventResumed})
	return nil
}
