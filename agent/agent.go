// Package agent implements the Agent: the long-running control-plane
// loop that owns the WebSocket session, dispatches ASSIGN/CANCEL/
// INTERRUPT/PAUSE/RESUME/PROVIDE/UNPROVIDE/PING messages, drives one
// Actor per live assignment, and fans State Worker envelopes and Actor
// events back out over the same connection. Grounded on the teacher's
// `pulse/async/worker.go` WorkerPool: its ctx/cancel/sync.WaitGroup
// lifecycle (`Start`/`Stop`, `wg.Add` per spawned goroutine, a bounded
// timeout on `wg.Wait` during shutdown) is reused here, generalized from
// a poll-driven DB job queue to a push-driven message dispatcher.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/arkitektio/rekuest-next/actor"
	"github.com/arkitektio/rekuest-next/definition"
	"github.com/arkitektio/rekuest-next/errors"
	"github.com/arkitektio/rekuest-next/locks"
	"github.com/arkitektio/rekuest-next/logger"
	"github.com/arkitektio/rekuest-next/serial"
	"github.com/arkitektio/rekuest-next/shelf"
	"github.com/arkitektio/rekuest-next/statesync"
	"github.com/arkitektio/rekuest-next/wire"
)

// Inbound is the read half of the control-plane connection the Agent
// depends on -- satisfied by *transport.Conn, faked in tests.
type Inbound interface {
	Recv() ([]byte, error)
}

// Outbound is the write half of the control-plane connection -- the
// Agent enqueues, never writes directly, so a slow connection first backs
// up the Sender's queue; once that queue is full, Enqueue blocks the
// emitting Actor until space frees up.
// Satisfied by *transport.Sender, faked in tests.
type Outbound interface {
	Enqueue(ctx context.Context, payload []byte) error
}

// stopTimeout bounds how long Run waits for in-flight assignment
// goroutines to exit on shutdown, mirroring WorkerPool.Stop's 30s
// checkpoint budget.
const stopTimeout = 30 * time.Second

type stateRegistration struct {
	worker *statesync.Worker
	proxy  *statesync.Proxy
}

// Agent is one running instance of the client-side runtime: its
// registered implementations, its replicated states, its named shared
// Context objects, and the live Actors it currently owns.
type Agent struct {
	InstanceID string

	registry *definition.Registry
	expander *serial.Expander
	shelf    *shelf.Shelf
	locks    *locks.Manager

	contextsMu sync.RWMutex
	contexts   map[string]any

	statesMu sync.RWMutex
	states   map[string]*stateRegistration

	bindingsMu  sync.RWMutex
	bindings    map[string]string // server implementation id -> definition hash
	hashToIface map[string]string // definition hash -> registered interface
	active      map[string]bool   // server implementation id -> provided

	actorsMu sync.Mutex
	actors   map[string]*actor.Actor

	out    Outbound
	runCtx context.Context

	wg sync.WaitGroup
}

// New constructs an Agent bound to defReg's implementations, serializing
// assignment args/returns through expander and shelving LOCAL-scope
// values in sh, acquiring locks through lm.
func New(instanceID string, defReg *definition.Registry, expander *serial.Expander, sh *shelf.Shelf, lm *locks.Manager) *Agent {
	return &Agent{
		InstanceID:  instanceID,
		registry:    defReg,
		expander:    expander,
		shelf:       sh,
		locks:       lm,
		contexts:    make(map[string]any),
		states:      make(map[string]*stateRegistration),
		bindings:    make(map[string]string),
		hashToIface: make(map[string]string),
		active:      make(map[string]bool),
		actors:      make(map[string]*actor.Actor),
	}
}

// RegisterContext binds a named, lockable shared object (spec's
// "Context") that callables can request by Context injection. Must be
// called before Run.
func (a *Agent) RegisterContext(name string, value any) {
	a.contextsMu.Lock()
	defer a.contextsMu.Unlock()
	a.contexts[name] = value
}

// RegisterState wires stateInstance into replication under name: worker
// handles debounced patch publishing, and a statesync.Proxy is built
// over stateInstance so State-injected callables mutate it through
// Observe's reflective setters. Must be called before Run.
func (a *Agent) RegisterState(ctx context.Context, name string, stateInstance any, worker *statesync.Worker) error {
	proxy, err := statesync.Observe(ctx, stateInstance, worker)
	if err != nil {
		return errors.Wrapf(err, "agent: observing state %s", name)
	}
	a.statesMu.Lock()
	a.states[name] = &stateRegistration{worker: worker, proxy: proxy}
	a.statesMu.Unlock()
	return nil
}

// Run opens the session: it indexes registered definitions by hash,
// starts the inbound dispatch loop and each registered state's Worker,
// and blocks until ctx is cancelled, at which point it waits up to
// stopTimeout for in-flight assignment goroutines to reach a terminal
// state before returning. Callers own in/out's underlying connection
// lifecycle (dialing, reconnect, closing on ctx cancellation).
func (a *Agent) Run(ctx context.Context, in Inbound, out Outbound) error {
	a.runCtx = ctx
	a.out = out
	a.buildHashIndex()

	a.statesMu.RLock()
	for _, sr := range a.states {
		sr := sr
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := sr.worker.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Errorw("agent: state worker exited", logger.FieldError, err.Error())
			}
		}()
	}
	a.statesMu.RUnlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.inboundLoop(ctx, in)
	}()

	a.sendInit(ctx)

	<-ctx.Done()
	return a.stop()
}

// stop waits for every spawned goroutine (state workers, the inbound
// loop, and any still-running assignment goroutines) to exit, bounded by
// stopTimeout -- mirroring WorkerPool.Stop's generous-but-bounded
// checkpoint wait.
func (a *Agent) stop() error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(stopTimeout):
		logger.Warnw("agent: stop timed out waiting for goroutines to exit",
			logger.FieldDurationMS, stopTimeout.Milliseconds())
		return errors.New("agent: stop timed out")
	}
}

// EmitEvent implements actor.EventSink: every Actor's lifecycle event is
// wire-encoded and handed to Outbound.
func (a *Agent) EmitEvent(ctx context.Context, ev actor.Event) error {
	b, err := wire.Encode(wire.NewEvent(ev))
	if err != nil {
		return errors.Wrap(err, "agent: encoding event")
	}
	return a.out.Enqueue(ctx, b)
}

// PublishEnvelope implements statesync.Publisher: every flushed state
// patch batch is wire-encoded and handed to Outbound.
func (a *Agent) PublishEnvelope(ctx context.Context, stateName string, env statesync.Envelope) error {
	b, err := wire.Encode(wire.NewEnvelope(env))
	if err != nil {
		return errors.Wrap(err, "agent: encoding envelope")
	}
	return a.out.Enqueue(ctx, b)
}
