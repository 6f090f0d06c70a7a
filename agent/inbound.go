package agent

import (
	"context"
	"time"

	"github.com/arkitektio/rekuest-next/actor"
	"github.com/arkitektio/rekuest-next/logger"
	"github.com/arkitektio/rekuest-next/statesync"
	"github.com/arkitektio/rekuest-next/wire"
)

// inboundLoop reads and dispatches every inbound control-plane message
// until Recv errors (the connection closed, typically because the
// caller tore it down on ctx cancellation) -- per spec.md §4.H's
// "inbound dispatcher: reads messages; routes by kind".
func (a *Agent) inboundLoop(ctx context.Context, in Inbound) {
	for {
		raw, err := in.Recv()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warnw("agent: inbound read failed", logger.FieldError, err.Error())
			}
			return
		}

		kind, payload, err := wire.DecodeInbound(raw)
		if err != nil {
			logger.Warnw("agent: dropping undecodable inbound message", logger.FieldError, err.Error())
			continue
		}
		a.dispatch(ctx, kind, payload)
	}
}

func (a *Agent) dispatch(ctx context.Context, kind wire.Kind, payload any) {
	switch kind {
	case wire.KindHello:
		a.sendInit(ctx)

	case wire.KindAssign:
		m := payload.(wire.Assign)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runAssignment(ctx, m)
		}()

	case wire.KindCancel:
		m := payload.(wire.Cancel)
		a.withActor(m.ID, func(act *actor.Actor) { act.Cancel() })

	case wire.KindInterrupt:
		m := payload.(wire.Interrupt)
		a.withActor(m.ID, func(act *actor.Actor) { act.Interrupt() })

	case wire.KindPause:
		m := payload.(wire.Pause)
		a.withActor(m.ID, func(act *actor.Actor) { act.Pause() })

	case wire.KindResume:
		m := payload.(wire.Resume)
		a.withActor(m.ID, func(act *actor.Actor) { act.Resume() })

	case wire.KindProvide:
		m := payload.(wire.Provide)
		a.setActive(m.ImplementationID, true)

	case wire.KindUnprovide:
		m := payload.(wire.Unprovide)
		a.setActive(m.ImplementationID, false)

	case wire.KindPing:
		a.sendPong(ctx)

	case wire.KindInitReply:
		m := payload.(wire.InitReply)
		a.setBindings(m.Bindings)

	case wire.KindCatchup:
		m := payload.(wire.Catchup)
		a.handleCatchup(ctx, m)
	}
}

func (a *Agent) withActor(assignmentID string, fn func(*actor.Actor)) {
	a.actorsMu.Lock()
	act, ok := a.actors[assignmentID]
	a.actorsMu.Unlock()
	if ok {
		fn(act)
	}
}

func (a *Agent) storeActor(assignmentID string, act *actor.Actor) {
	a.actorsMu.Lock()
	a.actors[assignmentID] = act
	a.actorsMu.Unlock()
}

func (a *Agent) removeActor(assignmentID string) {
	a.actorsMu.Lock()
	delete(a.actors, assignmentID)
	a.actorsMu.Unlock()
}

// runAssignment resolves an ASSIGN's implementation_ref to a
// Registration, builds a fresh Runnable for it, and drives an Actor
// through its full lifecycle, per spec.md §4.H: "ASSIGN -> create+start
// Actor". An assignment id is owned by at most one live Actor in this
// agent (spec.md §3) -- storeActor/removeActor bracket the Actor's
// entire Run so Cancel/Interrupt/Pause/Resume can find it by id.
func (a *Agent) runAssignment(ctx context.Context, m wire.Assign) {
	if !a.isActive(m.ImplementationRef) {
		a.emitCritical(ctx, m.ID, "implementation not currently provided: "+m.ImplementationRef)
		return
	}
	iface, ok := a.interfaceFor(m.ImplementationRef)
	if !ok {
		a.emitCritical(ctx, m.ID, "no binding for implementation ref: "+m.ImplementationRef)
		return
	}
	reg, err := a.registry.GetRegistration(iface)
	if err != nil {
		a.emitCritical(ctx, m.ID, err.Error())
		return
	}
	built, err := reg.Builder()
	if err != nil {
		a.emitCritical(ctx, m.ID, err.Error())
		return
	}
	runnable, ok := built.(actor.Runnable)
	if !ok {
		a.emitCritical(ctx, m.ID, "registration's Builder did not produce an actor.Runnable")
		return
	}

	act := actor.New(m.ID, reg, runnable, a.expander, a.locks, a, a.injector)
	a.storeActor(m.ID, act)
	defer a.removeActor(m.ID)

	if err := act.Run(ctx, m.Args); err != nil {
		logger.Warnw("agent: assignment run returned an error",
			logger.FieldAssignmentID, m.ID, logger.FieldError, err.Error())
	}
}

func (a *Agent) emitCritical(ctx context.Context, assignmentID, message string) {
	if err := a.EmitEvent(ctx, actor.Event{
		AssignmentID: assignmentID,
		Kind:         actor.EventCritical,
		Message:      message,
		Ts:           time.Now(),
	}); err != nil {
		logger.Warnw("agent: failed to emit critical event",
			logger.FieldAssignmentID, assignmentID, logger.FieldError, err.Error())
	}
}

func (a *Agent) sendInit(ctx context.Context) {
	states := a.collectStates(ctx)
	msg := wire.NewInit(a.InstanceID, a.implementations(), states)
	b, err := wire.Encode(msg)
	if err != nil {
		logger.Errorw("agent: failed to encode INIT", logger.FieldError, err.Error())
		return
	}
	if err := a.out.Enqueue(ctx, b); err != nil {
		logger.Warnw("agent: failed to enqueue INIT", logger.FieldError, err.Error())
	}
}

func (a *Agent) sendPong(ctx context.Context) {
	b, err := wire.Encode(wire.NewPong(time.Now()))
	if err != nil {
		logger.Errorw("agent: failed to encode PONG", logger.FieldError, err.Error())
		return
	}
	if err := a.out.Enqueue(ctx, b); err != nil {
		logger.Warnw("agent: failed to enqueue PONG", logger.FieldError, err.Error())
	}
}

// handleCatchup republishes a state's current snapshot as a full
// envelope (BaseRev equal to Rev, since it carries the whole state
// rather than a delta) for a subscriber that missed envelopes between
// m.FromRev and the state's current revision.
func (a *Agent) handleCatchup(ctx context.Context, m wire.Catchup) {
	a.statesMu.RLock()
	sr, ok := a.states[m.StateName]
	a.statesMu.RUnlock()
	if !ok {
		logger.Warnw("agent: catchup requested for unknown state", logger.FieldStateName, m.StateName)
		return
	}

	revised, err := sr.worker.GetRevision(ctx)
	if err != nil {
		logger.Errorw("agent: catchup snapshot failed",
			logger.FieldStateName, m.StateName, logger.FieldError, err.Error())
		return
	}

	env := statesync.Envelope{
		StateName: m.StateName,
		Rev:       revised.Revision,
		BaseRev:   revised.Revision,
		Ts:        time.Now(),
		Patches:   snapshotToPatches(revised.Data),
	}
	if err := a.PublishEnvelope(ctx, m.StateName, env); err != nil {
		logger.Warnw("agent: failed to publish catchup envelope",
			logger.FieldStateName, m.StateName, logger.FieldError, err.Error())
	}
}

// snapshotToPatches turns a full state snapshot into a single
// root-replace patch, the simplest valid RFC 6902 rendering of "here is
// the entire current document".
func snapshotToPatches(data map[string]any) []statesync.EnvelopePatch {
	return []statesync.EnvelopePatch{{Op: statesync.OpReplace, Path: "", Value: data}}
}

func (a *Agent) collectStates(ctx context.Context) []wire.StateInfo {
	a.statesMu.RLock()
	defer a.statesMu.RUnlock()

	out := make([]wire.StateInfo, 0, len(a.states))
	for name, sr := range a.states {
		revised, err := sr.worker.GetRevision(ctx)
		if err != nil {
			logger.Warnw("agent: failed to snapshot state for INIT",
				logger.FieldStateName, name, logger.FieldError, err.Error())
			continue
		}
		out = append(out, wire.StateInfo{
			Name:     name,
			Schema:   sr.worker.Schema(),
			Snapshot: revised.Data,
			Rev:      revised.Revision,
		})
	}
	return out
}
