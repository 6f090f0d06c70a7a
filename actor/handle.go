package actor

import (
	"context"
	"math"

	"github.com/arkitektio/rekuest-next/errors"
	"github.com/arkitektio/rekuest-next/statesync"
)

// Handle is the context-local back-channel a Runnable uses to talk back to
// the Agent while it runs: Log, Progress, Pausepoint, Publish. One Handle
// is constructed per Actor.Run call and handed to the Runnable's Invoke.
type Handle struct {
	ctx   context.Context
	actor *Actor
}

func newHandle(ctx context.Context, a *Actor) *Handle {
	return &Handle{ctx: ctx, actor: a}
}

// Log emits a fire-and-forget LOG event. Best-effort: a sink error is
// swallowed, matching spec.md §4.E's "fire-and-forget".
func (h *Handle) Log(level, msg string) {
	_ = h.actor.emit(h.ctx, Event{Kind: EventLog, Level: level, Message: msg})
}

// Progress emits a PROGRESS event with pct clamped to [0,100].
func (h *Handle) Progress(pct float64, msg string) {
	clamped := math.Min(100, math.Max(0, pct))
	_ = h.actor.emit(h.ctx, Event{Kind: EventProgress, Percentage: &clamped, Message: msg})
}

// Pausepoint yields control if a PAUSE is pending -- blocking until a
// RESUME arrives or the assignment is cancelled/interrupted -- otherwise
// returns immediately. It is also the cancellation poll point for
// threaded (sync) Runnables, which have no ctx to select on: Pausepoint
// returns a cancellation error once Cancel/Interrupt has been requested.
func (h *Handle) Pausepoint() error {
	return h.actor.pausepoint(h.ctx)
}

// Publish forces an immediate flush of w's buffered patches, bypassing
// its debounce window.
func (h *Handle) Publish(w *statesync.Worker) error {
	if w == nil {
		return errors.New("actor: Publish called with a nil state worker")
	}
	return w.Flush(h.ctx)
}
