package agent

import (
	"github.com/arkitektio/rekuest-next/definition"
	"github.com/arkitektio/rekuest-next/errors"
)

// injector is the Agent's actor.Injector: it resolves a Context or State/
// ReadOnlyState parameter by the parameter's own Name against the Agent's
// registered contexts/states (spec.md's injection parameters have no
// separate target-name field -- the parameter name doubles as the lookup
// key, per definition.ParamSpec). actor.Injector carries no ctx, so
// InjectReadOnlyState's snapshot read uses a.runCtx, captured once at
// Run's entry.
func (a *Agent) injector(_ int, injection *definition.Injection) (any, error) {
	switch injection.Kind {
	case definition.InjectContext:
		a.contextsMu.RLock()
		v, ok := a.contexts[injection.Name]
		a.contextsMu.RUnlock()
		if !ok {
			return nil, errors.Newf("agent: no context registered under name %q", injection.Name)
		}
		return v, nil

	case definition.InjectState:
		a.statesMu.RLock()
		sr, ok := a.states[injection.Name]
		a.statesMu.RUnlock()
		if !ok {
			return nil, errors.Newf("agent: no state registered under name %q", injection.Name)
		}
		return sr.proxy, nil

	case definition.InjectReadOnlyState:
		a.statesMu.RLock()
		sr, ok := a.states[injection.Name]
		a.statesMu.RUnlock()
		if !ok {
			return nil, errors.Newf("agent: no state registered under name %q", injection.Name)
		}
		revised, err := sr.worker.GetRevision(a.runCtx)
		if err != nil {
			return nil, errors.Wrapf(err, "agent: snapshotting read-only state %s", injection.Name)
		}
		return revised.Data, nil

	default:
		return nil, errors.Newf("agent: unhandled injection kind %q for parameter %s", injection.Kind, injection.Name)
	}
}
