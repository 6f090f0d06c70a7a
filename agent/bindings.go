package agent

import (
	"github.com/arkitektio/rekuest-next/logger"
	"github.com/arkitektio/rekuest-next/wire"
)

// buildHashIndex computes each registered interface's Definition.Hash
// once, so ASSIGN/PROVIDE/UNPROVIDE dispatch (keyed by the server's
// implementation id, resolved to a hash via setBindings, then to an
// interface here) never recomputes it per message. DefinitionError from
// a bad registration is logged and that interface is skipped -- it
// simply never appears in the INIT announcement.
func (a *Agent) buildHashIndex() {
	a.bindingsMu.Lock()
	defer a.bindingsMu.Unlock()

	for _, iface := range a.registry.Interfaces() {
		reg, err := a.registry.GetRegistration(iface)
		if err != nil {
			logger.Warnw("agent: skipping interface with a bad registration", "interface", iface, logger.FieldError, err.Error())
			continue
		}
		hash, err := reg.Definition.Hash()
		if err != nil {
			logger.Warnw("agent: skipping interface whose definition cannot be hashed", "interface", iface, logger.FieldError, err.Error())
			continue
		}
		a.hashToIface[hash] = iface
	}
}

// setBindings records the server's INIT_REPLY: which server-assigned
// implementation id corresponds to which definition hash this agent
// announced. ASSIGN/PROVIDE/UNPROVIDE messages reference implementations
// by that id from then on.
func (a *Agent) setBindings(bindings map[string]string) {
	a.bindingsMu.Lock()
	defer a.bindingsMu.Unlock()
	for hash, implID := range bindings {
		a.bindings[implID] = hash
	}
}

// setActive marks implID as currently provided (PROVIDE) or withdrawn
// (UNPROVIDE); ASSIGN against a non-active implementation is rejected
// CRITICAL rather than silently dispatched.
func (a *Agent) setActive(implID string, active bool) {
	a.bindingsMu.Lock()
	defer a.bindingsMu.Unlock()
	if active {
		a.active[implID] = true
	} else {
		delete(a.active, implID)
	}
}

func (a *Agent) isActive(implID string) bool {
	a.bindingsMu.RLock()
	defer a.bindingsMu.RUnlock()
	return a.active[implID]
}

func (a *Agent) interfaceFor(implID string) (string, bool) {
	a.bindingsMu.RLock()
	defer a.bindingsMu.RUnlock()
	hash, ok := a.bindings[implID]
	if !ok {
		return "", false
	}
	iface, ok := a.hashToIface[hash]
	return iface, ok
}

// implementations lists every registered interface's hash/Definition
// pair for the INIT announcement.
func (a *Agent) implementations() []wire.ImplementationInfo {
	ifaces := a.registry.Interfaces()
	out := make([]wire.ImplementationInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		reg, err := a.registry.GetRegistration(iface)
		if err != nil {
			continue
		}
		hash, err := reg.Definition.Hash()
		if err != nil {
			continue
		}
		out = append(out, wire.ImplementationInfo{Hash: hash, Definition: reg.Definition})
	}
	return out
}
