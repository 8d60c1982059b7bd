package localconfig

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/netmgmt"
	"github.com/packetcraft-inc/meshnode/internal/ports"
)

// HandleBeacon feeds a decoded Secure Network Beacon into network
// management and persists the resulting IV/key state, returning the
// IvUpdated event to emit if the beacon advanced the IV index.
func (n *Node) HandleBeacon(b netmgmt.Beacon) *meshnode.IvUpdated {
	event := n.net.HandleBeacon(b)
	n.persistCoreConfig()
	n.persistNetKeys()
	n.persistAppKeys()
	n.persistSeqThresholds()
	return event
}

// IVUpdateGuardFired delivers the IV_UPDT_TMR event, returning the
// IvUpdated event to emit if a deferred transition replayed.
func (n *Node) IVUpdateGuardFired() *meshnode.IvUpdated {
	event := n.net.IVUpdateGuardFired()
	n.persistCoreConfig()
	n.persistSeqThresholds()
	return event
}

// IVRecoverGuardFired delivers the IV_RECOVER_TMR event.
func (n *Node) IVRecoverGuardFired() {
	n.net.IVRecoverGuardFired()
}

// IVUpdateDisallowed delivers the IV_UPDT_DISALLOWED SAR-Tx event.
func (n *Node) IVUpdateDisallowed() {
	n.net.IVUpdateDisallowed()
}

// IVUpdateAllowed delivers the IV_UPDT_ALLOWED SAR-Tx event, returning
// the IvUpdated event to emit if a deferred transition replayed.
func (n *Node) IVUpdateAllowed() *meshnode.IvUpdated {
	event := n.net.IVUpdateAllowed()
	n.persistCoreConfig()
	n.persistSeqThresholds()
	return event
}

// ProvisioningComplete delivers the PRV_COMPLETE event.
func (n *Node) ProvisioningComplete() {
	n.net.ProvisioningComplete()
}

// IV returns the current IV index and whether an IV update is in progress.
func (n *Node) IV() (uint32, bool) {
	return n.net.IV()
}

// TimerFired dispatches a fired timer by id, for callers that receive
// expiry as a generic ports.TimerID rather than a pre-classified
// event, and returns whatever IvUpdated/AttentionChanged events
// resulted.
func (n *Node) TimerFired(id ports.TimerID) (iv *meshnode.IvUpdated, attention []meshnode.AttentionChanged) {
	switch id {
	case ports.TimerIVUpdateGuard:
		return n.IVUpdateGuardFired(), nil
	case ports.TimerIVRecoverGuard:
		n.IVRecoverGuardFired()
	case ports.TimerAttention:
		return nil, n.AttentionTick()
	}
	return nil, nil
}
