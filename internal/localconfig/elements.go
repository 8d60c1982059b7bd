package localconfig

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/elemstate"
	"github.com/packetcraft-inc/meshnode/internal/ports"
)

// SetAttention sets an element's attention countdown, arming the
// cooperative 1 Hz timer through deps.Timer when the countdown just
// became active, and returns the AttentionChanged event to emit
// immediately when setting to zero.
func (n *Node) SetAttention(elem int, seconds uint8) (*meshnode.AttentionChanged, error) {
	event, armTimer, err := n.elems.SetAttention(elem, seconds)
	if err != nil {
		return nil, err
	}
	if armTimer {
		n.deps.Timer.Start(ports.TimerAttention, 1)
	}
	return event, nil
}

// Attention returns an element's current countdown value.
func (n *Node) Attention(elem int) (uint8, error) {
	return n.elems.Attention(elem)
}

// AttentionTick advances every active attention countdown by one
// second, called each time deps.Timer fires TimerAttention. It
// re-arms the timer itself when any countdown is still active.
func (n *Node) AttentionTick() []meshnode.AttentionChanged {
	events, continueTimer := n.elems.Tick()
	if continueTimer {
		n.deps.Timer.Start(ports.TimerAttention, 1)
	}
	return events
}

// SetSeq sets an element's sequence counter, persists the resulting
// NVM threshold, and feeds the new value to the sequence monitor,
// dispatching any resulting threshold-crossing event into network
// management. It returns the IvUpdated events to emit, in order, for
// every crossing that advanced the IV index immediately.
func (n *Node) SetSeq(elem int, seq uint32) ([]meshnode.IvUpdated, error) {
	if _, err := n.elems.SetSeq(elem, seq); err != nil {
		return nil, err
	}
	var events []meshnode.IvUpdated
	for _, ev := range n.seq.Observe(seq) {
		if event := n.net.HandleSeqEvent(ev); event != nil {
			events = append(events, *event)
		}
	}
	n.persistSeqThresholds()
	n.persistCoreConfig()
	return events, nil
}

// Seq returns an element's in-RAM sequence counter.
func (n *Node) Seq(elem int) (uint32, error) {
	return n.elems.Seq(elem)
}

// Features returns the node-wide feature-state scalars.
func (n *Node) Features() elemstate.Features {
	return n.elems.Features()
}

// SetDefaultTTL sets the node's default TTL.
func (n *Node) SetDefaultTTL(ttl uint8) {
	n.elems.SetDefaultTTL(ttl)
	n.persistCoreConfig()
}

// SetRelay sets the Relay feature state and retransmit parameters.
func (n *Node) SetRelay(state elemstate.FeatureState, retransmitCount, retransmitSteps uint8) {
	n.elems.SetRelay(state, retransmitCount, retransmitSteps)
	n.persistCoreConfig()
}

// SetBeacon sets the Secure Network Beacon feature state.
func (n *Node) SetBeacon(state elemstate.FeatureState) {
	n.elems.SetBeacon(state)
	n.persistCoreConfig()
}

// SetGATTProxy sets the GATT Proxy feature state.
func (n *Node) SetGATTProxy(state elemstate.FeatureState) {
	n.elems.SetGATTProxy(state)
	n.persistCoreConfig()
}

// SetFriend sets the Friend feature state.
func (n *Node) SetFriend(state elemstate.FeatureState) {
	n.elems.SetFriend(state)
	n.persistCoreConfig()
}

// SetLowPower sets the Low Power feature state.
func (n *Node) SetLowPower(state elemstate.FeatureState) {
	n.elems.SetLowPower(state)
	n.persistCoreConfig()
}

// SetNetworkTransmit sets the network PDU transmit count/interval.
func (n *Node) SetNetworkTransmit(count, steps uint8) {
	n.elems.SetNetworkTransmit(count, steps)
	n.persistCoreConfig()
}

// SetProductInfo sets the static product information record.
func (n *Node) SetProductInfo(info elemstate.ProductInfo) {
	n.elems.SetProductInfo(info)
	n.persistCoreConfig()
}
