package localconfig

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/hbstate"
)

// SetHeartbeatPublishDest sets the heartbeat publication destination.
func (n *Node) SetHeartbeatPublishDest(addr meshnode.Address) error {
	if err := n.hb.SetPublishDest(n.addrs, addr); err != nil {
		return err
	}
	n.persistHeartbeat()
	n.persistAddresses()
	return nil
}

// HeartbeatPublishDest returns the heartbeat publication destination.
func (n *Node) HeartbeatPublishDest() meshnode.Address {
	return n.hb.PublishDest(n.addrs)
}

// SetHeartbeatPublishNetKeySlot sets the bound NetKey table slot for
// heartbeat publications.
func (n *Node) SetHeartbeatPublishNetKeySlot(slot int) {
	n.hb.SetPublishNetKeySlot(slot)
	n.persistHeartbeat()
}

// SetHeartbeatPublishParams sets the remaining heartbeat publication fields.
func (n *Node) SetHeartbeatPublishParams(featureMask uint16, countLog, periodLog, ttl uint8) {
	n.hb.SetPublishParams(featureMask, countLog, periodLog, ttl)
	n.persistHeartbeat()
}

// HeartbeatPublication returns the current heartbeat publication block.
func (n *Node) HeartbeatPublication() hbstate.Publication {
	return n.hb.Publication()
}

// SetHeartbeatSubscribeSource sets the heartbeat subscription source address.
func (n *Node) SetHeartbeatSubscribeSource(addr meshnode.Address) error {
	if err := n.hb.SetSubscribeSource(n.addrs, addr); err != nil {
		return err
	}
	n.persistHeartbeat()
	n.persistAddresses()
	return nil
}

// SetHeartbeatSubscribeDest sets the heartbeat subscription destination address.
func (n *Node) SetHeartbeatSubscribeDest(addr meshnode.Address) error {
	if err := n.hb.SetSubscribeDest(n.addrs, addr); err != nil {
		return err
	}
	n.persistHeartbeat()
	n.persistAddresses()
	return nil
}

// SetHeartbeatSubscribeParams sets the remaining heartbeat subscription fields.
func (n *Node) SetHeartbeatSubscribeParams(countLog, periodLog, minHops, maxHops uint8) {
	n.hb.SetSubscribeParams(countLog, periodLog, minHops, maxHops)
	n.persistHeartbeat()
}

// HeartbeatSubscription returns the current heartbeat subscription block.
func (n *Node) HeartbeatSubscription() hbstate.Subscription {
	return n.hb.Subscription()
}
