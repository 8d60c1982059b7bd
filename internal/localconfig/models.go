package localconfig

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/modeltbl"
)

// SetPublishAddress sets a model instance's publish destination,
// persisting both the model-table and address datasets since the
// address table's publish refcounts change alongside it.
func (n *Node) SetPublishAddress(key modeltbl.InstanceKey, addr meshnode.Address, virtual bool, label meshnode.LabelUUID) error {
	if err := n.models.SetPublishAddress(n.addrs, key, addr, virtual, label); err != nil {
		return err
	}
	n.persistModels()
	n.persistAddresses()
	return nil
}

// PublishAddress returns a model instance's publish address.
func (n *Node) PublishAddress(key modeltbl.InstanceKey) (meshnode.Address, meshnode.LabelUUID, error) {
	return n.models.PublishAddress(n.addrs, key)
}

// Publication returns a model instance's full publication record.
func (n *Node) Publication(key modeltbl.InstanceKey) (modeltbl.PublicationRecord, error) {
	return n.models.Publication(key)
}

// SetPublishAppKeySlot sets which AppKey bind slot publications use.
func (n *Node) SetPublishAppKeySlot(key modeltbl.InstanceKey, bindSlot int) error {
	if err := n.models.SetPublishAppKeySlot(key, bindSlot); err != nil {
		return err
	}
	n.persistModels()
	return nil
}

// SetPublishTTL sets a model instance's publish TTL.
func (n *Node) SetPublishTTL(key modeltbl.InstanceKey, ttl uint8) error {
	if err := n.models.SetPublishTTL(key, ttl); err != nil {
		return err
	}
	n.persistModels()
	return nil
}

// SetFriendshipCredential sets the publish friendship-credential flag.
func (n *Node) SetFriendshipCredential(key modeltbl.InstanceKey, use bool) error {
	if err := n.models.SetFriendshipCredential(key, use); err != nil {
		return err
	}
	n.persistModels()
	return nil
}

// SetPublishPeriod sets a model instance's publish period.
func (n *Node) SetPublishPeriod(key modeltbl.InstanceKey, steps, resolution uint8) error {
	if err := n.models.SetPublishPeriod(key, steps, resolution); err != nil {
		return err
	}
	n.persistModels()
	return nil
}

// SetPublishRetransmit sets a model instance's publish retransmit parameters.
func (n *Node) SetPublishRetransmit(key modeltbl.InstanceKey, count, intervalSteps uint8) error {
	if err := n.models.SetPublishRetransmit(key, count, intervalSteps); err != nil {
		return err
	}
	n.persistModels()
	return nil
}

// BindAppKeySlot records that bindSlot of key refers to appKeyTableSlot.
func (n *Node) BindAppKeySlot(key modeltbl.InstanceKey, bindSlot, appKeyTableSlot int) error {
	if err := n.models.BindAppKey(key, bindSlot, appKeyTableSlot); err != nil {
		return err
	}
	n.persistAppKeyBinds()
	return nil
}

// UnbindAppKeySlot clears a bind slot.
func (n *Node) UnbindAppKeySlot(key modeltbl.InstanceKey, bindSlot int) error {
	if err := n.models.UnbindAppKey(key, bindSlot); err != nil {
		return err
	}
	n.persistAppKeyBinds()
	return nil
}

// AppKeyBinds returns a model instance's AppKey bind slice.
func (n *Node) AppKeyBinds(key modeltbl.InstanceKey) ([]int, error) {
	return n.models.AppKeyBinds(key)
}

// AliasSubscriptions shares child's subscription list with root's.
func (n *Node) AliasSubscriptions(child, root modeltbl.InstanceKey) error {
	if err := n.models.AliasSubscriptions(child, root); err != nil {
		return err
	}
	n.persistModels()
	return nil
}

// SubAdd adds a subscription to a model instance.
func (n *Node) SubAdd(key modeltbl.InstanceKey, addr meshnode.Address, virtual bool, label meshnode.LabelUUID) error {
	notify, err := n.models.SubAdd(n.addrs, key, addr, virtual, label)
	if err != nil {
		return err
	}
	n.persistModels()
	n.persistAddresses()
	n.notify(notify)
	return nil
}

// SubRemove removes one subscription from a model instance.
func (n *Node) SubRemove(key modeltbl.InstanceKey, addr meshnode.Address, virtual bool, label meshnode.LabelUUID) error {
	notify, err := n.models.SubRemove(n.addrs, key, addr, virtual, label)
	if err != nil {
		return err
	}
	n.persistModels()
	n.persistAddresses()
	n.notify(notify)
	return nil
}

// SubRemoveAll clears every subscription of a model instance.
func (n *Node) SubRemoveAll(key modeltbl.InstanceKey) error {
	notifications, err := n.models.SubRemoveAll(n.addrs, key)
	if err != nil {
		return err
	}
	n.persistModels()
	n.persistAddresses()
	for i := range notifications {
		n.notify(&notifications[i])
	}
	return nil
}

// SubFind reports whether a model instance subscribes to addr.
func (n *Node) SubFind(key modeltbl.InstanceKey, addr meshnode.Address, virtual bool, label meshnode.LabelUUID) (int, bool, error) {
	return n.models.SubFind(n.addrs, key, addr, virtual, label)
}

// SubNext iterates a model instance's occupied subscription slots.
func (n *Node) SubNext(key modeltbl.InstanceKey, cursor int) (modeltbl.ResolvedSubscription, int, bool, error) {
	return n.models.SubNext(n.addrs, key, cursor)
}

// SubSize returns a model instance's used and total subscription slot counts.
func (n *Node) SubSize(key modeltbl.InstanceKey) (used, total int, err error) {
	return n.models.SubSize(key)
}
