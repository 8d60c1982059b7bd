package localconfig

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/addrtbl"
)

// AddressPublish records a publish-side reference to addr, creating
// the slot if none exists yet, and persists the address datasets.
func (n *Node) AddressPublish(addr meshnode.Address) (addrtbl.SlotIndex, error) {
	slot, notify, err := n.addrs.Insert(addr, addrtbl.Publish)
	if err != nil {
		return 0, err
	}
	n.persistAddresses()
	n.notify(notify)
	return slot, nil
}

// AddressSubscribe records a subscribe-side reference to addr.
func (n *Node) AddressSubscribe(addr meshnode.Address) (addrtbl.SlotIndex, error) {
	slot, notify, err := n.addrs.Insert(addr, addrtbl.Subscribe)
	if err != nil {
		return 0, err
	}
	n.persistAddresses()
	n.notify(notify)
	return slot, nil
}

// AddressPublishVirtual is AddressPublish for a virtual address/label pair.
func (n *Node) AddressPublishVirtual(addr meshnode.Address, label meshnode.LabelUUID) (addrtbl.SlotIndex, error) {
	slot, notify, err := n.addrs.InsertVirtual(addr, label, addrtbl.Publish)
	if err != nil {
		return 0, err
	}
	n.persistAddresses()
	n.notify(notify)
	return slot, nil
}

// AddressSubscribeVirtual is AddressSubscribe for a virtual address/label pair.
func (n *Node) AddressSubscribeVirtual(addr meshnode.Address, label meshnode.LabelUUID) (addrtbl.SlotIndex, error) {
	slot, notify, err := n.addrs.InsertVirtual(addr, label, addrtbl.Subscribe)
	if err != nil {
		return 0, err
	}
	n.persistAddresses()
	n.notify(notify)
	return slot, nil
}

// AddressRelease releases one side's reference to a non-virtual slot.
func (n *Node) AddressRelease(slot addrtbl.SlotIndex, side addrtbl.Side) error {
	notify, err := n.addrs.Release(slot, side)
	if err != nil {
		return err
	}
	n.persistAddresses()
	n.notify(notify)
	return nil
}

// AddressReleaseVirtual releases one side's reference to a virtual slot.
func (n *Node) AddressReleaseVirtual(slot addrtbl.SlotIndex, side addrtbl.Side) error {
	notify, err := n.addrs.ReleaseVirtual(slot, side)
	if err != nil {
		return err
	}
	n.persistAddresses()
	n.notify(notify)
	return nil
}

// Address resolves a non-virtual slot to its address.
func (n *Node) Address(slot addrtbl.SlotIndex) (meshnode.Address, bool) {
	return n.addrs.Address(slot)
}

// VirtualAddress resolves a virtual slot to its address and label.
func (n *Node) VirtualAddress(slot addrtbl.SlotIndex) (meshnode.Address, meshnode.LabelUUID, bool) {
	return n.addrs.VirtualAddress(slot)
}

// FindAddress looks up a non-virtual address's slot.
func (n *Node) FindAddress(addr meshnode.Address) (addrtbl.SlotIndex, bool) {
	return n.addrs.Find(addr)
}

// FindVirtualAddress looks up a virtual address/label pair's slot.
func (n *Node) FindVirtualAddress(addr meshnode.Address, label meshnode.LabelUUID) (addrtbl.SlotIndex, bool) {
	return n.addrs.FindVirtual(addr, label)
}
