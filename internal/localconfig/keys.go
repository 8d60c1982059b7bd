package localconfig

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/keytbl"
)

// SetNetKey creates a new NetKey entry.
func (n *Node) SetNetKey(idx uint16, key meshnode.Key) error {
	if _, err := n.keys.SetNetKey(idx, key); err != nil {
		return err
	}
	n.persistNetKeys()
	return nil
}

// UpdateNetKey stages new key material for an existing NetKey and
// enters Key Refresh Phase1 (the action table's NotActive→Phase1
// "just-set" row, taken directly rather than through a beacon — the
// node itself only reacts to beacons for every other transition, see
// internal/netmgmt).
func (n *Node) UpdateNetKey(idx uint16, key meshnode.Key) error {
	if err := n.keys.UpdateNetKey(idx, key); err != nil {
		return err
	}
	if slot, ok := n.keys.NetKeySlot(idx); ok {
		_ = n.keys.SetNetKeyRefresh(slot, keytbl.Phase1)
	}
	n.persistNetKeys()
	return nil
}

// RemoveNetKey removes a NetKey, or with oldOnly promotes its new
// material to old. Removing entirely unbinds and persists every
// AppKey that was bound to it.
func (n *Node) RemoveNetKey(idx uint16, oldOnly bool) error {
	unbound, err := n.keys.RemoveNetKey(idx, oldOnly)
	if err != nil {
		return err
	}
	n.persistNetKeys()
	if len(unbound) > 0 {
		n.persistAppKeys()
	}
	return nil
}

// GetNetKey returns a snapshot of the NetKey with the given index.
func (n *Node) GetNetKey(idx uint16) (keytbl.NetKey, error) {
	return n.keys.GetNetKey(idx)
}

// NextNetKey iterates occupied NetKey slots starting at cursor.
func (n *Node) NextNetKey(cursor int) (keytbl.NetKey, int, bool) {
	return n.keys.NextNetKey(cursor)
}

// SetAppKey creates a new AppKey entry, unbound.
func (n *Node) SetAppKey(idx uint16, key meshnode.Key) error {
	if _, err := n.keys.SetAppKey(idx, key); err != nil {
		return err
	}
	n.persistAppKeys()
	return nil
}

// UpdateAppKey stages new key material for an existing AppKey.
func (n *Node) UpdateAppKey(idx uint16, key meshnode.Key) error {
	if err := n.keys.UpdateAppKey(idx, key); err != nil {
		return err
	}
	n.persistAppKeys()
	return nil
}

// RemoveAppKey removes an AppKey, or with oldOnly promotes new to old.
func (n *Node) RemoveAppKey(idx uint16, oldOnly bool) error {
	if err := n.keys.RemoveAppKey(idx, oldOnly); err != nil {
		return err
	}
	n.persistAppKeys()
	return nil
}

// BindAppKey binds an AppKey to a NetKey.
func (n *Node) BindAppKey(appIdx, netIdx uint16) error {
	if err := n.keys.BindAppKey(appIdx, netIdx); err != nil {
		return err
	}
	n.persistAppKeys()
	return nil
}

// GetAppKey returns a snapshot of the AppKey with the given index.
func (n *Node) GetAppKey(idx uint16) (keytbl.AppKey, error) {
	return n.keys.GetAppKey(idx)
}

// NextAppKey iterates occupied AppKey slots starting at cursor.
func (n *Node) NextAppKey(cursor int) (keytbl.AppKey, int, bool) {
	return n.keys.NextAppKey(cursor)
}
