// Package modeltbl implements the Model Table of spec component C3:
// per-element model instances, each owning a publication record, a
// fixed-size AppKey bind slice, and a subscription slice that MAY be
// shared ("aliased") with another instance's root model.
//
// Address-table refcounts are maintained through an *addrtbl.Table
// passed explicitly to every operation that touches them, rather than
// owned by this package, so a single Node can share one address table
// across the model table and the heartbeat state.
package modeltbl

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/addrtbl"
	"github.com/packetcraft-inc/meshnode/internal/cfgerr"
)

// InstanceKey identifies one model instance.
type InstanceKey struct {
	Element int
	ModelID uint32
	IsSIG   bool
}

// PublicationRecord is the publish-side configuration of one model instance.
type PublicationRecord struct {
	AddrSlot                int // -1 if unassigned
	Virtual                 bool
	AppKeySlotIndex         int // index into the instance's AppKey bind slice, -1 if unset
	TTL                     uint8
	FriendshipCredential    bool
	PeriodSteps             uint8
	PeriodResolution        uint8
	RetransmitCount         uint8
	RetransmitIntervalSteps uint8
}

// SubscriptionEntry is one occupied or free subscription slot.
type SubscriptionEntry struct {
	AddrSlot addrtbl.SlotIndex
	Virtual  bool
	Occupied bool
}

type subscriptionList struct {
	entries []SubscriptionEntry
}

type modelInstance struct {
	key         InstanceKey
	publication PublicationRecord
	appKeyBinds []int
	subs        *subscriptionList
}

// Table is the per-node model table.
type Table struct {
	instances []modelInstance
}

// New constructs a Table with one instance per key in instances, each
// sized for subsSize subscription slots and appKeyBindSize AppKey binds.
func New(instances []InstanceKey, subsSize, appKeyBindSize int) *Table {
	t := &Table{instances: make([]modelInstance, len(instances))}
	for i, key := range instances {
		binds := make([]int, appKeyBindSize)
		for j := range binds {
			binds[j] = -1
		}
		t.instances[i] = modelInstance{
			key:         key,
			publication: PublicationRecord{AddrSlot: -1, AppKeySlotIndex: -1},
			appKeyBinds: binds,
			subs:        &subscriptionList{entries: make([]SubscriptionEntry, subsSize)},
		}
	}
	return t
}

func (t *Table) find(key InstanceKey) (int, error) {
	for i := range t.instances {
		if t.instances[i].key == key {
			return i, nil
		}
	}
	return 0, cfgerr.NotFound("no model instance %+v", key)
}

// SetPublishAddress sets the publish destination. Passing
// meshnode.UnassignedAddress releases any prior publish-address
// refcount and clears the address slot while leaving every other
// publication field untouched.
func (t *Table) SetPublishAddress(addrs *addrtbl.Table, key InstanceKey, addr meshnode.Address, virtual bool, label meshnode.LabelUUID) error {
	idx, err := t.find(key)
	if err != nil {
		return err
	}
	pub := &t.instances[idx].publication

	if pub.AddrSlot >= 0 {
		if pub.Virtual {
			if _, err := addrs.ReleaseVirtual(addrtbl.SlotIndex(pub.AddrSlot), addrtbl.Publish); err != nil {
				return err
			}
		} else {
			if _, err := addrs.Release(addrtbl.SlotIndex(pub.AddrSlot), addrtbl.Publish); err != nil {
				return err
			}
		}
		pub.AddrSlot = -1
		pub.Virtual = false
	}

	if addr.IsUnassigned() {
		return nil
	}

	if virtual {
		slot, _, err := addrs.InsertVirtual(addr, label, addrtbl.Publish)
		if err != nil {
			return err
		}
		pub.AddrSlot = int(slot)
		pub.Virtual = true
		return nil
	}
	slot, _, err := addrs.Insert(addr, addrtbl.Publish)
	if err != nil {
		return err
	}
	pub.AddrSlot = int(slot)
	pub.Virtual = false
	return nil
}

// PublishAddress returns the current publish address, or
// UnassignedAddress if none is set.
func (t *Table) PublishAddress(addrs *addrtbl.Table, key InstanceKey) (meshnode.Address, meshnode.LabelUUID, error) {
	idx, err := t.find(key)
	if err != nil {
		return 0, meshnode.LabelUUID{}, err
	}
	pub := t.instances[idx].publication
	if pub.AddrSlot < 0 {
		return meshnode.UnassignedAddress, meshnode.LabelUUID{}, nil
	}
	if pub.Virtual {
		addr, label, ok := addrs.VirtualAddress(addrtbl.SlotIndex(pub.AddrSlot))
		if !ok {
			return 0, meshnode.LabelUUID{}, cfgerr.NotFound("publish address slot %d vanished", pub.AddrSlot)
		}
		return addr, label, nil
	}
	addr, ok := addrs.Address(addrtbl.SlotIndex(pub.AddrSlot))
	if !ok {
		return 0, meshnode.LabelUUID{}, cfgerr.NotFound("publish address slot %d vanished", pub.AddrSlot)
	}
	return addr, meshnode.LabelUUID{}, nil
}

// Publication returns the full publication record (address excluded;
// use PublishAddress for that).
func (t *Table) Publication(key InstanceKey) (PublicationRecord, error) {
	idx, err := t.find(key)
	if err != nil {
		return PublicationRecord{}, err
	}
	return t.instances[idx].publication, nil
}

// SetPublishAppKeySlot sets which AppKey bind slot publications use.
func (t *Table) SetPublishAppKeySlot(key InstanceKey, bindSlot int) error {
	idx, err := t.find(key)
	if err != nil {
		return err
	}
	if bindSlot < -1 || bindSlot >= len(t.instances[idx].appKeyBinds) {
		return cfgerr.InvalidParams("app key bind slot %d out of range", bindSlot)
	}
	t.instances[idx].publication.AppKeySlotIndex = bindSlot
	return nil
}

// SetPublishTTL sets the publication TTL.
func (t *Table) SetPublishTTL(key InstanceKey, ttl uint8) error {
	idx, err := t.find(key)
	if err != nil {
		return err
	}
	t.instances[idx].publication.TTL = ttl
	return nil
}

// SetFriendshipCredential sets the friendship-credential flag.
func (t *Table) SetFriendshipCredential(key InstanceKey, use bool) error {
	idx, err := t.find(key)
	if err != nil {
		return err
	}
	t.instances[idx].publication.FriendshipCredential = use
	return nil
}

// SetPublishPeriod sets the publish period steps/resolution.
func (t *Table) SetPublishPeriod(key InstanceKey, steps, resolution uint8) error {
	idx, err := t.find(key)
	if err != nil {
		return err
	}
	t.instances[idx].publication.PeriodSteps = steps
	t.instances[idx].publication.PeriodResolution = resolution
	return nil
}

// SetPublishRetransmit sets the publish retransmit count/interval.
func (t *Table) SetPublishRetransmit(key InstanceKey, count, intervalSteps uint8) error {
	idx, err := t.find(key)
	if err != nil {
		return err
	}
	t.instances[idx].publication.RetransmitCount = count
	t.instances[idx].publication.RetransmitIntervalSteps = intervalSteps
	return nil
}

// BindAppKey records that bind slot bindSlot of key refers to the
// AppKey occupying appKeyTableSlot of the AppKey table.
func (t *Table) BindAppKey(key InstanceKey, bindSlot, appKeyTableSlot int) error {
	idx, err := t.find(key)
	if err != nil {
		return err
	}
	binds := t.instances[idx].appKeyBinds
	if bindSlot < 0 || bindSlot >= len(binds) {
		return cfgerr.InvalidParams("app key bind slot %d out of range", bindSlot)
	}
	binds[bindSlot] = appKeyTableSlot
	return nil
}

// UnbindAppKey clears a bind slot.
func (t *Table) UnbindAppKey(key InstanceKey, bindSlot int) error {
	idx, err := t.find(key)
	if err != nil {
		return err
	}
	binds := t.instances[idx].appKeyBinds
	if bindSlot < 0 || bindSlot >= len(binds) {
		return cfgerr.InvalidParams("app key bind slot %d out of range", bindSlot)
	}
	binds[bindSlot] = -1
	return nil
}

// AppKeyBinds returns the instance's AppKey bind slice (-1 = free slot).
func (t *Table) AppKeyBinds(key InstanceKey) ([]int, error) {
	idx, err := t.find(key)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(t.instances[idx].appKeyBinds))
	copy(out, t.instances[idx].appKeyBinds)
	return out, nil
}

// AliasSubscriptions makes child's subscription slice the same
// underlying object as root's, so mutations through either key are
// visible through both.
func (t *Table) AliasSubscriptions(child, root InstanceKey) error {
	childIdx, err := t.find(child)
	if err != nil {
		return err
	}
	rootIdx, err := t.find(root)
	if err != nil {
		return err
	}
	t.instances[childIdx].subs = t.instances[rootIdx].subs
	return nil
}

// SubAdd adds a subscription. Re-adding an address the model already
// subscribes to returns AlreadyExists without changing refcounts.
func (t *Table) SubAdd(addrs *addrtbl.Table, key InstanceKey, addr meshnode.Address, virtual bool, label meshnode.LabelUUID) (*addrtbl.SubscribeChange, error) {
	idx, err := t.find(key)
	if err != nil {
		return nil, err
	}
	subs := t.instances[idx].subs

	if slot, ok := findSub(addrs, subs, addr, virtual, label); ok {
		_ = slot
		return nil, cfgerr.AlreadyExists("model already subscribes to %s", addr)
	}

	free := -1
	for i := range subs.entries {
		if !subs.entries[i].Occupied {
			free = i
			break
		}
	}
	if free < 0 {
		return nil, cfgerr.OutOfMemory("subscription list full")
	}

	var slot addrtbl.SlotIndex
	var notify *addrtbl.SubscribeChange
	if virtual {
		slot, notify, err = addrs.InsertVirtual(addr, label, addrtbl.Subscribe)
	} else {
		slot, notify, err = addrs.Insert(addr, addrtbl.Subscribe)
	}
	if err != nil {
		return nil, err
	}
	subs.entries[free] = SubscriptionEntry{AddrSlot: slot, Virtual: virtual, Occupied: true}
	return notify, nil
}

// SubRemove removes one subscription.
func (t *Table) SubRemove(addrs *addrtbl.Table, key InstanceKey, addr meshnode.Address, virtual bool, label meshnode.LabelUUID) (*addrtbl.SubscribeChange, error) {
	idx, err := t.find(key)
	if err != nil {
		return nil, err
	}
	subs := t.instances[idx].subs

	pos, ok := findSub(addrs, subs, addr, virtual, label)
	if !ok {
		return nil, cfgerr.NotFound("model does not subscribe to %s", addr)
	}
	entry := subs.entries[pos]
	var notify *addrtbl.SubscribeChange
	if entry.Virtual {
		notify, err = addrs.ReleaseVirtual(entry.AddrSlot, addrtbl.Subscribe)
	} else {
		notify, err = addrs.Release(entry.AddrSlot, addrtbl.Subscribe)
	}
	if err != nil {
		return nil, err
	}
	subs.entries[pos] = SubscriptionEntry{}
	return notify, nil
}

// SubRemoveAll clears every subscription of key, returning the
// friendship notifications produced by each release.
func (t *Table) SubRemoveAll(addrs *addrtbl.Table, key InstanceKey) ([]addrtbl.SubscribeChange, error) {
	idx, err := t.find(key)
	if err != nil {
		return nil, err
	}
	subs := t.instances[idx].subs

	var notifications []addrtbl.SubscribeChange
	for i := range subs.entries {
		e := subs.entries[i]
		if !e.Occupied {
			continue
		}
		var notify *addrtbl.SubscribeChange
		if e.Virtual {
			notify, err = addrs.ReleaseVirtual(e.AddrSlot, addrtbl.Subscribe)
		} else {
			notify, err = addrs.Release(e.AddrSlot, addrtbl.Subscribe)
		}
		if err != nil {
			return notifications, err
		}
		if notify != nil {
			notifications = append(notifications, *notify)
		}
		subs.entries[i] = SubscriptionEntry{}
	}
	return notifications, nil
}

// SubFind returns the slot index of a subscription entry, if present.
func (t *Table) SubFind(addrs *addrtbl.Table, key InstanceKey, addr meshnode.Address, virtual bool, label meshnode.LabelUUID) (int, bool, error) {
	idx, err := t.find(key)
	if err != nil {
		return 0, false, err
	}
	pos, ok := findSub(addrs, t.instances[idx].subs, addr, virtual, label)
	return pos, ok, nil
}

// ResolvedSubscription is one occupied subscription slot with its
// address resolved through the address table.
type ResolvedSubscription struct {
	Address meshnode.Address
	Label   meshnode.LabelUUID
	Virtual bool
}

// SubNext iterates occupied subscription slots of key starting at cursor.
func (t *Table) SubNext(addrs *addrtbl.Table, key InstanceKey, cursor int) (ResolvedSubscription, int, bool, error) {
	idx, err := t.find(key)
	if err != nil {
		return ResolvedSubscription{}, 0, false, err
	}
	entries := t.instances[idx].subs.entries
	for i := cursor; i < len(entries); i++ {
		e := entries[i]
		if !e.Occupied {
			continue
		}
		if e.Virtual {
			addr, label, ok := addrs.VirtualAddress(e.AddrSlot)
			if !ok {
				continue
			}
			return ResolvedSubscription{Address: addr, Label: label, Virtual: true}, i + 1, true, nil
		}
		addr, ok := addrs.Address(e.AddrSlot)
		if !ok {
			continue
		}
		return ResolvedSubscription{Address: addr, Virtual: false}, i + 1, true, nil
	}
	return ResolvedSubscription{}, len(entries), false, nil
}

// SubSize returns the used and total subscription slot counts for key.
func (t *Table) SubSize(key InstanceKey) (used, total int, err error) {
	idx, err := t.find(key)
	if err != nil {
		return 0, 0, err
	}
	entries := t.instances[idx].subs.entries
	for _, e := range entries {
		if e.Occupied {
			used++
		}
	}
	return used, len(entries), nil
}

// InstanceSnapshot is the persisted form of one model instance's
// model-table dataset fields. SubsGroup indexes into
// SubscriptionsSnapshot.Groups; instances that were aliased via
// AliasSubscriptions share the same SubsGroup index so Restore can
// rebuild the aliasing relationship. AppKey binds are a separate
// dataset (BindsSnapshot), not part of this one.
type InstanceSnapshot struct {
	Key         InstanceKey       `json:"key"`
	Publication PublicationRecord `json:"publication"`
	SubsGroup   int               `json:"subs_group"`
}

// Snapshot is the persisted form of a Table's model-table dataset
// (spec §4.6): instance keys and publication records, plus which
// subscription group each instance shares. The subscription entries
// themselves and the AppKey binds are separate datasets
// (SubscriptionsSnapshot, BindsSnapshot) written and reloaded
// independently, so Restore takes all three.
type Snapshot struct {
	Instances []InstanceSnapshot `json:"instances"`
}

// SubscriptionsSnapshot is the persisted form of the subscription-list
// dataset: one entry slice per distinct group, aliasing preserved by
// InstanceSnapshot.SubsGroup indexing into this slice.
type SubscriptionsSnapshot struct {
	Groups [][]SubscriptionEntry `json:"groups"`
}

// Snapshot returns the persisted form of t's model-table dataset.
func (t *Table) Snapshot() Snapshot {
	groupOf := make(map[*subscriptionList]int)
	instances := make([]InstanceSnapshot, len(t.instances))
	next := 0
	for i, inst := range t.instances {
		group, ok := groupOf[inst.subs]
		if !ok {
			group = next
			next++
			groupOf[inst.subs] = group
		}
		instances[i] = InstanceSnapshot{
			Key:         inst.key,
			Publication: inst.publication,
			SubsGroup:   group,
		}
	}
	return Snapshot{Instances: instances}
}

// SubscriptionsSnapshot returns the persisted form of t's
// subscription-list dataset, in the group order Table.Snapshot assigned.
func (t *Table) SubscriptionsSnapshot() SubscriptionsSnapshot {
	groupOf := make(map[*subscriptionList]int)
	var groups [][]SubscriptionEntry
	for _, inst := range t.instances {
		if _, ok := groupOf[inst.subs]; ok {
			continue
		}
		groupOf[inst.subs] = len(groups)
		entries := make([]SubscriptionEntry, len(inst.subs.entries))
		copy(entries, inst.subs.entries)
		groups = append(groups, entries)
	}
	return SubscriptionsSnapshot{Groups: groups}
}

// BindsSnapshot is the persisted form of the AppKey-bind dataset: one
// bind slice per model instance, in the same order Snapshot.Instances
// uses, so Restore can zip the three datasets back together.
type BindsSnapshot struct {
	Binds [][]int `json:"binds"`
}

// BindsSnapshot returns the persisted form of t's AppKey-bind dataset.
func (t *Table) BindsSnapshot() BindsSnapshot {
	binds := make([][]int, len(t.instances))
	for i, inst := range t.instances {
		row := make([]int, len(inst.appKeyBinds))
		copy(row, inst.appKeyBinds)
		binds[i] = row
	}
	return BindsSnapshot{Binds: binds}
}

// Restore rebuilds a Table from its three independently-persisted
// datasets, loaded at startup.
func Restore(s Snapshot, subs SubscriptionsSnapshot, binds BindsSnapshot) *Table {
	groups := make([]*subscriptionList, len(subs.Groups))
	for i, entries := range subs.Groups {
		list := &subscriptionList{entries: make([]SubscriptionEntry, len(entries))}
		copy(list.entries, entries)
		groups[i] = list
	}
	t := &Table{instances: make([]modelInstance, len(s.Instances))}
	for i, snap := range s.Instances {
		var row []int
		if i < len(binds.Binds) {
			row = make([]int, len(binds.Binds[i]))
			copy(row, binds.Binds[i])
		}
		var group *subscriptionList
		if snap.SubsGroup >= 0 && snap.SubsGroup < len(groups) {
			group = groups[snap.SubsGroup]
		} else {
			group = &subscriptionList{}
		}
		t.instances[i] = modelInstance{
			key:         snap.Key,
			publication: snap.Publication,
			appKeyBinds: row,
			subs:        group,
		}
	}
	return t
}

func findSub(addrs *addrtbl.Table, subs *subscriptionList, addr meshnode.Address, virtual bool, label meshnode.LabelUUID) (int, bool) {
	for i, e := range subs.entries {
		if !e.Occupied || e.Virtual != virtual {
			continue
		}
		if virtual {
			a, l, ok := addrs.VirtualAddress(e.AddrSlot)
			if ok && a == addr && l == label {
				return i, true
			}
			continue
		}
		a, ok := addrs.Address(e.AddrSlot)
		if ok && a == addr {
			return i, true
		}
	}
	return 0, false
}
