// Package addrtbl implements the deduplicated address table of spec
// component C1: non-virtual (unicast/group/fixed-group) and virtual
// (label-UUID) destinations, each carrying independent publish and
// subscribe refcounts. Non-virtual and virtual entries live in two
// separately-sized arrays so a deployment can size them independently
// at construction, per dimcfg.Config.
package addrtbl

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/cfgerr"
	"github.com/packetcraft-inc/meshnode/internal/check"
)

// Side is which refcount an Insert/Release call affects.
type Side int

const (
	Publish Side = iota
	Subscribe
)

// SlotIndex identifies a live entry in one of the two tables. Slot 0
// is a valid index (the first row of either table); callers
// distinguish the two tables by which method returned the index.
type SlotIndex int

// entry is one row, shared by both the non-virtual and virtual arrays.
// label is the zero UUID for non-virtual rows.
type entry struct {
	address          meshnode.Address
	label            meshnode.LabelUUID
	hasLabel         bool
	refcountPublish  int
	refcountSubscribe int
}

func (e *entry) free() bool {
	return e.refcountPublish == 0 && e.refcountSubscribe == 0
}

// SubscribeChange is the friendship notification C1 emits whenever a
// subscribe refcount crosses 0↔1 (spec §4.1). Virtual reports which
// of the two tables Slot indexes.
type SubscribeChange struct {
	Add     bool
	Address meshnode.Address
	Slot    SlotIndex
	Virtual bool
}

// Table is the C1 address table: one array of non-virtual entries and
// one array of virtual entries, each sized independently.
type Table struct {
	nonVirtual []entry
	virtual    []entry
}

// New constructs a Table sized for nonVirtualSize non-virtual slots
// and virtualSize virtual slots.
func New(nonVirtualSize, virtualSize int) *Table {
	return &Table{
		nonVirtual: make([]entry, nonVirtualSize),
		virtual:    make([]entry, virtualSize),
	}
}

// Find looks up a non-virtual address, returning its slot if present.
func (t *Table) Find(addr meshnode.Address) (SlotIndex, bool) {
	for i := range t.nonVirtual {
		if !t.nonVirtual[i].free() && t.nonVirtual[i].address == addr {
			return SlotIndex(i), true
		}
	}
	return 0, false
}

// FindVirtual looks up a virtual address by (address, label_uuid),
// comparing every entry rather than trusting a cached head pointer
// (spec §9: the source's equivalent lookup has a known iteration bug;
// this compares each candidate entry in full).
func (t *Table) FindVirtual(addr meshnode.Address, label meshnode.LabelUUID) (SlotIndex, bool) {
	for i := range t.virtual {
		e := &t.virtual[i]
		if e.free() {
			continue
		}
		if e.address == addr && e.label == label {
			return SlotIndex(i), true
		}
	}
	return 0, false
}

// Insert adds or increments the given side's refcount for a
// non-virtual address, returning the slot index, the resulting
// subscribe-change notification if one was produced, and an error.
// A virtual address passed here is rejected as InvalidParams; use
// InsertVirtual instead.
func (t *Table) Insert(addr meshnode.Address, side Side) (SlotIndex, *SubscribeChange, error) {
	if addr.IsVirtual() {
		return 0, nil, cfgerr.InvalidParams("address %s is virtual, use InsertVirtual", addr)
	}
	if addr.IsUnassigned() {
		return 0, nil, cfgerr.InvalidParams("cannot insert unassigned address")
	}
	if slot, ok := t.Find(addr); ok {
		notify := t.bump(&t.nonVirtual[slot], side, addr, slot, false)
		return slot, notify, nil
	}
	free, ok := firstFree(t.nonVirtual)
	if !ok {
		return 0, nil, cfgerr.OutOfMemory("non-virtual address table full")
	}
	t.nonVirtual[free] = entry{address: addr}
	notify := t.bump(&t.nonVirtual[free], side, addr, SlotIndex(free), false)
	return SlotIndex(free), notify, nil
}

// InsertVirtual adds or increments the given side's refcount for a
// virtual address/label-UUID pair.
func (t *Table) InsertVirtual(addr meshnode.Address, label meshnode.LabelUUID, side Side) (SlotIndex, *SubscribeChange, error) {
	if !addr.IsVirtual() {
		return 0, nil, cfgerr.InvalidParams("address %s is not virtual", addr)
	}
	if slot, ok := t.FindVirtual(addr, label); ok {
		notify := t.bump(&t.virtual[slot], side, addr, slot, true)
		return slot, notify, nil
	}
	free, ok := firstFree(t.virtual)
	if !ok {
		return 0, nil, cfgerr.OutOfMemory("virtual address table full")
	}
	t.virtual[free] = entry{address: addr, label: label, hasLabel: true}
	notify := t.bump(&t.virtual[free], side, addr, SlotIndex(free), true)
	return SlotIndex(free), notify, nil
}

// bump increments the refcount for side on e and returns a
// notification if the subscribe refcount just crossed 0→1.
func (t *Table) bump(e *entry, side Side, addr meshnode.Address, slot SlotIndex, virtual bool) *SubscribeChange {
	if side == Publish {
		e.refcountPublish++
		return nil
	}
	was := e.refcountSubscribe
	e.refcountSubscribe++
	if was == 0 {
		return &SubscribeChange{Add: true, Address: addr, Slot: slot, Virtual: virtual}
	}
	return nil
}

// Release decrements the given side's refcount for a non-virtual slot
// and frees the entry when both refcounts reach zero.
func (t *Table) Release(slot SlotIndex, side Side) (*SubscribeChange, error) {
	return release(t.nonVirtual, slot, side, false)
}

// ReleaseVirtual decrements the given side's refcount for a virtual slot.
func (t *Table) ReleaseVirtual(slot SlotIndex, side Side) (*SubscribeChange, error) {
	return release(t.virtual, slot, side, true)
}

func release(rows []entry, slot SlotIndex, side Side, virtual bool) (*SubscribeChange, error) {
	if int(slot) < 0 || int(slot) >= len(rows) {
		return nil, cfgerr.NotFound("address slot %d out of range", slot)
	}
	e := &rows[slot]
	if e.free() {
		return nil, cfgerr.NotFound("address slot %d is free", slot)
	}
	addr := e.address
	var notify *SubscribeChange
	switch side {
	case Publish:
		if e.refcountPublish > 0 {
			e.refcountPublish--
		}
	case Subscribe:
		if e.refcountSubscribe > 0 {
			e.refcountSubscribe--
			if e.refcountSubscribe == 0 {
				notify = &SubscribeChange{Add: false, Address: addr, Slot: slot, Virtual: virtual}
			}
		}
	}
	check.Assertf(notify == nil || notify.Add || e.refcountSubscribe == 0,
		"slot %d: unsubscribe notification fired but refcount_subscribe=%d",
		slot, e.refcountSubscribe)
	if e.free() {
		*e = entry{}
	}
	return notify, nil
}

// Address returns the address stored at a non-virtual slot.
func (t *Table) Address(slot SlotIndex) (meshnode.Address, bool) {
	if int(slot) < 0 || int(slot) >= len(t.nonVirtual) || t.nonVirtual[slot].free() {
		return 0, false
	}
	return t.nonVirtual[slot].address, true
}

// VirtualAddress returns the address and label stored at a virtual slot.
func (t *Table) VirtualAddress(slot SlotIndex) (meshnode.Address, meshnode.LabelUUID, bool) {
	if int(slot) < 0 || int(slot) >= len(t.virtual) || t.virtual[slot].free() {
		return 0, meshnode.LabelUUID{}, false
	}
	e := t.virtual[slot]
	return e.address, e.label, true
}

// Refcounts returns the (publish, subscribe) refcounts for a
// non-virtual slot, or (0, 0) if the slot is free or out of range.
func (t *Table) Refcounts(slot SlotIndex) (publish, subscribe int) {
	if int(slot) < 0 || int(slot) >= len(t.nonVirtual) {
		return 0, 0
	}
	e := t.nonVirtual[slot]
	return e.refcountPublish, e.refcountSubscribe
}

// VirtualRefcounts returns the (publish, subscribe) refcounts for a virtual slot.
func (t *Table) VirtualRefcounts(slot SlotIndex) (publish, subscribe int) {
	if int(slot) < 0 || int(slot) >= len(t.virtual) {
		return 0, 0
	}
	e := t.virtual[slot]
	return e.refcountPublish, e.refcountSubscribe
}

func firstFree(rows []entry) (int, bool) {
	for i := range rows {
		if rows[i].free() {
			return i, true
		}
	}
	return 0, false
}

// EntrySnapshot is the persisted form of one address table row.
type EntrySnapshot struct {
	Address           meshnode.Address   `json:"address"`
	Label             meshnode.LabelUUID `json:"label"`
	HasLabel          bool               `json:"has_label"`
	RefcountPublish   int                `json:"refcount_publish"`
	RefcountSubscribe int                `json:"refcount_subscribe"`
}

// Snapshot is the persisted form of a Table, split into the two
// datasets spec §4.6 lists (non-virtual and virtual addresses).
type Snapshot struct {
	NonVirtual []EntrySnapshot `json:"non_virtual"`
	Virtual    []EntrySnapshot `json:"virtual"`
}

// Snapshot returns the persisted form of t.
func (t *Table) Snapshot() Snapshot {
	return Snapshot{
		NonVirtual: snapshotRows(t.nonVirtual),
		Virtual:    snapshotRows(t.virtual),
	}
}

func snapshotRows(rows []entry) []EntrySnapshot {
	out := make([]EntrySnapshot, len(rows))
	for i, e := range rows {
		out[i] = EntrySnapshot{
			Address:           e.address,
			Label:             e.label,
			HasLabel:          e.hasLabel,
			RefcountPublish:   e.refcountPublish,
			RefcountSubscribe: e.refcountSubscribe,
		}
	}
	return out
}

// Restore rebuilds a Table from a Snapshot, e.g. after loading the
// non-virtual and virtual address datasets at startup.
func Restore(s Snapshot) *Table {
	return &Table{
		nonVirtual: restoreRows(s.NonVirtual),
		virtual:    restoreRows(s.Virtual),
	}
}

func restoreRows(snaps []EntrySnapshot) []entry {
	out := make([]entry, len(snaps))
	for i, s := range snaps {
		out[i] = entry{
			address:           s.Address,
			label:             s.Label,
			hasLabel:          s.HasLabel,
			refcountPublish:   s.RefcountPublish,
			refcountSubscribe: s.RefcountSubscribe,
		}
	}
	return out
}
