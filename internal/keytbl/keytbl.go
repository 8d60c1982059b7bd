// Package keytbl implements the Key Table of spec component C2:
// NetKey and AppKey entries, each carrying "old" and optional "new"
// key material, plus the NetKey's Key Refresh and Node Identity
// state and the AppKey-to-NetKey bind. NetKey and AppKey indices are
// 16-bit protocol identifiers distinct from the slot they occupy;
// slots are assigned on first Set and freed on Remove.
package keytbl

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/cfgerr"
)

// RefreshState is a NetKey's Key Refresh phase.
type RefreshState int

const (
	NotActive RefreshState = iota
	Phase1
	Phase2
	Phase3
)

func (s RefreshState) String() string {
	switch s {
	case NotActive:
		return "not-active"
	case Phase1:
		return "phase1"
	case Phase2:
		return "phase2"
	case Phase3:
		return "phase3"
	default:
		return "unknown"
	}
}

// NodeIdentityState is the Node Identity advertising state for a NetKey.
type NodeIdentityState int

const (
	NodeIdentityNotSupported NodeIdentityState = iota
	NodeIdentityStopped
	NodeIdentityRunning
)

type netKeyEntry struct {
	occupied     bool
	index        uint16
	keyOld       meshnode.Key
	keyNew       meshnode.Key
	newAvailable bool
	refresh      RefreshState
	nodeIdentity NodeIdentityState
}

type appKeyEntry struct {
	occupied     bool
	index        uint16
	keyOld       meshnode.Key
	keyNew       meshnode.Key
	newAvailable bool
	boundNetSlot int // -1 means unbound
}

// NetKey is a read-only snapshot of one NetKey entry, returned by Get/iteration.
type NetKey struct {
	Index        uint16
	KeyOld       meshnode.Key
	KeyNew       meshnode.Key
	NewAvailable bool
	Refresh      RefreshState
	NodeIdentity NodeIdentityState
}

// AppKey is a read-only snapshot of one AppKey entry.
type AppKey struct {
	Index        uint16
	KeyOld       meshnode.Key
	KeyNew       meshnode.Key
	NewAvailable bool
	BoundNetSlot int
	Bound        bool
}

// Table holds the NetKey and AppKey sub-tables and their cascading
// relationship (removing a NetKey unbinds every AppKey bound to it).
type Table struct {
	netKeys []netKeyEntry
	appKeys []appKeyEntry
}

// New constructs a Table sized for netKeySlots NetKey entries and
// appKeySlots AppKey entries.
func New(netKeySlots, appKeySlots int) *Table {
	t := &Table{
		netKeys: make([]netKeyEntry, netKeySlots),
		appKeys: make([]appKeyEntry, appKeySlots),
	}
	for i := range t.appKeys {
		t.appKeys[i].boundNetSlot = -1
	}
	return t
}

func (t *Table) findNetKey(idx uint16) (int, bool) {
	for i := range t.netKeys {
		if t.netKeys[i].occupied && t.netKeys[i].index == idx {
			return i, true
		}
	}
	return 0, false
}

func (t *Table) findAppKey(idx uint16) (int, bool) {
	for i := range t.appKeys {
		if t.appKeys[i].occupied && t.appKeys[i].index == idx {
			return i, true
		}
	}
	return 0, false
}

// SetNetKey creates a new NetKey entry with key_old := key.
func (t *Table) SetNetKey(idx uint16, key meshnode.Key) (int, error) {
	if _, ok := t.findNetKey(idx); ok {
		return 0, cfgerr.AlreadyExists("net key index %d already set", idx)
	}
	for i := range t.netKeys {
		if !t.netKeys[i].occupied {
			t.netKeys[i] = netKeyEntry{occupied: true, index: idx, keyOld: key}
			return i, nil
		}
	}
	return 0, cfgerr.OutOfMemory("net key table full")
}

// UpdateNetKey sets key_new and new_available for an existing NetKey.
func (t *Table) UpdateNetKey(idx uint16, key meshnode.Key) error {
	slot, ok := t.findNetKey(idx)
	if !ok {
		return cfgerr.NotFound("net key index %d not found", idx)
	}
	e := &t.netKeys[slot]
	if e.newAvailable {
		return cfgerr.AlreadyExists("net key index %d already has new key material", idx)
	}
	e.keyNew = key
	e.newAvailable = true
	return nil
}

// RemoveNetKey removes a NetKey, or if oldOnly promotes key_new to
// key_old. Removing entirely unbinds every AppKey bound to it and
// returns their indices.
func (t *Table) RemoveNetKey(idx uint16, oldOnly bool) ([]uint16, error) {
	slot, ok := t.findNetKey(idx)
	if !ok {
		return nil, cfgerr.NotFound("net key index %d not found", idx)
	}
	e := &t.netKeys[slot]
	if oldOnly {
		if !e.newAvailable {
			return nil, cfgerr.InvalidParams("net key index %d has no new key material to promote", idx)
		}
		e.keyOld = e.keyNew
		e.newAvailable = false
		return nil, nil
	}

	var unbound []uint16
	for i := range t.appKeys {
		if t.appKeys[i].occupied && t.appKeys[i].boundNetSlot == slot {
			t.appKeys[i].boundNetSlot = -1
			unbound = append(unbound, t.appKeys[i].index)
		}
	}
	t.netKeys[slot] = netKeyEntry{}
	return unbound, nil
}

// GetNetKey returns a snapshot of the NetKey with the given index.
func (t *Table) GetNetKey(idx uint16) (NetKey, error) {
	slot, ok := t.findNetKey(idx)
	if !ok {
		return NetKey{}, cfgerr.NotFound("net key index %d not found", idx)
	}
	return snapshotNetKey(t.netKeys[slot]), nil
}

// NetKeyBySlot returns a snapshot of the NetKey occupying slot, used
// by code (bind validation, action-table dispatch) that already holds
// a slot index rather than a protocol index.
func (t *Table) NetKeyBySlot(slot int) (NetKey, bool) {
	if slot < 0 || slot >= len(t.netKeys) || !t.netKeys[slot].occupied {
		return NetKey{}, false
	}
	return snapshotNetKey(t.netKeys[slot]), true
}

// NetKeySlot returns the slot index occupied by the given NetKey
// protocol index, for callers (Network Management's action table)
// that need to address a NetKey by slot across several calls.
func (t *Table) NetKeySlot(idx uint16) (int, bool) {
	return t.findNetKey(idx)
}

// SetNetKeyRefresh sets the Key Refresh state for a NetKey slot.
func (t *Table) SetNetKeyRefresh(slot int, state RefreshState) error {
	if slot < 0 || slot >= len(t.netKeys) || !t.netKeys[slot].occupied {
		return cfgerr.NotFound("net key slot %d not occupied", slot)
	}
	t.netKeys[slot].refresh = state
	return nil
}

// SetNodeIdentity sets the Node Identity state for a NetKey slot.
func (t *Table) SetNodeIdentity(slot int, state NodeIdentityState) error {
	if slot < 0 || slot >= len(t.netKeys) || !t.netKeys[slot].occupied {
		return cfgerr.NotFound("net key slot %d not occupied", slot)
	}
	t.netKeys[slot].nodeIdentity = state
	return nil
}

// PromoteNetKeyOld drops key_old in favor of key_new (the NetKey half
// of the Key Refresh "revoke-old" action).
func (t *Table) PromoteNetKeyOld(slot int) error {
	if slot < 0 || slot >= len(t.netKeys) || !t.netKeys[slot].occupied {
		return cfgerr.NotFound("net key slot %d not occupied", slot)
	}
	e := &t.netKeys[slot]
	if e.newAvailable {
		e.keyOld = e.keyNew
		e.newAvailable = false
	}
	return nil
}

// NextNetKey iterates occupied NetKey slots starting at cursor,
// returning the next entry and the cursor to resume from.
func (t *Table) NextNetKey(cursor int) (NetKey, int, bool) {
	for i := cursor; i < len(t.netKeys); i++ {
		if t.netKeys[i].occupied {
			return snapshotNetKey(t.netKeys[i]), i + 1, true
		}
	}
	return NetKey{}, len(t.netKeys), false
}

func snapshotNetKey(e netKeyEntry) NetKey {
	return NetKey{
		Index:        e.index,
		KeyOld:       e.keyOld,
		KeyNew:       e.keyNew,
		NewAvailable: e.newAvailable,
		Refresh:      e.refresh,
		NodeIdentity: e.nodeIdentity,
	}
}

// SetAppKey creates a new AppKey entry, unbound.
func (t *Table) SetAppKey(idx uint16, key meshnode.Key) (int, error) {
	if _, ok := t.findAppKey(idx); ok {
		return 0, cfgerr.AlreadyExists("app key index %d already set", idx)
	}
	for i := range t.appKeys {
		if !t.appKeys[i].occupied {
			t.appKeys[i] = appKeyEntry{occupied: true, index: idx, keyOld: key, boundNetSlot: -1}
			return i, nil
		}
	}
	return 0, cfgerr.OutOfMemory("app key table full")
}

// UpdateAppKey sets key_new and new_available for an existing AppKey.
func (t *Table) UpdateAppKey(idx uint16, key meshnode.Key) error {
	slot, ok := t.findAppKey(idx)
	if !ok {
		return cfgerr.NotFound("app key index %d not found", idx)
	}
	e := &t.appKeys[slot]
	if e.newAvailable {
		return cfgerr.AlreadyExists("app key index %d already has new key material", idx)
	}
	e.keyNew = key
	e.newAvailable = true
	return nil
}

// RemoveAppKey removes an AppKey entirely, or if oldOnly promotes
// key_new to key_old.
func (t *Table) RemoveAppKey(idx uint16, oldOnly bool) error {
	slot, ok := t.findAppKey(idx)
	if !ok {
		return cfgerr.NotFound("app key index %d not found", idx)
	}
	e := &t.appKeys[slot]
	if oldOnly {
		if !e.newAvailable {
			return cfgerr.InvalidParams("app key index %d has no new key material to promote", idx)
		}
		e.keyOld = e.keyNew
		e.newAvailable = false
		return nil
	}
	t.appKeys[slot] = appKeyEntry{boundNetSlot: -1}
	return nil
}

// PromoteAppKeyOld is the AppKey half of the "revoke-old" action.
func (t *Table) PromoteAppKeyOld(idx uint16) error {
	slot, ok := t.findAppKey(idx)
	if !ok {
		return cfgerr.NotFound("app key index %d not found", idx)
	}
	e := &t.appKeys[slot]
	if e.newAvailable {
		e.keyOld = e.keyNew
		e.newAvailable = false
	}
	return nil
}

// BindAppKey binds an AppKey to an existing NetKey slot. The NetKey
// must already be present.
func (t *Table) BindAppKey(appIdx uint16, netIdx uint16) error {
	appSlot, ok := t.findAppKey(appIdx)
	if !ok {
		return cfgerr.NotFound("app key index %d not found", appIdx)
	}
	netSlot, ok := t.findNetKey(netIdx)
	if !ok {
		return cfgerr.NotFound("net key index %d not found", netIdx)
	}
	t.appKeys[appSlot].boundNetSlot = netSlot
	return nil
}

// AppKeysBoundTo returns the indices of every AppKey bound to the
// given NetKey slot.
func (t *Table) AppKeysBoundTo(netSlot int) []uint16 {
	var bound []uint16
	for i := range t.appKeys {
		if t.appKeys[i].occupied && t.appKeys[i].boundNetSlot == netSlot {
			bound = append(bound, t.appKeys[i].index)
		}
	}
	return bound
}

// GetAppKey returns a snapshot of the AppKey with the given index.
func (t *Table) GetAppKey(idx uint16) (AppKey, error) {
	slot, ok := t.findAppKey(idx)
	if !ok {
		return AppKey{}, cfgerr.NotFound("app key index %d not found", idx)
	}
	return snapshotAppKey(t.appKeys[slot]), nil
}

// NextAppKey iterates occupied AppKey slots starting at cursor.
func (t *Table) NextAppKey(cursor int) (AppKey, int, bool) {
	for i := cursor; i < len(t.appKeys); i++ {
		if t.appKeys[i].occupied {
			return snapshotAppKey(t.appKeys[i]), i + 1, true
		}
	}
	return AppKey{}, len(t.appKeys), false
}

func snapshotAppKey(e appKeyEntry) AppKey {
	return AppKey{
		Index:        e.index,
		KeyOld:       e.keyOld,
		KeyNew:       e.keyNew,
		NewAvailable: e.newAvailable,
		BoundNetSlot: e.boundNetSlot,
		Bound:        e.boundNetSlot >= 0,
	}
}

// NetKeySnapshot is the persisted form of one NetKey slot, occupied or not.
type NetKeySnapshot struct {
	Occupied     bool              `json:"occupied"`
	Index        uint16            `json:"index"`
	KeyOld       meshnode.Key      `json:"key_old"`
	KeyNew       meshnode.Key      `json:"key_new"`
	NewAvailable bool              `json:"new_available"`
	Refresh      RefreshState      `json:"refresh"`
	NodeIdentity NodeIdentityState `json:"node_identity"`
}

// AppKeySnapshot is the persisted form of one AppKey slot, occupied or not.
type AppKeySnapshot struct {
	Occupied     bool         `json:"occupied"`
	Index        uint16       `json:"index"`
	KeyOld       meshnode.Key `json:"key_old"`
	KeyNew       meshnode.Key `json:"key_new"`
	NewAvailable bool         `json:"new_available"`
	BoundNetSlot int          `json:"bound_net_slot"`
}

// Snapshot is the persisted form of a Table, split into the net key
// and app key datasets of spec §4.6. Each AppKey's NetKey bind travels
// in its AppKeySnapshot; the per-model AppKey-bind dataset is
// modeltbl.BindsSnapshot.
type Snapshot struct {
	NetKeys []NetKeySnapshot `json:"net_keys"`
	AppKeys []AppKeySnapshot `json:"app_keys"`
}

// Snapshot returns the persisted form of t.
func (t *Table) Snapshot() Snapshot {
	nk := make([]NetKeySnapshot, len(t.netKeys))
	for i, e := range t.netKeys {
		nk[i] = NetKeySnapshot{
			Occupied:     e.occupied,
			Index:        e.index,
			KeyOld:       e.keyOld,
			KeyNew:       e.keyNew,
			NewAvailable: e.newAvailable,
			Refresh:      e.refresh,
			NodeIdentity: e.nodeIdentity,
		}
	}
	ak := make([]AppKeySnapshot, len(t.appKeys))
	for i, e := range t.appKeys {
		ak[i] = AppKeySnapshot{
			Occupied:     e.occupied,
			Index:        e.index,
			KeyOld:       e.keyOld,
			KeyNew:       e.keyNew,
			NewAvailable: e.newAvailable,
			BoundNetSlot: e.boundNetSlot,
		}
	}
	return Snapshot{NetKeys: nk, AppKeys: ak}
}

// Restore rebuilds a Table from a Snapshot, e.g. after loading the net
// key and app key datasets at startup.
func Restore(s Snapshot) *Table {
	t := &Table{
		netKeys: make([]netKeyEntry, len(s.NetKeys)),
		appKeys: make([]appKeyEntry, len(s.AppKeys)),
	}
	for i, snap := range s.NetKeys {
		t.netKeys[i] = netKeyEntry{
			occupied:     snap.Occupied,
			index:        snap.Index,
			keyOld:       snap.KeyOld,
			keyNew:       snap.KeyNew,
			newAvailable: snap.NewAvailable,
			refresh:      snap.Refresh,
			nodeIdentity: snap.NodeIdentity,
		}
	}
	for i, snap := range s.AppKeys {
		boundNetSlot := snap.BoundNetSlot
		if !snap.Occupied {
			boundNetSlot = -1
		}
		t.appKeys[i] = appKeyEntry{
			occupied:     snap.Occupied,
			index:        snap.Index,
			keyOld:       snap.KeyOld,
			keyNew:       snap.KeyNew,
			newAvailable: snap.NewAvailable,
			boundNetSlot: boundNetSlot,
		}
	}
	return t
}
