// Package localconfig wires the C1-C5 tables, the C6 persistence
// broker, the C7 sequence monitor, and the C8 network management
// state machine into the single owning aggregate a node is built
// from: Node. Every mutating method persists the datasets it touches
// before returning, mirroring the teacher's single-owning-Controller
// shape (internal/network/controller.go) generalized across every
// table instead of one.
package localconfig

import (
	"encoding/json"
	"log/slog"

	"github.com/packetcraft-inc/meshnode/internal/addrtbl"
	"github.com/packetcraft-inc/meshnode/internal/cfgerr"
	"github.com/packetcraft-inc/meshnode/internal/dimcfg"
	"github.com/packetcraft-inc/meshnode/internal/elemstate"
	"github.com/packetcraft-inc/meshnode/internal/hbstate"
	"github.com/packetcraft-inc/meshnode/internal/keytbl"
	"github.com/packetcraft-inc/meshnode/internal/modeltbl"
	"github.com/packetcraft-inc/meshnode/internal/netmgmt"
	"github.com/packetcraft-inc/meshnode/internal/ports"
	"github.com/packetcraft-inc/meshnode/internal/seqmon"
)

// coreConfigSnapshot is the persisted form of the "top-level config
// scalars" dataset spec §4.6 names: the elemstate feature scalars and
// the netmgmt IV state, which otherwise have no table of their own.
type coreConfigSnapshot struct {
	Features elemstate.Features `json:"features"`
	IV       uint32             `json:"iv"`
	IVUpdate bool               `json:"iv_update_in_progress"`
}

// Deps bundles the external collaborators spec §6 requires a Node to
// be given rather than to own.
type Deps struct {
	Store   ports.Persistence
	Timer   ports.Timer
	Beacons ports.BeaconFanout
	Friend  ports.Friendship
	KeyMat  ports.KeyMaterial
	SAR     ports.SARGate
}

// Node is the owning aggregate of a single mesh node's configuration
// store and network management state machine.
type Node struct {
	dims   dimcfg.Config
	deps   Deps
	log    *slog.Logger
	addrs  *addrtbl.Table
	keys   *keytbl.Table
	models *modeltbl.Table
	elems  *elemstate.State
	hb     *hbstate.State
	seq    *seqmon.Monitor
	net    *netmgmt.Machine
}

// Open constructs a Node sized per dims with model instances models,
// loading every persisted dataset that Deps.Store already has from a
// prior run. A dataset Read returns found=false for a fresh store, in
// which case the freshly-constructed table's zero state is used and
// the dataset is written out on the first mutation.
func Open(dims dimcfg.Config, models []modeltbl.InstanceKey, deps Deps) (*Node, error) {
	if err := dimcfg.Validate(dims); err != nil {
		return nil, err
	}

	n := &Node{
		dims:   dims,
		deps:   deps,
		log:    slog.Default().With("component", "localconfig"),
		addrs:  addrtbl.New(dims.NonVirtualAddresses, dims.VirtualAddresses),
		keys:   keytbl.New(dims.NetKeys, dims.AppKeys),
		models: modeltbl.New(models, dims.SubscriptionSlots, dims.AppKeyBindSlots),
		elems:  elemstate.New(dims.Elements, dims.SeqNVMIncrement),
		hb:     hbstate.New(),
		seq:    seqmon.New(dims.SeqThresholdLow, dims.SeqThresholdHigh),
	}

	var coreConfig coreConfigSnapshot
	if err := n.loadInto(ports.DatasetCoreConfig, &coreConfig); err != nil {
		return nil, err
	}
	applyFeatures(n.elems, coreConfig.Features)

	var addrSnap addrtbl.Snapshot
	if found, err := n.loadDataset(ports.DatasetNonVirtualAddresses, &addrSnap.NonVirtual); err != nil {
		return nil, err
	} else if found {
		if _, err := n.loadDataset(ports.DatasetVirtualAddresses, &addrSnap.Virtual); err != nil {
			return nil, err
		}
		n.addrs = addrtbl.Restore(addrSnap)
	}

	var netKeys []keytbl.NetKeySnapshot
	var appKeys []keytbl.AppKeySnapshot
	foundNet, err := n.loadDataset(ports.DatasetNetKeys, &netKeys)
	if err != nil {
		return nil, err
	}
	foundApp, err := n.loadDataset(ports.DatasetAppKeys, &appKeys)
	if err != nil {
		return nil, err
	}
	if foundNet || foundApp {
		n.keys = keytbl.Restore(keytbl.Snapshot{NetKeys: netKeys, AppKeys: appKeys})
	}

	var modelSnap modeltbl.Snapshot
	var subsSnap modeltbl.SubscriptionsSnapshot
	var bindsSnap modeltbl.BindsSnapshot
	foundModels, err := n.loadDataset(ports.DatasetModelTable, &modelSnap.Instances)
	if err != nil {
		return nil, err
	}
	if foundModels {
		if _, err := n.loadDataset(ports.DatasetSubscriptions, &subsSnap.Groups); err != nil {
			return nil, err
		}
		if _, err := n.loadDataset(ports.DatasetAppKeyBinds, &bindsSnap.Binds); err != nil {
			return nil, err
		}
		n.models = modeltbl.Restore(modelSnap, subsSnap, bindsSnap)
	}

	var thresholds []uint32
	if found, err := n.loadDataset(ports.DatasetSeqThresholds, &thresholds); err != nil {
		return nil, err
	} else if found {
		n.elems = elemstate.Restore(elemstate.Snapshot{
			Thresholds: thresholds,
			Increment:  dims.SeqNVMIncrement,
			Features:   coreConfig.Features,
		})
	}

	var hbSnap hbstate.Snapshot
	if found, err := n.loadDataset(ports.DatasetHeartbeat, &hbSnap); err != nil {
		return nil, err
	} else if found {
		n.hb = hbstate.Restore(hbSnap)
	}

	n.net = netmgmt.New(netmgmt.Config{
		Keys:                  n.keys,
		Elems:                 n.elems,
		Seq:                   n.seq,
		Timer:                 deps.Timer,
		Beacons:               deps.Beacons,
		Friend:                deps.Friend,
		KeyMat:                deps.KeyMat,
		SAR:                   deps.SAR,
		IVUpdateGuardSeconds:  dims.IVUpdateGuardSeconds,
		IVRecoverGuardSeconds: dims.IVRecoverGuardSeconds,
		GuardsDisabled:        dims.GuardTimersDisabled,
	})
	n.net.RestoreIV(coreConfig.IV, coreConfig.IVUpdate)

	return n, nil
}

func applyFeatures(s *elemstate.State, f elemstate.Features) {
	s.SetProductInfo(f.Product)
	s.SetDefaultTTL(f.DefaultTTL)
	s.SetRelay(f.Relay, f.RelayRetransmitCount, f.RelayRetransmitSteps)
	s.SetBeacon(f.Beacon)
	s.SetGATTProxy(f.GATTProxy)
	s.SetFriend(f.Friend)
	s.SetLowPower(f.LowPower)
	s.SetNetworkTransmit(f.NetworkTransmitCount, f.NetworkTransmitSteps)
}

// loadInto reads a dataset and JSON-decodes it into v if present,
// leaving v untouched for a fresh store.
func (n *Node) loadInto(dataset ports.Dataset, v any) error {
	_, err := n.loadDataset(dataset, v)
	return err
}

func (n *Node) loadDataset(dataset ports.Dataset, v any) (bool, error) {
	data, found, err := n.deps.Store.Read(dataset)
	if err != nil {
		return false, cfgerr.InvalidConfig("read dataset %s: %v", dataset, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, cfgerr.InvalidConfig("decode dataset %s: %v", dataset, err)
	}
	return true, nil
}

// persist marshals v and writes it to dataset, logging (but not
// failing the caller) on error — spec §4.8: persistence failure is
// non-fatal to in-memory state, surfaced only as a log line.
func (n *Node) persist(dataset ports.Dataset, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		n.log.Error("encode dataset", "dataset", dataset, "err", err)
		return
	}
	if err := n.deps.Store.Write(dataset, data); err != nil {
		n.log.Error("persist dataset", "dataset", dataset, "err", err)
	}
}

func (n *Node) persistAddresses() {
	snap := n.addrs.Snapshot()
	n.persist(ports.DatasetNonVirtualAddresses, snap.NonVirtual)
	n.persist(ports.DatasetVirtualAddresses, snap.Virtual)
}

func (n *Node) persistNetKeys() {
	n.persist(ports.DatasetNetKeys, n.keys.Snapshot().NetKeys)
}

func (n *Node) persistAppKeys() {
	n.persist(ports.DatasetAppKeys, n.keys.Snapshot().AppKeys)
}

func (n *Node) persistModels() {
	n.persist(ports.DatasetModelTable, n.models.Snapshot().Instances)
	n.persist(ports.DatasetSubscriptions, n.models.SubscriptionsSnapshot().Groups)
}

func (n *Node) persistAppKeyBinds() {
	n.persist(ports.DatasetAppKeyBinds, n.models.BindsSnapshot().Binds)
}

func (n *Node) persistSeqThresholds() {
	n.persist(ports.DatasetSeqThresholds, n.elems.Snapshot().Thresholds)
}

func (n *Node) persistHeartbeat() {
	n.persist(ports.DatasetHeartbeat, n.hb.Snapshot())
}

func (n *Node) persistCoreConfig() {
	iv, inProgress := n.net.IV()
	n.persist(ports.DatasetCoreConfig, coreConfigSnapshot{
		Features: n.elems.Features(),
		IV:       iv,
		IVUpdate: inProgress,
	})
}

// AddressSnapshot returns the current contents of the address table,
// for read-only introspection (internal/admin's table dump).
func (n *Node) AddressSnapshot() addrtbl.Snapshot {
	return n.addrs.Snapshot()
}

// KeySnapshot returns the current contents of the key table, for
// read-only introspection.
func (n *Node) KeySnapshot() keytbl.Snapshot {
	return n.keys.Snapshot()
}

func (n *Node) notify(change *addrtbl.SubscribeChange) {
	if change == nil {
		return
	}
	n.deps.Friend.SubscribeChange(change.Add, uint16(change.Address), int(change.Slot))
}

// EraseAll wipes every persisted dataset (spec §4.6 erase_all). It
// does not reset the in-memory tables.
func (n *Node) EraseAll() error {
	return n.deps.Store.EraseAll()
}
