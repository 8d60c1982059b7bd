// Package ports is the capability set spec §6 requires the core to be
// given rather than to own: persistence, timers, dispatch, the SAR
// gate, derived-key eviction, beacon fan-out, and friendship
// notifications. The radio/GATT bearers, crypto primitives, NVM byte
// driver, SAR engines, and beacon scheduler themselves stay external
// collaborators (spec §1); only their interfaces live here.
package ports

import "context"

// Dataset identifies one of the logical persistence datasets of
// spec §6. Values are stable across restarts and persistence backends.
type Dataset uint64

const (
	DatasetCoreConfig Dataset = iota + 1
	DatasetNetKeys
	DatasetAppKeys
	DatasetAppKeyBinds
	DatasetNonVirtualAddresses
	DatasetVirtualAddresses
	DatasetSubscriptions
	DatasetSeqThresholds
	DatasetModelTable
	DatasetHeartbeat
)

func (d Dataset) String() string {
	switch d {
	case DatasetCoreConfig:
		return "core-config"
	case DatasetNetKeys:
		return "netkeys"
	case DatasetAppKeys:
		return "appkeys"
	case DatasetAppKeyBinds:
		return "appkey-binds"
	case DatasetNonVirtualAddresses:
		return "nonvirtual-addresses"
	case DatasetVirtualAddresses:
		return "virtual-addresses"
	case DatasetSubscriptions:
		return "subscriptions"
	case DatasetSeqThresholds:
		return "seq-thresholds"
	case DatasetModelTable:
		return "model-table"
	case DatasetHeartbeat:
		return "heartbeat"
	default:
		return "unknown-dataset"
	}
}

// Persistence is the C6 collaborator interface: write_dataset /
// read_dataset / erase_dataset. A write is durable before it returns:
// a reader after restart either sees the pre-write bytes or the
// fully-applied bytes for that dataset, never a torn mix.
type Persistence interface {
	Write(dataset Dataset, data []byte) error
	Read(dataset Dataset) (data []byte, found bool, err error)
	Erase(dataset Dataset) error
	EraseAll() error
}

// TimerID names one of the node's guard/cooperative timers.
type TimerID uint8

const (
	TimerIVUpdateGuard TimerID = iota + 1
	TimerIVRecoverGuard
	TimerAttention
)

// Timer is the scheduler collaborator: timer_start_sec / timer_stop.
// Expiry is delivered back to the dispatch thread as a message, never
// by calling into the core synchronously from the timer callback
// (spec §5).
type Timer interface {
	Start(id TimerID, seconds uint32)
	Stop(id TimerID)
}

// Dispatcher is post_message: hands an event to the single dispatch
// thread. Implementations must not invoke it reentrantly from within
// a call already running on that thread.
type Dispatcher interface {
	Post(ctx context.Context, event any)
}

// SARGate is the segmentation/reassembly transmit gate spec §4.8
// drives during Update→Normal deferral.
type SARGate interface {
	Reset()
	RejectIncoming()
	AcceptIncoming()
}

// KeyMaterialKind distinguishes NetKey- from AppKey-derived material
// for sec_remove_key_material.
type KeyMaterialKind uint8

const (
	KeyMaterialNetKey KeyMaterialKind = iota + 1
	KeyMaterialAppKey
)

// KeyMaterial lets the Key Refresh revoke action evict crypto-derived
// material the core itself never computes (spec §1 out-of-scope:
// AES/CMAC primitives).
type KeyMaterial interface {
	RemoveDerived(kind KeyMaterialKind, index int, oldOnly bool)
}

// AllNetKeys is the sentinel netKeyIndex meaning "every NetKey" for
// BeaconFanout.Trigger, matching nwk_beacon_trigger_send(ALL).
const AllNetKeys = -1

// BeaconFanout is nwk_beacon_trigger_send: fan out a Secure Network
// Beacon after a state change, either for one NetKey slot or for all
// of them (pass AllNetKeys).
type BeaconFanout interface {
	Trigger(netKeyIndex int)
}

// Friendship is the optional Friend-feature notification surface.
// A node with no Friend feature compiled in uses NopFriendship.
type Friendship interface {
	SubscribeChange(add bool, address uint16, slot int)
	SecurityChange(ivChanged, keyChanged bool, netKeyIndex int)
}

// NopFriendship is the default Friendship implementation for nodes
// that do not support the Friend feature.
type NopFriendship struct{}

func (NopFriendship) SubscribeChange(bool, uint16, int)  {}
func (NopFriendship) SecurityChange(bool, bool, int)     {}

var _ Friendship = NopFriendship{}
