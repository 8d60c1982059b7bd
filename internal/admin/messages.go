package admin

import "github.com/packetcraft-inc/meshnode/internal/modeltbl"

// AddressRow is one entry of a DumpAddressTable reply.
type AddressRow struct {
	Slot              int    `json:"slot"`
	Address           uint16 `json:"address"`
	Virtual           bool   `json:"virtual"`
	Label             string `json:"label,omitempty"`
	RefcountPublish   int    `json:"refcount_publish"`
	RefcountSubscribe int    `json:"refcount_subscribe"`
}

type DumpAddressTableRequest struct{}

type DumpAddressTableResponse struct {
	Rows []AddressRow `json:"rows"`
}

// NetKeyRow and AppKeyRow are one entry each of a DumpKeyTable reply.
type NetKeyRow struct {
	Index        uint16 `json:"index"`
	NewAvailable bool   `json:"new_available"`
	Refresh      string `json:"refresh"`
	NodeIdentity string `json:"node_identity"`
}

type AppKeyRow struct {
	Index        uint16 `json:"index"`
	NewAvailable bool   `json:"new_available"`
	Bound        bool   `json:"bound"`
	BoundNetSlot int    `json:"bound_net_slot"`
}

type DumpKeyTableRequest struct{}

type DumpKeyTableResponse struct {
	NetKeys []NetKeyRow `json:"net_keys"`
	AppKeys []AppKeyRow `json:"app_keys"`
}

// ModelRow is one entry of a DumpModelTable reply.
type ModelRow struct {
	Element        int    `json:"element"`
	ModelID        uint32 `json:"model_id"`
	IsSIG          bool   `json:"is_sig"`
	PublishAddress uint16 `json:"publish_address"`
	SubscribeUsed  int    `json:"subscribe_used"`
	SubscribeTotal int    `json:"subscribe_total"`
}

type DumpModelTableRequest struct {
	Instances []modeltbl.InstanceKey `json:"instances"`
}

type DumpModelTableResponse struct {
	Rows []ModelRow `json:"rows"`
}

type DumpSequenceStateRequest struct {
	Elements int `json:"elements"`
}

// SequenceRow is one element's sequence counter.
type SequenceRow struct {
	Element int    `json:"element"`
	Seq     uint32 `json:"seq"`
}

type DumpSequenceStateResponse struct {
	Rows []SequenceRow `json:"rows"`
}

type DumpNetworkManagementStateRequest struct{}

type DumpNetworkManagementStateResponse struct {
	IVIndex          uint32 `json:"iv_index"`
	IVUpdateInProgress bool `json:"iv_update_in_progress"`
}

// InjectBeaconRequest carries a decoded Secure Network Beacon tuple
// for feeding into network management without a radio, mirroring
// original_source's MESH_TEST_SEC_NWK_BEACON_RCVD_IND.
type InjectBeaconRequest struct {
	NetKeyIndex    int    `json:"net_key_index"`
	NewKeyUsed     bool   `json:"new_key_used"`
	IVIndex        uint32 `json:"iv_index"`
	KeyRefreshFlag bool   `json:"key_refresh_flag"`
	IVUpdateFlag   bool   `json:"iv_update_flag"`
}

type InjectBeaconResponse struct{}

// GuardTimer names one of the guard timers FireGuardTimer can force.
type GuardTimer int

const (
	GuardTimerIVUpdate GuardTimer = iota + 1
	GuardTimerIVRecover
)

type FireGuardTimerRequest struct {
	Timer GuardTimer `json:"timer"`
}

type FireGuardTimerResponse struct{}
