// Package elemstate implements spec component C4: per-element
// attention timers and sequence-number counters with NVM-write
// thresholds, plus the node-wide feature-state scalars the original
// local config store tracks alongside them (default TTL, relay,
// Secure Network Beacon, GATT proxy, Friend, Low Power, network and
// relay retransmit parameters, and basic product information).
package elemstate

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/cfgerr"
)

// FeatureState is a tri-state compile/runtime feature switch.
type FeatureState uint8

const (
	FeatureNotSupported FeatureState = iota
	FeatureDisabled
	FeatureEnabled
)

// ProductInfo is static identification stored alongside feature state.
type ProductInfo struct {
	CompanyID  uint16
	ProductID  uint16
	VersionID  uint16
	ReplayCap  uint16
	FeaturesOn uint16
}

// Features holds the node-wide feature-state scalars.
type Features struct {
	Product               ProductInfo
	DefaultTTL            uint8
	Relay                 FeatureState
	RelayRetransmitCount  uint8
	RelayRetransmitSteps  uint8
	Beacon                FeatureState
	GATTProxy             FeatureState
	Friend                FeatureState
	LowPower              FeatureState
	NetworkTransmitCount  uint8
	NetworkTransmitSteps  uint8
}

// State is the per-element attention/sequence state plus node-wide
// feature scalars.
type State struct {
	attention []uint8
	seq       []uint32
	threshold []uint32
	increment uint32
	features  Features
}

// New constructs a State for the given element count. increment is
// the sequence-number NVM write increment (dimcfg.Config.SeqNVMIncrement).
func New(elements int, increment uint32) *State {
	return &State{
		attention: make([]uint8, elements),
		seq:       make([]uint32, elements),
		threshold: make([]uint32, elements),
		increment: increment,
	}
}

func (s *State) checkElement(elem int) error {
	if elem < 0 || elem >= len(s.attention) {
		return cfgerr.InvalidParams("unknown element id %d", elem)
	}
	return nil
}

// SetAttention sets element's attention countdown. A nonzero value
// arms the 1 Hz cooperative timer; the returned armTimer flag tells
// the caller to start TimerAttention for 1 second if it is not
// already running. Setting to zero cancels the timer and returns an
// AttentionChanged(off) event immediately.
func (s *State) SetAttention(elem int, seconds uint8) (event *meshnode.AttentionChanged, armTimer bool, err error) {
	if err := s.checkElement(elem); err != nil {
		return nil, false, err
	}
	wasActive := s.anyAttentionActive()
	s.attention[elem] = seconds
	if seconds == 0 {
		return &meshnode.AttentionChanged{ElementID: elem, On: false}, false, nil
	}
	return nil, !wasActive, nil
}

// Attention returns element's current countdown value.
func (s *State) Attention(elem int) (uint8, error) {
	if err := s.checkElement(elem); err != nil {
		return 0, err
	}
	return s.attention[elem], nil
}

func (s *State) anyAttentionActive() bool {
	for _, v := range s.attention {
		if v > 0 {
			return true
		}
	}
	return false
}

// Tick decrements every active attention countdown by one second,
// emitting AttentionChanged(off) for any element that reaches zero.
// continueTimer reports whether the caller should re-arm
// TimerAttention for another second.
func (s *State) Tick() (events []meshnode.AttentionChanged, continueTimer bool) {
	for elem := range s.attention {
		if s.attention[elem] == 0 {
			continue
		}
		s.attention[elem]--
		if s.attention[elem] == 0 {
			events = append(events, meshnode.AttentionChanged{ElementID: elem, On: false})
		}
	}
	return events, s.anyAttentionActive()
}

// SetSeq sets element's in-RAM sequence counter and computes the next
// NVM-persisted threshold: the smallest multiple of the configured
// increment strictly greater than seq.
func (s *State) SetSeq(elem int, seq uint32) (thresholdToPersist uint32, err error) {
	if err := s.checkElement(elem); err != nil {
		return 0, err
	}
	s.seq[elem] = seq
	next := (seq/s.increment + 1) * s.increment
	s.threshold[elem] = next
	return next, nil
}

// Seq returns element's in-RAM sequence counter.
func (s *State) Seq(elem int) (uint32, error) {
	if err := s.checkElement(elem); err != nil {
		return 0, err
	}
	return s.seq[elem], nil
}

// Threshold returns element's last-computed NVM threshold.
func (s *State) Threshold(elem int) (uint32, error) {
	if err := s.checkElement(elem); err != nil {
		return 0, err
	}
	return s.threshold[elem], nil
}

// RestoreThreshold reloads element's in-RAM counter from a threshold
// read back from persistence after restart — a safe overestimate of
// the true last-used sequence number.
func (s *State) RestoreThreshold(elem int, threshold uint32) error {
	if err := s.checkElement(elem); err != nil {
		return err
	}
	s.seq[elem] = threshold
	s.threshold[elem] = threshold
	return nil
}

// ResetAllSeq zeroes every element's sequence counter and threshold,
// used by IV recovery and by the Update→Normal transition.
func (s *State) ResetAllSeq() {
	for i := range s.seq {
		s.seq[i] = 0
		s.threshold[i] = 0
	}
}

// Features returns the current node-wide feature-state snapshot.
func (s *State) Features() Features {
	return s.features
}

// SetDefaultTTL sets the node's default TTL.
func (s *State) SetDefaultTTL(ttl uint8) { s.features.DefaultTTL = ttl }

// SetRelay sets the Relay feature state and retransmit parameters.
func (s *State) SetRelay(state FeatureState, retransmitCount, retransmitSteps uint8) {
	s.features.Relay = state
	s.features.RelayRetransmitCount = retransmitCount
	s.features.RelayRetransmitSteps = retransmitSteps
}

// SetBeacon sets the Secure Network Beacon feature state.
func (s *State) SetBeacon(state FeatureState) { s.features.Beacon = state }

// SetGATTProxy sets the GATT Proxy feature state.
func (s *State) SetGATTProxy(state FeatureState) { s.features.GATTProxy = state }

// SetFriend sets the Friend feature state.
func (s *State) SetFriend(state FeatureState) { s.features.Friend = state }

// SetLowPower sets the Low Power feature state.
func (s *State) SetLowPower(state FeatureState) { s.features.LowPower = state }

// SetNetworkTransmit sets the network PDU transmit count/interval.
func (s *State) SetNetworkTransmit(count, steps uint8) {
	s.features.NetworkTransmitCount = count
	s.features.NetworkTransmitSteps = steps
}

// SetProductInfo sets the static product information record.
func (s *State) SetProductInfo(info ProductInfo) { s.features.Product = info }

// ElementForAddress resolves which element index, if any, owns addr
// given the node's primary unicast address. An element's address is
// primary+index; this is only meaningful once primary is a unicast
// address.
func ElementForAddress(primary, addr meshnode.Address, elementCount int) (int, bool) {
	if !primary.IsUnicast() || !addr.IsUnicast() {
		return 0, false
	}
	if addr < primary {
		return 0, false
	}
	offset := int(addr - primary)
	if offset >= elementCount {
		return 0, false
	}
	return offset, true
}

// Snapshot is the persisted form of a State: the per-element sequence
// thresholds (spec §4.4) plus the feature-state scalars. Attention
// countdowns are runtime-only and are not part of it.
type Snapshot struct {
	Thresholds []uint32 `json:"thresholds"`
	Increment  uint32   `json:"increment"`
	Features   Features `json:"features"`
}

// Snapshot returns the persisted form of s.
func (s *State) Snapshot() Snapshot {
	thresholds := make([]uint32, len(s.threshold))
	copy(thresholds, s.threshold)
	return Snapshot{Thresholds: thresholds, Increment: s.increment, Features: s.features}
}

// Restore rebuilds a State from a Snapshot taken at startup, seeding
// every element's in-RAM sequence counter from its persisted
// threshold (RestoreThreshold's overestimate) and reapplying the
// feature-state scalars.
func Restore(snap Snapshot) *State {
	s := New(len(snap.Thresholds), snap.Increment)
	for elem, threshold := range snap.Thresholds {
		s.seq[elem] = threshold
		s.threshold[elem] = threshold
	}
	s.features = snap.Features
	return s
}
