// Package hbstate implements spec component C5: the node's single
// heartbeat publication and subscription block. Address fields route
// through an *addrtbl.Table to keep refcounts consistent with every
// other address-slot consumer; all other fields are stored verbatim
// with no semantic enforcement (spec §4.5).
package hbstate

import (
	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/addrtbl"
)

// Publication is the heartbeat publication block.
type Publication struct {
	DestSlot   int // -1 if unassigned
	NetKeySlot int // -1 if unassigned
	FeatureMask uint16
	CountLog   uint8
	PeriodLog  uint8
	TTL        uint8
}

// Subscription is the heartbeat subscription block.
type Subscription struct {
	SourceSlot int // -1 if unassigned
	DestSlot   int // -1 if unassigned
	CountLog   uint8
	PeriodLog  uint8
	MinHops    uint8
	MaxHops    uint8
}

// State holds the node's heartbeat publication and subscription blocks.
type State struct {
	pub Publication
	sub Subscription
}

// New constructs an empty heartbeat State.
func New() *State {
	return &State{
		pub: Publication{DestSlot: -1, NetKeySlot: -1},
		sub: Subscription{SourceSlot: -1, DestSlot: -1},
	}
}

// SetPublishDest sets (or, with UnassignedAddress, clears) the
// publication destination address.
func (s *State) SetPublishDest(addrs *addrtbl.Table, addr meshnode.Address) error {
	if s.pub.DestSlot >= 0 {
		if _, err := addrs.Release(addrtbl.SlotIndex(s.pub.DestSlot), addrtbl.Publish); err != nil {
			return err
		}
		s.pub.DestSlot = -1
	}
	if addr.IsUnassigned() {
		return nil
	}
	slot, _, err := addrs.Insert(addr, addrtbl.Publish)
	if err != nil {
		return err
	}
	s.pub.DestSlot = int(slot)
	return nil
}

// PublishDest returns the current publication destination address.
func (s *State) PublishDest(addrs *addrtbl.Table) meshnode.Address {
	if s.pub.DestSlot < 0 {
		return meshnode.UnassignedAddress
	}
	addr, ok := addrs.Address(addrtbl.SlotIndex(s.pub.DestSlot))
	if !ok {
		return meshnode.UnassignedAddress
	}
	return addr
}

// SetPublishNetKeySlot sets the bound NetKey table slot for publications.
func (s *State) SetPublishNetKeySlot(slot int) { s.pub.NetKeySlot = slot }

// SetPublishParams sets the remaining publication fields verbatim.
func (s *State) SetPublishParams(featureMask uint16, countLog, periodLog, ttl uint8) {
	s.pub.FeatureMask = featureMask
	s.pub.CountLog = countLog
	s.pub.PeriodLog = periodLog
	s.pub.TTL = ttl
}

// Publication returns the current publication block.
func (s *State) Publication() Publication { return s.pub }

// SetSubscribeSource sets (or clears) the subscription source address.
func (s *State) SetSubscribeSource(addrs *addrtbl.Table, addr meshnode.Address) error {
	if s.sub.SourceSlot >= 0 {
		if _, err := addrs.Release(addrtbl.SlotIndex(s.sub.SourceSlot), addrtbl.Subscribe); err != nil {
			return err
		}
		s.sub.SourceSlot = -1
	}
	if addr.IsUnassigned() {
		return nil
	}
	slot, _, err := addrs.Insert(addr, addrtbl.Subscribe)
	if err != nil {
		return err
	}
	s.sub.SourceSlot = int(slot)
	return nil
}

// SetSubscribeDest sets (or clears) the subscription destination address.
func (s *State) SetSubscribeDest(addrs *addrtbl.Table, addr meshnode.Address) error {
	if s.sub.DestSlot >= 0 {
		if _, err := addrs.Release(addrtbl.SlotIndex(s.sub.DestSlot), addrtbl.Subscribe); err != nil {
			return err
		}
		s.sub.DestSlot = -1
	}
	if addr.IsUnassigned() {
		return nil
	}
	slot, _, err := addrs.Insert(addr, addrtbl.Subscribe)
	if err != nil {
		return err
	}
	s.sub.DestSlot = int(slot)
	return nil
}

// SetSubscribeParams sets the remaining subscription fields verbatim.
func (s *State) SetSubscribeParams(countLog, periodLog, minHops, maxHops uint8) {
	s.sub.CountLog = countLog
	s.sub.PeriodLog = periodLog
	s.sub.MinHops = minHops
	s.sub.MaxHops = maxHops
}

// Subscription returns the current subscription block.
func (s *State) Subscription() Subscription { return s.sub }

// Snapshot is the persisted form of a State (spec §4.6's heartbeat dataset).
type Snapshot struct {
	Publication  Publication  `json:"publication"`
	Subscription Subscription `json:"subscription"`
}

// Snapshot returns the persisted form of s.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Publication: s.pub, Subscription: s.sub}
}

// Restore rebuilds a State from a Snapshot.
func Restore(snap Snapshot) *State {
	return &State{pub: snap.Publication, sub: snap.Subscription}
}
