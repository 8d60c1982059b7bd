// Package netmgmt implements the Network Management state machine of
// spec component C8: IV-index updates, IV recovery, and Key Refresh
// phase transitions, driven by Secure Network Beacons, sequence-number
// pressure (C7), and guard timers. A Machine is the single owner of
// this protocol state; every externally-visible method runs to
// completion without suspending, per the single dispatch thread
// model — collaborators (timers, beacons, friendship, SAR gate, key
// material eviction) are called synchronously and must not re-enter
// a Machine method from within their own call.
package netmgmt

import (
	"encoding/binary"

	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/cfgerr"
	"github.com/packetcraft-inc/meshnode/internal/elemstate"
	"github.com/packetcraft-inc/meshnode/internal/keytbl"
	"github.com/packetcraft-inc/meshnode/internal/ports"
	"github.com/packetcraft-inc/meshnode/internal/seqmon"
)

// primaryNetKeyIndex is the NetKey index of the primary subnet
// (subnet 0), the only subnet whose beacons drive the node's IV state.
const primaryNetKeyIndex uint16 = 0

// Beacon is the decoded, already-authenticated Secure Network Beacon
// tuple the external bearer hands to Network Management.
type Beacon struct {
	NetKeyIndex    int
	NewKeyUsed     bool
	IVIndex        uint32
	KeyRefreshFlag bool
	IVUpdateFlag   bool
	NetworkID      [8]byte
}

// BeaconPayload is the 13-byte Secure Network Beacon wire payload
// (flags, network ID, IV index), already authenticated and stripped
// of its MIC by the external bearer before reaching this package.
type BeaconPayload struct {
	KeyRefreshFlag bool
	IVUpdateFlag   bool
	IVIndex        uint32
	NetworkID      [8]byte
}

// DecodeBeaconPayload parses the 13-byte Secure Network Beacon
// payload. It does not and cannot recover NetKeyIndex or NewKeyUsed:
// those are established by the authentication step that selected
// which NetKey (and old- or new-key material) validated this beacon.
func DecodeBeaconPayload(data []byte) (BeaconPayload, error) {
	if len(data) != 13 {
		return BeaconPayload{}, cfgerr.InvalidParams("secure network beacon payload must be 13 bytes, got %d", len(data))
	}
	var p BeaconPayload
	flags := data[0]
	p.KeyRefreshFlag = flags&0x01 != 0
	p.IVUpdateFlag = flags&0x02 != 0
	copy(p.NetworkID[:], data[1:9])
	p.IVIndex = binary.BigEndian.Uint32(data[9:13])
	return p, nil
}

// NewBeacon combines an authenticated beacon payload with the
// netKeyIndex/newKeyUsed context established during authentication.
func NewBeacon(netKeyIndex int, newKeyUsed bool, payload BeaconPayload) Beacon {
	return Beacon{
		NetKeyIndex:    netKeyIndex,
		NewKeyUsed:     newKeyUsed,
		IVIndex:        payload.IVIndex,
		KeyRefreshFlag: payload.KeyRefreshFlag,
		IVUpdateFlag:   payload.IVUpdateFlag,
		NetworkID:      payload.NetworkID,
	}
}

// Machine is the C8 state machine. It holds the IV operating state
// directly and reaches into the Key Table (for Key Refresh state),
// the Element state (for sequence-number resets), and the Sequence
// Monitor (to rearm its latches) as internal collaborators, plus the
// out-of-process ports collaborators for everything the core does
// not own.
type Machine struct {
	keys  *keytbl.Table
	elems *elemstate.State
	seq   *seqmon.Monitor

	timer   ports.Timer
	beacons ports.BeaconFanout
	friend  ports.Friendship
	keymat  ports.KeyMaterial
	sar     ports.SARGate

	ivUpdateGuardSeconds  uint32
	ivRecoverGuardSeconds uint32
	guardsDisabled        bool

	iv                 uint32
	ivUpdateInProgress bool
	ivUpdateGuardArmed bool
	ivRecoverGuardArmed bool
	transPending       bool
	sarTxDisallowed    bool
}

// Config bundles Machine's construction-time parameters.
type Config struct {
	Keys    *keytbl.Table
	Elems   *elemstate.State
	Seq     *seqmon.Monitor
	Timer   ports.Timer
	Beacons ports.BeaconFanout
	Friend  ports.Friendship
	KeyMat  ports.KeyMaterial
	SAR     ports.SARGate

	IVUpdateGuardSeconds  uint32
	IVRecoverGuardSeconds uint32
	GuardsDisabled        bool
}

// New constructs a Machine starting in Normal with iv=0.
func New(cfg Config) *Machine {
	return &Machine{
		keys:                  cfg.Keys,
		elems:                 cfg.Elems,
		seq:                   cfg.Seq,
		timer:                 cfg.Timer,
		beacons:               cfg.Beacons,
		friend:                cfg.Friend,
		keymat:                cfg.KeyMat,
		sar:                   cfg.SAR,
		ivUpdateGuardSeconds:  cfg.IVUpdateGuardSeconds,
		ivRecoverGuardSeconds: cfg.IVRecoverGuardSeconds,
		guardsDisabled:        cfg.GuardsDisabled,
	}
}

// IV reports the current IV index and whether an IV update is in progress.
func (m *Machine) IV() (index uint32, updateInProgress bool) {
	return m.iv, m.ivUpdateInProgress
}

// RestoreIV seeds the machine's IV state from persistence at startup,
// bypassing the transition machinery (no beacons/friendship fire).
func (m *Machine) RestoreIV(index uint32, updateInProgress bool) {
	m.iv = index
	m.ivUpdateInProgress = updateInProgress
}

// TransPending reports whether a deferred IV transition is waiting
// for its guard timer or for SAR-Tx to allow it.
func (m *Machine) TransPending() bool { return m.transPending }

// HandleSeqEvent processes a ThresholdExceeded notification from the
// Sequence Monitor (spec §4.8 trigger 1), returning the IvUpdated
// event to emit if the IV index advanced immediately.
func (m *Machine) HandleSeqEvent(ev seqmon.Event) *meshnode.IvUpdated {
	switch ev.Threshold {
	case seqmon.Low:
		if m.onPrimarySubnet() && !m.ivUpdateInProgress {
			return m.requestTransition(true)
		}
	case seqmon.High:
		if m.ivUpdateInProgress {
			return m.requestTransition(false)
		}
	}
	return nil
}

func (m *Machine) onPrimarySubnet() bool {
	_, err := m.keys.GetNetKey(primaryNetKeyIndex)
	return err == nil
}

// requestTransition performs an IV-state transition immediately, or
// defers it (spec §4.8 "Transition requests") if the guard is armed
// or SAR-Tx has disallowed it. It returns the IvUpdated event to emit
// if the transition ran immediately and advanced the IV index.
func (m *Machine) requestTransition(toUpdate bool) *meshnode.IvUpdated {
	if !m.ivUpdateGuardArmed && !m.sarTxDisallowed {
		return m.performTransition(toUpdate)
	}
	m.transPending = true
	if !toUpdate {
		m.sar.RejectIncoming()
	}
	return nil
}

// performTransition runs the Update/Normal transition and returns the
// IvUpdated event when it is the Update step, which is the only
// direction that actually advances the IV index; reverting to Normal
// leaves the index unchanged.
func (m *Machine) performTransition(toUpdate bool) *meshnode.IvUpdated {
	var event *meshnode.IvUpdated
	if toUpdate {
		m.iv++
		m.ivUpdateInProgress = true
		event = &meshnode.IvUpdated{NewIV: m.iv}
	} else {
		m.ivUpdateInProgress = false
		m.elems.ResetAllSeq()
		m.seq.ResetAll()
		m.sar.Reset()
	}
	m.beacons.Trigger(ports.AllNetKeys)
	m.friend.SecurityChange(true, false, ports.AllNetKeys)
	m.armIVUpdateGuard()
	m.transPending = false
	return event
}

func (m *Machine) armIVUpdateGuard() {
	if m.guardsDisabled {
		return
	}
	m.ivUpdateGuardArmed = true
	m.timer.Start(ports.TimerIVUpdateGuard, m.ivUpdateGuardSeconds)
}

func (m *Machine) armIVRecoverGuard() {
	if m.guardsDisabled {
		return
	}
	m.ivRecoverGuardArmed = true
	m.timer.Start(ports.TimerIVRecoverGuard, m.ivRecoverGuardSeconds)
}

// IVUpdateGuardFired handles the IV-update-guard-timer-fired message,
// returning the IvUpdated event to emit if a deferred transition
// replays and advances the IV index.
func (m *Machine) IVUpdateGuardFired() *meshnode.IvUpdated {
	m.ivUpdateGuardArmed = false
	if m.transPending {
		return m.performTransition(!m.ivUpdateInProgress)
	}
	return nil
}

// IVRecoverGuardFired handles the IV-recover-guard-timer-fired
// message: no action besides allowing recovery again.
func (m *Machine) IVRecoverGuardFired() {
	m.ivRecoverGuardArmed = false
}

// IVUpdateDisallowed handles the IV-update-disallowed message from SAR-Tx.
func (m *Machine) IVUpdateDisallowed() {
	m.sarTxDisallowed = true
}

// IVUpdateAllowed handles the IV-update-allowed message from SAR-Tx,
// returning the IvUpdated event to emit if the replayed transition
// advances the IV index (it never does for this direction, since
// reverting to Normal leaves the index unchanged, but the return
// keeps the signature uniform with the other replay paths).
func (m *Machine) IVUpdateAllowed() *meshnode.IvUpdated {
	m.sarTxDisallowed = false
	if m.transPending && m.ivUpdateInProgress {
		return m.performTransition(false)
	}
	return nil
}

// ProvisioningComplete arms the IV update guard after provisioning.
func (m *Machine) ProvisioningComplete() {
	m.armIVUpdateGuard()
}

// HandleBeacon processes one authenticated Secure Network Beacon
// (spec §4.8 trigger 2), returning the IvUpdated event to emit if the
// IV index advanced as a result.
func (m *Machine) HandleBeacon(b Beacon) *meshnode.IvUpdated {
	if b.NewKeyUsed {
		var newState keytbl.RefreshState
		if b.KeyRefreshFlag {
			newState = keytbl.Phase2
		} else {
			newState = keytbl.Phase3
		}
		m.applyKeyRefreshTransition(b.NetKeyIndex, newState)
	}
	return m.handleIV(b)
}

func (m *Machine) handleIV(b Beacon) *meshnode.IvUpdated {
	localIV := m.iv
	localUpdate := m.ivUpdateInProgress

	switch {
	case b.IVIndex == localIV:
		if localUpdate && !b.IVUpdateFlag {
			return m.requestTransition(false)
		}

	case b.IVIndex > localIV:
		if uint16(b.NetKeyIndex) != primaryNetKeyIndex {
			if _, err := m.keys.GetNetKey(primaryNetKeyIndex); err == nil {
				return nil
			}
		}
		delta := b.IVIndex - localIV
		if delta == 1 && !localUpdate && b.IVUpdateFlag {
			return m.requestTransition(true)
		}
		if localUpdate {
			return nil
		}
		return m.performIVRecovery(b.IVIndex, b.IVUpdateFlag)

	default:
		// received index behind local: ignored silently.
	}
	return nil
}

func (m *Machine) performIVRecovery(newIV uint32, updateFlag bool) *meshnode.IvUpdated {
	if m.ivRecoverGuardArmed {
		return nil
	}
	m.iv = newIV
	m.ivUpdateInProgress = updateFlag
	m.elems.ResetAllSeq()
	m.seq.ResetAll()
	m.sar.Reset()
	m.beacons.Trigger(ports.AllNetKeys)
	m.friend.SecurityChange(true, false, ports.AllNetKeys)
	m.armIVRecoverGuard()
	m.transPending = false
	return &meshnode.IvUpdated{NewIV: m.iv}
}

// applyKeyRefreshTransition runs the Key Refresh action table (spec
// §4.8). An unknown NetKey index is a no-op.
func (m *Machine) applyKeyRefreshTransition(netKeyIndex int, newStateRaw keytbl.RefreshState) {
	slot, ok := m.keys.NetKeySlot(uint16(netKeyIndex))
	if !ok {
		return
	}
	nk, _ := m.keys.NetKeyBySlot(slot)

	oldState := nk.Refresh
	if oldState == keytbl.Phase3 {
		oldState = keytbl.NotActive
	}
	newState := newStateRaw
	if newState == keytbl.Phase3 {
		newState = keytbl.NotActive
	}

	switch {
	case oldState == keytbl.NotActive && newState == keytbl.Phase1:
		m.justSet(slot, uint16(netKeyIndex), keytbl.Phase1)
	case oldState == keytbl.Phase1 && newState == keytbl.NotActive:
		m.revokeOld(slot, uint16(netKeyIndex))
	case oldState == keytbl.Phase1 && newState == keytbl.Phase2:
		m.justSet(slot, uint16(netKeyIndex), keytbl.Phase2)
	case oldState == keytbl.Phase2 && newState == keytbl.NotActive:
		m.revokeOld(slot, uint16(netKeyIndex))
	default:
		// no transition defined for this (old, new) pair: none.
	}
}

func (m *Machine) justSet(slot int, netKeyIndex uint16, state keytbl.RefreshState) {
	_ = m.keys.SetNetKeyRefresh(slot, state)
	if state == keytbl.Phase2 || state == keytbl.NotActive {
		m.beacons.Trigger(int(netKeyIndex))
		m.friend.SecurityChange(false, true, int(netKeyIndex))
	}
}

func (m *Machine) revokeOld(slot int, netKeyIndex uint16) {
	for _, appIdx := range m.keys.AppKeysBoundTo(slot) {
		_ = m.keys.PromoteAppKeyOld(appIdx)
		m.keymat.RemoveDerived(ports.KeyMaterialAppKey, int(appIdx), true)
	}
	_ = m.keys.PromoteNetKeyOld(slot)
	m.keymat.RemoveDerived(ports.KeyMaterialNetKey, int(netKeyIndex), true)
	m.justSet(slot, netKeyIndex, keytbl.NotActive)
}
