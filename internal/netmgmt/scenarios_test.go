package netmgmt

import (
	"testing"

	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/elemstate"
	"github.com/packetcraft-inc/meshnode/internal/keytbl"
	"github.com/packetcraft-inc/meshnode/internal/ports"
	"github.com/packetcraft-inc/meshnode/internal/seqmon"
)

// --- fakes shared by the scenario and unit tests in this package ---

type timerCall struct {
	id      ports.TimerID
	seconds uint32
}

type fakeTimer struct {
	started []timerCall
	stopped []ports.TimerID
}

func (f *fakeTimer) Start(id ports.TimerID, seconds uint32) {
	f.started = append(f.started, timerCall{id, seconds})
}
func (f *fakeTimer) Stop(id ports.TimerID) { f.stopped = append(f.stopped, id) }

type fakeBeacons struct{ triggered []int }

func (f *fakeBeacons) Trigger(netKeyIndex int) { f.triggered = append(f.triggered, netKeyIndex) }

type securityChange struct {
	ivChanged, keyChanged bool
	netKeyIndex           int
}

type fakeFriendship struct {
	security []securityChange
}

func (f *fakeFriendship) SubscribeChange(bool, uint16, int) {}
func (f *fakeFriendship) SecurityChange(ivChanged, keyChanged bool, netKeyIndex int) {
	f.security = append(f.security, securityChange{ivChanged, keyChanged, netKeyIndex})
}

type keyMatCall struct {
	kind    ports.KeyMaterialKind
	index   int
	oldOnly bool
}

type fakeKeyMaterial struct{ removed []keyMatCall }

func (f *fakeKeyMaterial) RemoveDerived(kind ports.KeyMaterialKind, index int, oldOnly bool) {
	f.removed = append(f.removed, keyMatCall{kind, index, oldOnly})
}

type fakeSAR struct {
	resets, rejects, accepts int
}

func (f *fakeSAR) Reset()          { f.resets++ }
func (f *fakeSAR) RejectIncoming() { f.rejects++ }
func (f *fakeSAR) AcceptIncoming() { f.accepts++ }

type harness struct {
	keys    *keytbl.Table
	elems   *elemstate.State
	seq     *seqmon.Monitor
	timer   *fakeTimer
	beacons *fakeBeacons
	friend  *fakeFriendship
	keymat  *fakeKeyMaterial
	sar     *fakeSAR
	machine *Machine
}

func newHarness(guardsDisabled bool) *harness {
	h := &harness{
		keys:    keytbl.New(4, 4),
		elems:   elemstate.New(1, 1000),
		seq:     seqmon.New(0x700000, 0xC00000),
		timer:   &fakeTimer{},
		beacons: &fakeBeacons{},
		friend:  &fakeFriendship{},
		keymat:  &fakeKeyMaterial{},
		sar:     &fakeSAR{},
	}
	h.machine = New(Config{
		Keys:                  h.keys,
		Elems:                 h.elems,
		Seq:                   h.seq,
		Timer:                 h.timer,
		Beacons:               h.beacons,
		Friend:                h.friend,
		KeyMat:                h.keymat,
		SAR:                   h.sar,
		IVUpdateGuardSeconds:  96 * 60 * 60,
		IVRecoverGuardSeconds: 192 * 60 * 60,
		GuardsDisabled:        guardsDisabled,
	})
	return h
}

var netKey0 = meshnode.Key{0xAA}

// S1 — Normal→Update by beacon.
func TestScenarioNormalToUpdateByBeacon(t *testing.T) {
	h := newHarness(true)
	if _, err := h.keys.SetNetKey(0, netKey0); err != nil {
		t.Fatal(err)
	}
	h.machine.RestoreIV(0x10, false)

	event := h.machine.HandleBeacon(Beacon{NetKeyIndex: 0, IVIndex: 0x11, IVUpdateFlag: true})
	if event == nil || event.NewIV != 0x11 {
		t.Fatalf("HandleBeacon returned %+v, want IvUpdated{NewIV: 0x11}", event)
	}

	iv, inProgress := h.machine.IV()
	if iv != 0x11 || !inProgress {
		t.Fatalf("IV() = (%x, %v), want (0x11, true)", iv, inProgress)
	}
	if len(h.beacons.triggered) == 0 {
		t.Fatal("expected beacons to be re-issued")
	}
	if len(h.friend.security) == 0 || !h.friend.security[len(h.friend.security)-1].ivChanged {
		t.Fatalf("expected friendship ivChanged=true, got %v", h.friend.security)
	}
}

// S2 — IV recovery.
func TestScenarioIVRecovery(t *testing.T) {
	h := newHarness(true)
	if _, err := h.keys.SetNetKey(0, netKey0); err != nil {
		t.Fatal(err)
	}
	h.machine.RestoreIV(0x10, false)
	if _, err := h.elems.SetSeq(0, 12345); err != nil {
		t.Fatal(err)
	}

	event := h.machine.HandleBeacon(Beacon{NetKeyIndex: 0, IVIndex: 0x20, IVUpdateFlag: false})
	if event == nil || event.NewIV != 0x20 {
		t.Fatalf("HandleBeacon returned %+v, want IvUpdated{NewIV: 0x20}", event)
	}

	iv, inProgress := h.machine.IV()
	if iv != 0x20 || inProgress {
		t.Fatalf("IV() = (%x, %v), want (0x20, false)", iv, inProgress)
	}
	seq, err := h.elems.Seq(0)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 0 {
		t.Fatalf("seq = %d, want 0 after recovery", seq)
	}
	if h.sar.resets == 0 {
		t.Fatal("expected SAR-RX history to be cleared")
	}
}

// S3 — Sequence pressure update deferred by an armed guard.
func TestScenarioSeqPressureDeferredByGuard(t *testing.T) {
	h := newHarness(false)
	if _, err := h.keys.SetNetKey(0, netKey0); err != nil {
		t.Fatal(err)
	}
	h.machine.ProvisioningComplete() // arms iv_update_guard
	h.machine.HandleSeqEvent(seqmon.Event{Threshold: seqmon.Low})

	if !h.machine.TransPending() {
		t.Fatal("expected trans_pending=true while guard armed")
	}
	iv, inProgress := h.machine.IV()
	if iv != 0 || inProgress {
		t.Fatalf("IV() = (%x, %v), want unchanged (0, false)", iv, inProgress)
	}
}

// S4 — Key refresh phase walk.
func TestScenarioKeyRefreshPhaseWalk(t *testing.T) {
	h := newHarness(true)
	if _, err := h.keys.SetNetKey(5, netKey0); err != nil {
		t.Fatal(err)
	}
	if _, err := h.keys.SetAppKey(9, meshnode.Key{0xBB}); err != nil {
		t.Fatal(err)
	}
	if err := h.keys.BindAppKey(9, 5); err != nil {
		t.Fatal(err)
	}
	if err := h.keys.UpdateNetKey(5, meshnode.Key{0xCC}); err != nil {
		t.Fatal(err)
	}
	if err := h.keys.UpdateAppKey(9, meshnode.Key{0xDD}); err != nil {
		t.Fatal(err)
	}
	// Staging new NetKey material enters Phase1, as
	// localconfig.Node.UpdateNetKey does.
	slot, ok := h.keys.NetKeySlot(5)
	if !ok {
		t.Fatal("net key 5 has no slot")
	}
	if err := h.keys.SetNetKeyRefresh(slot, keytbl.Phase1); err != nil {
		t.Fatal(err)
	}

	if event := h.machine.HandleBeacon(Beacon{NetKeyIndex: 5, NewKeyUsed: true, KeyRefreshFlag: true, IVIndex: 0}); event != nil {
		t.Fatalf("HandleBeacon returned %+v, want nil (IV unchanged on key-refresh-only beacon)", event)
	}
	nk, err := h.keys.GetNetKey(5)
	if err != nil {
		t.Fatal(err)
	}
	if nk.Refresh != keytbl.Phase2 {
		t.Fatalf("refresh state = %v, want Phase2", nk.Refresh)
	}

	h.machine.HandleBeacon(Beacon{NetKeyIndex: 5, NewKeyUsed: true, KeyRefreshFlag: false, IVIndex: 0})
	nk, err = h.keys.GetNetKey(5)
	if err != nil {
		t.Fatal(err)
	}
	if nk.Refresh != keytbl.NotActive || nk.KeyOld != (meshnode.Key{0xCC}) || nk.NewAvailable {
		t.Fatalf("net key after revoke = %+v, want old=0xCC, NotActive, not pending", nk)
	}
	ak, err := h.keys.GetAppKey(9)
	if err != nil {
		t.Fatal(err)
	}
	if ak.KeyOld != (meshnode.Key{0xDD}) || ak.NewAvailable {
		t.Fatalf("app key after revoke = %+v, want old=0xDD, not pending", ak)
	}
	if len(h.keymat.removed) != 2 {
		t.Fatalf("expected 2 key-material evictions (app+net), got %d", len(h.keymat.removed))
	}
}

// S5 — Subscription refcount lives in internal/localconfig
// (TestScenarioSubscriptionRefcount), not here: the address table and
// model subscription slots netmgmt would need to exercise it belong to
// localconfig.Node, which netmgmt has no access to.

// S6 — Sequence NVM threshold (verifies the elemstate contract netmgmt relies on).
func TestScenarioSeqNVMThreshold(t *testing.T) {
	elems := elemstate.New(1, 1000)
	threshold, err := elems.SetSeq(0, 999)
	if err != nil {
		t.Fatal(err)
	}
	if threshold != 1000 {
		t.Fatalf("threshold = %d, want 1000", threshold)
	}
	threshold, err = elems.SetSeq(0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if threshold != 2000 {
		t.Fatalf("threshold = %d, want 2000", threshold)
	}
}
