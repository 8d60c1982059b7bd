package localconfig

import (
	"path/filepath"
	"testing"

	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/dimcfg"
	"github.com/packetcraft-inc/meshnode/internal/modeltbl"
	"github.com/packetcraft-inc/meshnode/internal/netmgmt"
	"github.com/packetcraft-inc/meshnode/internal/persist"
	"github.com/packetcraft-inc/meshnode/internal/ports"
)

type fakeTimer struct{ started []ports.TimerID }

func (f *fakeTimer) Start(id ports.TimerID, seconds uint32) { f.started = append(f.started, id) }
func (f *fakeTimer) Stop(ports.TimerID)                     {}

type fakeBeacons struct{ triggered int }

func (f *fakeBeacons) Trigger(netKeyIndex int) { f.triggered++ }

type fakeFriendship struct {
	subscribeChanges int
	securityChanges  int
}

func (f *fakeFriendship) SubscribeChange(bool, uint16, int) { f.subscribeChanges++ }
func (f *fakeFriendship) SecurityChange(bool, bool, int)    { f.securityChanges++ }

type fakeKeyMaterial struct{ removed int }

func (f *fakeKeyMaterial) RemoveDerived(ports.KeyMaterialKind, int, bool) { f.removed++ }

type fakeSAR struct{}

func (fakeSAR) Reset()          {}
func (fakeSAR) RejectIncoming() {}
func (fakeSAR) AcceptIncoming() {}

var testModel = modeltbl.InstanceKey{Element: 0, ModelID: 0x1000, IsSIG: true}
var testModel2 = modeltbl.InstanceKey{Element: 1, ModelID: 0x1001, IsSIG: true}

func testDeps(t *testing.T) Deps {
	t.Helper()
	store, err := persist.Open(filepath.Join(t.TempDir(), "node.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return Deps{
		Store:   store,
		Timer:   &fakeTimer{},
		Beacons: &fakeBeacons{},
		Friend:  &fakeFriendship{},
		KeyMat:  &fakeKeyMaterial{},
		SAR:     fakeSAR{},
	}
}

func testDims() dimcfg.Config {
	cfg := dimcfg.Default()
	cfg.GuardTimersDisabled = true
	return cfg
}

func TestOpenFreshStoreHasEmptyTables(t *testing.T) {
	n, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, testDeps(t))
	if err != nil {
		t.Fatal(err)
	}
	iv, inProgress := n.IV()
	if iv != 0 || inProgress {
		t.Fatalf("fresh node IV = (%d, %v), want (0, false)", iv, inProgress)
	}
	if _, ok := n.FindAddress(meshnode.Address(0xC000)); ok {
		t.Fatal("fresh node should have no addresses")
	}
}

func TestAddressMutationPersistsAndNotifies(t *testing.T) {
	deps := testDeps(t)
	n, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, deps)
	if err != nil {
		t.Fatal(err)
	}
	group := meshnode.Address(0xC001)
	if _, err := n.AddressSubscribe(group); err != nil {
		t.Fatal(err)
	}
	if deps.Friend.(*fakeFriendship).subscribeChanges != 1 {
		t.Fatalf("expected one friendship subscribe notification, got %d", deps.Friend.(*fakeFriendship).subscribeChanges)
	}

	reopened, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, deps)
	if err != nil {
		t.Fatal(err)
	}
	slot, ok := reopened.FindAddress(group)
	if !ok {
		t.Fatal("expected address to survive reopen")
	}
	_, sub := reopened.addrs.Refcounts(slot)
	if sub != 1 {
		t.Fatalf("subscribe refcount after reopen = %d, want 1", sub)
	}
}

func TestModelPublishAddressRoundTripsThroughAddressTable(t *testing.T) {
	deps := testDeps(t)
	n, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, deps)
	if err != nil {
		t.Fatal(err)
	}
	dest := meshnode.Address(0x0201)
	if err := n.SetPublishAddress(testModel, dest, false, meshnode.LabelUUID{}); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, deps)
	if err != nil {
		t.Fatal(err)
	}
	addr, _, err := reopened.PublishAddress(testModel)
	if err != nil {
		t.Fatal(err)
	}
	if addr != dest {
		t.Fatalf("publish address after reopen = %s, want %s", addr, dest)
	}
}

func TestSetSeqFeedsSequenceMonitorIntoNetworkManagement(t *testing.T) {
	deps := testDeps(t)
	n, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SetNetKey(0, meshnode.Key{0xAA}); err != nil {
		t.Fatal(err)
	}
	n.net.RestoreIV(0, false)

	events, err := n.SetSeq(0, testDims().SeqThresholdLow)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].NewIV != 1 {
		t.Fatalf("events = %+v, want one IvUpdated{NewIV: 1}", events)
	}

	_, inProgress := n.IV()
	if !inProgress {
		t.Fatal("expected sequence pressure to request an IV update with guards disabled")
	}
}

func TestKeyRefreshViaBeaconEvictsKeyMaterial(t *testing.T) {
	deps := testDeps(t)
	n, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.SetNetKey(3, meshnode.Key{0x11}); err != nil {
		t.Fatal(err)
	}
	if err := n.UpdateNetKey(3, meshnode.Key{0x22}); err != nil {
		t.Fatal(err)
	}

	n.HandleBeacon(netmgmt.Beacon{NetKeyIndex: 3, NewKeyUsed: true, KeyRefreshFlag: true})
	nk, err := n.GetNetKey(3)
	if err != nil {
		t.Fatal(err)
	}
	if nk.Refresh.String() != "phase2" {
		t.Fatalf("refresh state = %v, want phase2", nk.Refresh)
	}

	n.HandleBeacon(netmgmt.Beacon{NetKeyIndex: 3, NewKeyUsed: true, KeyRefreshFlag: false})
	nk, err = n.GetNetKey(3)
	if err != nil {
		t.Fatal(err)
	}
	if nk.Refresh.String() != "not-active" || nk.NewAvailable {
		t.Fatalf("refresh state after revoke = %+v, want not-active/not-pending", nk)
	}
	if deps.KeyMat.(*fakeKeyMaterial).removed == 0 {
		t.Fatal("expected key material eviction on revoke")
	}
}

func TestSubscriptionReleaseFreesAddressSlot(t *testing.T) {
	deps := testDeps(t)
	n, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, deps)
	if err != nil {
		t.Fatal(err)
	}
	group := meshnode.Address(0xC010)
	if err := n.SubAdd(testModel, group, false, meshnode.LabelUUID{}); err != nil {
		t.Fatal(err)
	}
	if err := n.SubRemove(testModel, group, false, meshnode.LabelUUID{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := n.FindAddress(group); ok {
		t.Fatal("expected address slot to be freed once subscription is removed")
	}
}

// TestScenarioSubscriptionRefcount is scenario S5: two model instances
// subscribing to the same group address share one address-table entry
// whose subscribe refcount tracks how many models still reference it,
// and the slot is only freed - with friendship notified - once the
// last subscriber releases it.
func TestScenarioSubscriptionRefcount(t *testing.T) {
	deps := testDeps(t)
	n, err := Open(testDims(), []modeltbl.InstanceKey{testModel, testModel2}, deps)
	if err != nil {
		t.Fatal(err)
	}
	group := meshnode.Address(0xC000)

	if err := n.SubAdd(testModel, group, false, meshnode.LabelUUID{}); err != nil {
		t.Fatal(err)
	}
	if err := n.SubAdd(testModel2, group, false, meshnode.LabelUUID{}); err != nil {
		t.Fatal(err)
	}
	slot, ok := n.FindAddress(group)
	if !ok {
		t.Fatal("expected address to be present after two subscriptions")
	}
	if _, sub := n.addrs.Refcounts(slot); sub != 2 {
		t.Fatalf("subscribe refcount = %d, want 2", sub)
	}

	if err := n.SubRemove(testModel, group, false, meshnode.LabelUUID{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := n.FindAddress(group); !ok {
		t.Fatal("entry should still be present with one subscriber remaining")
	}
	if _, sub := n.addrs.Refcounts(slot); sub != 1 {
		t.Fatalf("subscribe refcount after one release = %d, want 1", sub)
	}
	if got := deps.Friend.(*fakeFriendship).subscribeChanges; got != 1 {
		t.Fatalf("friendship subscribe notifications so far = %d, want 1 (only the 0->1 transition)", got)
	}

	if err := n.SubRemove(testModel2, group, false, meshnode.LabelUUID{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := n.FindAddress(group); ok {
		t.Fatal("entry should be freed once the last subscriber releases it")
	}
	if got := deps.Friend.(*fakeFriendship).subscribeChanges; got != 2 {
		t.Fatalf("friendship subscribe notifications = %d, want 2 (0->1 on first add, 1->0 on last release)", got)
	}
}

func TestEraseAllWipesPersistenceButNotLiveTables(t *testing.T) {
	deps := testDeps(t)
	n, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, deps)
	if err != nil {
		t.Fatal(err)
	}
	group := meshnode.Address(0xC020)
	if _, err := n.AddressSubscribe(group); err != nil {
		t.Fatal(err)
	}
	if err := n.EraseAll(); err != nil {
		t.Fatal(err)
	}
	if _, ok := n.FindAddress(group); !ok {
		t.Fatal("EraseAll should not mutate the live in-memory table")
	}

	reopened, err := Open(testDims(), []modeltbl.InstanceKey{testModel}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reopened.FindAddress(group); ok {
		t.Fatal("reopening after EraseAll should see no persisted addresses")
	}
}

