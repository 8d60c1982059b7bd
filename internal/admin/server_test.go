package admin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/dimcfg"
	"github.com/packetcraft-inc/meshnode/internal/localconfig"
	"github.com/packetcraft-inc/meshnode/internal/modeltbl"
	"github.com/packetcraft-inc/meshnode/internal/persist"
	"github.com/packetcraft-inc/meshnode/internal/ports"
)

type noopTimer struct{}

func (noopTimer) Start(ports.TimerID, uint32) {}
func (noopTimer) Stop(ports.TimerID)          {}

type noopBeacons struct{}

func (noopBeacons) Trigger(int) {}

type noopFriendship struct{}

func (noopFriendship) SubscribeChange(bool, uint16, int) {}
func (noopFriendship) SecurityChange(bool, bool, int)    {}

type noopKeyMaterial struct{}

func (noopKeyMaterial) RemoveDerived(ports.KeyMaterialKind, int, bool) {}

type noopSAR struct{}

func (noopSAR) Reset()          {}
func (noopSAR) RejectIncoming() {}
func (noopSAR) AcceptIncoming() {}

var testInstance = modeltbl.InstanceKey{Element: 0, ModelID: 0x1000, IsSIG: true}

func testNode(t *testing.T) *localconfig.Node {
	t.Helper()
	store, err := persist.Open(filepath.Join(t.TempDir(), "node.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	dims := dimcfg.Default()
	dims.GuardTimersDisabled = true

	n, err := localconfig.Open(dims, []modeltbl.InstanceKey{testInstance}, localconfig.Deps{
		Store:   store,
		Timer:   noopTimer{},
		Beacons: noopBeacons{},
		Friend:  noopFriendship{},
		KeyMat:  noopKeyMaterial{},
		SAR:     noopSAR{},
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDumpAddressTableOmitsFreeSlots(t *testing.T) {
	n := testNode(t)
	if _, err := n.AddressSubscribe(meshnode.Address(0xC001)); err != nil {
		t.Fatal(err)
	}
	s := New(n)

	resp, err := s.DumpAddressTable(context.Background(), &DumpAddressTableRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(resp.Rows))
	}
	if resp.Rows[0].Address != 0xC001 || resp.Rows[0].RefcountSubscribe != 1 {
		t.Fatalf("unexpected row: %+v", resp.Rows[0])
	}
}

func TestDumpKeyTableReflectsKeyRefresh(t *testing.T) {
	n := testNode(t)
	if err := n.SetNetKey(1, meshnode.Key{0x01}); err != nil {
		t.Fatal(err)
	}
	if err := n.UpdateNetKey(1, meshnode.Key{0x02}); err != nil {
		t.Fatal(err)
	}
	s := New(n)

	resp, err := s.DumpKeyTable(context.Background(), &DumpKeyTableRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.NetKeys) != 1 {
		t.Fatalf("net keys = %d, want 1", len(resp.NetKeys))
	}
	if resp.NetKeys[0].Refresh != "phase1" || !resp.NetKeys[0].NewAvailable {
		t.Fatalf("unexpected net key row: %+v", resp.NetKeys[0])
	}
}

func TestDumpModelTableReportsPublishAddressAndSubscriptions(t *testing.T) {
	n := testNode(t)
	dest := meshnode.Address(0x0201)
	if err := n.SetPublishAddress(testInstance, dest, false, meshnode.LabelUUID{}); err != nil {
		t.Fatal(err)
	}
	if err := n.SubAdd(testInstance, meshnode.Address(0xC002), false, meshnode.LabelUUID{}); err != nil {
		t.Fatal(err)
	}
	s := New(n)

	resp, err := s.DumpModelTable(context.Background(), &DumpModelTableRequest{Instances: []modeltbl.InstanceKey{testInstance}})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(resp.Rows))
	}
	row := resp.Rows[0]
	if row.PublishAddress != uint16(dest) || row.SubscribeUsed != 1 {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestInjectBeaconAdvancesKeyRefresh(t *testing.T) {
	n := testNode(t)
	if err := n.SetNetKey(2, meshnode.Key{0x10}); err != nil {
		t.Fatal(err)
	}
	if err := n.UpdateNetKey(2, meshnode.Key{0x20}); err != nil {
		t.Fatal(err)
	}
	s := New(n)

	if _, err := s.InjectBeacon(context.Background(), &InjectBeaconRequest{
		NetKeyIndex:    2,
		NewKeyUsed:     true,
		KeyRefreshFlag: true,
	}); err != nil {
		t.Fatal(err)
	}

	nk, err := n.GetNetKey(2)
	if err != nil {
		t.Fatal(err)
	}
	if nk.Refresh.String() != "phase2" {
		t.Fatalf("refresh state = %v, want phase2", nk.Refresh)
	}
}

func TestFireGuardTimerRejectsUnknownTimer(t *testing.T) {
	s := New(testNode(t))
	if _, err := s.FireGuardTimer(context.Background(), &FireGuardTimerRequest{Timer: GuardTimer(99)}); err == nil {
		t.Fatal("expected an error for an unknown guard timer")
	}
}

func TestDumpNetworkManagementStateFreshNodeIsZero(t *testing.T) {
	s := New(testNode(t))
	resp, err := s.DumpNetworkManagementState(context.Background(), &DumpNetworkManagementStateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.IVIndex != 0 || resp.IVUpdateInProgress {
		t.Fatalf("fresh node netmgmt state = %+v, want zero", resp)
	}
}
