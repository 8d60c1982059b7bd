package keytbl

import (
	"testing"

	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/cfgerr"
)

func key(b byte) meshnode.Key {
	var k meshnode.Key
	k[0] = b
	return k
}

func TestNetKeySetAlreadyExists(t *testing.T) {
	tbl := New(2, 2)
	if _, err := tbl.SetNetKey(0, key(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.SetNetKey(0, key(2)); !cfgerr.IsAlreadyExists(err) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestNetKeyOutOfMemory(t *testing.T) {
	tbl := New(1, 1)
	if _, err := tbl.SetNetKey(0, key(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.SetNetKey(1, key(2)); !cfgerr.IsOutOfMemory(err) {
		t.Fatalf("expected OutOfMemory, got %v", err)
	}
}

func TestNetKeyUpdateRefusesWhenAlreadyPending(t *testing.T) {
	tbl := New(1, 1)
	if _, err := tbl.SetNetKey(7, key(1)); err != nil {
		t.Fatal(err)
	}
	if err := tbl.UpdateNetKey(7, key(2)); err != nil {
		t.Fatal(err)
	}
	if err := tbl.UpdateNetKey(7, key(3)); !cfgerr.IsAlreadyExists(err) {
		t.Fatalf("expected AlreadyExists on second update, got %v", err)
	}
}

func TestRemoveNetKeyOldOnlyPromotes(t *testing.T) {
	tbl := New(1, 1)
	if _, err := tbl.SetNetKey(1, key(1)); err != nil {
		t.Fatal(err)
	}
	if err := tbl.UpdateNetKey(1, key(2)); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.RemoveNetKey(1, true); err != nil {
		t.Fatal(err)
	}
	nk, err := tbl.GetNetKey(1)
	if err != nil {
		t.Fatal(err)
	}
	if nk.KeyOld != key(2) || nk.NewAvailable {
		t.Fatalf("expected promoted key and cleared new_available, got %+v", nk)
	}
}

func TestRemoveNetKeyCascadesUnbind(t *testing.T) {
	tbl := New(2, 2)
	if _, err := tbl.SetNetKey(5, key(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.SetAppKey(9, key(2)); err != nil {
		t.Fatal(err)
	}
	if err := tbl.BindAppKey(9, 5); err != nil {
		t.Fatal(err)
	}
	unbound, err := tbl.RemoveNetKey(5, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(unbound) != 1 || unbound[0] != 9 {
		t.Fatalf("expected AppKey 9 unbound, got %v", unbound)
	}
	ak, err := tbl.GetAppKey(9)
	if err != nil {
		t.Fatal(err)
	}
	if ak.Bound {
		t.Fatalf("expected AppKey 9 to be unbound, got %+v", ak)
	}
}

func TestBindRequiresExistingNetKey(t *testing.T) {
	tbl := New(1, 1)
	if _, err := tbl.SetAppKey(1, key(1)); err != nil {
		t.Fatal(err)
	}
	if err := tbl.BindAppKey(1, 99); !cfgerr.IsNotFound(err) {
		t.Fatalf("expected NotFound binding to missing net key, got %v", err)
	}
}

func TestIterationSkipsFreeSlots(t *testing.T) {
	tbl := New(4, 1)
	if _, err := tbl.SetNetKey(10, key(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.SetNetKey(20, key(2)); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.RemoveNetKey(10, false); err != nil {
		t.Fatal(err)
	}

	var seen []uint16
	cursor := 0
	for {
		nk, next, ok := tbl.NextNetKey(cursor)
		if !ok {
			break
		}
		seen = append(seen, nk.Index)
		cursor = next
	}
	if len(seen) != 1 || seen[0] != 20 {
		t.Fatalf("expected only index 20, got %v", seen)
	}
}
