package persist

import (
	"path/filepath"
	"testing"

	"github.com/packetcraft-inc/meshnode/internal/ports"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	want := []byte{1, 2, 3, 4}
	if err := store.Write(ports.DatasetNetKeys, want); err != nil {
		t.Fatal(err)
	}
	got, found, err := store.Read(ports.DatasetNetKeys)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected dataset to be found")
	}
	if string(got) != string(want) {
		t.Fatalf("Read() = %v, want %v", got, want)
	}
}

func TestReadMissingDatasetNotFound(t *testing.T) {
	store := openTestStore(t)
	_, found, err := store.Read(ports.DatasetHeartbeat)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected found=false for never-written dataset")
	}
}

func TestWriteOverwritesPriorValue(t *testing.T) {
	store := openTestStore(t)
	if err := store.Write(ports.DatasetModelTable, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ports.DatasetModelTable, []byte("second")); err != nil {
		t.Fatal(err)
	}
	got, _, err := store.Read(ports.DatasetModelTable)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("Read() = %q, want %q", got, "second")
	}
}

func TestEraseAllWipesEveryDataset(t *testing.T) {
	store := openTestStore(t)
	if err := store.Write(ports.DatasetNetKeys, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ports.DatasetAppKeys, []byte("b")); err != nil {
		t.Fatal(err)
	}
	if err := store.EraseAll(); err != nil {
		t.Fatal(err)
	}
	for _, ds := range []ports.Dataset{ports.DatasetNetKeys, ports.DatasetAppKeys} {
		if _, found, err := store.Read(ds); err != nil || found {
			t.Fatalf("dataset %s: found=%v err=%v, want found=false", ds, found, err)
		}
	}
}

func TestDatasetsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ports.DatasetSeqThresholds, []byte{9, 9}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	got, found, err := reopened.Read(ports.DatasetSeqThresholds)
	if err != nil {
		t.Fatal(err)
	}
	if !found || string(got) != string([]byte{9, 9}) {
		t.Fatalf("Read() after reopen = %v, %v, want {9,9}, true", got, found)
	}
}
