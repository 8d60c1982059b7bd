package hbstate

import (
	"testing"

	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/addrtbl"
)

func TestSetPublishDestRoundTrip(t *testing.T) {
	addrs := addrtbl.New(4, 1)
	hb := New()

	if err := hb.SetPublishDest(addrs, 0xC000); err != nil {
		t.Fatal(err)
	}
	if got := hb.PublishDest(addrs); got != 0xC000 {
		t.Fatalf("PublishDest() = %v, want 0xC000", got)
	}
	slot, _ := addrs.Find(0xC000)
	pub, _ := addrs.Refcounts(slot)
	if pub != 1 {
		t.Fatalf("refcount_publish = %d, want 1", pub)
	}
}

func TestSetPublishDestUnassignedReleases(t *testing.T) {
	addrs := addrtbl.New(4, 1)
	hb := New()

	if err := hb.SetPublishDest(addrs, 0xC000); err != nil {
		t.Fatal(err)
	}
	if err := hb.SetPublishDest(addrs, meshnode.UnassignedAddress); err != nil {
		t.Fatal(err)
	}
	if got := hb.PublishDest(addrs); got != meshnode.UnassignedAddress {
		t.Fatalf("PublishDest() = %v, want unassigned", got)
	}
	if _, ok := addrs.Find(0xC000); ok {
		t.Fatal("expected address entry to be freed")
	}
}

func TestSubscribeSourceAndDestIndependentSlots(t *testing.T) {
	addrs := addrtbl.New(4, 1)
	hb := New()

	if err := hb.SetSubscribeSource(addrs, 0x0001); err != nil {
		t.Fatal(err)
	}
	if err := hb.SetSubscribeDest(addrs, 0xC000); err != nil {
		t.Fatal(err)
	}
	sub := hb.Subscription()
	if sub.SourceSlot == sub.DestSlot {
		t.Fatalf("expected distinct slots, got source=%d dest=%d", sub.SourceSlot, sub.DestSlot)
	}
}

func TestSetSubscribeParamsStoredVerbatim(t *testing.T) {
	hb := New()
	hb.SetSubscribeParams(3, 7, 1, 10)
	sub := hb.Subscription()
	if sub.CountLog != 3 || sub.PeriodLog != 7 || sub.MinHops != 1 || sub.MaxHops != 10 {
		t.Fatalf("Subscription() = %+v, want {CountLog:3 PeriodLog:7 MinHops:1 MaxHops:10}", sub)
	}
}
