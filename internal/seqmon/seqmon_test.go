package seqmon

import "testing"

func TestObserveLatchesOncePerThreshold(t *testing.T) {
	m := New(0x700000, 0xC00000)

	events := m.Observe(0x700000)
	if len(events) != 1 || events[0].Threshold != Low {
		t.Fatalf("first crossing: events = %v, want one Low", events)
	}

	events = m.Observe(0x700001)
	if len(events) != 0 {
		t.Fatalf("second observe above low: events = %v, want none", events)
	}

	events = m.Observe(0xC00000)
	if len(events) != 1 || events[0].Threshold != High {
		t.Fatalf("high crossing: events = %v, want one High", events)
	}
}

func TestObserveCanFireBothAtOnce(t *testing.T) {
	m := New(0x700000, 0x700000)
	events := m.Observe(0x800000)
	if len(events) != 2 {
		t.Fatalf("events = %v, want both Low and High", events)
	}
}

func TestRearmAllowsRefire(t *testing.T) {
	m := New(10, 20)
	if events := m.Observe(10); len(events) != 1 {
		t.Fatalf("expected one event, got %v", events)
	}
	if events := m.Observe(10); len(events) != 0 {
		t.Fatalf("expected no re-fire before rearm, got %v", events)
	}
	m.Rearm(Low)
	if events := m.Observe(10); len(events) != 1 {
		t.Fatalf("expected re-fire after rearm, got %v", events)
	}
}

func TestResetAllClearsBothLatches(t *testing.T) {
	m := New(10, 20)
	m.Observe(20)
	m.ResetAll()
	events := m.Observe(20)
	if len(events) != 2 {
		t.Fatalf("expected both thresholds to refire after ResetAll, got %v", events)
	}
}
