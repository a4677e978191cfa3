package domain

import (
	"errors"
	"testing"
)

func TestParseFactKind(t *testing.T) {
	for _, k := range AllKinds() {
		got, err := ParseFactKind(string(k))
		if err != nil {
			t.Fatalf("ParseFactKind(%q) error: %v", k, err)
		}
		if got != k {
			t.Errorf("ParseFactKind(%q) = %q", k, got)
		}
	}

	if _, err := ParseFactKind("environment"); err == nil {
		t.Error("ParseFactKind(environment) should fail")
	}
}

func TestSnapshotSetGet(t *testing.T) {
	var s Snapshot

	if err := s.Set(KindFacts, &Facts{Hostname: "sw1"}); err != nil {
		t.Fatalf("Set facts: %v", err)
	}
	if err := s.Set(KindARP, []ARPEntry{{IP: "10.0.0.1"}}); err != nil {
		t.Fatalf("Set arp: %v", err)
	}
	if err := s.Set(KindLLDP, InterfaceMap{}); err == nil {
		t.Error("Set with mismatched type should fail")
	}

	if f, ok := s.Get(KindFacts).(*Facts); !ok || f.Hostname != "sw1" {
		t.Errorf("Get(facts) = %#v", s.Get(KindFacts))
	}
	if s.Get(KindMAC) != nil {
		t.Error("Get on empty slot should return nil")
	}
}

func TestSnapshotRecordError(t *testing.T) {
	var s Snapshot
	s.RecordError(KindCounters, errors.New("parse error: no sections found"))

	if got := s.Errors["interfaces_counters"]; got != "parse error: no sections found" {
		t.Errorf("Errors[interfaces_counters] = %q", got)
	}
}
