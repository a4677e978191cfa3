package domain

import (
	"fmt"
	"time"
)

// FactKind names one fact operation
type FactKind string

const (
	KindFacts       FactKind = "facts"
	KindInterfaces  FactKind = "interfaces"
	KindInterfaceIP FactKind = "interfaces_ip"
	KindCounters    FactKind = "interfaces_counters"
	KindARP         FactKind = "arp_table"
	KindMAC         FactKind = "mac_address_table"
	KindLLDP        FactKind = "lldp_neighbors"
)

// AllKinds returns every fact kind in collection order
func AllKinds() []FactKind {
	return []FactKind{
		KindFacts,
		KindInterfaces,
		KindInterfaceIP,
		KindCounters,
		KindARP,
		KindMAC,
		KindLLDP,
	}
}

// ParseFactKind validates a fact kind name
func ParseFactKind(s string) (FactKind, error) {
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown fact kind %q", s)
}

// Snapshot is the result of one collection run against a device
type Snapshot struct {
	ID           string            `json:"id" yaml:"id"`
	Device       string            `json:"device" yaml:"device"`
	CollectedAt  time.Time         `json:"collected_at" yaml:"collected_at"`
	Facts        *Facts            `json:"facts,omitempty" yaml:"facts,omitempty"`
	Interfaces   InterfaceMap      `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	InterfacesIP InterfaceIPMap    `json:"interfaces_ip,omitempty" yaml:"interfaces_ip,omitempty"`
	Counters     CounterMap        `json:"interfaces_counters,omitempty" yaml:"interfaces_counters,omitempty"`
	ARPTable     []ARPEntry        `json:"arp_table,omitempty" yaml:"arp_table,omitempty"`
	MACTable     []MACEntry        `json:"mac_address_table,omitempty" yaml:"mac_address_table,omitempty"`
	LLDP         LLDPNeighborMap   `json:"lldp_neighbors,omitempty" yaml:"lldp_neighbors,omitempty"`
	Errors       map[string]string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Set stores a fact operation result in its slot
func (s *Snapshot) Set(kind FactKind, v any) error {
	switch kind {
	case KindFacts:
		f, ok := v.(*Facts)
		if !ok {
			return typeMismatch(kind, v)
		}
		s.Facts = f
	case KindInterfaces:
		m, ok := v.(InterfaceMap)
		if !ok {
			return typeMismatch(kind, v)
		}
		s.Interfaces = m
	case KindInterfaceIP:
		m, ok := v.(InterfaceIPMap)
		if !ok {
			return typeMismatch(kind, v)
		}
		s.InterfacesIP = m
	case KindCounters:
		m, ok := v.(CounterMap)
		if !ok {
			return typeMismatch(kind, v)
		}
		s.Counters = m
	case KindARP:
		l, ok := v.([]ARPEntry)
		if !ok {
			return typeMismatch(kind, v)
		}
		s.ARPTable = l
	case KindMAC:
		l, ok := v.([]MACEntry)
		if !ok {
			return typeMismatch(kind, v)
		}
		s.MACTable = l
	case KindLLDP:
		m, ok := v.(LLDPNeighborMap)
		if !ok {
			return typeMismatch(kind, v)
		}
		s.LLDP = m
	default:
		return fmt.Errorf("unknown fact kind %q", kind)
	}
	return nil
}

// Get returns the value stored for kind, or nil when the slot is empty
func (s *Snapshot) Get(kind FactKind) any {
	switch kind {
	case KindFacts:
		if s.Facts == nil {
			return nil
		}
		return s.Facts
	case KindInterfaces:
		if s.Interfaces == nil {
			return nil
		}
		return s.Interfaces
	case KindInterfaceIP:
		if s.InterfacesIP == nil {
			return nil
		}
		return s.InterfacesIP
	case KindCounters:
		if s.Counters == nil {
			return nil
		}
		return s.Counters
	case KindARP:
		if s.ARPTable == nil {
			return nil
		}
		return s.ARPTable
	case KindMAC:
		if s.MACTable == nil {
			return nil
		}
		return s.MACTable
	case KindLLDP:
		if s.LLDP == nil {
			return nil
		}
		return s.LLDP
	}
	return nil
}

// RecordError notes a failed fact operation
func (s *Snapshot) RecordError(kind FactKind, err error) {
	if s.Errors == nil {
		s.Errors = make(map[string]string)
	}
	s.Errors[string(kind)] = err.Error()
}

func typeMismatch(kind FactKind, v any) error {
	return fmt.Errorf("fact kind %q: unexpected value type %T", kind, v)
}
