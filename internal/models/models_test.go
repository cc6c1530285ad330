package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCloneEncodesEmptyListsAsArrays(t *testing.T) {
	s := Sample{Applications: []Application{}, Domains: nil}
	data, err := json.Marshal(s.Clone())
	if err != nil {
		t.Fatalf("marshal sample: %v", err)
	}
	for _, key := range []string{`"applications":[]`, `"domains":[]`, `"dockerContainers":[]`, `"dockerImages":[]`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("sample clone missing %s in %s", key, data)
		}
	}

	data, err = json.Marshal(Snapshot{}.Clone())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	for _, key := range []string{`"applications":[]`, `"domains":[]`, `"metrics":[]`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("snapshot clone missing %s in %s", key, data)
		}
	}
}

func TestCloneSharesNoSlices(t *testing.T) {
	s := Sample{Applications: []Application{{PID: 1, Name: "init"}}}
	c := s.Clone()
	c.Applications[0].Name = "changed"
	if s.Applications[0].Name != "init" {
		t.Fatal("clone shares applications with original")
	}
}

func TestMetricByWireName(t *testing.T) {
	s := &Sample{CPU: 12, Connections: 3, UniqueDomains: 2}
	if v, ok := s.Metric("cpu"); !ok || v != 12 {
		t.Fatalf("cpu got %v %v", v, ok)
	}
	if v, ok := s.Metric("connections"); !ok || v != 3 {
		t.Fatalf("connections got %v %v", v, ok)
	}
	if _, ok := s.Metric("bogus"); ok {
		t.Fatal("unknown key should not resolve")
	}
}
