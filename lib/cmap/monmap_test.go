package cmap

import (
	"bytes"
	"testing"
)

func TestMonMapMembership(t *testing.T) {
	m := NewMonMap()

	if err := m.Add("b", "10.0.0.2:6789"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add("a", "10.0.0.1:6789"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add("a", "10.0.0.9:6789"); err == nil {
		t.Errorf("Expected duplicate name to be rejected")
	}
	if err := m.Add("", "10.0.0.3:6789"); err == nil {
		t.Errorf("Expected empty name to be rejected")
	}

	// ranks follow name order, not insertion order
	if r := m.Rank("a"); r != 0 {
		t.Errorf("Expected rank 0 for a, got %d", r)
	}
	if r := m.Rank("b"); r != 1 {
		t.Errorf("Expected rank 1 for b, got %d", r)
	}
	if r := m.Rank("c"); r != -1 {
		t.Errorf("Expected rank -1 for unknown monitor, got %d", r)
	}

	if !m.Contains("a") || m.Contains("c") {
		t.Errorf("Contains is inconsistent with Rank")
	}
	if addr := m.Addr("b"); addr != "10.0.0.2:6789" {
		t.Errorf("Expected address of b, got %s", addr)
	}
	if m.Size() != 2 {
		t.Errorf("Expected size 2, got %d", m.Size())
	}
}

func TestMonMapRoundTrip(t *testing.T) {
	m := NewMonMap()
	m.SetEpoch(7)
	_ = m.Add("a", "10.0.0.1:6789")
	_ = m.Add("b", "10.0.0.2:6789")

	data := m.Encode()

	var decoded MonMap
	if err := decoded.Decode(data); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Epoch() != 7 {
		t.Errorf("Expected epoch 7, got %d", decoded.Epoch())
	}
	if decoded.FSID != m.FSID {
		t.Errorf("FSID changed across round trip")
	}
	if decoded.Size() != 2 || decoded.Addr("a") != "10.0.0.1:6789" {
		t.Errorf("Monitor list changed across round trip: %+v", decoded.Monitors)
	}

	// encoding a decoded map must reproduce the input byte for byte
	if !bytes.Equal(decoded.Encode(), data) {
		t.Errorf("Re-encoding changed the blob")
	}
}

func TestMonMapSetEpochOnlyTouchesEpoch(t *testing.T) {
	m := NewMonMap()
	m.SetEpoch(1)
	_ = m.Add("a", "10.0.0.1:6789")
	before := m.Encode()

	m.SetEpoch(9)
	if m.Epoch() != 9 {
		t.Fatalf("Expected epoch 9, got %d", m.Epoch())
	}

	m.SetEpoch(1)
	if !bytes.Equal(m.Encode(), before) {
		t.Errorf("SetEpoch altered fields other than the epoch")
	}
}

func TestMonMapDecodeRejectsGarbage(t *testing.T) {
	valid := NewMonMap()
	valid.SetEpoch(1)
	_ = valid.Add("a", "10.0.0.1:6789")
	blob := valid.Encode()

	cases := map[string][]byte{
		"empty":             {},
		"unknown version":   {99},
		"truncated header":  blob[:10],
		"truncated entry":   blob[:len(blob)-3],
		"trailing bytes":    append(append([]byte{}, blob...), 0xff),
		"lying entry count": func() []byte { b := append([]byte{}, blob...); b[25+4-1] = 9; return b }(),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			var m MonMap
			if err := m.Decode(data); err == nil {
				t.Errorf("Expected decode to fail")
			}
		})
	}
}
