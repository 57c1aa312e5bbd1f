package cmap

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

func TestOSDMapRoundTrip(t *testing.T) {
	m := &OSDMap{
		FSID: uuid.New(),
		Devices: []Device{
			{ID: 0, State: StateUp | StateIn},
			{ID: 1, State: StateIn},
			{ID: 4, State: 0},
		},
		CrushBlob: []byte("opaque placement rules"),
	}
	m.SetEpoch(3)

	data := m.Encode()

	var decoded OSDMap
	if err := decoded.Decode(data); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.Epoch() != 3 {
		t.Errorf("Expected epoch 3, got %d", decoded.Epoch())
	}
	if decoded.FSID != m.FSID {
		t.Errorf("FSID changed across round trip")
	}
	if decoded.Size() != 3 {
		t.Fatalf("Expected 3 devices, got %d", decoded.Size())
	}
	if decoded.Devices[2].ID != 4 || decoded.Devices[0].State != StateUp|StateIn {
		t.Errorf("Device list changed across round trip: %+v", decoded.Devices)
	}
	if !bytes.Equal(decoded.CrushBlob, m.CrushBlob) {
		t.Errorf("Crush blob changed across round trip")
	}
	if !bytes.Equal(decoded.Encode(), data) {
		t.Errorf("Re-encoding changed the blob")
	}
}

func TestOSDMapEmpty(t *testing.T) {
	m := &OSDMap{FSID: uuid.New()}
	m.SetEpoch(1)

	var decoded OSDMap
	if err := decoded.Decode(m.Encode()); err != nil {
		t.Fatalf("Decode of empty map failed: %v", err)
	}
	if decoded.Size() != 0 {
		t.Errorf("Expected zero devices, got %d", decoded.Size())
	}
	if !bytes.Equal(decoded.Encode(), m.Encode()) {
		t.Errorf("Re-encoding changed the blob")
	}
}

func TestOSDMapDecodeRejectsGarbage(t *testing.T) {
	m := &OSDMap{FSID: uuid.New(), Devices: []Device{{ID: 1, State: StateUp}}}
	m.SetEpoch(2)
	blob := m.Encode()

	cases := map[string][]byte{
		"empty":            {},
		"unknown version":  {42},
		"truncated header": blob[:12],
		"truncated crush":  blob[:len(blob)-2],
		"trailing bytes":   append(append([]byte{}, blob...), 0x00),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			var decoded OSDMap
			if err := decoded.Decode(data); err == nil {
				t.Errorf("Expected decode to fail")
			}
		})
	}
}

func TestDeviceStateString(t *testing.T) {
	cases := map[DeviceState]string{
		StateUp | StateIn: "up+in",
		StateUp:           "up+out",
		StateIn:           "down+in",
		0:                 "down+out",
	}
	for state, expected := range cases {
		if got := state.String(); got != expected {
			t.Errorf("Expected %q for state %d, got %q", expected, state, got)
		}
	}
}
