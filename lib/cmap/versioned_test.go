package cmap

import (
	"errors"
	"testing"
)

// fakeReader is an in-memory Reader for container tests.
type fakeReader map[string][]byte

func (r fakeReader) Get(section, key string) ([]byte, bool, error) {
	v, ok := r[section+"/"+key]
	return v, ok, nil
}

func testMonMapBlob(t *testing.T, epoch uint64) []byte {
	t.Helper()
	m := NewMonMap()
	m.SetEpoch(epoch)
	if err := m.Add("a", "10.0.0.1:6789"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return m.Encode()
}

func TestVersionedMapLoad(t *testing.T) {
	blob := testMonMapBlob(t, 5)
	r := fakeReader{
		"monmap/latest":          EncodeLatest(5, blob),
		"monmap/last_committed":  EncodeUint(5),
		"monmap/first_committed": EncodeUint(1),
	}

	v := NewVersionedMap("monmap", &MonMap{})
	if v.GetEpoch() != 0 {
		t.Errorf("Expected epoch 0 before load, got %d", v.GetEpoch())
	}

	if err := v.Load(r); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.GetEpoch() != 5 {
		t.Errorf("Expected epoch 5 after load, got %d", v.GetEpoch())
	}
	if v.LastCommitted() != 5 || v.FirstCommitted() != 1 {
		t.Errorf("Expected cursors 1..5, got %d..%d", v.FirstCommitted(), v.LastCommitted())
	}
	if m := v.Map().(*MonMap); !m.Contains("a") {
		t.Errorf("Loaded map lost its monitors")
	}
}

func TestVersionedMapLoadUninitialized(t *testing.T) {
	v := NewVersionedMap("monmap", &MonMap{})
	err := v.Load(fakeReader{})
	if !errors.Is(err, ErrUninitialized) {
		t.Errorf("Expected ErrUninitialized, got %v", err)
	}
	if v.GetEpoch() != 0 {
		t.Errorf("Expected epoch to stay 0 after failed load")
	}
}

func TestVersionedMapLoadEpochMismatch(t *testing.T) {
	// blob says epoch 5 but is stored under epoch 6
	r := fakeReader{"monmap/latest": EncodeLatest(6, testMonMapBlob(t, 5))}

	v := NewVersionedMap("monmap", &MonMap{})
	err := v.Load(r)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt on epoch mismatch, got %v", err)
	}
}

func TestVersionedMapLoadCorruptBlob(t *testing.T) {
	r := fakeReader{"monmap/latest": EncodeLatest(1, []byte("not a monmap"))}

	v := NewVersionedMap("monmap", &MonMap{})
	if err := v.Load(r); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt on undecodable blob, got %v", err)
	}
}

func TestVersionedMapMissingCursors(t *testing.T) {
	// a store written without cursors still loads; cursors default to 0
	r := fakeReader{"monmap/latest": EncodeLatest(2, testMonMapBlob(t, 2))}

	v := NewVersionedMap("monmap", &MonMap{})
	if err := v.Load(r); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.LastCommitted() != 0 || v.FirstCommitted() != 0 {
		t.Errorf("Expected zero cursors, got %d..%d", v.FirstCommitted(), v.LastCommitted())
	}
}

func TestLatestRecordRoundTrip(t *testing.T) {
	blob := []byte("payload")
	epoch, got, err := DecodeLatest(EncodeLatest(42, blob))
	if err != nil {
		t.Fatalf("DecodeLatest failed: %v", err)
	}
	if epoch != 42 || string(got) != "payload" {
		t.Errorf("Latest record round trip failed: epoch=%d blob=%q", epoch, got)
	}

	if _, _, err := DecodeLatest([]byte{1, 2, 3}); err == nil {
		t.Errorf("Expected truncated latest record to fail")
	}
	if _, _, err := DecodeLatest(append(EncodeLatest(1, nil), 0xff)); err == nil {
		t.Errorf("Expected trailing bytes to fail")
	}
}

func TestEpochKeyOrdering(t *testing.T) {
	if EpochKey(2) >= EpochKey(10) {
		t.Errorf("Epoch keys must sort numerically: %s vs %s", EpochKey(2), EpochKey(10))
	}
	if EpochKey(1) != "00000000000000000001" {
		t.Errorf("Unexpected epoch key format: %s", EpochKey(1))
	}
}
