package testing

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ValentinKolb/monstore/lib/kvstore"
)

// StoreFactory is a function that creates a new, unmounted store instance
// backed by the given directory. Calling it twice with the same directory
// must yield two handles over the same persistent data.
type StoreFactory func(dir string) kvstore.IKVStore

// RunKVStoreTests runs a comprehensive test suite for an IKVStore
// implementation.
func RunKVStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, factory)
		})

		t.Run("Transaction", func(t *testing.T) {
			testTransaction(t, factory)
		})

		t.Run("Erase", func(t *testing.T) {
			testErase(t, factory)
		})

		t.Run("ListKeysOrdered", func(t *testing.T) {
			testListKeysOrdered(t, factory)
		})

		t.Run("Persistence", func(t *testing.T) {
			testPersistence(t, factory)
		})

		t.Run("ExclusiveMount", func(t *testing.T) {
			testExclusiveMount(t, factory)
		})

		t.Run("UnmountedHandle", func(t *testing.T) {
			testUnmountedHandle(t, factory)
		})

		t.Run("SectionIsolation", func(t *testing.T) {
			testSectionIsolation(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustMount(t *testing.T, s kvstore.IKVStore) {
	t.Helper()
	if err := s.Mount(); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
}

func mustUnmount(t *testing.T, s kvstore.IKVStore) {
	t.Helper()
	if err := s.Unmount(); err != nil {
		t.Fatalf("Unmount failed: %v", err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, factory StoreFactory) {
	s := factory(t.TempDir())
	mustMount(t, s)
	defer mustUnmount(t, s)

	value1 := []byte("value-1")
	value2 := []byte("value-2")

	if err := s.Put("monmap", "latest", value1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found, err := s.Get("monmap", "latest")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatalf("Expected key to exist after Put")
	}
	if !bytes.Equal(got, value1) {
		t.Errorf("Expected value %q, got %q", value1, got)
	}

	// overwrite
	if err := s.Put("monmap", "latest", value2); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, _, _ = s.Get("monmap", "latest")
	if !bytes.Equal(got, value2) {
		t.Errorf("Expected value %q after overwrite, got %q", value2, got)
	}

	// returned slice must be a copy
	got[0] = 'X'
	again, _, _ := s.Get("monmap", "latest")
	if !bytes.Equal(again, value2) {
		t.Errorf("Mutating a returned value leaked into the store")
	}

	_, found, err = s.Get("monmap", "nonexistent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Errorf("Expected nonexistent key to return found=false")
	}
}

func testTransaction(t *testing.T, factory StoreFactory) {
	s := factory(t.TempDir())
	mustMount(t, s)
	defer mustUnmount(t, s)

	tx := kvstore.NewTransaction().
		Put("monmap", "00000000000000000001", []byte("epoch-1")).
		Put("monmap", "latest", []byte("latest")).
		Put("monmap", "last_committed", []byte{0, 0, 0, 0, 0, 0, 0, 1})

	if err := s.Apply(tx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for _, key := range []string{"00000000000000000001", "latest", "last_committed"} {
		if _, found, _ := s.Get("monmap", key); !found {
			t.Errorf("Expected key %s to exist after transaction", key)
		}
	}

	// empty transactions are a no-op
	if err := s.Apply(kvstore.NewTransaction()); err != nil {
		t.Errorf("Empty transaction failed: %v", err)
	}
}

func testErase(t *testing.T, factory StoreFactory) {
	s := factory(t.TempDir())
	mustMount(t, s)
	defer mustUnmount(t, s)

	if err := s.Put("meta", "tmp", []byte("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Apply(kvstore.NewTransaction().Erase("meta", "tmp")); err != nil {
		t.Fatalf("Erase failed: %v", err)
	}
	if _, found, _ := s.Get("meta", "tmp"); found {
		t.Errorf("Expected key to be gone after Erase")
	}

	// erasing an absent record is not an error
	if err := s.Apply(kvstore.NewTransaction().Erase("meta", "missing")); err != nil {
		t.Errorf("Erase of absent key failed: %v", err)
	}
}

func testListKeysOrdered(t *testing.T, factory StoreFactory) {
	s := factory(t.TempDir())
	mustMount(t, s)
	defer mustUnmount(t, s)

	// insert zero-padded epoch keys out of order
	epochs := []uint64{5, 1, 12, 3}
	for _, e := range epochs {
		key := fmt.Sprintf("%020d", e)
		if err := s.Put("osdmap", key, []byte("blob")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	keys, err := s.ListKeys("osdmap")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}

	expected := []string{
		fmt.Sprintf("%020d", 1),
		fmt.Sprintf("%020d", 3),
		fmt.Sprintf("%020d", 5),
		fmt.Sprintf("%020d", 12),
	}
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d (%v)", len(expected), len(keys), keys)
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("Expected key %s at position %d, got %s", expected[i], i, keys[i])
		}
	}
}

func testPersistence(t *testing.T, factory StoreFactory) {
	dir := t.TempDir()

	s := factory(dir)
	mustMount(t, s)
	if err := s.Put("meta", "magic", []byte("monstore volume v001\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	mustUnmount(t, s)

	// reopen with a fresh handle over the same directory
	s = factory(dir)
	mustMount(t, s)
	defer mustUnmount(t, s)

	got, found, err := s.Get("meta", "magic")
	if err != nil || !found {
		t.Fatalf("Expected record to survive remount (found=%v, err=%v)", found, err)
	}
	if !bytes.Equal(got, []byte("monstore volume v001\n")) {
		t.Errorf("Record changed across remount: %q", got)
	}
}

func testExclusiveMount(t *testing.T, factory StoreFactory) {
	dir := t.TempDir()

	s1 := factory(dir)
	mustMount(t, s1)
	defer mustUnmount(t, s1)

	s2 := factory(dir)
	err := s2.Mount()
	if err == nil {
		_ = s2.Unmount()
		t.Fatalf("Expected second mount of %s to fail", dir)
	}
	if !kvstore.IsCode(err, kvstore.RetCLocked) {
		t.Errorf("Expected RetCLocked, got %v", err)
	}
}

func testUnmountedHandle(t *testing.T, factory StoreFactory) {
	s := factory(t.TempDir())

	if _, _, err := s.Get("meta", "magic"); !kvstore.IsCode(err, kvstore.RetCClosed) {
		t.Errorf("Expected RetCClosed from Get on unmounted handle, got %v", err)
	}
	if err := s.Put("meta", "magic", nil); !kvstore.IsCode(err, kvstore.RetCClosed) {
		t.Errorf("Expected RetCClosed from Put on unmounted handle, got %v", err)
	}
	if _, err := s.ListKeys("meta"); !kvstore.IsCode(err, kvstore.RetCClosed) {
		t.Errorf("Expected RetCClosed from ListKeys on unmounted handle, got %v", err)
	}
	if err := s.Unmount(); !kvstore.IsCode(err, kvstore.RetCClosed) {
		t.Errorf("Expected RetCClosed from Unmount on unmounted handle, got %v", err)
	}
}

func testSectionIsolation(t *testing.T, factory StoreFactory) {
	s := factory(t.TempDir())
	mustMount(t, s)
	defer mustUnmount(t, s)

	if err := s.Put("monmap", "latest", []byte("mon")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put("osdmap", "latest", []byte("osd")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, _, _ := s.Get("monmap", "latest")
	if !bytes.Equal(got, []byte("mon")) {
		t.Errorf("Section collision: got %q from monmap/latest", got)
	}

	keys, err := s.ListKeys("monmap")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "latest" {
		t.Errorf("Expected monmap section to contain exactly [latest], got %v", keys)
	}
}
