package pebbledb

import (
	"testing"

	"github.com/ValentinKolb/monstore/lib/kvstore"
	kvtesting "github.com/ValentinKolb/monstore/lib/kvstore/testing"
)

func TestPebbleStore(t *testing.T) {
	kvtesting.RunKVStoreTests(t, "Pebble", func(dir string) kvstore.IKVStore {
		return New(Config{Path: dir})
	})
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{Path: dir})

	info := s.Info()
	if info.Mounted {
		t.Errorf("Expected unmounted store to report Mounted=false")
	}
	if info.Engine != kvstore.ImplPebble {
		t.Errorf("Expected engine %q, got %q", kvstore.ImplPebble, info.Engine)
	}
	if info.Path != dir {
		t.Errorf("Expected path %q, got %q", dir, info.Path)
	}

	if err := s.Mount(); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	defer func() { _ = s.Unmount() }()

	if !s.Info().Mounted {
		t.Errorf("Expected mounted store to report Mounted=true")
	}
}
