package mon

import (
	"testing"

	"github.com/ValentinKolb/monstore/lib/cmap"
	"github.com/ValentinKolb/monstore/lib/compat"
	"github.com/ValentinKolb/monstore/lib/kvstore"
)

// mutateStore applies a raw transaction to a store directory, bypassing the
// monitor layer. Test-only tampering helper.
func mutateStore(t *testing.T, dir string, tx *kvstore.Transaction) {
	t.Helper()
	kv := testFactory(dir)()
	if err := kv.Mount(); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	if err := kv.Apply(tx); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := kv.Unmount(); err != nil {
		t.Fatalf("Unmount failed: %v", err)
	}
}

func TestStartOnGarbageMagic(t *testing.T) {
	dir := t.TempDir()
	mutateStore(t, dir, kvstore.NewTransaction().
		Put(SectionMeta, KeyMagic, []byte("some other system v042\n")))

	v := NewValidator(&Config{Path: dir, Name: "a"}, testFactory(dir))
	_, err := v.Run()
	if !IsCode(err, RetCCorruption) {
		t.Errorf("Expected RetCCorruption on foreign magic, got %v", err)
	}
	// the magic check fails before any map is looked at
	if v.State() != StateMounted {
		t.Errorf("Expected validator to stop at mounted, got %v", v.State())
	}
}

func TestStartOnEmptyStore(t *testing.T) {
	dir := t.TempDir()

	v := NewValidator(&Config{Path: dir, Name: "a"}, testFactory(dir))
	_, err := v.Run()
	if !IsCode(err, RetCUninitialized) {
		t.Errorf("Expected RetCUninitialized on never-bootstrapped store, got %v", err)
	}
}

func TestStartLegacyStoreFallsBackToBaseline(t *testing.T) {
	dir, cfg := mkfsStore(t, map[string]string{"a": "10.0.0.1:6789"})

	// simulate a store written before the feature record existed
	mutateStore(t, dir, kvstore.NewTransaction().Erase(SectionMeta, KeyFeatures))

	monitor, err := NewValidator(cfg, testFactory(dir)).Run()
	if err != nil {
		t.Fatalf("Expected legacy store to mount, got %v", err)
	}
	defer func() { _ = monitor.Close() }()

	// the assumed set is the baseline, not empty and not the current set
	if monitor.OnDiskFeatures.Empty() {
		t.Errorf("Legacy fallback must not be the empty set")
	}
	if !monitor.OnDiskFeatures.Incompat.Contains(compat.FeatureIncompatBase.ID) {
		t.Errorf("Legacy fallback must carry the baseline incompat feature")
	}
	if monitor.OnDiskFeatures.Incompat.Contains(compat.FeatureIncompatPaxosKV.ID) {
		t.Errorf("Legacy fallback must not claim current-software features")
	}
}

func TestStartRefusesUnsupportedFeatures(t *testing.T) {
	dir, cfg := mkfsStore(t, map[string]string{"a": "10.0.0.1:6789"})

	// a store written by a future build with incompat feature 63
	future := compat.CompatSet{Incompat: compat.NewFeatureSet(
		compat.FeatureIncompatBase,
		compat.Feature{ID: 63, Name: "from the future"},
	)}
	mutateStore(t, dir, kvstore.NewTransaction().
		Put(SectionMeta, KeyFeatures, future.Encode()))

	v := NewValidator(cfg, testFactory(dir))
	_, err := v.Run()
	if !IsCode(err, RetCUnsupportedFeature) {
		t.Fatalf("Expected RetCUnsupportedFeature, got %v", err)
	}
	if v.State() != StateMagicChecked {
		t.Errorf("Expected validator to stop after the magic check, got %v", v.State())
	}

	// the diff lists exactly the features this software lacks
	missing := err.(*Error).Missing
	ids := missing.Incompat.IDs()
	if len(ids) != 1 || ids[0] != 63 {
		t.Errorf("Expected missing incompat ids [63], got %v", ids)
	}
}

func TestStartOnIncompletelyBootstrappedStore(t *testing.T) {
	dir, cfg := mkfsStore(t, map[string]string{"a": "10.0.0.1:6789"})

	mutateStore(t, dir, kvstore.NewTransaction().Erase(SectionOSDMap, cmap.KeyLatest))

	v := NewValidator(cfg, testFactory(dir))
	_, err := v.Run()
	if !IsCode(err, RetCUninitialized) {
		t.Errorf("Expected RetCUninitialized on missing resource map, got %v", err)
	}
	if v.State() != StateFeaturesChecked {
		t.Errorf("Expected validator to stop at features-checked, got %v", v.State())
	}
}

func TestStartOnCorruptLatestRecord(t *testing.T) {
	dir, cfg := mkfsStore(t, map[string]string{"a": "10.0.0.1:6789"})

	// blob stored under a different epoch than it carries
	blob, _ := seedMonMap(t, 5, map[string]string{"a": "10.0.0.1:6789"})
	mutateStore(t, dir, kvstore.NewTransaction().
		Put(SectionMonMap, cmap.KeyLatest, cmap.EncodeLatest(6, blob)))

	_, err := NewValidator(cfg, testFactory(dir)).Run()
	if !IsCode(err, RetCCorruption) {
		t.Errorf("Expected RetCCorruption on epoch mismatch, got %v", err)
	}
}

func TestStartUnknownMonitorName(t *testing.T) {
	dir, _ := mkfsStore(t, map[string]string{"a": "10.0.0.1:6789"})

	_, err := NewValidator(&Config{Path: dir, Name: "z"}, testFactory(dir)).Run()
	if !IsCode(err, RetCInvalidOperation) {
		t.Errorf("Expected RetCInvalidOperation for unknown monitor name, got %v", err)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	dir, cfg := mkfsStore(t, map[string]string{"a": "10.0.0.1:6789"})

	for i := 0; i < 2; i++ {
		monitor, err := NewValidator(cfg, testFactory(dir)).Run()
		if err != nil {
			t.Fatalf("start %d failed: %v", i+1, err)
		}
		if e := monitor.MonMap.GetEpoch(); e != 1 {
			t.Errorf("start %d: expected membership epoch 1, got %d", i+1, e)
		}
		if e := monitor.OSDMap.GetEpoch(); e != 1 {
			t.Errorf("start %d: expected resource epoch 1, got %d", i+1, e)
		}
		if err := monitor.Close(); err != nil {
			t.Fatalf("close %d failed: %v", i+1, err)
		}
	}
}

// TestClusterLifecycle walks the full administrative flow: bootstrap a
// one-monitor cluster, start it, grow the quorum by injection, start again.
func TestClusterLifecycle(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Path: dir, Name: "a"}

	monBlob, seed := seedMonMap(t, 1, map[string]string{"a": "10.0.0.1:6789"})
	if err := Mkfs(cfg, testFactory(dir), monBlob, seedOSDMap(t, 1, 0)); err != nil {
		t.Fatalf("Mkfs failed: %v", err)
	}

	monitor, err := NewValidator(cfg, testFactory(dir)).Run()
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if monitor.Rank != 0 {
		t.Errorf("Expected rank 0 for mon.a, got %d", monitor.Rank)
	}
	if monitor.MonMap.GetEpoch() != 1 || monitor.OSDMap.GetEpoch() != 1 {
		t.Errorf("Expected both maps at epoch 1, got %d/%d",
			monitor.MonMap.GetEpoch(), monitor.OSDMap.GetEpoch())
	}
	fsid := monitor.MonMap.Map().(*cmap.MonMap).FSID
	if fsid != seed.FSID {
		t.Errorf("Cluster identity changed across bootstrap")
	}
	if err := monitor.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// grow the quorum to two monitors via injection
	grown := cmap.NewMonMap()
	grown.FSID = seed.FSID
	grown.SetEpoch(1) // wrong on purpose; injection recomputes
	_ = grown.Add("a", "10.0.0.1:6789")
	_ = grown.Add("b", "10.0.0.2:6789")

	old, next, err := Inject(cfg, testFactory(dir), grown.Encode())
	if err != nil {
		t.Fatalf("Inject failed: %v", err)
	}
	if old != 1 || next != 2 {
		t.Errorf("Expected transition 1 -> 2, got %d -> %d", old, next)
	}

	monitor, err = NewValidator(cfg, testFactory(dir)).Run()
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	defer func() { _ = monitor.Close() }()

	monmap := monitor.MonMap.Map().(*cmap.MonMap)
	if monitor.MonMap.GetEpoch() != 2 || monitor.MonMap.LastCommitted() != 2 {
		t.Errorf("Expected membership epoch and cursor 2, got %d/%d",
			monitor.MonMap.GetEpoch(), monitor.MonMap.LastCommitted())
	}
	if monmap.Size() != 2 || monmap.Rank("a") != 0 || monmap.Rank("b") != 1 {
		t.Errorf("Unexpected quorum after injection: %+v", monmap.Monitors)
	}

	// the original bootstrap snapshot is still there, unchanged
	raw, found, err := monitor.Store.GetSnapshot(SectionMonMap, 1)
	if err != nil || !found {
		t.Fatalf("Expected epoch 1 snapshot to remain (found=%v, err=%v)", found, err)
	}
	var epoch1 cmap.MonMap
	if err := epoch1.Decode(raw); err != nil {
		t.Fatalf("cannot decode epoch 1 snapshot: %v", err)
	}
	if epoch1.Size() != 1 || !epoch1.Contains("a") {
		t.Errorf("Epoch 1 snapshot changed: %+v", epoch1.Monitors)
	}
}
