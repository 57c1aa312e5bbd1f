package mon

import (
	"fmt"

	"github.com/ValentinKolb/monstore/lib/cmap"
	"github.com/ValentinKolb/monstore/lib/compat"
	"github.com/ValentinKolb/monstore/lib/kvstore"
	"github.com/VictoriaMetrics/metrics"
)

var metricMkfs = metrics.GetOrCreateCounter(`monstore_mkfs_total`)

// Mkfs seeds a fresh monitor store: identity marker, feature record and
// epoch 1 of both cluster maps. One-shot administrative operation; any
// failure is terminal and the caller must not retry against the same
// target without inspecting it.
//
// The membership seed is decoded fully (its monitor list and fsid become
// the cluster identity) and is always stored as epoch 1. The resource seed
// is produced by an external map-building tool and is stored verbatim; its
// embedded epoch is trusted.
func Mkfs(cfg *Config, factory kvstore.StoreFactory, monmapBlob, osdmapBlob []byte) error {
	store := NewStore(cfg, factory)
	if err := store.Mount(); err != nil {
		return err
	}
	defer func() { _ = store.Unmount() }()

	// refuse to clobber an already-bootstrapped store
	if found, err := store.HasMagic(); err != nil {
		return err
	} else if found {
		return NewError(RetCExists, fmt.Sprintf("%s already contains an initialized monitor store; remove it first", cfg.Path))
	}

	// membership seed: decode, force epoch 1, re-encode if needed
	monmap := &cmap.MonMap{}
	if err := monmap.Decode(monmapBlob); err != nil {
		return NewError(RetCCorruption, fmt.Sprintf("cannot decode membership seed: %v", err))
	}
	if monmap.Size() == 0 {
		return NewError(RetCInvalidOperation, "membership seed contains no monitors")
	}
	if monmap.Epoch() != 1 {
		log.Warningf("membership seed carries epoch %d, forcing epoch 1", monmap.Epoch())
		monmap.SetEpoch(1)
		monmapBlob = monmap.Encode()
	}
	if cfg.Name != "" && !monmap.Contains(cfg.Name) {
		log.Warningf("mon.%s is not in the membership seed; start will refuse this store", cfg.Name)
	}

	// resource seed: decode for validation only, store verbatim
	osdmap := &cmap.OSDMap{}
	if err := osdmap.Decode(osdmapBlob); err != nil {
		return NewError(RetCCorruption, fmt.Sprintf("cannot decode resource seed: %v", err))
	}
	osdEpoch := osdmap.Epoch()
	if osdEpoch == 0 {
		return NewError(RetCInvalidOperation, "resource seed carries reserved epoch 0")
	}

	features := compat.Supported()

	tx := kvstore.NewTransaction().
		Put(SectionMeta, KeyMagic, []byte(Magic+"\n")).
		Put(SectionMeta, KeyFeatures, features.Encode()).
		Put(SectionMonMap, cmap.EpochKey(1), monmapBlob).
		Put(SectionMonMap, cmap.KeyLatest, cmap.EncodeLatest(1, monmapBlob)).
		Put(SectionMonMap, cmap.KeyLastCommitted, cmap.EncodeUint(1)).
		Put(SectionMonMap, cmap.KeyFirstCommitted, cmap.EncodeUint(1)).
		Put(SectionOSDMap, cmap.EpochKey(osdEpoch), osdmapBlob).
		Put(SectionOSDMap, cmap.KeyLatest, cmap.EncodeLatest(osdEpoch, osdmapBlob)).
		Put(SectionOSDMap, cmap.KeyLastCommitted, cmap.EncodeUint(osdEpoch)).
		Put(SectionOSDMap, cmap.KeyFirstCommitted, cmap.EncodeUint(osdEpoch))

	if err := store.KV().Apply(tx); err != nil {
		return NewError(RetCIOError, fmt.Sprintf("cannot write initial store state: %v", err))
	}

	metricMkfs.Inc()
	log.Infof("created monitor store at %s (fsid %s, %d monitors, resource map epoch %d, features %v)",
		cfg.Path, monmap.FSID, monmap.Size(), osdEpoch, features)
	return nil
}
