package mon

import (
	"fmt"

	"github.com/ValentinKolb/monstore/lib/cmap"
	"github.com/ValentinKolb/monstore/lib/compat"
	"github.com/ValentinKolb/monstore/lib/kvstore"
	"github.com/VictoriaMetrics/metrics"
)

var metricInjects = metrics.GetOrCreateCounter(`monstore_injects_total`)

// Inject force-installs a new epoch of the membership map, bypassing the
// consensus layer. Disaster-recovery path: must only run while the monitor
// process is offline, which is enforced by operational procedure (and by
// the store's mount exclusion), not by in-process locking.
//
// The next epoch is always computed from the store's last_committed
// cursor; the epoch embedded in the supplied blob is never trusted. This
// keeps epoch numbering gapless and strictly increasing no matter what the
// operator feeds in.
//
// Returns the previous and the newly committed epoch.
func Inject(cfg *Config, factory kvstore.StoreFactory, blob []byte) (old, next uint64, err error) {
	store := NewStore(cfg, factory)
	if err := store.Mount(); err != nil {
		return 0, 0, err
	}
	defer func() { _ = store.Unmount() }()

	// the target must be a valid store this software may write
	if err := store.CheckMagic(); err != nil {
		return 0, 0, err
	}
	ondisk, found, err := store.OnDiskFeatures()
	if err != nil {
		return 0, 0, err
	}
	if !found {
		log.Warningf("store is missing its feature record, assuming baseline feature set")
		ondisk = compat.Baseline()
	}
	if supported := compat.Supported(); !ondisk.WriteableBy(supported) {
		return 0, 0, NewUnsupportedFeatureError(
			"this software cannot write the on-disk format", ondisk.Unsupported(supported))
	}

	old, err = store.GetUint(SectionMonMap, cmap.KeyLastCommitted)
	if err != nil {
		return 0, 0, err
	}
	next = old + 1

	monmap := &cmap.MonMap{}
	if err := monmap.Decode(blob); err != nil {
		return 0, 0, NewError(RetCCorruption, fmt.Sprintf("cannot decode injected membership map: %v", err))
	}
	if monmap.Epoch() != next {
		log.Infof("changing membership map epoch from %d to %d", monmap.Epoch(), next)
		monmap.SetEpoch(next)
		blob = monmap.Encode()
	}

	tx := kvstore.NewTransaction().
		Put(SectionMonMap, cmap.EpochKey(next), blob).
		Put(SectionMonMap, cmap.KeyLatest, cmap.EncodeLatest(next, blob)).
		Put(SectionMonMap, cmap.KeyLastCommitted, cmap.EncodeUint(next))

	if err := store.KV().Apply(tx); err != nil {
		return 0, 0, NewError(RetCIOError, fmt.Sprintf("cannot commit injected epoch %d: %v", next, err))
	}

	metricInjects.Inc()
	log.Infof("injected membership map as epoch %d (previous last_committed %d)", next, old)
	return old, next, nil
}
