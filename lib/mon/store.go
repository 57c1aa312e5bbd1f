package mon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/monstore/lib/cmap"
	"github.com/ValentinKolb/monstore/lib/compat"
	"github.com/ValentinKolb/monstore/lib/kvstore"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("mon")

// --------------------------------------------------------------------------
// Store Layout
// --------------------------------------------------------------------------

// Sections of the monitor store. Each map type owns one section for its
// "latest" pointer, its committed cursors and its per-epoch snapshots; the
// meta section holds process-identity records.
const (
	SectionMeta   = "meta"
	SectionMonMap = "monmap"
	SectionOSDMap = "osdmap"

	KeyMagic    = "magic"
	KeyFeatures = "feature_set"
)

// Magic is the identity marker written once at bootstrap and checked on
// every mount. The record carries a trailing newline which is stripped
// before comparison.
const Magic = "monstore volume v001"

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// Store wraps the durable key-value store with the monitor's record layout.
// It owns the underlying handle exclusively between Mount and Unmount.
type Store struct {
	cfg *Config
	kv  kvstore.IKVStore
}

// NewStore creates an unmounted monitor store. The factory injects the
// backing engine, keeping this package independent of any concrete one.
func NewStore(cfg *Config, factory kvstore.StoreFactory) *Store {
	return &Store{cfg: cfg, kv: factory()}
}

// Mount opens the backing store, creating it if absent.
func (s *Store) Mount() error {
	if err := s.kv.Mount(); err != nil {
		if kvstore.IsCode(err, kvstore.RetCLocked) {
			return NewError(RetCIOError, fmt.Sprintf("monitor store %s is locked: %v", s.cfg.Path, err))
		}
		return NewError(RetCIOError, fmt.Sprintf("problem opening monitor store in %s: %v", s.cfg.Path, err))
	}
	return nil
}

// Unmount releases the store. Safe only after all pending transactions have
// returned.
func (s *Store) Unmount() error {
	if err := s.kv.Unmount(); err != nil {
		return NewError(RetCIOError, fmt.Sprintf("problem closing monitor store in %s: %v", s.cfg.Path, err))
	}
	return nil
}

// KV exposes the underlying store for record access and transactions.
func (s *Store) KV() kvstore.IKVStore {
	return s.kv
}

// Path returns the store directory.
func (s *Store) Path() string {
	return s.cfg.Path
}

// --------------------------------------------------------------------------
// Identity Marker
// --------------------------------------------------------------------------

// HasMagic reports whether any magic record is present, without validating
// it. Used by the bootstrap clobber check.
func (s *Store) HasMagic() (bool, error) {
	_, found, err := s.kv.Get(SectionMeta, KeyMagic)
	if err != nil {
		return false, NewError(RetCIOError, fmt.Sprintf("cannot read magic: %v", err))
	}
	return found, nil
}

// CheckMagic verifies the identity marker. A missing record means the store
// was never bootstrapped; a mismatch means it belongs to an incompatible or
// foreign system.
func (s *Store) CheckMagic() error {
	raw, found, err := s.kv.Get(SectionMeta, KeyMagic)
	if err != nil {
		return NewError(RetCIOError, fmt.Sprintf("cannot read magic: %v", err))
	}
	if !found {
		return NewError(RetCUninitialized, fmt.Sprintf("unable to read magic from %s; did you run mkfs?", s.cfg.Path))
	}
	if magic := strings.TrimSuffix(string(raw), "\n"); magic != Magic {
		return NewError(RetCCorruption, fmt.Sprintf("store magic %q != expected %q", magic, Magic))
	}
	return nil
}

// --------------------------------------------------------------------------
// Feature Record
// --------------------------------------------------------------------------

// OnDiskFeatures reads the feature-compat record. A store written before
// the record existed is reported with ok=false; the caller substitutes the
// baseline fallback set.
func (s *Store) OnDiskFeatures() (features compat.CompatSet, ok bool, err error) {
	raw, found, err := s.kv.Get(SectionMeta, KeyFeatures)
	if err != nil {
		return compat.CompatSet{}, false, NewError(RetCIOError, fmt.Sprintf("cannot read feature record: %v", err))
	}
	if !found {
		return compat.CompatSet{}, false, nil
	}
	features, derr := compat.Decode(raw)
	if derr != nil {
		return compat.CompatSet{}, false, NewError(RetCCorruption, fmt.Sprintf("cannot decode feature record: %v", derr))
	}
	return features, true, nil
}

// --------------------------------------------------------------------------
// Record Helpers
// --------------------------------------------------------------------------

// GetUint reads a bare unsigned integer record, returning 0 if the record
// is absent.
func (s *Store) GetUint(section, key string) (uint64, error) {
	raw, found, err := s.kv.Get(section, key)
	if err != nil {
		return 0, NewError(RetCIOError, fmt.Sprintf("cannot read %s/%s: %v", section, key, err))
	}
	if !found {
		return 0, nil
	}
	v, derr := cmap.DecodeUint(raw)
	if derr != nil {
		return 0, NewError(RetCCorruption, fmt.Sprintf("cannot decode %s/%s: %v", section, key, derr))
	}
	return v, nil
}

// GetSnapshot reads the raw blob stored for one epoch of a map section.
func (s *Store) GetSnapshot(section string, epoch uint64) ([]byte, bool, error) {
	raw, found, err := s.kv.Get(section, cmap.EpochKey(epoch))
	if err != nil {
		return nil, false, NewError(RetCIOError, fmt.Sprintf("cannot read %s epoch %d: %v", section, epoch, err))
	}
	return raw, found, nil
}

// ListEpochs returns the epochs that have snapshots in a map section, in
// ascending order. Sentinel keys are skipped.
func (s *Store) ListEpochs(section string) ([]uint64, error) {
	keys, err := s.kv.ListKeys(section)
	if err != nil {
		return nil, NewError(RetCIOError, fmt.Sprintf("cannot scan %s: %v", section, err))
	}

	var epochs []uint64
	for _, key := range keys {
		e, perr := strconv.ParseUint(key, 10, 64)
		if perr == nil && cmap.EpochKey(e) == key {
			epochs = append(epochs, e)
		}
	}
	return epochs, nil
}
