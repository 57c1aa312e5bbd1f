package cmap

import (
	"fmt"

	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("cmap")

// VersionedMap ties one map type to its history in the store: the decoded
// in-memory map, the store section holding its records and the first/last
// committed cursors. It does not write; commits happen through the
// consensus layer or the administrative procedures, both of which go
// directly to the store.
type VersionedMap struct {
	section string
	m       Map
	loaded  bool

	firstCommitted uint64
	lastCommitted  uint64
}

// NewVersionedMap creates a container for the given map type over the given
// store section.
func NewVersionedMap(section string, m Map) *VersionedMap {
	return &VersionedMap{section: section, m: m}
}

// Section returns the store section this container reads from.
func (v *VersionedMap) Section() string {
	return v.section
}

// Map returns the in-memory map (zero-valued until Load succeeds).
func (v *VersionedMap) Map() Map {
	return v.m
}

// GetEpoch returns the epoch of the in-memory decoded map, 0 if the map was
// never loaded.
func (v *VersionedMap) GetEpoch() uint64 {
	if !v.loaded {
		return 0
	}
	return v.m.Epoch()
}

// FirstCommitted and LastCommitted return the cursors read by the most
// recent Load (0 if never loaded or never written).
func (v *VersionedMap) FirstCommitted() uint64 { return v.firstCommitted }
func (v *VersionedMap) LastCommitted() uint64  { return v.lastCommitted }

// Load reads the "latest" pointer record and the committed cursors from the
// store and decodes the embedded blob into the in-memory map.
//
// Returns ErrUninitialized if the map has never been committed, and an
// ErrCorrupt-wrapped error if the record cannot be decoded or the blob's
// embedded epoch does not match the epoch it was stored under.
func (v *VersionedMap) Load(r Reader) error {
	data, found, err := r.Get(v.section, KeyLatest)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", v.section, ErrUninitialized)
	}

	epoch, blob, err := DecodeLatest(data)
	if err != nil {
		return fmt.Errorf("%s latest: %w", v.section, err)
	}
	if err := v.m.Decode(blob); err != nil {
		return fmt.Errorf("%s epoch %d: %w", v.section, epoch, err)
	}
	if v.m.Epoch() != epoch {
		return fmt.Errorf("%w: %s blob carries epoch %d but was stored as epoch %d",
			ErrCorrupt, v.section, v.m.Epoch(), epoch)
	}

	if v.lastCommitted, err = v.loadCursor(r, KeyLastCommitted); err != nil {
		return err
	}
	if v.firstCommitted, err = v.loadCursor(r, KeyFirstCommitted); err != nil {
		return err
	}

	v.loaded = true
	log.Debugf("loaded %s epoch %d (committed %d..%d)",
		v.section, epoch, v.firstCommitted, v.lastCommitted)
	return nil
}

func (v *VersionedMap) loadCursor(r Reader, key string) (uint64, error) {
	data, found, err := r.Get(v.section, key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	val, err := DecodeUint(data)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", v.section, key, err)
	}
	return val, nil
}
