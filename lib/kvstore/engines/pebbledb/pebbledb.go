package pebbledb

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/monstore/lib/kvstore"
	"github.com/VictoriaMetrics/metrics"
	"github.com/cockroachdb/pebble"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("kvstore")

// --------------------------------------------------------------------------
// Constants and Metrics
// --------------------------------------------------------------------------

// keySeparator joins section and key into a single engine key. Section names
// must not contain this byte; keys may (it cannot be preceded by a shorter
// section sharing the same prefix because sections are compared in full).
const keySeparator = "\x00"

var (
	metricCommits       = metrics.GetOrCreateCounter(`monstore_kvstore_commits_total`)
	metricCommitErrors  = metrics.GetOrCreateCounter(`monstore_kvstore_commit_errors_total`)
	metricCommitSeconds = metrics.GetOrCreateSummary(`monstore_kvstore_commit_duration_seconds`)
	metricMounts        = metrics.GetOrCreateCounter(`monstore_kvstore_mounts_total`)
)

// mountedPaths tracks every store path mounted by this process. A store
// handle is exclusively owned between Mount and Unmount; a second handle for
// the same path must be rejected rather than silently shared.
var mountedPaths = xsync.NewMapOf[string, struct{}]()

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Config configures the pebble-backed store. It is constructed explicitly by
// the caller and passed by value; the engine reads no ambient state.
type Config struct {
	// Path is the directory holding the store. Created on Mount if absent.
	Path string
}

// storeImpl implements kvstore.IKVStore on top of a pebble database.
// All transactions are applied as synced batches, so a commit is durable
// before Apply returns and atomic across a crash.
type storeImpl struct {
	cfg Config

	// mu guards db for the sanctioned multi-threaded case. The monitor core
	// itself is single-threaded per process.
	mu sync.RWMutex
	db *pebble.DB
}

// New creates a new unmounted store for the given configuration.
func New(cfg Config) kvstore.IKVStore {
	return &storeImpl{cfg: cfg}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kvstore/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Mount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return kvstore.NewError(kvstore.RetCLocked, fmt.Sprintf("store %s is already mounted by this handle", s.cfg.Path))
	}

	// claim the path for this process before touching the disk
	if _, alreadyMounted := mountedPaths.LoadOrStore(s.cfg.Path, struct{}{}); alreadyMounted {
		return kvstore.NewError(kvstore.RetCLocked, fmt.Sprintf("store %s is already mounted by this process", s.cfg.Path))
	}

	db, err := pebble.Open(s.cfg.Path, &pebble.Options{})
	if err != nil {
		mountedPaths.Delete(s.cfg.Path)
		if strings.Contains(strings.ToLower(err.Error()), "lock") {
			return kvstore.NewError(kvstore.RetCLocked, fmt.Sprintf("store %s is locked by another process: %v", s.cfg.Path, err))
		}
		return kvstore.NewError(kvstore.RetCIOError, fmt.Sprintf("cannot open store %s: %v", s.cfg.Path, err))
	}

	s.db = db
	metricMounts.Inc()
	log.Debugf("mounted store at %s", s.cfg.Path)
	return nil
}

func (s *storeImpl) Unmount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return kvstore.NewError(kvstore.RetCClosed, fmt.Sprintf("store %s is not mounted", s.cfg.Path))
	}

	err := s.db.Close()
	s.db = nil
	mountedPaths.Delete(s.cfg.Path)
	if err != nil {
		return kvstore.NewError(kvstore.RetCIOError, fmt.Sprintf("cannot close store %s: %v", s.cfg.Path, err))
	}
	log.Debugf("unmounted store at %s", s.cfg.Path)
	return nil
}

func (s *storeImpl) Get(section, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, false, kvstore.NewError(kvstore.RetCClosed, "store is not mounted")
	}

	raw, closer, err := s.db.Get(engineKey(section, key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kvstore.NewError(kvstore.RetCIOError, fmt.Sprintf("cannot read %s/%s: %v", section, key, err))
	}

	// raw is only valid until the closer is released
	value := make([]byte, len(raw))
	copy(value, raw)
	if err := closer.Close(); err != nil {
		return nil, false, kvstore.NewError(kvstore.RetCIOError, fmt.Sprintf("cannot release %s/%s: %v", section, key, err))
	}
	return value, true, nil
}

func (s *storeImpl) Put(section, key string, value []byte) error {
	return s.Apply(kvstore.NewTransaction().Put(section, key, value))
}

func (s *storeImpl) Apply(tx *kvstore.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return kvstore.NewError(kvstore.RetCClosed, "store is not mounted")
	}
	if tx.Empty() {
		return nil
	}

	start := time.Now()
	batch := s.db.NewBatch()
	defer func() { _ = batch.Close() }()

	for _, op := range tx.Ops {
		var err error
		switch op.Kind {
		case kvstore.OpPut:
			err = batch.Set(engineKey(op.Section, op.Key), op.Value, nil)
		case kvstore.OpErase:
			err = batch.Delete(engineKey(op.Section, op.Key), nil)
		default:
			err = fmt.Errorf("unknown op kind %d", op.Kind)
		}
		if err != nil {
			metricCommitErrors.Inc()
			return kvstore.NewError(kvstore.RetCIOError, fmt.Sprintf("cannot stage %s/%s: %v", op.Section, op.Key, err))
		}
	}

	// synced apply: the batch is durable before this returns
	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		metricCommitErrors.Inc()
		return kvstore.NewError(kvstore.RetCIOError, fmt.Sprintf("cannot commit transaction (%d ops): %v", len(tx.Ops), err))
	}

	metricCommits.Inc()
	metricCommitSeconds.UpdateDuration(start)
	return nil
}

func (s *storeImpl) ListKeys(section string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, kvstore.NewError(kvstore.RetCClosed, "store is not mounted")
	}

	prefix := section + keySeparator
	iter := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(section + "\x01"),
	})

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()[len(prefix):]))
	}
	if err := iter.Close(); err != nil {
		return nil, kvstore.NewError(kvstore.RetCIOError, fmt.Sprintf("cannot scan section %s: %v", section, err))
	}
	return keys, nil
}

func (s *storeImpl) Info() kvstore.StoreInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return kvstore.StoreInfo{
		Path:    s.cfg.Path,
		Engine:  kvstore.ImplPebble,
		Mounted: s.db != nil,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func engineKey(section, key string) []byte {
	return []byte(section + keySeparator + key)
}
