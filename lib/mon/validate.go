package mon

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/monstore/lib/cmap"
	"github.com/ValentinKolb/monstore/lib/compat"
	"github.com/ValentinKolb/monstore/lib/kvstore"
)

// --------------------------------------------------------------------------
// Validator State
// --------------------------------------------------------------------------

// State is the position of the startup validator in its linear state
// machine. There are no retries: each transition either succeeds or the
// failure is terminal for the process.
type State uint8

const (
	StateUnmounted State = iota
	StateMounted
	StateMagicChecked
	StateFeaturesChecked
	StateMapsLoaded
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnmounted:
		return "unmounted"
	case StateMounted:
		return "mounted"
	case StateMagicChecked:
		return "magic-checked"
	case StateFeaturesChecked:
		return "features-checked"
	case StateMapsLoaded:
		return "maps-loaded"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Validator
// --------------------------------------------------------------------------

// Validator performs the mount-time checks of a monitor store, in order:
// mount, identity marker, feature compatibility, map loading, rank
// resolution. On success it hands over a ready Monitor that owns the
// mounted store.
type Validator struct {
	cfg     *Config
	factory kvstore.StoreFactory
	state   State
}

// NewValidator creates a validator for the configured store.
func NewValidator(cfg *Config, factory kvstore.StoreFactory) *Validator {
	return &Validator{cfg: cfg, factory: factory, state: StateUnmounted}
}

// State returns how far the validator got.
func (v *Validator) State() State {
	return v.state
}

// Run drives the state machine to StateReady or returns the first terminal
// error. On failure the store is left unmounted.
func (v *Validator) Run() (*Monitor, error) {
	store := NewStore(v.cfg, v.factory)
	if err := store.Mount(); err != nil {
		return nil, err
	}
	v.state = StateMounted

	mon, err := v.validateMounted(store)
	if err != nil {
		_ = store.Unmount()
		return nil, err
	}
	return mon, nil
}

func (v *Validator) validateMounted(store *Store) (*Monitor, error) {
	// identity marker
	if err := store.CheckMagic(); err != nil {
		return nil, err
	}
	v.state = StateMagicChecked

	// feature compatibility; this is the one place the full diff is
	// computed and shown to the operator
	ondisk, found, err := store.OnDiskFeatures()
	if err != nil {
		return nil, err
	}
	if !found {
		log.Warningf("store is missing its feature record; assuming it is old-style and using the baseline feature set")
		ondisk = compat.Baseline()
	}
	supported := compat.Supported()
	if !ondisk.WriteableBy(supported) {
		return nil, NewUnsupportedFeatureError(
			"this software cannot read the on-disk format", ondisk.Unsupported(supported))
	}
	v.state = StateFeaturesChecked

	// load the latest committed epoch of every in-scope map type
	monVM := cmap.NewVersionedMap(SectionMonMap, &cmap.MonMap{})
	if err := loadMap(monVM, store); err != nil {
		return nil, err
	}
	osdVM := cmap.NewVersionedMap(SectionOSDMap, &cmap.OSDMap{})
	if err := loadMap(osdVM, store); err != nil {
		return nil, err
	}
	v.state = StateMapsLoaded

	// resolve this monitor's identity
	monmap := monVM.Map().(*cmap.MonMap)
	rank := monmap.Rank(v.cfg.Name)
	if rank < 0 {
		return nil, NewError(RetCInvalidOperation, fmt.Sprintf("mon.%s does not exist in the membership map", v.cfg.Name))
	}

	v.state = StateReady
	log.Infof("starting mon.%s rank %d at %s mon_data %s fsid %s",
		v.cfg.Name, rank, monmap.Addr(v.cfg.Name), v.cfg.Path, monmap.FSID)

	return &Monitor{
		Store:          store,
		MonMap:         monVM,
		OSDMap:         osdVM,
		Rank:           rank,
		OnDiskFeatures: ondisk,
	}, nil
}

// loadMap translates the container's sentinel errors into the monitor's
// failure taxonomy.
func loadMap(v *cmap.VersionedMap, store *Store) error {
	err := v.Load(store.KV())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cmap.ErrUninitialized):
		return NewError(RetCUninitialized, fmt.Sprintf("store is missing %q; it was never fully bootstrapped", v.Section()))
	case errors.Is(err, cmap.ErrCorrupt):
		return NewError(RetCCorruption, err.Error())
	default:
		return NewError(RetCIOError, err.Error())
	}
}

// --------------------------------------------------------------------------
// Monitor
// --------------------------------------------------------------------------

// Monitor is the validated, ready monitor state: the mounted store, the
// loaded map containers and this process's rank in the quorum. Further
// epoch commits are driven by the external consensus layer.
type Monitor struct {
	Store          *Store
	MonMap         *cmap.VersionedMap
	OSDMap         *cmap.VersionedMap
	Rank           int
	OnDiskFeatures compat.CompatSet
}

// Close unmounts the store.
func (m *Monitor) Close() error {
	return m.Store.Unmount()
}
