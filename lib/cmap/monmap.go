package cmap

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// monMapVersion tags the membership map wire format.
const monMapVersion uint8 = 1

// MonInfo identifies one monitor: its name and the network address peers
// reach it on.
type MonInfo struct {
	Name string
	Addr string
}

// MonMap is the membership map: the set of monitors forming the quorum, the
// cluster identity token (fsid) and the map epoch. The monitor list is kept
// sorted by name; a monitor's rank is its position in that order.
type MonMap struct {
	FSID     uuid.UUID
	Monitors []MonInfo

	epoch uint64
}

// NewMonMap creates an empty membership map with a fresh cluster identity.
func NewMonMap() *MonMap {
	return &MonMap{FSID: uuid.New()}
}

// --------------------------------------------------------------------------
// Membership
// --------------------------------------------------------------------------

// Add inserts a monitor, keeping the list sorted by name. Duplicate names
// are rejected.
func (m *MonMap) Add(name, addr string) error {
	if name == "" {
		return fmt.Errorf("monitor name must not be empty")
	}
	if m.Contains(name) {
		return fmt.Errorf("monitor %s already in map", name)
	}
	m.Monitors = append(m.Monitors, MonInfo{Name: name, Addr: addr})
	sort.Slice(m.Monitors, func(i, j int) bool { return m.Monitors[i].Name < m.Monitors[j].Name })
	return nil
}

// Contains reports whether a monitor with the given name is in the map.
func (m *MonMap) Contains(name string) bool {
	return m.Rank(name) >= 0
}

// Rank returns the monitor's position in name order, or -1 if absent.
func (m *MonMap) Rank(name string) int {
	for i, mon := range m.Monitors {
		if mon.Name == name {
			return i
		}
	}
	return -1
}

// Addr returns the address of the named monitor ("" if absent).
func (m *MonMap) Addr(name string) string {
	if r := m.Rank(name); r >= 0 {
		return m.Monitors[r].Addr
	}
	return ""
}

// Size returns the number of monitors in the map.
func (m *MonMap) Size() int {
	return len(m.Monitors)
}

// --------------------------------------------------------------------------
// Map Interface
// --------------------------------------------------------------------------

func (m *MonMap) Epoch() uint64 {
	return m.epoch
}

func (m *MonMap) SetEpoch(e uint64) {
	m.epoch = e
}

// Encode serializes the map as
// {u8 ver}{16B fsid}{u64 epoch}{u32 n}{n x (lp name)(lp addr)}.
func (m *MonMap) Encode() []byte {
	out := []byte{monMapVersion}
	out = append(out, m.FSID[:]...)
	out = binary.BigEndian.AppendUint64(out, m.epoch)
	out = binary.BigEndian.AppendUint32(out, uint32(len(m.Monitors)))
	for _, mon := range m.Monitors {
		out = appendLPString(out, mon.Name)
		out = appendLPString(out, mon.Addr)
	}
	return out
}

func (m *MonMap) Decode(data []byte) error {
	if len(data) < 1 {
		return fmt.Errorf("%w: monmap blob is empty", ErrCorrupt)
	}
	if v := data[0]; v != monMapVersion {
		return fmt.Errorf("%w: unknown monmap version %d", ErrCorrupt, v)
	}
	data = data[1:]

	if len(data) < 16+8+4 {
		return fmt.Errorf("%w: monmap blob truncated in header", ErrCorrupt)
	}
	var fsid uuid.UUID
	copy(fsid[:], data[:16])
	data = data[16:]

	epoch := binary.BigEndian.Uint64(data)
	data = data[8:]

	count := binary.BigEndian.Uint32(data)
	data = data[4:]

	// every entry carries at least its two length prefixes
	if uint32(len(data))/8 < count {
		return fmt.Errorf("%w: monmap claims %d entries in %d bytes", ErrCorrupt, count, len(data))
	}

	monitors := make([]MonInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		var name, addr string
		var err error
		if name, data, err = readLPString(data); err != nil {
			return fmt.Errorf("%w: monmap entry %d name: %v", ErrCorrupt, i, err)
		}
		if addr, data, err = readLPString(data); err != nil {
			return fmt.Errorf("%w: monmap entry %d addr: %v", ErrCorrupt, i, err)
		}
		monitors = append(monitors, MonInfo{Name: name, Addr: addr})
	}
	if len(data) != 0 {
		return fmt.Errorf("%w: monmap blob holds %d trailing bytes", ErrCorrupt, len(data))
	}

	m.FSID = fsid
	m.epoch = epoch
	m.Monitors = monitors
	return nil
}
