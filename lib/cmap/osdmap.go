package cmap

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// osdMapVersion tags the resource map wire format.
const osdMapVersion uint8 = 1

// DeviceState holds the membership state flags of one storage node.
type DeviceState uint8

const (
	StateUp DeviceState = 1 << iota // node process is alive
	StateIn                         // node participates in data placement
)

func (s DeviceState) String() string {
	var parts []string
	if s&StateUp != 0 {
		parts = append(parts, "up")
	} else {
		parts = append(parts, "down")
	}
	if s&StateIn != 0 {
		parts = append(parts, "in")
	} else {
		parts = append(parts, "out")
	}
	return strings.Join(parts, "+")
}

// Device is one storage node entry of the resource map.
type Device struct {
	ID    uint32
	State DeviceState
}

// OSDMap is the resource map: storage-node identities and states plus the
// embedded placement-rules blob. The placement rules are treated as an
// opaque byte sequence; building and interpreting them is the placement
// algorithm's concern, not the monitor's.
type OSDMap struct {
	FSID      uuid.UUID
	Devices   []Device
	CrushBlob []byte

	epoch uint64
}

// Size returns the number of storage nodes in the map.
func (m *OSDMap) Size() int {
	return len(m.Devices)
}

// --------------------------------------------------------------------------
// Map Interface
// --------------------------------------------------------------------------

func (m *OSDMap) Epoch() uint64 {
	return m.epoch
}

func (m *OSDMap) SetEpoch(e uint64) {
	m.epoch = e
}

// Encode serializes the map as
// {u8 ver}{16B fsid}{u64 epoch}{u32 n}{n x (u32 id)(u8 state)}{lp crush}.
func (m *OSDMap) Encode() []byte {
	out := []byte{osdMapVersion}
	out = append(out, m.FSID[:]...)
	out = binary.BigEndian.AppendUint64(out, m.epoch)
	out = binary.BigEndian.AppendUint32(out, uint32(len(m.Devices)))
	for _, d := range m.Devices {
		out = binary.BigEndian.AppendUint32(out, d.ID)
		out = append(out, byte(d.State))
	}
	out = appendLP(out, m.CrushBlob)
	return out
}

func (m *OSDMap) Decode(data []byte) error {
	if len(data) < 1 {
		return fmt.Errorf("%w: osdmap blob is empty", ErrCorrupt)
	}
	if v := data[0]; v != osdMapVersion {
		return fmt.Errorf("%w: unknown osdmap version %d", ErrCorrupt, v)
	}
	data = data[1:]

	if len(data) < 16+8+4 {
		return fmt.Errorf("%w: osdmap blob truncated in header", ErrCorrupt)
	}
	var fsid uuid.UUID
	copy(fsid[:], data[:16])
	data = data[16:]

	epoch := binary.BigEndian.Uint64(data)
	data = data[8:]

	count := binary.BigEndian.Uint32(data)
	data = data[4:]

	// every entry is exactly 5 bytes
	if uint32(len(data))/5 < count {
		return fmt.Errorf("%w: osdmap claims %d entries in %d bytes", ErrCorrupt, count, len(data))
	}

	devices := make([]Device, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 5 {
			return fmt.Errorf("%w: osdmap entry %d truncated", ErrCorrupt, i)
		}
		devices = append(devices, Device{
			ID:    binary.BigEndian.Uint32(data),
			State: DeviceState(data[4]),
		})
		data = data[5:]
	}

	crush, rest, err := readLP(data)
	if err != nil {
		return fmt.Errorf("%w: osdmap crush blob: %v", ErrCorrupt, err)
	}
	if len(rest) != 0 {
		return fmt.Errorf("%w: osdmap blob holds %d trailing bytes", ErrCorrupt, len(rest))
	}

	m.FSID = fsid
	m.epoch = epoch
	m.Devices = devices
	m.CrushBlob = crush
	return nil
}
