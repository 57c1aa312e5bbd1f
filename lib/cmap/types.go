package cmap

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Map Interface
// --------------------------------------------------------------------------

// Map is implemented by every cluster map type held in a VersionedMap. A map
// blob is opaque, versioned and self-describing: decoding it reproduces the
// epoch it was encoded with.
type Map interface {
	// Epoch returns the epoch of the decoded map. Epoch 0 is reserved and
	// means the map was never decoded or committed.
	Epoch() uint64
	// SetEpoch overrides the epoch field directly without touching any other
	// field. Used only by the administrative injection path.
	SetEpoch(e uint64)
	// Encode serializes the map. For any successfully decoded map, Encode is
	// the exact inverse of Decode.
	Encode() []byte
	// Decode parses a map blob, replacing the receiver's state. It fails if
	// the blob is truncated or the epoch field is unparseable.
	Decode(data []byte) error
}

// Reader is the slice of the store interface the map container needs: record
// lookup by (section, key). kvstore.IKVStore satisfies it.
type Reader interface {
	Get(section, key string) (value []byte, found bool, err error)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrUninitialized is returned when a required map has never been
	// committed to the store.
	ErrUninitialized = errors.New("map has never been committed")
	// ErrCorrupt is wrapped by all decode and consistency failures.
	ErrCorrupt = errors.New("map record is corrupt")
)

// --------------------------------------------------------------------------
// Store Layout
// --------------------------------------------------------------------------

// Record keys used inside a map's store section. The per-epoch snapshots use
// EpochKey; everything else is a sentinel key.
const (
	KeyLatest         = "latest"
	KeyLastCommitted  = "last_committed"
	KeyFirstCommitted = "first_committed"
)

// EpochKey formats an epoch as a zero-padded decimal store key so that
// lexicographic key order equals numeric epoch order.
func EpochKey(e uint64) string {
	return fmt.Sprintf("%020d", e)
}

// --------------------------------------------------------------------------
// Wire Helpers
// --------------------------------------------------------------------------

// EncodeLatest builds the "latest" pointer record: the committed epoch
// followed by the length-prefixed map blob.
func EncodeLatest(epoch uint64, blob []byte) []byte {
	out := make([]byte, 0, 8+4+len(blob))
	out = binary.BigEndian.AppendUint64(out, epoch)
	out = appendLP(out, blob)
	return out
}

// DecodeLatest parses a "latest" pointer record.
func DecodeLatest(data []byte) (epoch uint64, blob []byte, err error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("%w: latest record truncated", ErrCorrupt)
	}
	epoch = binary.BigEndian.Uint64(data)
	blob, rest, err := readLP(data[8:])
	if err != nil {
		return 0, nil, fmt.Errorf("%w: latest record blob: %v", ErrCorrupt, err)
	}
	if len(rest) != 0 {
		return 0, nil, fmt.Errorf("%w: latest record holds %d trailing bytes", ErrCorrupt, len(rest))
	}
	return epoch, blob, nil
}

// EncodeUint / DecodeUint handle the bare unsigned integer records
// (last_committed, first_committed).
func EncodeUint(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func DecodeUint(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: expected 8-byte integer record, got %d bytes", ErrCorrupt, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// appendLP appends a u32 length prefix followed by the bytes.
func appendLP(out, b []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
	return append(out, b...)
}

// appendLPString is appendLP for strings.
func appendLPString(out []byte, s string) []byte {
	return appendLP(out, []byte(s))
}

// readLP consumes a u32 length-prefixed byte sequence and returns it along
// with the remaining input.
func readLP(data []byte) (b, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.BigEndian.Uint32(data)
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, fmt.Errorf("truncated value (want %d bytes, have %d)", n, len(data))
	}
	return data[:n], data[n:], nil
}

// readLPString is readLP for strings.
func readLPString(data []byte) (s string, rest []byte, err error) {
	b, rest, err := readLP(data)
	return string(b), rest, err
}
