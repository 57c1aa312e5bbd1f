package compat

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Features
// --------------------------------------------------------------------------

// Feature identifies one on-disk format feature. IDs are small positive
// integers (1..64) assigned once and never reused; the name is descriptive
// only and not part of the wire format.
type Feature struct {
	ID   uint64
	Name string
}

// The known on-disk features of this software. New features get the next
// free ID; IDs of retired features stay reserved.
var (
	FeatureIncompatBase    = Feature{1, "initial feature set"}
	FeatureIncompatPaxosKV = Feature{2, "single paxos with k/v store"}
)

// knownFeatureNames resolves IDs back to names for diagnostics when a set
// is decoded from disk.
var knownFeatureNames = map[uint64]string{
	FeatureIncompatBase.ID:    FeatureIncompatBase.Name,
	FeatureIncompatPaxosKV.ID: FeatureIncompatPaxosKV.Name,
}

// --------------------------------------------------------------------------
// FeatureSet
// --------------------------------------------------------------------------

// FeatureSet is a set of feature IDs, stored as a bitmask (bit n-1 set =
// feature n present). The zero value is the empty set.
type FeatureSet struct {
	mask  uint64
	names map[uint64]string
}

// NewFeatureSet creates a set holding the given features.
func NewFeatureSet(features ...Feature) FeatureSet {
	var s FeatureSet
	for _, f := range features {
		s.Insert(f)
	}
	return s
}

// Insert adds a feature to the set. IDs outside 1..64 are a programming
// error.
func (s *FeatureSet) Insert(f Feature) {
	if f.ID < 1 || f.ID > 64 {
		panic(fmt.Sprintf("feature id %d out of range (1..64)", f.ID))
	}
	s.mask |= 1 << (f.ID - 1)
	if f.Name != "" {
		if s.names == nil {
			s.names = map[uint64]string{}
		}
		s.names[f.ID] = f.Name
	}
}

// Contains reports whether the feature with the given ID is in the set.
func (s FeatureSet) Contains(id uint64) bool {
	if id < 1 || id > 64 {
		return false
	}
	return s.mask&(1<<(id-1)) != 0
}

// SupersetOf reports whether every feature of other is also in s.
func (s FeatureSet) SupersetOf(other FeatureSet) bool {
	return s.mask&other.mask == other.mask
}

// Diff returns the features of s that are missing from other.
func (s FeatureSet) Diff(other FeatureSet) FeatureSet {
	var out FeatureSet
	for _, id := range s.IDs() {
		if !other.Contains(id) {
			out.Insert(Feature{ID: id, Name: s.name(id)})
		}
	}
	return out
}

// Empty returns whether the set holds no features.
func (s FeatureSet) Empty() bool {
	return s.mask == 0
}

// IDs returns the feature IDs of the set in ascending order.
func (s FeatureSet) IDs() []uint64 {
	var ids []uint64
	for id := uint64(1); id <= 64; id++ {
		if s.Contains(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// String renders the set as "{1(initial feature set),2(...)}" for operator
// diagnostics.
func (s FeatureSet) String() string {
	var parts []string
	for _, id := range s.IDs() {
		if name := s.name(id); name != "" {
			parts = append(parts, fmt.Sprintf("%d(%s)", id, name))
		} else {
			parts = append(parts, fmt.Sprintf("%d", id))
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (s FeatureSet) name(id uint64) string {
	if name, ok := s.names[id]; ok {
		return name
	}
	return knownFeatureNames[id]
}

// --------------------------------------------------------------------------
// CompatSet
// --------------------------------------------------------------------------

// CompatSet describes the on-disk format requirements of a store or the
// format support of a software build, in three escalating tiers:
//
//   - Compat: optional features; readers without them may still operate,
//     possibly degraded.
//   - RoCompat: readers without these features may read but must not write.
//   - Incompat: readers without these features must refuse entirely.
type CompatSet struct {
	Compat   FeatureSet
	RoCompat FeatureSet
	Incompat FeatureSet
}

// WriteableBy reports whether a build with the candidate's feature support
// may safely write a store carrying this set: the candidate must support
// every incompat and every ro-compat feature of this set.
func (s CompatSet) WriteableBy(candidate CompatSet) bool {
	return candidate.Incompat.SupersetOf(s.Incompat) &&
		candidate.RoCompat.SupersetOf(s.RoCompat)
}

// Unsupported returns the features required by this set (incompat and
// ro-compat tiers) that the candidate does not support. The result is what
// the operator sees when a store is refused.
func (s CompatSet) Unsupported(candidate CompatSet) CompatSet {
	return CompatSet{
		RoCompat: s.RoCompat.Diff(candidate.RoCompat),
		Incompat: s.Incompat.Diff(candidate.Incompat),
	}
}

// Empty returns whether all three tiers are empty.
func (s CompatSet) Empty() bool {
	return s.Compat.Empty() && s.RoCompat.Empty() && s.Incompat.Empty()
}

// String renders all three tiers for diagnostics.
func (s CompatSet) String() string {
	return fmt.Sprintf("compat=%v ro_compat=%v incompat=%v", s.Compat, s.RoCompat, s.Incompat)
}

// --------------------------------------------------------------------------
// Well-known sets
// --------------------------------------------------------------------------

// Baseline returns the exact feature set assumed for stores written before
// the feature record existed. Legacy stores predate the record but do carry
// the initial on-disk format, so the fallback is this set and deliberately
// NOT the empty set: an empty set would claim zero incompat requirements
// and let incompatible software mis-handle an old store.
func Baseline() CompatSet {
	return CompatSet{
		Incompat: NewFeatureSet(FeatureIncompatBase),
	}
}

// Supported returns the feature set of the running software. New stores are
// created with this set as their on-disk compat record.
func Supported() CompatSet {
	return CompatSet{
		Incompat: NewFeatureSet(FeatureIncompatBase, FeatureIncompatPaxosKV),
	}
}

// --------------------------------------------------------------------------
// Wire Format
// --------------------------------------------------------------------------

// encodeVersion tags the wire format of the compat record.
const encodeVersion uint8 = 1

// Encode serializes the set as {u8 version}{compat}{ro_compat}{incompat},
// each tier a u32 count followed by that many u32 feature IDs in ascending
// order. The encoding is canonical: Encode(Decode(b)) == b.
func (s CompatSet) Encode() []byte {
	size := 1
	tiers := [3]FeatureSet{s.Compat, s.RoCompat, s.Incompat}
	for _, tier := range tiers {
		size += 4 + 4*len(tier.IDs())
	}

	out := make([]byte, 0, size)
	out = append(out, encodeVersion)
	for _, tier := range tiers {
		ids := tier.IDs() // ascending by construction
		out = binary.BigEndian.AppendUint32(out, uint32(len(ids)))
		for _, id := range ids {
			out = binary.BigEndian.AppendUint32(out, uint32(id))
		}
	}
	return out
}

// Decode parses a compat record produced by Encode. Feature names are
// restored from the known-feature table where possible.
func Decode(data []byte) (CompatSet, error) {
	var s CompatSet

	if len(data) < 1 {
		return s, fmt.Errorf("compat record truncated (empty)")
	}
	if v := data[0]; v != encodeVersion {
		return s, fmt.Errorf("unknown compat record version %d", v)
	}
	pos := 1

	tiers := [3]*FeatureSet{&s.Compat, &s.RoCompat, &s.Incompat}
	for i, tier := range tiers {
		if len(data) < pos+4 {
			return CompatSet{}, fmt.Errorf("compat record truncated in tier %d header", i)
		}
		count := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
		for j := uint32(0); j < count; j++ {
			if len(data) < pos+4 {
				return CompatSet{}, fmt.Errorf("compat record truncated in tier %d entry %d", i, j)
			}
			id := uint64(binary.BigEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if id < 1 || id > 64 {
				return CompatSet{}, fmt.Errorf("compat record holds invalid feature id %d", id)
			}
			tier.Insert(Feature{ID: id, Name: knownFeatureNames[id]})
		}
	}
	if pos != len(data) {
		return CompatSet{}, fmt.Errorf("compat record holds %d trailing bytes", len(data)-pos)
	}
	return s, nil
}
