// Package cmap holds the cluster map types of the monitor and the container
// that versions them.
//
// Two map types are in scope:
//
//   - MonMap: the membership map. Monitor names and addresses, the cluster
//     identity token (fsid) and the map epoch. Ranks derive from name order.
//
//   - OSDMap: the resource map. Storage-node identities and up/in state
//     flags, the epoch and the embedded placement-rules blob. The placement
//     rules are carried as opaque bytes; the monitor stores and distributes
//     them but never interprets them.
//
// Both types implement the Map interface: a versioned, self-describing wire
// encoding where Decode(Encode(m)) reproduces m exactly and Encode is
// byte-identical to the canonical input that produced it. A blob always
// embeds its own epoch; when loading, the embedded epoch is checked against
// the epoch the blob was stored under, and a mismatch is treated as
// corruption.
//
// VersionedMap ties a map type to its store section: the "latest" pointer
// record, the first/last committed cursors and the per-epoch snapshots.
// Epoch 0 is reserved; a freshly bootstrapped map starts at epoch 1, and
// epochs only ever grow.
package cmap
