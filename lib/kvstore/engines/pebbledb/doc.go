// Package pebbledb implements the kvstore.IKVStore interface on top of an
// embedded pebble database. It is the production engine for the monitor's
// on-disk map store.
//
// Key Features:
//   - Crash-safe atomic transactions via synced pebble batches
//   - Namespaced (section, key) records encoded as prefixed engine keys
//   - Ascending key iteration per section for epoch range scans
//   - Exclusive ownership: in-process double mounts are rejected, other
//     processes are excluded by pebble's directory lock
//
// Implementation Details:
//
//   - Key Encoding: A record (section, key) is stored under the engine key
//     section || 0x00 || key. Section listings iterate the half-open range
//     [section 0x00, section 0x01), which yields exactly the section's keys
//     in ascending lexicographic order.
//
//   - Durability: Every transaction is applied with pebble.Sync, so the
//     write-ahead log is fsynced before Apply returns. A crash after Apply
//     returns cannot lose the transaction; a crash before leaves the prior
//     state intact. This is the property the monitor's epoch commits rely on.
//
//   - Mount Exclusion: A process-wide registry of mounted paths rejects a
//     second handle for the same directory with RetCLocked. Pebble's own
//     LOCK file covers the cross-process case; a lock-related open failure
//     is likewise surfaced as RetCLocked rather than a generic I/O error.
//
// Performance Considerations:
//
//	Synced commits bound throughput by fsync latency. The monitor store is
//	not throughput-sensitive (a handful of map commits per second at most),
//	so the engine makes no attempt to batch or defer syncs.
package pebbledb
