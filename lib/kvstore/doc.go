// Package kvstore provides a standardized interface for the durable,
// namespaced key-value store that backs the monitor's on-disk state.
// It defines the IKVStore interface that allows for consistent interaction
// with various storage engines while abstracting implementation details.
//
// The package focuses on:
//   - A unified interface for namespaced (section, key) records
//   - Atomic, crash-safe multi-key transactions
//   - Durability guarantees suitable for cluster-critical metadata
//   - Exclusive single-owner handles between Mount and Unmount
//
// Key Components:
//
//   - IKVStore Interface: The core interface that all engine implementations
//     must satisfy. It provides Mount/Unmount lifecycle management, record
//     access (Get, Put), atomic batches (Apply) and ordered key listing
//     (ListKeys).
//
//   - Transaction: An ordered batch of put/erase operations applied
//     atomically. Either all operations of a transaction are durable when
//     Apply returns, or none of them are visible after a crash.
//
//   - Error/RetCode: A custom error type carrying a machine-readable return
//     code, mirroring the failure taxonomy of the monitor (I/O failure,
//     locked store, closed handle).
//
// Durability Model:
//
//	Every write operation is synchronously durable before it returns. This
//	store holds the authoritative cluster maps; losing an acknowledged epoch
//	would violate the monitor's core guarantee, so throughput is explicitly
//	traded for correctness at this layer.
//
// Ownership Model:
//
//	A store handle is exclusively owned by one monitor process instance for
//	its lifetime between Mount and Unmount. Mounting the same path twice
//	within one process fails with RetCLocked; cross-process exclusion is
//	provided by the engine's directory lock.
//
// For the concrete engine see the engines/pebbledb subpackage.
package kvstore
