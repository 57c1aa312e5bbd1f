// Package mon implements the monitor's map-store semantics on top of the
// durable key-value store: the on-disk record layout, the bootstrap (mkfs)
// procedure, administrative map injection and the mount-time validator.
//
// Store Layout:
//
//	meta/magic              identity marker, ASCII token + trailing newline
//	meta/feature_set        compat record of the software that wrote the store
//	<map>/latest            {u64 epoch}{length-prefixed blob}
//	<map>/last_committed    bare u64
//	<map>/first_committed   bare u64
//	<map>/<epoch>           raw blob, zero-padded decimal epoch key
//
// where <map> is "monmap" (membership) or "osdmap" (resources). Snapshots
// are immutable once committed; only the latest pointer and the cursors
// move. Nothing in this package deletes records.
//
// Three entry points operate on a store:
//
//   - Mkfs seeds an empty store at epoch 1 for both map types, writing the
//     identity marker and the running software's feature set in one atomic
//     transaction. It refuses to clobber an already-initialized store.
//
//   - Inject force-installs a new membership map epoch for disaster
//     recovery. The epoch is recomputed from last_committed, never taken
//     from the operator-supplied blob, so repeated injections yield
//     strictly increasing epochs without gaps.
//
//   - Validator runs the linear mount-time state machine (mount, magic,
//     features, maps, rank) and hands over a ready Monitor. Every failure
//     is terminal; the operator diagnostics distinguish I/O errors,
//     corruption, unsupported features and un-bootstrapped stores.
//
// All operations are synchronous and single-owner; concurrency control
// beyond the store's mount exclusion is deliberately absent (see the
// kvstore package for the ownership model).
package mon
