// Package testing provides a reusable conformance test suite for
// kvstore.IKVStore implementations. Engine packages call RunKVStoreTests
// from their own tests to verify the full store contract: durable puts,
// atomic transactions, ordered section listing, persistence across
// remounts and exclusive mount ownership.
package testing
