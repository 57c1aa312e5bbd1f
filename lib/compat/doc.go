// Package compat implements the feature-compatibility negotiation that
// guards the evolution of the monitor's on-disk format.
//
// A CompatSet describes format features in three escalating tiers: compat
// (optional), ro_compat (read-only safe without) and incompat (mandatory).
// The set a store was written with is persisted in the store itself; on
// mount it is compared against the running software's Supported() set, and
// the store is refused if the software lacks a required feature. The
// Unsupported diff names the missing feature IDs so the operator can decide
// whether to upgrade or downgrade.
//
// Stores written before the compat record existed are treated as carrying
// exactly the Baseline() set, the feature set of the initial release.
package compat
