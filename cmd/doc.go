// Package cmd implements the command-line interface for the monstore
// monitor. It provides a hierarchical command structure with the
// administrative one-shot procedures and the daemon entry point.
//
// The package is organized into several subpackages:
//
//   - mkfs: Build a fresh monitor store from seed map blobs
//   - inject: Force-install a new membership map epoch (disaster recovery)
//   - start: Validate the store and run the monitor
//   - maptool: Author and inspect seed map blobs
//   - util: Shared utilities for command-line processing, configuration
//     and logging (internal use)
//
// See monstore -help for a list of all commands.
package cmd
