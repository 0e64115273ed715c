// Package daemon coordinates the long-running chyrond process.
//
// It wires configuration, the catalog store, and the pipeline manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// Individual pipeline stages live in their own packages; the daemon focuses
// on startup, shutdown, and high level coordination.
package daemon
