// Package reconcile projects the enabled subset of the private registry
// into the companion tool's server list.
//
// The projection is one-way and additive. Enabled servers are written
// under their name as a transport-only shape, disabled servers are removed
// if present, and entries whose names the registry does not know are never
// touched. Every other top-level field of the companion document survives
// the rewrite.
//
// [Apply] is the pure core; [Syncer] wraps it with disk I/O and a
// pre-write snapshot hook, and [Watcher] re-runs a sync when a file is
// edited by hand. Sync failures are marked [ErrSyncDegraded] so callers can
// report them without failing the primary operation.
package reconcile
