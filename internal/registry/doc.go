// Package registry owns clawmgr's private MCP server list.
//
// The registry file maps server names to descriptors, disabled ones
// included, and is the authoritative state. [Store.Save] writes it
// atomically and then reconciles the companion tool's store; a failed
// reconcile degrades the result without failing the save.
//
// Mutations from concurrent clawmgr processes are serialized by
// [Store.Update], which holds an advisory file lock next to the registry
// across load, mutate, save and reconcile.
package registry
