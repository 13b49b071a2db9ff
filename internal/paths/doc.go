// Package paths resolves every file location clawmgr touches.
//
// Three groups of paths exist:
//
//   - clawmgr's own files under the XDG roots (github.com/adrg/xdg):
//     config.yaml in [AppConfigDir] and snapshots in [BackupDir].
//   - Files owned by the agent platform under ~/.openclaw: the private MCP
//     registry, the install root for cloned servers, and the platform's
//     main configuration document.
//   - The companion tool's store under ~/.mcporter, which clawmgr only
//     ever writes through the reconciler.
//
// Every default can be overridden in config.yaml; [ExpandHome] turns the
// "~/" form users write there into an absolute path.
package paths
