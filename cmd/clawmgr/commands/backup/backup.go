// Package backup provides CLI commands for managing snapshots of the files
// clawmgr rewrites.
package backup

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/backup"
	"github.com/thoreinstein/clawmgr/internal/cli"
	"github.com/thoreinstein/clawmgr/internal/errors"
)

// targetFlag holds the shared --target value.
var targetFlag string

// Cmd is the root backup command.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backups of the companion store and platform config",
	Long: `Manage snapshots of the files clawmgr rewrites.

Before clawmgr first changes the companion tool's store or the platform
config in a run, it snapshots the file. Targets:

  external-store   the companion tool's server list
  platform-config  OpenClaw's main config document`,
	Example: `  # List all backups
  clawmgr backup list

  # Restore the most recent companion store snapshot
  clawmgr backup restore latest --target external-store

  # Keep only the 3 most recent snapshots per target
  clawmgr backup prune --keep 3

  See Also:
    clawmgr backup list    - List available backups
    clawmgr backup restore - Restore from a backup
    clawmgr backup create  - Snapshot the files now
    clawmgr backup prune   - Remove old backups`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	Cmd.PersistentFlags().StringVarP(&targetFlag, "target", "t", "",
		"limit to one target: external-store, platform-config")
}

// allTargets lists every backup target in display order.
var allTargets = []string{backup.TargetExternalStore, backup.TargetPlatformConfig}

// resolveTargets returns the targets selected by --target, or all of them.
func resolveTargets() ([]string, error) {
	if targetFlag == "" {
		return allTargets, nil
	}
	if !slices.Contains(allTargets, targetFlag) {
		return nil, errors.NewUserError(
			errors.Newf("unknown backup target %q", targetFlag),
			"Use --target external-store or --target platform-config")
	}
	return []string{targetFlag}, nil
}

// targetFile returns the file snapshotted for target.
func targetFile(a *cli.App, target string) string {
	if target == backup.TargetPlatformConfig {
		return a.Platform.Path()
	}
	return a.Syncer.Path()
}

func app(cmd *cobra.Command) (*cli.App, error) {
	return cli.FromContext(cmd.Context())
}
