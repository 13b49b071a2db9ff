package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/backup"
	"github.com/thoreinstein/clawmgr/internal/errors"
)

var pruneKeep int

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", backup.DefaultRetentionCount,
		"Number of backups to retain per target")
	Cmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old backups",
	Long:  `Remove snapshots beyond the retention count, oldest first.`,
	Example: `  clawmgr backup prune
  clawmgr backup prune --keep 0 --target platform-config`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if pruneKeep < 0 {
		return errors.NewUserError(errors.New("--keep must be non-negative"), "")
	}
	targets, err := resolveTargets()
	if err != nil {
		return err
	}
	a, err := app(cmd)
	if err != nil {
		return err
	}

	pruned := 0
	for _, t := range targets {
		manifests, err := a.Backups.List(t)
		if errors.Is(err, backup.ErrNoBackupsFound) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "listing backups for %s", t)
		}
		if n := len(manifests) - pruneKeep; n > 0 {
			if err := a.Backups.Prune(t, pruneKeep); err != nil {
				return errors.Wrapf(err, "pruning %s", t)
			}
			pruned += n
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d backup(s)\n", pruned)
	return nil
}
