package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/cmd/clawmgr/commands/flags"
	"github.com/thoreinstein/clawmgr/internal/backup"
	"github.com/thoreinstein/clawmgr/internal/cli/prompt"
	"github.com/thoreinstein/clawmgr/internal/errors"
)

func init() {
	Cmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-id]",
	Short: "Restore a file from a backup",
	Long: `Write a snapshot back over the live file after checking its hash.

The backup ID defaults to "latest". The target defaults to external-store.
Restoring the companion store does not change the registry; run
"clawmgr mcp sync" afterwards to bring the store back in line.`,
	Example: `  clawmgr backup restore
  clawmgr backup restore 20260123T100712-3f9c1a2b --target platform-config`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	target := targetFlag
	if target == "" {
		target = backup.TargetExternalStore
	}
	if _, err := resolveTargets(); err != nil {
		return err
	}
	id := "latest"
	if len(args) == 1 {
		id = args[0]
	}

	a, err := app(cmd)
	if err != nil {
		return err
	}
	manifest, err := a.Backups.Get(target, id)
	if err != nil {
		if errors.Is(err, backup.ErrNoBackupsFound) {
			return errors.NewUserError(err, "Run: clawmgr backup list")
		}
		return err
	}

	w := cmd.OutOrStdout()
	if !flags.AssumeYes() {
		question := fmt.Sprintf("Overwrite %s with backup %s?", targetFile(a, target), manifest.ID)
		ok, err := prompt.NewWithIO(cmd.InOrStdin(), w).Confirm(question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Cancelled")
			return nil
		}
	}

	if _, err := a.Backups.Restore(target, manifest.ID); err != nil {
		if errors.Is(err, backup.ErrBackupCorrupted) {
			return errors.NewSystemError(err, "Pick another backup: clawmgr backup list")
		}
		return err
	}
	fmt.Fprintf(w, "Restored %s from %s\n", target, manifest.ID)
	return nil
}
