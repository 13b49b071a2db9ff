package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/backup"
	"github.com/thoreinstein/clawmgr/internal/errors"
)

func init() {
	Cmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the files now",
	Long: `Snapshot every target's file, or only --target. Targets whose file
does not exist yet are skipped.`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, _ []string) error {
	targets, err := resolveTargets()
	if err != nil {
		return err
	}
	a, err := app(cmd)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, t := range targets {
		path := targetFile(a, t)
		m, err := a.Backups.Backup(t, []string{path})
		if errors.Is(err, backup.ErrNothingToBackUp) {
			fmt.Fprintf(w, "%s: %s does not exist, skipped\n", t, path)
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "backing up %s", t)
		}
		fmt.Fprintf(w, "%s: created %s\n", t, m.ID)
	}
	return nil
}
