package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/backup"
	"github.com/thoreinstein/clawmgr/internal/errors"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	Long:  `List snapshots grouped by target, most recent first.`,
	Example: `  clawmgr backup list
  clawmgr backup list --target platform-config --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// listOutput represents one target's snapshots in JSON output.
type listOutput struct {
	Target  string       `json:"target"`
	Backups []infoOutput `json:"backups"`
}

// infoOutput represents a single backup in JSON output.
type infoOutput struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	FileCount   int       `json:"file_count"`
	ToolVersion string    `json:"tool_version"`
}

func runList(cmd *cobra.Command, _ []string) error {
	targets, err := resolveTargets()
	if err != nil {
		return err
	}
	a, err := app(cmd)
	if err != nil {
		return err
	}

	output := make([]listOutput, 0, len(targets))
	for _, t := range targets {
		manifests, err := a.Backups.List(t)
		if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
			return errors.Wrapf(err, "listing backups for %s", t)
		}
		infos := make([]infoOutput, len(manifests))
		for i, m := range manifests {
			infos[i] = infoOutput{
				ID:          m.ID,
				CreatedAt:   m.CreatedAt,
				FileCount:   len(m.Files),
				ToolVersion: m.ToolVersion,
			}
		}
		output = append(output, listOutput{Target: t, Backups: infos})
	}

	w := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(output), "encoding output")
	}
	return outputListTabular(w, output)
}

func outputListTabular(w io.Writer, output []listOutput) error {
	hasBackups := false
	header := color.New(color.FgCyan, color.Bold).SprintFunc()

	for i, o := range output {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, header("Target: "+o.Target))

		if len(o.Backups) == 0 {
			fmt.Fprintf(w, "  %s\n", color.HiBlackString("(no backups available)"))
			continue
		}
		hasBackups = true

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  ID\tCREATED\tFILES\tVERSION")
		for _, b := range o.Backups {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n",
				b.ID,
				b.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				b.FileCount,
				b.ToolVersion)
		}
		if err := tw.Flush(); err != nil {
			return errors.Wrap(err, "flushing tabwriter")
		}
	}

	if !hasBackups {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No backups available")
		fmt.Fprintln(w, "Backups are created automatically before clawmgr rewrites a file.")
	}
	return nil
}
