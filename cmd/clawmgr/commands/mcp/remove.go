package mcp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/cmd/clawmgr/commands/flags"
	"github.com/thoreinstein/clawmgr/internal/cli/prompt"
)

var removeForce bool

func init() {
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false,
		"remove without asking for confirmation")
	Cmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a server from the registry",
	Long: `Remove a server from the registry and drop it from the companion store.

Files of a server installed with "clawmgr mcp install" are left in place; use
"clawmgr mcp uninstall" to delete them too.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	a, err := app(cmd)
	if err != nil {
		return err
	}

	reg, err := a.Store.Load()
	if err != nil {
		return err
	}
	if _, ok := reg.Get(name); !ok {
		return notFound(name)
	}

	w := cmd.OutOrStdout()
	if !removeForce && !flags.AssumeYes() {
		ok, err := prompt.NewWithIO(cmd.InOrStdin(), w).Confirm(fmt.Sprintf("Remove %s?", name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Cancelled")
			return nil
		}
	}

	removed, res, err := a.Store.Delete(cmd.Context(), name)
	if err != nil {
		return err
	}
	if !removed {
		return notFound(name)
	}
	fmt.Fprintf(w, "Removed %s\n", name)
	reportSave(w, res)
	return nil
}
