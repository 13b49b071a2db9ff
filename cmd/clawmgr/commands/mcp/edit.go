package mcp

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/editor"
	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/registry"
	"github.com/thoreinstein/clawmgr/internal/validator"
)

func init() {
	Cmd.AddCommand(editCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the registry in $EDITOR and sync the result",
	Long: `Open the registry file in your editor. When the editor exits the file
is checked and the companion store is synced.

The editor is taken from $EDITOR, then $VISUAL, then nano or vi.`,
	Args: cobra.NoArgs,
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, _ []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}

	// Create the file so the editor opens a valid document.
	if _, err := a.Store.Update(cmd.Context(), func(registry.Registry) error { return nil }); err != nil {
		return err
	}

	if err := editor.New(a.PathEnv).Open(cmd.Context(), a.Store.Path()); err != nil {
		if errors.Is(err, editor.ErrNoEditor) {
			return errors.NewUserError(err, "Set the EDITOR environment variable")
		}
		return err
	}

	reg, err := a.Store.Load()
	if err != nil {
		return errors.NewUserError(err, "Fix the file and run: clawmgr mcp sync")
	}
	w := cmd.OutOrStdout()
	result, err := report(w, a, reg, validator.FormatText)
	if err != nil {
		return err
	}
	if result.HasErrors() {
		return errors.NewUserError(errors.New("registry has invalid entries"),
			"Fix them with: clawmgr mcp edit")
	}
	return syncOnce(cmd.Context(), w, a.Store)
}
