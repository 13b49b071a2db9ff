package mcp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/registry"
)

func init() {
	Cmd.AddCommand(enableCmd)
	Cmd.AddCommand(disableCmd)
}

var enableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a server and sync it to the companion store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a server and drop it from the companion store",
	Long: `Disable a server. It stays in the registry but is removed from the
companion store until it is enabled again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

func setEnabled(cmd *cobra.Command, name string, enabled bool) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}

	var unchanged bool
	res, err := a.Store.Update(cmd.Context(), func(reg registry.Registry) error {
		s, ok := reg.Get(name)
		if !ok {
			return errors.Wrapf(errors.ErrNotFound, "server %q", name)
		}
		unchanged = s.Enabled == enabled
		s.Enabled = enabled
		return nil
	})
	if errors.Is(err, errors.ErrNotFound) {
		return notFound(name)
	}
	if err != nil {
		return err
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	w := cmd.OutOrStdout()
	if unchanged {
		fmt.Fprintf(w, "%s is already %s\n", name, state)
	} else {
		fmt.Fprintf(w, "%s %s\n", name, state)
	}
	reportSave(w, res)
	return nil
}
