package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

var mcporterJSON bool

func init() {
	mcporterStatusCmd.Flags().BoolVar(&mcporterJSON, "json", false, "Output in JSON format")

	mcporterCmd.AddCommand(mcporterStatusCmd)
	mcporterCmd.AddCommand(mcporterInstallCmd)
	mcporterCmd.AddCommand(mcporterUninstallCmd)
	rootCmd.AddCommand(mcporterCmd)
}

var mcporterCmd = &cobra.Command{
	Use:   "mcporter",
	Short: "Manage the companion CLI that runs synced servers",
	Long: `Check, install and remove the companion tool that reads the synced
server list. The tool and package names come from the companion_tool and
companion_package settings.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var mcporterStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the companion tool is installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app(cmd)
		if err != nil {
			return err
		}
		st, err := a.Companion().Status(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if mcporterJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return errors.Wrap(enc.Encode(st), "encoding JSON")
		}
		if !st.Installed {
			fmt.Fprintf(w, "%s %s is not installed\n", color.YellowString("⚠"), st.Tool)
			fmt.Fprintln(w, "Install it with: clawmgr mcporter install")
			return nil
		}
		fmt.Fprintf(w, "%s %s installed at %s\n", color.GreenString("✓"), st.Tool, st.Path)
		if st.Version != "" {
			fmt.Fprintf(w, "  version: %s\n", st.Version)
		}
		return nil
	},
}

var mcporterInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the companion tool globally",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app(cmd)
		if err != nil {
			return err
		}
		m := a.Companion()
		fmt.Fprintf(cmd.OutOrStdout(), "Installing %s with %s...\n", m.Tool(), a.Config.PackageManager)
		if err := m.Install(cmd.Context()); err != nil {
			return errors.NewSystemError(err, "Check that the package manager can install global packages")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s installed\n", m.Tool())
		return nil
	},
}

var mcporterUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the companion tool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app(cmd)
		if err != nil {
			return err
		}
		m := a.Companion()
		if err := m.Uninstall(cmd.Context()); err != nil {
			return errors.NewSystemError(err, "")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s uninstalled\n", m.Tool())
		return nil
	},
}
