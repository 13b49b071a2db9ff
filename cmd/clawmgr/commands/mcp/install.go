package mcp

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/cmd/clawmgr/commands/flags"
	"github.com/thoreinstein/clawmgr/internal/cli/prompt"
	"github.com/thoreinstein/clawmgr/internal/companion"
	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/installer"
)

var installPlugin bool

func init() {
	installCmd.Flags().BoolVar(&installPlugin, "plugin", false,
		"Hand the source to the platform CLI's plugin installer instead")
	Cmd.AddCommand(installCmd)
	Cmd.AddCommand(uninstallCmd)
}

var installCmd = &cobra.Command{
	Use:   "install <source>",
	Short: "Install a server from a git repository",
	Long: `Clone a server's repository into the install root, install its
dependencies, build it and register it as a stdio server.

A failed build is reported as a warning: the server is still registered so
a prebuilt entry point can be used. Reinstalling replaces the previous copy.

With --plugin the source is passed to "<platform_cli> plugins install"
and the platform manages the server; the registry is left alone.`,
	Example: `  clawmgr mcp install https://github.com/excalidraw/excalidraw-mcp
  clawmgr mcp install git@github.com:org/server.git
  clawmgr mcp install --plugin https://github.com/org/mcp-plugin`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>",
	Short: "Delete an installed server and its registry entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if installPlugin {
		return runInstallPlugin(cmd, w, a.Plugins(), args[0])
	}
	fmt.Fprintf(w, "Installing %s...\n", args[0])

	res, err := a.Installer().Install(cmd.Context(), args[0])
	if err != nil {
		return installError(err)
	}

	fmt.Fprintf(w, "%s Installed %s into %s\n", color.GreenString("✓"), res.Name, res.Dir)
	fmt.Fprintf(w, "  entry point: %s\n", res.EntryPoint)
	if !res.EntryResolved {
		fmt.Fprintf(w, "%s entry point not found; the server will not start until it is built\n",
			color.YellowString("⚠"))
	}
	if res.BuildWarning != nil {
		printBuildWarning(w, res.BuildWarning)
	}
	reportSave(w, res.Save)
	return nil
}

func runInstallPlugin(cmd *cobra.Command, w io.Writer, plugins *companion.Plugins, source string) error {
	fmt.Fprintf(w, "Installing plugin %s...\n", source)
	out, err := plugins.Install(cmd.Context(), source)
	switch {
	case errors.Is(err, companion.ErrInvalidPluginSource):
		return errors.NewUserError(err, "Pass a plugin URL, package or path")
	case err != nil:
		return errors.NewSystemError(err, "Run: clawmgr doctor")
	}
	if out != "" {
		fmt.Fprintln(w, out)
	}
	fmt.Fprintf(w, "%s Installed plugin from %s\n", color.GreenString("✓"), source)
	return nil
}

func printBuildWarning(w io.Writer, err error) {
	fmt.Fprintf(w, "%s build failed, continuing:\n", color.YellowString("⚠"))
	fmt.Fprintf(w, "  %v\n", err)
}

// installError maps a pipeline failure to an exit code: bad input is the
// user's to fix, everything else is a system failure.
func installError(err error) error {
	var stepErr *installer.StepError
	if !errors.As(err, &stepErr) {
		return err
	}
	switch {
	case errors.Is(err, installer.ErrInvalidSource):
		return errors.NewUserError(err, "Pass an https://, ssh:// or git@ repository URL")
	case errors.Is(err, installer.ErrFetchFailed):
		return errors.NewSystemError(err, "Check the URL and your network access")
	case errors.Is(err, installer.ErrDependencyInstallFailed):
		return errors.NewSystemError(err, "Run: clawmgr doctor")
	default:
		return errors.NewSystemError(err, "")
	}
}

func runUninstall(cmd *cobra.Command, args []string) error {
	name := args[0]
	a, err := app(cmd)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !flags.AssumeYes() {
		question := fmt.Sprintf("Delete %s and its registry entry?", a.Installer().Dir(name))
		ok, err := prompt.NewWithIO(cmd.InOrStdin(), w).Confirm(question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Cancelled")
			return nil
		}
	}

	res, err := a.Installer().Uninstall(cmd.Context(), name)
	if err != nil {
		return installError(err)
	}
	if !res.DirRemoved && !res.EntryRemoved {
		fmt.Fprintf(w, "%s is not installed\n", name)
		return nil
	}
	if res.DirRemoved {
		fmt.Fprintf(w, "Deleted %s\n", res.Dir)
	}
	if res.EntryRemoved {
		fmt.Fprintf(w, "Removed %s from the registry\n", name)
	}
	reportSave(w, res.Save)
	return nil
}
