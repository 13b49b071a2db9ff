// Package mcp provides the mcp command group for managing the MCP server
// registry.
package mcp

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/cli"
	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/reconcile"
	"github.com/thoreinstein/clawmgr/internal/registry"
)

// Cmd is the mcp command that groups all MCP-related subcommands.
var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Manage MCP servers",
	Long: `Manage the private registry of Model Context Protocol servers.

Every change to the registry is reconciled into the companion tool's store
so OpenClaw agents see the enabled servers. Disabled servers stay in the
registry and are removed from the companion store.`,
	Example: `  # Add a local stdio server
  clawmgr mcp add github npx -y @modelcontextprotocol/server-github

  # Add a remote server
  clawmgr mcp add api --url https://api.example.com/mcp

  # List servers and their sync state
  clawmgr mcp list

  See Also:
    clawmgr mcp install  - Install a server from a git repository
    clawmgr mcp test     - Check that a server answers
    clawmgr mcp sync     - Reconcile the companion store`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// app returns the App wired by the root command.
func app(cmd *cobra.Command) (*cli.App, error) {
	return cli.FromContext(cmd.Context())
}

// notFound returns the user error for an unknown server name.
func notFound(name string) error {
	return errors.NewUserError(
		errors.Wrapf(errors.ErrNotFound, "server %q", name),
		"Run: clawmgr mcp list")
}

// reportSave prints the reconcile outcome of a registry write. A degraded
// sync is a warning: the registry change itself is durable.
func reportSave(w io.Writer, res *registry.SaveResult) {
	if res == nil {
		return
	}
	if res.Degraded() {
		fmt.Fprintf(w, "%s registry saved, but the companion store was not updated: %v\n",
			color.YellowString("⚠"), res.SyncErr)
		fmt.Fprintln(w, "  Fix the problem and run: clawmgr mcp sync")
		return
	}
	if res.Report != nil && res.Report.Written {
		fmt.Fprintf(w, "Synced %s\n", res.Report.Path)
	}
}

// printPlan writes one line per server the plan touches.
func printPlan(w io.Writer, plan *reconcile.Plan) {
	for _, n := range plan.Added {
		fmt.Fprintf(w, "  %s %s\n", color.GreenString("+"), n)
	}
	for _, n := range plan.Updated {
		fmt.Fprintf(w, "  %s %s\n", color.YellowString("~"), n)
	}
	for _, n := range plan.Removed {
		fmt.Fprintf(w, "  %s %s\n", color.RedString("-"), n)
	}
	for _, n := range plan.Foreign {
		fmt.Fprintf(w, "  %s %s (not managed by clawmgr)\n", color.CyanString("?"), n)
	}
	if !plan.Changed() {
		fmt.Fprintln(w, "Companion store is up to date")
	}
}

// sortedServers returns the registry's servers ordered by name.
func sortedServers(reg registry.Registry) []*mcp.Server {
	names := reg.Names()
	out := make([]*mcp.Server, 0, len(names))
	for _, n := range names {
		out = append(out, reg[n])
	}
	return out
}

// endpoint is the command line or URL shown for a server.
func endpoint(s *mcp.Server) string {
	if s.IsRemote() {
		return s.URL
	}
	return s.Command
}

// truncate shortens s to at most maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
