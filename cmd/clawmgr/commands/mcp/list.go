package mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/reconcile"
	"github.com/thoreinstein/clawmgr/internal/redact"
)

var (
	listJSON        bool
	listShowSecrets bool
)

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listShowSecrets, "show-secrets", false, "Reveal masked secrets in env values")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered MCP servers",
	Long: `List every server in the registry with its transport, status and
whether the companion store matches it.

Environment variables that look like secrets (TOKEN, KEY, SECRET, PASSWORD,
AUTH, CREDENTIAL) are masked by default. Use --show-secrets to reveal them.`,
	Example: `  clawmgr mcp list
  clawmgr mcp list --json
  clawmgr mcp list --json --show-secrets`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// serverInfoJSON represents a server in JSON output.
type serverInfoJSON struct {
	Name      string            `json:"name"`
	Transport string            `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	URL       string            `json:"url,omitempty"`
	Enabled   bool              `json:"enabled"`
	Env       map[string]string `json:"env,omitempty"`

	// Sync is "synced", "drift" or "unknown" when the companion store
	// could not be read.
	Sync string `json:"sync"`
}

const (
	syncOK      = "synced"
	syncDrift   = "drift"
	syncUnknown = "unknown"
)

func runList(cmd *cobra.Command, _ []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}
	reg, err := a.Store.Load()
	if err != nil {
		return errors.NewConfigError(err)
	}

	plan, planErr := a.Syncer.Inspect(reg.Servers())
	if planErr != nil {
		a.Logger.Warn("cannot read companion store", "path", a.Syncer.Path(), "error", planErr)
	}
	servers := sortedServers(reg)

	w := cmd.OutOrStdout()
	if listJSON {
		return outputJSON(w, servers, plan, listShowSecrets)
	}
	return outputTabular(w, servers, plan)
}

func syncState(name string, plan *reconcile.Plan) string {
	if plan == nil {
		return syncUnknown
	}
	if slices.Contains(plan.Drift(), name) {
		return syncDrift
	}
	return syncOK
}

func toJSON(s *mcp.Server, plan *reconcile.Plan, showSecrets bool) serverInfoJSON {
	info := serverInfoJSON{
		Name:      s.Name,
		Transport: string(s.Transport()),
		Command:   s.Command,
		Args:      s.Args,
		URL:       s.URL,
		Enabled:   s.Enabled,
		Env:       s.Env,
		Sync:      syncState(s.Name, plan),
	}
	if !showSecrets {
		info.Args = redact.Args(s.Args)
		info.Env = redact.Env(s.Env)
		info.URL = redact.URL(s.URL)
	}
	return info
}

func outputJSON(w io.Writer, servers []*mcp.Server, plan *reconcile.Plan, showSecrets bool) error {
	out := make([]serverInfoJSON, len(servers))
	for i, s := range servers {
		out[i] = toJSON(s, plan, showSecrets)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(out), "encoding JSON")
}

func outputTabular(w io.Writer, servers []*mcp.Server, plan *reconcile.Plan) error {
	if len(servers) == 0 {
		fmt.Fprintln(w, "No MCP servers registered")
		fmt.Fprintln(w, "Add one with: clawmgr mcp add <name> <command> [args...]")
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		bold("NAME"), bold("TRANSPORT"), bold("COMMAND/URL"), bold("STATUS"), bold("SYNC"))

	for _, s := range servers {
		status := color.GreenString("enabled")
		if !s.Enabled {
			status = color.HiBlackString("disabled")
		}

		var sync string
		switch syncState(s.Name, plan) {
		case syncOK:
			sync = color.GreenString(syncOK)
		case syncDrift:
			sync = color.YellowString(syncDrift)
		default:
			sync = color.HiBlackString(syncUnknown)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Name,
			s.Transport(),
			truncate(redact.URL(endpoint(s)), 50),
			status,
			sync)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "flushing tabwriter")
	}

	if plan != nil && len(plan.Drift()) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Companion store is out of date. Run: clawmgr mcp sync")
	}
	return nil
}
