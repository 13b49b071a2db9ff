package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/cli/prompt"
	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/probe"
	"github.com/thoreinstein/clawmgr/internal/redact"
)

// probeConcurrency bounds parallel probes for --all.
const probeConcurrency = 4

var (
	testDeep    bool
	testAll     bool
	testJSON    bool
	testTimeout time.Duration
)

func init() {
	testCmd.Flags().BoolVar(&testDeep, "deep", false,
		"run a full MCP session and list the server's tools")
	testCmd.Flags().BoolVar(&testAll, "all", false,
		"probe every registered server")
	testCmd.Flags().BoolVar(&testJSON, "json", false, "Output in JSON format")
	testCmd.Flags().DurationVar(&testTimeout, "timeout", 0,
		"overall time limit (default: no limit beyond the probe's own)")
	Cmd.AddCommand(testCmd)
}

var testCmd = &cobra.Command{
	Use:   "test [name]",
	Short: "Check that a server answers an MCP handshake",
	Long: `Send an initialize request to a server and report whether it answers.

Local servers are spawned and count as reachable when they answer or keep
running through the grace period. Remote servers must answer an HTTP POST.
With --deep a full MCP session is opened and the server's tools are listed.

Without a name an interactive picker is shown.`,
	Example: `  clawmgr mcp test github
  clawmgr mcp test github --deep
  clawmgr mcp test --all --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	if testAll && len(args) > 0 {
		return errors.NewUserError(errors.New("cannot combine a name with --all"), "")
	}

	a, err := app(cmd)
	if err != nil {
		return err
	}
	reg, err := a.Store.Load()
	if err != nil {
		return errors.NewConfigError(err)
	}

	var targets []*mcp.Server
	switch {
	case testAll:
		targets = sortedServers(reg)
	case len(args) == 1:
		s, ok := reg.Get(args[0])
		if !ok {
			return notFound(args[0])
		}
		targets = []*mcp.Server{s}
	default:
		s, err := pickServer(cmd, sortedServers(reg))
		if err != nil {
			return err
		}
		if s == nil {
			return nil
		}
		targets = []*mcp.Server{s}
	}
	if len(targets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No MCP servers registered")
		return nil
	}

	ctx := cmd.Context()
	if testTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, testTimeout)
		defer cancel()
	}

	p := a.Prober(probe.WithDeep(testDeep))
	results, err := p.ProbeAll(ctx, targets, probeConcurrency)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	w := cmd.OutOrStdout()
	if testJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return errors.Wrap(err, "encoding JSON")
		}
	} else {
		printResults(w, results)
	}

	for _, r := range results {
		if r == nil || !r.Reachable {
			return errors.NewExitError(nil, errors.ExitUser)
		}
	}
	return nil
}

func printResults(w io.Writer, results []*probe.Result) {
	for _, r := range results {
		if r == nil {
			continue
		}
		icon := color.GreenString("✓")
		if !r.Reachable {
			icon = color.RedString("✗")
		}
		line := fmt.Sprintf("%s %s: %s", icon, r.Name, r)
		if r.Tools >= 0 {
			line += fmt.Sprintf(", %d tools", r.Tools)
		}
		fmt.Fprintf(w, "%s [%s]\n", line, r.Duration.Round(time.Millisecond))
	}
}

// pickServer asks which server to probe: a fuzzy finder on a terminal, a
// numbered list otherwise. A nil server means the user backed out.
func pickServer(cmd *cobra.Command, servers []*mcp.Server) (*mcp.Server, error) {
	if len(servers) == 0 {
		return nil, errors.NewUserError(errors.New("no MCP servers registered"),
			"Run: clawmgr mcp add <name> <command> [args...]")
	}

	if logging.IsTTY(os.Stdin) && logging.IsTTY(cmd.OutOrStdout()) {
		idx, err := fuzzyfinder.Find(
			servers,
			func(i int) string {
				return servers[i].Name
			},
			fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
				if i == -1 {
					return ""
				}
				return describe(servers[i])
			}),
		)
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "server picker failed")
		}
		return servers[idx], nil
	}

	names := make([]string, len(servers))
	for i, s := range servers {
		names[i] = s.Name
	}
	idx, err := prompt.NewWithIO(cmd.InOrStdin(), cmd.OutOrStdout()).Select("Which server?", names)
	if errors.Is(err, prompt.ErrSelectionCancelled) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewUserError(err, "")
	}
	return servers[idx], nil
}

// describe is the picker's preview of a server. Secrets stay masked.
func describe(s *mcp.Server) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:      %s\n", s.Name)
	fmt.Fprintf(&b, "Transport: %s\n", s.Transport())
	if s.IsRemote() {
		fmt.Fprintf(&b, "URL:       %s\n", redact.URL(s.URL))
	} else {
		fmt.Fprintf(&b, "Command:   %s %s\n", s.Command, strings.Join(redact.Args(s.Args), " "))
	}
	fmt.Fprintf(&b, "Enabled:   %t\n", s.Enabled)
	return b.String()
}
