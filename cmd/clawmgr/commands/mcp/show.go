package mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

var (
	showJSON        bool
	showShowSecrets bool
)

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	showCmd.Flags().BoolVar(&showShowSecrets, "show-secrets", false, "Reveal masked secrets")
	Cmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show details of a registered server",
	Example: `  clawmgr mcp show github
  clawmgr mcp show github --json --show-secrets`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}
	reg, err := a.Store.Load()
	if err != nil {
		return errors.NewConfigError(err)
	}
	s, ok := reg.Get(args[0])
	if !ok {
		return notFound(args[0])
	}

	plan, planErr := a.Syncer.Inspect(reg.Servers())
	if planErr != nil {
		a.Logger.Warn("cannot read companion store", "path", a.Syncer.Path(), "error", planErr)
	}
	info := toJSON(s, plan, showShowSecrets)

	w := cmd.OutOrStdout()
	if showJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(info), "encoding JSON")
	}
	printDetails(w, info)
	return nil
}

func printDetails(w io.Writer, info serverInfoJSON) {
	label := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", label("Name:     "), info.Name)
	fmt.Fprintf(w, "%s %s\n", label("Transport:"), info.Transport)
	if info.Command != "" {
		fmt.Fprintf(w, "%s %s\n", label("Command:  "), info.Command)
		if len(info.Args) > 0 {
			fmt.Fprintf(w, "%s %s\n", label("Args:     "), strings.Join(info.Args, " "))
		}
	}
	if info.URL != "" {
		fmt.Fprintf(w, "%s %s\n", label("URL:      "), info.URL)
	}
	status := color.GreenString("enabled")
	if !info.Enabled {
		status = color.HiBlackString("disabled")
	}
	fmt.Fprintf(w, "%s %s\n", label("Status:   "), status)
	fmt.Fprintf(w, "%s %s\n", label("Sync:     "), info.Sync)

	if len(info.Env) > 0 {
		fmt.Fprintln(w, label("Env:"))
		keys := make([]string, 0, len(info.Env))
		for k := range info.Env {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s=%s\n", k, info.Env[k])
		}
	}
}
