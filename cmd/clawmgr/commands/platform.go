package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/configstore"
	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

var platformRaw bool

func init() {
	platformGetCmd.Flags().BoolVarP(&platformRaw, "raw-output", "r", false,
		"print string results without JSON quotes")

	platformCmd.AddCommand(platformGetCmd)
	platformCmd.AddCommand(platformSetCmd)
	platformCmd.AddCommand(platformUnsetCmd)
	rootCmd.AddCommand(platformCmd)
}

var platformCmd = &cobra.Command{
	Use:   "platform",
	Short: "Read and edit the OpenClaw config document",
	Long: `Read and edit OpenClaw's main configuration document
(~/.openclaw/openclaw.json by default).

Keys the command does not touch are preserved. The file is backed up once
per run before it is first rewritten.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var platformGetCmd = &cobra.Command{
	Use:   "get [jq-expression]",
	Short: "Query the document with a jq expression",
	Long: `Evaluate a jq expression against the document and print each result
as JSON. Without an expression the whole document is printed.`,
	Example: `  clawmgr platform get
  clawmgr platform get .gateway.port
  clawmgr platform get -r '.agents.list[].id'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlatformGet,
}

var platformSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a value at a dotted path",
	Long: `Set a value at a dotted path, creating intermediate objects.

The value is parsed as JSON when it parses (numbers, booleans, objects,
quoted strings) and stored as a plain string otherwise.`,
	Example: `  clawmgr platform set gateway.port 18789
  clawmgr platform set gateway.auth.mode token
  clawmgr platform set tools.allow '["browser","exec"]'`,
	Args: cobra.ExactArgs(2),
	RunE: runPlatformSet,
}

var platformUnsetCmd = &cobra.Command{
	Use:   "unset <path>",
	Short: "Remove the value at a dotted path",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlatformUnset,
}

func runPlatformGet(cmd *cobra.Command, args []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}
	doc, err := a.Platform.Load()
	if err != nil {
		return err
	}

	expr := "."
	if len(args) == 1 {
		expr = args[0]
	}
	results, err := configstore.Query(cmd.Context(), doc, expr)
	if err != nil {
		if errors.Is(err, configstore.ErrInvalidQuery) {
			return errors.NewUserError(err, "See https://jqlang.org/manual for expression syntax")
		}
		return err
	}
	return printValues(cmd.OutOrStdout(), results, platformRaw)
}

func printValues(w io.Writer, values []any, raw bool) error {
	for _, v := range values {
		if s, ok := v.(string); ok && raw {
			fmt.Fprintln(w, s)
			continue
		}
		data, err := fileutil.MarshalJSON(v)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return errors.Wrap(err, "writing output")
		}
	}
	return nil
}

func runPlatformSet(cmd *cobra.Command, args []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}
	doc, err := a.Platform.Load()
	if err != nil {
		return err
	}
	value := configstore.ParseValue(args[1])
	if err := doc.Set(args[0], value); err != nil {
		return errors.NewUserError(err, "Choose a path whose parents are objects")
	}
	if err := a.Platform.Save(doc); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], a.Platform.Path())
	return nil
}

func runPlatformUnset(cmd *cobra.Command, args []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}
	doc, err := a.Platform.Load()
	if err != nil {
		return err
	}
	if !doc.Unset(args[0]) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is not set\n", args[0])
		return nil
	}
	if err := a.Platform.Save(doc); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", args[0], a.Platform.Path())
	return nil
}
