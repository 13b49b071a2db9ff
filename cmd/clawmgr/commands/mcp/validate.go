package mcp

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/cli"
	"github.com/thoreinstein/clawmgr/internal/errors"
	mcpvalidator "github.com/thoreinstein/clawmgr/internal/mcp/validator"
	"github.com/thoreinstein/clawmgr/internal/registry"
	"github.com/thoreinstein/clawmgr/internal/validator"
)

var validateJSON bool

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every registry entry",
	Long: `Check every descriptor in the registry: names, transports, URLs and
environment keys. Enabled stdio servers whose command cannot be found on the
search path are reported as warnings.

Exits non-zero when any error is found.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}
	reg, err := a.Store.Load()
	if err != nil {
		return errors.NewConfigError(err)
	}

	format := validator.FormatText
	if validateJSON {
		format = validator.FormatJSON
	}
	result, err := report(cmd.OutOrStdout(), a, reg, format)
	if err != nil {
		return err
	}
	if result.HasErrors() {
		return errors.NewExitError(nil, errors.ExitUser)
	}
	return nil
}

// report validates reg and writes the findings to w.
func report(w io.Writer, a *cli.App, reg registry.Registry, format validator.Format) (*validator.Result, error) {
	v := mcpvalidator.New(mcpvalidator.WithLenientTransport(true))
	result := validator.FromDescriptors(v.Validate(reg.Servers()))
	validator.CheckCommands(result, reg.Servers(), a.PathEnv)
	return result, validator.NewReporter(w, format).Report(result)
}
