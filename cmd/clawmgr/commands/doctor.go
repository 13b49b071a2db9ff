package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/doctor"
	"github.com/thoreinstein/clawmgr/internal/errors"
)

var (
	doctorJSON    bool
	doctorQuiet   bool
	doctorVerbose bool
	doctorFix     bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorQuiet, "silent", false,
		"suppress output, exit code only")
	doctorCmd.Flags().BoolVar(&doctorVerbose, "all", false,
		"show every check including passed ones")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"repair fixable permission problems")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the MCP setup",
	Long: `Run diagnostic checks on the registry, the companion store, and the
tools clawmgr depends on.

Checks:
  tools            git, runtime, package manager and companion on the search path
  config-syntax    registry, companion store and platform document parse
  path-permissions stores are not readable or writable beyond their owner
  registry-drift   the companion store matches the enabled servers
  entry-points     servers installed from source still have their script

Output modes (mutually exclusive):
  (default)   Show errors and warnings
  --all       Show all checks including passed ones
  --silent    No output, exit code only
  --json      Machine-readable JSON output

Exit codes:
  0 - No errors (warnings allowed)
  1 - Errors present`,
	Example: `  # Check everything
  clawmgr doctor

  # Fix permission problems
  clawmgr doctor --fix

  See Also: clawmgr mcp sync, clawmgr backup restore`,
	PreRunE: validateDoctorFlags,
	RunE:    runDoctor,
}

// validateDoctorFlags ensures output flags are mutually exclusive.
func validateDoctorFlags(_ *cobra.Command, _ []string) error {
	count := 0
	for _, set := range []bool{doctorJSON, doctorQuiet, doctorVerbose} {
		if set {
			count++
		}
	}
	if count > 1 {
		return errors.NewUserError(errors.New("flags --json, --silent, and --all are mutually exclusive"), "")
	}
	return nil
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}
	runner := a.Doctor()
	report := runner.Run(cmd.Context())

	w := cmd.OutOrStdout()
	if err := outputDoctorReport(w, report); err != nil {
		return err
	}

	if doctorFix {
		if applyFixes(w, runner) {
			report = runner.Run(cmd.Context())
		}
	}

	if report.HasErrors() {
		// Already printed; exit non-zero without repeating it.
		return errors.NewExitError(nil, errors.ExitUser)
	}
	return nil
}

// applyFixes runs the pending repairs and reports whether anything changed.
func applyFixes(w io.Writer, runner *doctor.Runner) bool {
	changed := false
	for _, res := range runner.Fix() {
		changed = changed || res.Fixed
		if doctorQuiet {
			continue
		}
		if res.Fixed {
			fmt.Fprintf(w, "%s fixed %s: %s\n", color.GreenString("✓"), res.Path, res.Description)
		} else {
			fmt.Fprintf(w, "%s could not fix %s: %s\n", color.RedString("✗"), res.Path, res.Description)
		}
	}
	return changed
}

func outputDoctorReport(w io.Writer, report *doctor.Report) error {
	switch {
	case doctorQuiet:
		return nil
	case doctorJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(report), "encoding JSON")
	default:
		outputDoctorText(w, report)
		return nil
	}
}

func outputDoctorText(w io.Writer, report *doctor.Report) {
	showAll := doctorVerbose

	hasOutput := false
	for _, result := range report.Results {
		problem := result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning
		if !showAll && !problem {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s", statusIcon(result.Status), result.Category, result.Name, result.Message)
		if showAll {
			fmt.Fprintf(w, " (%s)", result.Duration.Round(time.Millisecond))
		}
		fmt.Fprintln(w)
		if result.FixHint != "" && problem {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	if hasOutput {
		fmt.Fprintln(w)
	}
	if report.Interrupted {
		fmt.Fprintln(w, color.YellowString("Interrupted: some checks did not run"))
	}
	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return color.GreenString("✓")
	case doctor.SeverityInfo:
		return color.CyanString("ℹ")
	case doctor.SeverityWarning:
		return color.YellowString("⚠")
	case doctor.SeverityError:
		return color.RedString("✗")
	default:
		return "?"
	}
}
