package validator

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// registryScope labels issues that belong to no single server.
const registryScope = "(registry)"

// Reporter writes a Result grouped by server.
type Reporter struct {
	out    io.Writer
	format Format
}

func NewReporter(out io.Writer, format Format) *Reporter {
	return &Reporter{out: out, format: format}
}

// jsonReport is the FormatJSON document.
type jsonReport struct {
	Valid    bool    `json:"valid"`
	Errors   int     `json:"errors"`
	Warnings int     `json:"warnings"`
	Issues   []Issue `json:"issues"`
}

// Report writes result. A nil result writes nothing.
func (r *Reporter) Report(result *Result) error {
	if result == nil {
		return nil
	}
	if r.format == FormatJSON {
		doc := jsonReport{
			Valid:    !result.HasErrors(),
			Errors:   len(result.Errors()),
			Warnings: len(result.Warnings()),
			Issues:   result.Issues,
		}
		if doc.Issues == nil {
			doc.Issues = []Issue{}
		}
		data, err := fileutil.MarshalJSON(doc)
		if err != nil {
			return err
		}
		_, err = r.out.Write(data)
		return err
	}
	r.text(result)
	return nil
}

func (r *Reporter) text(result *Result) {
	nErr, nWarn := len(result.Errors()), len(result.Warnings())
	if nErr == 0 && nWarn == 0 {
		fmt.Fprintln(r.out, color.GreenString("✓ Registry is valid"))
		return
	}

	var counts []string
	if nErr > 0 {
		counts = append(counts, color.RedString("%d error(s)", nErr))
	}
	if nWarn > 0 {
		counts = append(counts, color.YellowString("%d warning(s)", nWarn))
	}
	fmt.Fprintf(r.out, "Validation found %s\n", strings.Join(counts, ", "))

	byServer := map[string][]Issue{}
	for _, i := range result.Issues {
		if i.Severity == SeverityInfo {
			continue
		}
		scope := i.Server
		if scope == "" {
			scope = registryScope
		}
		byServer[scope] = append(byServer[scope], i)
	}
	scopes := make([]string, 0, len(byServer))
	for s := range byServer {
		scopes = append(scopes, s)
	}
	slices.Sort(scopes)

	for _, scope := range scopes {
		fmt.Fprintf(r.out, "\n%s\n", color.New(color.Bold).Sprint(scope))
		issues := byServer[scope]
		// Errors first, then by field.
		slices.SortStableFunc(issues, func(a, b Issue) int {
			if a.Severity != b.Severity {
				return int(a.Severity) - int(b.Severity)
			}
			return strings.Compare(a.Field, b.Field)
		})
		for _, i := range issues {
			fmt.Fprintln(r.out, "  "+formatIssue(i))
		}
	}
}

// formatIssue renders "✗ field: message [value] (k=v, ...)".
func formatIssue(i Issue) string {
	var sb strings.Builder
	if i.Severity == SeverityError {
		sb.WriteString(color.RedString("✗ "))
	} else {
		sb.WriteString(color.YellowString("⚠ "))
	}
	if i.Field != "" {
		sb.WriteString(i.Field + ": ")
	}
	sb.WriteString(i.Message)

	dim := color.New(color.FgHiBlack)
	if i.Value != nil {
		val := fmt.Sprint(i.Value)
		if len(val) > 50 {
			val = val[:47] + "..."
		}
		sb.WriteString(dim.Sprintf(" [%s]", val))
	}
	if len(i.Context) > 0 {
		keys := make([]string, 0, len(i.Context))
		for k := range i.Context {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for n, k := range keys {
			parts[n] = k + "=" + i.Context[k]
		}
		sb.WriteString(dim.Sprintf(" (%s)", strings.Join(parts, ", ")))
	}
	return sb.String()
}
