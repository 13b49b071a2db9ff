package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	mcpvalidator "github.com/thoreinstein/clawmgr/internal/mcp/validator"
	"github.com/thoreinstein/clawmgr/internal/shell"
)

// Severity represents the impact of a validation issue.
type Severity int

const (
	// SeverityError marks a descriptor the reconciler should not be fed.
	SeverityError Severity = iota
	// SeverityWarning marks a likely mistake that still syncs.
	SeverityWarning
	// SeverityInfo is informational.
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return errors.Newf("unknown severity %q", text)
	}
	return nil
}

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity `json:"severity"`
	// Server names the registry entry, empty for registry-wide issues.
	Server  string `json:"server,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	// Value is the offending value, if it is safe to show.
	Value   any               `json:"value,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	var sb strings.Builder
	sb.WriteString(i.Severity.String())
	sb.WriteString(": ")
	if i.Server != "" {
		fmt.Fprintf(&sb, "server %q: ", i.Server)
	}
	if i.Field != "" {
		fmt.Fprintf(&sb, "field %q: ", i.Field)
	}
	sb.WriteString(i.Message)
	if i.Value != nil {
		fmt.Fprintf(&sb, " (got %v)", i.Value)
	}
	return sb.String()
}

// Result aggregates validation issues.
type Result struct {
	Issues []Issue `json:"issues"`
}

// HasErrors returns true if any issue has SeverityError.
func (r *Result) HasErrors() bool {
	return len(r.Errors()) > 0
}

// HasWarnings returns true if any issue has SeverityWarning.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings()) > 0
}

// Add appends an issue.
func (r *Result) Add(i Issue) {
	r.Issues = append(r.Issues, i)
}

// AddError adds an error issue for server.
func (r *Result) AddError(server, field, message string) {
	r.Add(Issue{Severity: SeverityError, Server: server, Field: field, Message: message})
}

// AddWarning adds a warning issue for server.
func (r *Result) AddWarning(server, field, message string) {
	r.Add(Issue{Severity: SeverityWarning, Server: server, Field: field, Message: message})
}

// AddInfo adds an info issue for server.
func (r *Result) AddInfo(server, field, message string) {
	r.Add(Issue{Severity: SeverityInfo, Server: server, Field: field, Message: message})
}

// Errors returns a slice of all issues with SeverityError.
func (r *Result) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns a slice of all issues with SeverityWarning.
func (r *Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Result) filter(sev Severity) []Issue {
	if r == nil {
		return nil
	}
	var res []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			res = append(res, i)
		}
	}
	return res
}

// FromDescriptors converts descriptor findings into a Result.
func FromDescriptors(errs []*mcpvalidator.ValidationError) *Result {
	r := &Result{}
	for _, e := range errs {
		sev := SeverityError
		if e.Severity == mcpvalidator.SeverityWarning {
			sev = SeverityWarning
		}
		r.Add(Issue{
			Severity: sev,
			Server:   e.ServerName,
			Field:    e.Field,
			Message:  e.Message,
		})
	}
	return r
}

// CheckCommands warns about enabled stdio servers whose command does not
// resolve on pathEnv. A spawned server with a missing command can never
// answer a probe. Disabled servers are skipped.
func CheckCommands(r *Result, servers map[string]*mcp.Server, pathEnv string) {
	names := make([]string, 0, len(servers))
	for n := range servers {
		names = append(names, n)
	}
	slices.Sort(names)

	for _, n := range names {
		s := servers[n]
		if s == nil || !s.Enabled || !s.IsLocal() {
			continue
		}
		if _, err := shell.LookPath(s.Command, pathEnv); err != nil {
			r.Add(Issue{
				Severity: SeverityWarning,
				Server:   n,
				Field:    "command",
				Message:  "command not found on the search path",
				Value:    s.Command,
				Context:  map[string]string{"hint": "add its directory to extra_paths"},
			})
		}
	}
}
