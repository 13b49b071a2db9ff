// Package validator checks MCP server descriptors before they are stored
// and reports softer problems found in existing registries.
package validator

import (
	"fmt"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

var (
	ErrMissingServerName = errors.New("server name is required")

	// ErrInvalidServerName covers names that cannot double as a directory
	// under the install root.
	ErrInvalidServerName = errors.New("invalid server name")

	ErrNoTransport        = errors.New("server requires a command or a URL")
	ErrAmbiguousTransport = errors.New("server has both a command and a URL")

	// ErrInvalidURL is for remote URLs that are not absolute http(s).
	ErrInvalidURL = errors.New("invalid server URL")

	ErrEmptyEnvKey   = errors.New("environment variable key is empty")
	ErrInvalidEnvKey = errors.New("environment variable key contains '='")
)

// Severity separates issues that block saving from ones that do not.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// ValidationError is one problem with one descriptor. Err is the sentinel
// above, when one applies.
type ValidationError struct {
	ServerName string
	Field      string
	Message    string
	Severity   Severity
	Err        error
}

// Error renders "severity: server "x" field "y": message", omitting
// whichever of server and field is empty.
func (e *ValidationError) Error() string {
	loc := ""
	if e.ServerName != "" {
		loc += fmt.Sprintf(" server %q", e.ServerName)
	}
	if e.Field != "" {
		loc += fmt.Sprintf(" field %q", e.Field)
	}
	if loc == "" {
		return e.Severity.String() + ": " + e.Message
	}
	return e.Severity.String() + ":" + loc + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Issues is the ordered output of a validation run.
type Issues []*ValidationError

// HasErrors reports whether any issue blocks saving.
func (is Issues) HasErrors() bool {
	return is.First() != nil
}

// First returns the first blocking issue, or nil. The nil is untyped so
// callers can compare against nil as an error.
func (is Issues) First() error {
	for _, e := range is {
		if e.Severity == SeverityError {
			return e
		}
	}
	return nil
}

func (is Issues) Errors() Issues   { return is.only(SeverityError) }
func (is Issues) Warnings() Issues { return is.only(SeverityWarning) }

func (is Issues) only(sev Severity) Issues {
	var out Issues
	for _, e := range is {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}
