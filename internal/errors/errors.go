package errors

import (
	"context"
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Process exit codes.
const (
	ExitSuccess = 0
	ExitUser    = 1
	ExitSystem  = 2

	// ExitInterrupted follows the shell convention of 128+SIGINT.
	ExitInterrupted = 130
)

// Failure classes shared across packages. Attach them with Mark so the
// message of the underlying cause survives.
var (
	ErrNotFound      = crdb.New("not found")
	ErrInvalidConfig = crdb.New("invalid configuration")

	// ErrIO marks filesystem, process and network failures.
	ErrIO = crdb.New("i/o error")

	// ErrParse marks persisted JSON that exists but does not decode.
	ErrParse = crdb.New("parse error")
)

var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	FlattenHints = crdb.FlattenHints
	Mark         = crdb.Mark
	Is           = crdb.Is
	As           = crdb.As
	Unwrap       = crdb.Unwrap
)

// ExitError carries the exit code and remediation text for a failed
// command. A nil Err means the command already reported the problem and
// main should exit quietly.
type ExitError struct {
	Err        error
	Code       int
	Suggestion string
}

// NewExitError returns an ExitError without a suggestion.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// NewUserError is for bad input: exit 1.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitUser, Suggestion: suggestion}
}

// NewSystemError is for failures of the environment: exit 2.
func NewSystemError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitSystem, Suggestion: suggestion}
}

// NewConfigError points the user at doctor.
func NewConfigError(err error) *ExitError {
	return NewUserError(err, "Run: clawmgr doctor")
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps err to a process exit code. An ExitError decides for
// itself; otherwise cancellation is 130, ErrIO is 2 and anything else 1.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	switch {
	case crdb.As(err, &exitErr):
		return exitErr.Code
	case crdb.Is(err, context.Canceled):
		return ExitInterrupted
	case crdb.Is(err, ErrIO):
		return ExitSystem
	default:
		return ExitUser
	}
}

// Suggestion returns the ExitError suggestion if there is one, else the
// hints attached anywhere in the chain.
func Suggestion(err error) string {
	var exitErr *ExitError
	if crdb.As(err, &exitErr) && exitErr.Suggestion != "" {
		return exitErr.Suggestion
	}
	return crdb.FlattenHints(err)
}
