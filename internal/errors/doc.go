// Package errors provides error handling conventions for the clawmgr CLI.
//
// It re-exports the pieces of github.com/cockroachdb/errors the rest of
// the module uses, defines sentinel errors for common failure classes and
// an ExitError type that carries a process exit code and a remediation
// suggestion.
//
// # Sentinel Errors
//
// Callers check for a failure class with [Is]:
//
//	if errors.Is(err, clawerrors.ErrParse) {
//	    // file exists but is not valid JSON
//	}
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): System-related error (I/O, network, permissions, etc.)
//   - ExitInterrupted (130): The command context was cancelled by an interrupt
//
// [ExitCode] and [Suggestion] derive both values from an arbitrary error
// chain so the root command can report any failure uniformly.
package errors
