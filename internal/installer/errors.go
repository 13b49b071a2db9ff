package installer

import (
	"fmt"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

// Step names one stage of the install pipeline.
type Step string

const (
	StepResolve      Step = "resolve"
	StepPrepare      Step = "prepare"
	StepFetch        Step = "fetch"
	StepDependencies Step = "dependencies"
	StepBuild        Step = "build"
	StepLocate       Step = "locate"
	StepRegister     Step = "register"
	StepRemove       Step = "remove"
)

// Sentinel errors carried by StepError.
var (
	// ErrInvalidSource indicates no server name can be derived from the source.
	ErrInvalidSource = errors.New("invalid source")

	// ErrFetchFailed indicates the clone exited nonzero.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrDependencyInstallFailed indicates the package manager install exited nonzero.
	ErrDependencyInstallFailed = errors.New("dependency install failed")

	// ErrBuildDegraded marks a failed build. It is recorded as a warning
	// and never stops the pipeline.
	ErrBuildDegraded = errors.New("build failed")
)

// StepError reports which pipeline step failed, with the captured
// diagnostic output of the external command, verbatim.
type StepError struct {
	Step   Step
	Err    error
	Output string
}

func (e *StepError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %v\n%s", e.Step, e.Err, e.Output)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step Step, err error, output string) error {
	return &StepError{Step: step, Err: err, Output: output}
}
