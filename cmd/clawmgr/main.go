// Package main is the entry point for the clawmgr CLI.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/thoreinstein/clawmgr/cmd/clawmgr/commands"
	"github.com/thoreinstein/clawmgr/internal/errors"
)

func main() {
	err := commands.Execute()
	if err == nil {
		return
	}

	var exitErr *errors.ExitError
	silent := errors.As(err, &exitErr) && exitErr.Err == nil
	if !silent {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		if hint := errors.Suggestion(err); hint != "" {
			fmt.Fprintf(os.Stderr, "%s %s\n", color.YellowString("Hint:"), hint)
		}
	}
	os.Exit(errors.ExitCode(err))
}
