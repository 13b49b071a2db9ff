package doctor

import (
	"fmt"
	"os"
)

// Fixer is implemented by checks that can repair what they found. CanFix
// and Fix are only meaningful after Run.
type Fixer interface {
	CanFix() bool
	Fix() []FixResult
}

// FixResult describes one attempted repair.
type FixResult struct {
	Path        string `json:"path"`
	Fixed       bool   `json:"fixed"`
	Description string `json:"description"`
}

// PermissionFixer chmods each fixable path to the mode recorded on its
// issue. It is embedded in PathPermissionCheck.
type PermissionFixer struct {
	issues []pathIssue
}

// CanFix reports whether the last run found a fixable mode.
func (f *PermissionFixer) CanFix() bool {
	return f.CountFixable() > 0
}

// Fix applies every fixable mode.
func (f *PermissionFixer) Fix() []FixResult {
	results := make([]FixResult, 0, f.CountFixable())
	for _, issue := range f.issues {
		if issue.Fixable {
			results = append(results, chmodIssue(issue))
		}
	}
	return results
}

func chmodIssue(issue pathIssue) FixResult {
	if issue.TargetPerm == 0 {
		return FixResult{Path: issue.Path, Description: "no target mode for " + issue.Type}
	}
	if err := os.Chmod(issue.Path, issue.TargetPerm); err != nil {
		return FixResult{Path: issue.Path, Description: fmt.Sprintf("chmod %04o: %v", issue.TargetPerm, err)}
	}
	return FixResult{Path: issue.Path, Fixed: true, Description: fmt.Sprintf("chmod %04o", issue.TargetPerm)}
}

func (f *PermissionFixer) setIssues(issues []pathIssue) {
	f.issues = issues
}

// CountFixable returns the number of fixable issues.
func (f *PermissionFixer) CountFixable() int {
	n := 0
	for _, issue := range f.issues {
		if issue.Fixable {
			n++
		}
	}
	return n
}
