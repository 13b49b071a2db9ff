package doctor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
)

// Target is a path whose permissions the doctor inspects.
type Target struct {
	// Label names the path in output, e.g. "registry".
	Label string
	Path  string
	Dir   bool

	// Private marks files holding server env values. They must not be
	// readable by group or others.
	Private bool
}

// maxSharedFilePerm is the most permissive mode accepted for files without
// secrets (-rw-r--r--).
const maxSharedFilePerm os.FileMode = 0o644

// privateFilePerm is required for files that may carry secrets.
const privateFilePerm os.FileMode = 0o600

// PathPermissionCheck validates permissions on the stores and directories
// clawmgr reads and writes.
type PathPermissionCheck struct {
	PermissionFixer
	targets []Target
}

var (
	_ Check = (*PathPermissionCheck)(nil)
	_ Fixer = (*PathPermissionCheck)(nil)
)

// NewPathPermissionCheck creates a check over targets.
func NewPathPermissionCheck(targets ...Target) *PathPermissionCheck {
	return &PathPermissionCheck{targets: targets}
}

// Name returns the unique identifier for this check.
func (c *PathPermissionCheck) Name() string {
	return "path-permissions"
}

// Category returns the grouping for this check.
func (c *PathPermissionCheck) Category() string {
	return CategoryFiles
}

// Run executes the path and permission diagnostic check.
func (c *PathPermissionCheck) Run(_ context.Context) *CheckResult {
	var issues []pathIssue
	var checked int

	for _, t := range c.targets {
		if t.Path == "" {
			continue
		}
		found, ok := c.checkTarget(t)
		if !ok {
			continue
		}
		checked++
		issues = append(issues, found...)
	}

	c.setIssues(issues)
	return c.buildResult(issues, checked)
}

// pathIssue represents a single path or permission problem.
type pathIssue struct {
	Path        string
	Label       string
	Type        string // "file" or "directory"
	Problem     string
	Severity    Severity
	Permissions string
	Fixable     bool
	FixHint     string
	TargetPerm  os.FileMode
}

// checkTarget stats t and reports its issues. ok is false when the path
// does not exist, which is not a problem: the store may not be created yet.
func (c *PathPermissionCheck) checkTarget(t Target) (issues []pathIssue, ok bool) {
	kind := "file"
	if t.Dir {
		kind = "directory"
	}

	info, err := os.Stat(t.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false
	}
	if err != nil {
		return []pathIssue{{
			Path:     t.Path,
			Label:    t.Label,
			Type:     kind,
			Problem:  fmt.Sprintf("cannot stat %s: %v", kind, err),
			Severity: SeverityError,
		}}, true
	}

	if info.IsDir() != t.Dir {
		return []pathIssue{{
			Path:     t.Path,
			Label:    t.Label,
			Type:     kind,
			Problem:  fmt.Sprintf("expected %s but found something else", kind),
			Severity: SeverityError,
		}}, true
	}

	if !t.Dir {
		f, err := os.Open(t.Path)
		if err != nil {
			return []pathIssue{{
				Path:        t.Path,
				Label:       t.Label,
				Type:        kind,
				Problem:     "file is not readable",
				Severity:    SeverityError,
				Permissions: formatPermissions(info.Mode()),
			}}, true
		}
		f.Close()
	}

	// Unix permission bits do not apply on Windows.
	if runtime.GOOS == "windows" {
		return nil, true
	}
	return c.checkMode(t, kind, info.Mode()), true
}

func (c *PathPermissionCheck) checkMode(t Target, kind string, mode os.FileMode) []pathIssue {
	perm := mode.Perm()
	want := maxSharedFilePerm
	switch {
	case t.Dir:
		want = 0o755
	case t.Private:
		want = privateFilePerm
	}
	issue := pathIssue{
		Path:        t.Path,
		Label:       t.Label,
		Type:        kind,
		Severity:    SeverityWarning,
		Permissions: formatPermissions(mode),
		Fixable:     true,
		TargetPerm:  want,
		FixHint:     fmt.Sprintf("chmod %o %s", want, t.Path),
	}

	switch {
	case perm&0o002 != 0:
		issue.Problem = kind + " is world-writable"
	case !t.Dir && perm&^want != 0:
		issue.Problem = fmt.Sprintf("%s is more permissive than %s", kind, formatPermissions(want))
	default:
		return nil
	}
	return []pathIssue{issue}
}

// buildResult constructs the final CheckResult from accumulated issues.
func (c *PathPermissionCheck) buildResult(issues []pathIssue, checked int) *CheckResult {
	if len(issues) == 0 {
		return &CheckResult{
			Name:     c.Name(),
			Category: c.Category(),
			Status:   SeverityPass,
			Message:  fmt.Sprintf("all %d paths have valid permissions", checked),
		}
	}

	status := SeverityWarning
	issueDetails := make([]map[string]any, 0, len(issues))
	var fixHints []string
	fixable := false
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			status = SeverityError
		}
		m := map[string]any{
			"path":     issue.Path,
			"label":    issue.Label,
			"type":     issue.Type,
			"problem":  issue.Problem,
			"severity": issue.Severity.String(),
		}
		if issue.Permissions != "" {
			m["permissions"] = issue.Permissions
		}
		if issue.Fixable {
			fixable = true
			fixHints = append(fixHints, issue.FixHint)
		}
		issueDetails = append(issueDetails, m)
	}

	return &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   status,
		Message:  fmt.Sprintf("found %d permission issue(s) across %d paths", len(issues), checked),
		Details: map[string]any{
			"checked_paths": checked,
			"issue_count":   len(issues),
			"issues":        issueDetails,
		},
		Fixable: fixable,
		FixHint: strings.Join(fixHints, "; "),
	}
}

// formatPermissions returns a human-readable permission string (e.g., "0644").
func formatPermissions(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}
