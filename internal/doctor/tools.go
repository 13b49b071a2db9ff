package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/shell"
)

// Tool is an executable the doctor looks for.
type Tool struct {
	Name string
	// Purpose says what the tool is needed for, e.g. "clone MCP repositories".
	Purpose string
	// Optional tools only warn when missing.
	Optional bool
}

// ToolCheck resolves tools against the same extended PATH the installer
// and probe use.
type ToolCheck struct {
	tools   []Tool
	pathEnv string
}

var _ Check = (*ToolCheck)(nil)

// NewToolCheck creates a check for tools on pathEnv.
func NewToolCheck(pathEnv string, tools ...Tool) *ToolCheck {
	return &ToolCheck{tools: tools, pathEnv: pathEnv}
}

// Name returns the unique identifier for this check.
func (c *ToolCheck) Name() string {
	return "tools"
}

// Category returns the grouping for this check.
func (c *ToolCheck) Category() string {
	return CategoryTools
}

// Run looks up every tool.
func (c *ToolCheck) Run(_ context.Context) *CheckResult {
	found := make(map[string]any, len(c.tools))
	var missingRequired, missingOptional []string
	var hints []string

	for _, t := range c.tools {
		path, err := shell.LookPath(t.Name, c.pathEnv)
		if err == nil {
			found[t.Name] = path
			continue
		}
		found[t.Name] = nil
		if t.Optional {
			missingOptional = append(missingOptional, t.Name)
		} else {
			missingRequired = append(missingRequired, t.Name)
		}
		if t.Purpose != "" {
			hints = append(hints, fmt.Sprintf("install %s to %s", t.Name, t.Purpose))
		}
	}

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"tools": found},
		FixHint:  strings.Join(hints, "; "),
	}
	switch {
	case len(missingRequired) > 0:
		result.Status = SeverityError
		result.Message = "missing required tools: " + strings.Join(missingRequired, ", ")
	case len(missingOptional) > 0:
		result.Status = SeverityWarning
		result.Message = "missing optional tools: " + strings.Join(missingOptional, ", ")
	default:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("all %d tools found", len(c.tools))
	}
	return result
}
