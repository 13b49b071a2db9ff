package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/registry"
)

// DriftCheck compares the registry with the companion store.
type DriftCheck struct {
	store *registry.Store
}

var _ Check = (*DriftCheck)(nil)

// NewDriftCheck creates a drift check. The store must carry a syncer.
func NewDriftCheck(store *registry.Store) *DriftCheck {
	return &DriftCheck{store: store}
}

// Name returns the unique identifier for this check.
func (c *DriftCheck) Name() string {
	return "registry-drift"
}

// Category returns the grouping for this check.
func (c *DriftCheck) Category() string {
	return CategoryMCP
}

// Run inspects the pending reconcile plan without writing anything.
func (c *DriftCheck) Run(_ context.Context) *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	syncer := c.store.Syncer()
	if syncer == nil {
		result.Status = SeverityInfo
		result.Message = "no companion store configured"
		return result
	}

	reg, err := c.store.Load()
	if err != nil {
		result.Status = SeverityError
		result.Message = "registry cannot be loaded: " + err.Error()
		return result
	}
	plan, err := syncer.Inspect(reg.Servers())
	if err != nil {
		result.Status = SeverityError
		result.Message = "companion store cannot be read: " + err.Error()
		if hint := errors.FlattenHints(err); hint != "" {
			result.FixHint = hint
		}
		return result
	}

	result.Details = map[string]any{
		"added":     plan.Added,
		"updated":   plan.Updated,
		"removed":   plan.Removed,
		"unchanged": len(plan.Unchanged),
		"foreign":   plan.Foreign,
	}
	drift := plan.Drift()
	switch {
	case len(drift) > 0:
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%d server(s) out of sync: %s", len(drift), strings.Join(drift, ", "))
		result.FixHint = "clawmgr mcp sync"
	case len(plan.Foreign) > 0:
		result.Status = SeverityInfo
		result.Message = fmt.Sprintf("in sync; %d unmanaged server(s) left untouched", len(plan.Foreign))
	default:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d enabled server(s) in sync", len(plan.Unchanged))
	}
	return result
}

// EntryPointCheck verifies that servers installed from source still have
// their entry point on disk.
type EntryPointCheck struct {
	store       *registry.Store
	installRoot string
}

var _ Check = (*EntryPointCheck)(nil)

// NewEntryPointCheck creates a check for servers under installRoot.
func NewEntryPointCheck(store *registry.Store, installRoot string) *EntryPointCheck {
	return &EntryPointCheck{store: store, installRoot: installRoot}
}

// Name returns the unique identifier for this check.
func (c *EntryPointCheck) Name() string {
	return "entry-points"
}

// Category returns the grouping for this check.
func (c *EntryPointCheck) Category() string {
	return CategoryMCP
}

// Run checks the first argument of each server launched from installRoot.
func (c *EntryPointCheck) Run(_ context.Context) *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	reg, err := c.store.Load()
	if err != nil {
		result.Status = SeverityError
		result.Message = "registry cannot be loaded: " + err.Error()
		return result
	}

	root := filepath.Clean(c.installRoot) + string(filepath.Separator)
	var checked int
	var missing []string
	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		if !s.IsLocal() || len(s.Args) == 0 || !strings.HasPrefix(filepath.Clean(s.Args[0]), root) {
			continue
		}
		checked++
		if _, err := os.Stat(s.Args[0]); err != nil {
			missing = append(missing, name)
		}
	}

	result.Details = map[string]any{"checked": checked, "missing": missing}
	switch {
	case len(missing) > 0:
		result.Status = SeverityError
		result.Message = "entry point missing for: " + strings.Join(missing, ", ")
		result.FixHint = "reinstall with: clawmgr mcp install <repo-url>"
	case checked == 0:
		result.Status = SeverityInfo
		result.Message = "no servers installed from source"
	default:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d installed server(s) have entry points", checked)
	}
	return result
}
