package doctor

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Categories group checks in reports.
const (
	CategoryTools = "tools"
	CategoryFiles = "files"
	CategoryMCP   = "mcp"
)

// DefaultConcurrency bounds how many checks run at once.
const DefaultConcurrency = 4

// Check is one diagnostic. Run must be safe to call concurrently with other
// checks' Run.
type Check interface {
	Name() string
	Category() string
	Run(ctx context.Context) *CheckResult
}

// Runner executes registered checks and aggregates their results.
type Runner struct {
	checks      []Check
	concurrency int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency sets how many checks may run at once. Values below one
// run checks one at a time.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		r.concurrency = max(n, 1)
	}
}

// NewRunner creates a Runner with no checks.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddCheck registers c. Reports list results in registration order.
func (r *Runner) AddCheck(c Check) {
	r.checks = append(r.checks, c)
}

// Checks returns the registered checks in order.
func (r *Runner) Checks() []Check {
	return slices.Clone(r.checks)
}

// Run executes every check and returns the report. Checks not yet started
// when ctx ends are skipped and the report is marked Interrupted.
func (r *Runner) Run(ctx context.Context) *Report {
	report := &Report{Timestamp: time.Now().UTC()}
	results := make([]*CheckResult, len(r.checks))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, check := range r.checks {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			start := time.Now()
			res := check.Run(ctx)
			if res == nil {
				res = &CheckResult{Name: check.Name(), Category: check.Category(), Status: SeverityError,
					Message: "check returned no result"}
			}
			res.Duration = time.Since(start)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report.Results = make([]*CheckResult, 0, len(results))
	for _, res := range results {
		if res == nil {
			report.Interrupted = true
			continue
		}
		report.Results = append(report.Results, res)
		report.Summary.add(res.Status)
	}
	return report
}

// Fix runs every registered Fixer that has pending fixes. Call it after
// Run.
func (r *Runner) Fix() []FixResult {
	var out []FixResult
	for _, check := range r.checks {
		if f, ok := check.(Fixer); ok && f.CanFix() {
			out = append(out, f.Fix()...)
		}
	}
	return out
}
