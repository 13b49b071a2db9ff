package mcp

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/reconcile"
	"github.com/thoreinstein/clawmgr/internal/registry"
)

var (
	syncDryRun bool
	syncWatch  bool
)

func init() {
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false,
		"show what would change without writing")
	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false,
		"keep running and sync whenever the registry file changes")
	syncCmd.MarkFlagsMutuallyExclusive("dry-run", "watch")
	Cmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the companion store with the registry",
	Long: `Write every enabled server into the companion tool's store and remove
disabled ones. Entries the registry does not know about are left alone.

Every registry change made by clawmgr already syncs. Use this after editing
the registry by hand, or run with --watch to sync on every save.`,
	Example: `  clawmgr mcp sync
  clawmgr mcp sync --dry-run
  clawmgr mcp sync --watch`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, _ []string) error {
	a, err := app(cmd)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if syncDryRun {
		reg, err := a.Store.Load()
		if err != nil {
			return errors.NewConfigError(err)
		}
		plan, err := a.Syncer.Inspect(reg.Servers())
		if err != nil {
			return errors.NewConfigError(err)
		}
		printPlan(w, plan)
		return nil
	}

	if err := syncOnce(cmd.Context(), w, a.Store); err != nil && !syncWatch {
		return err
	}
	if !syncWatch {
		return nil
	}

	watcher, err := reconcile.NewWatcher(reconcile.WatcherConfig{
		Path:   a.Store.Path(),
		Logger: a.Logger,
		OnChange: func(ctx context.Context) error {
			return syncOnce(ctx, w, a.Store)
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Watching %s (Ctrl-C to stop)\n", a.Store.Path())
	return watcher.Run(cmd.Context())
}

// syncOnce reconciles and prints the plan. A degraded sync is returned as
// an error so a one-shot run exits non-zero.
func syncOnce(ctx context.Context, w io.Writer, store *registry.Store) error {
	res, err := store.Sync(ctx)
	if err != nil {
		return errors.NewConfigError(err)
	}
	if res.Degraded() {
		return errors.NewSystemError(res.SyncErr, "Run: clawmgr doctor")
	}
	if res.Report != nil {
		printPlan(w, res.Report.Plan)
	}
	reportSave(w, res)
	return nil
}
