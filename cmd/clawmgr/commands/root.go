// Package commands implements the CLI commands for clawmgr.
package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/cmd"
	"github.com/thoreinstein/clawmgr/cmd/clawmgr/commands/backup"
	"github.com/thoreinstein/clawmgr/cmd/clawmgr/commands/flags"
	"github.com/thoreinstein/clawmgr/cmd/clawmgr/commands/mcp"
	"github.com/thoreinstein/clawmgr/internal/cli"
	"github.com/thoreinstein/clawmgr/internal/config"
	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/logging"
)

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// configFile holds the value of the --config flag.
var configFile string

// assumeYes holds the value of the -y/--yes flag.
var assumeYes bool

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: $XDG_CONFIG_HOME/clawmgr/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false,
		"answer yes to confirmation prompts")

	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("clawmgr version {{.Version}}\n")

	// Silence errors and usage so main controls error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(mcp.Cmd)
	rootCmd.AddCommand(backup.Cmd)
}

var rootCmd = &cobra.Command{
	Use:   "clawmgr",
	Short: "Manage MCP servers for the OpenClaw runtime",
	Long: `clawmgr keeps a private registry of MCP servers for OpenClaw and
projects the enabled ones into the companion tool's store (mcporter).

It installs servers from git repositories, probes whether they respond,
and diagnoses drift between the registry and the companion store.`,
	Example: `  # Register a server and sync it to mcporter
  clawmgr mcp add github npx -y @modelcontextprotocol/server-github

  # Install a server from source
  clawmgr mcp install https://github.com/excalidraw/excalidraw-mcp

  # Check that it answers
  clawmgr mcp test excalidraw-mcp

  # Check system health
  clawmgr doctor

  See Also: clawmgr mcp, clawmgr doctor, clawmgr config`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		flags.SetAssumeYes(assumeYes)
		return setupApp(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// logLevel derives the level from -q, -v and CLAWMGR_DEBUG. Flags win over
// the environment.
func logLevel(q bool, v int) (slog.Level, error) {
	if q && v > 0 {
		return 0, errors.NewUserError(errors.New("conflicting flags"), "cannot use --quiet and --verbose together")
	}
	if q {
		return slog.LevelError, nil
	}
	if v == 0 {
		switch os.Getenv("CLAWMGR_DEBUG") {
		case "1", "true":
			v = 2
		case "2":
			v = 3
		}
	}
	return logging.LevelFromVerbosity(v), nil
}

// setupLogging installs the default logger for cmd.
func setupLogging(cmd *cobra.Command) error {
	level, err := logLevel(quiet, verbosity)
	if err != nil {
		return err
	}

	primary := logging.NewLevelHandler(logging.Config{
		Level:  level,
		Format: logging.Format(logFormat),
		Output: cmd.ErrOrStderr(),
	})

	var file slog.Handler
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		file = logging.NewLevelHandler(logging.Config{Level: level, Format: logging.FormatJSON, Output: f})
	}

	logger := slog.New(logging.NewFanout(primary, file))
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))
	return nil
}

// skipsApp reports whether cmd must run without a valid configuration:
// help, version and the config commands that repair one.
func skipsApp(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "version", "__complete":
		return true
	}
	return cmd.Parent() != nil && cmd.Parent().Name() == "config"
}

// setupApp loads configuration and stores the wired App in the command
// context.
func setupApp(cmd *cobra.Command) error {
	config.Init()
	cfg, err := config.Load(configFile)
	if err != nil {
		if skipsApp(cmd) {
			return nil
		}
		return errors.NewConfigError(err)
	}
	if errs := config.Validate(cfg); len(errs) > 0 && !skipsApp(cmd) {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return errors.NewUserError(
			errors.Newf("invalid configuration: %s", strings.Join(msgs, "; ")),
			"Run: clawmgr config list")
	}

	logger := logging.FromContext(cmd.Context())
	cmd.SetContext(cli.NewContext(cmd.Context(), cli.New(cfg, logger)))
	return nil
}

// app returns the App wired by the root command.
func app(cmd *cobra.Command) (*cli.App, error) {
	return cli.FromContext(cmd.Context())
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
