package mcp

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/registry"
)

// Sentinel errors for mcp add.
var (
	errAddMissingCommandOrURL = errors.New("either a command or --url is required")
	errAddBothCommandAndURL   = errors.New("cannot specify both a command and --url")
	errAddExists              = errors.New("server already exists")
	errInvalidEnv             = errors.New("environment variable must be KEY=VALUE")
)

var (
	addURL      string
	addEnv      []string
	addDisabled bool
	addForce    bool
)

func init() {
	addCmd.Flags().StringVar(&addURL, "url", "",
		"remote server endpoint")
	addCmd.Flags().StringArrayVar(&addEnv, "env", nil,
		"environment variable in KEY=VALUE format (repeatable)")
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false,
		"register the server without syncing it")
	addCmd.Flags().BoolVarP(&addForce, "force", "f", false,
		"overwrite if the server already exists")
	Cmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <name> [command] [args...]",
	Short: "Register an MCP server",
	Long: `Register a server in the registry and sync it to the companion store.

For local stdio servers give the command and its arguments. Put them after
"--" when they start with a dash. For remote servers use --url.`,
	Example: `  # Local stdio server
  clawmgr mcp add github -- npx -y @modelcontextprotocol/server-github

  # Local server with environment variables
  clawmgr mcp add db --env DB_HOST=localhost --env DB_PORT=5432 -- ./db-mcp

  # Remote server
  clawmgr mcp add api --url https://api.example.com/mcp

  # Replace an existing entry
  clawmgr mcp add github --force -- npx -y @modelcontextprotocol/server-github`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	s, err := buildServer(name, args[1:], addURL, addEnv)
	if err != nil {
		return errors.NewUserError(err, "Run: clawmgr mcp add --help")
	}
	s.Enabled = !addDisabled

	a, err := app(cmd)
	if err != nil {
		return err
	}
	res, err := a.Store.Update(cmd.Context(), func(reg registry.Registry) error {
		if _, exists := reg.Get(name); exists && !addForce {
			return errors.Wrapf(errAddExists, "%q", name)
		}
		return reg.Upsert(name, s)
	})
	switch {
	case errors.Is(err, errAddExists):
		return errors.NewUserError(err, "Use --force to replace it")
	case errors.Is(err, errors.ErrInvalidConfig):
		return errors.NewUserError(err, "")
	case err != nil:
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Added %s\n", name)
	reportSave(w, res)
	return nil
}

// buildServer makes a descriptor from the positional command line or url.
func buildServer(name string, command []string, url string, env []string) (*mcp.Server, error) {
	switch {
	case len(command) > 0 && url != "":
		return nil, errAddBothCommandAndURL
	case len(command) == 0 && url == "":
		return nil, errAddMissingCommandOrURL
	}

	envMap, err := parseEnv(env)
	if err != nil {
		return nil, err
	}
	if url != "" {
		s := mcp.NewRemote(name, url)
		s.Env = envMap
		return s, nil
	}
	return mcp.NewStdio(name, command[0], command[1:], envMap), nil
}

func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, errors.Wrapf(errInvalidEnv, "%q", p)
		}
		env[k] = v
	}
	return env, nil
}
