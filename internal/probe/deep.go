package probe

import (
	"context"
	"fmt"
	"os/exec"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/shell"
)

// Deep runs a full MCP session against s: initialize, initialized and
// tools/list. Unlike Local it reads the handshake response, so a server
// that starts but never answers is unreachable.
func (p *Prober) Deep(ctx context.Context, s *mcp.Server) (*Result, error) {
	sessionCtx, cancel := context.WithTimeout(ctx, p.httpTimeout)
	defer cancel()

	var transport sdk.Transport
	switch s.Transport() {
	case mcp.TransportStdio:
		bin, err := shell.LookPath(s.Command, p.pathEnv)
		if err != nil {
			return unreachable("failed to start %s: %v", s.Command, err), nil
		}
		cmd := exec.CommandContext(sessionCtx, bin, s.Args...)
		cmd.Env = shell.Environ(p.pathEnv, s.Env)
		configureProcess(cmd)
		defer func() { _ = killProcessGroup(cmd) }()
		transport = &sdk.CommandTransport{Command: cmd}
	case mcp.TransportRemote:
		transport = &sdk.StreamableClientTransport{
			Endpoint:   s.URL,
			HTTPClient: p.httpClient,
		}
	default:
		return unreachable("server has neither a command nor a URL"), nil
	}

	client := sdk.NewClient(&sdk.Implementation{Name: ClientName, Version: ClientVersion}, nil)
	session, err := client.Connect(sessionCtx, transport, nil)
	if err != nil {
		return unreachable("handshake failed: %v", err), ctx.Err()
	}
	defer session.Close()

	var serverName string
	if init := session.InitializeResult(); init != nil && init.ServerInfo != nil {
		serverName = init.ServerInfo.Name
	}

	tools, err := session.ListTools(sessionCtx, nil)
	if err != nil {
		res := reachable(serverName, fmt.Sprintf("initialized, tools/list failed: %v", err))
		return res, ctx.Err()
	}

	res := reachable(serverName, fmt.Sprintf("%d tools", len(tools.Tools)))
	res.Tools = len(tools.Tools)
	return res, nil
}
