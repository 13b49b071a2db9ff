package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/clawmgr/internal/mcp"
)

func TestDeep_Stdio(t *testing.T) {
	p := New(WithDeep(true), WithHTTPTimeout(20*time.Second))

	res, err := p.Probe(context.Background(), helperServer("mcp", nil))
	require.NoError(t, err)
	assert.True(t, res.Reachable, res.String())
	assert.Equal(t, helperServerName, res.ServerName)
	assert.Equal(t, 1, res.Tools)
}

func TestDeep_StdioServerThatExits(t *testing.T) {
	p := New(WithDeep(true), WithHTTPTimeout(5*time.Second))

	res, err := p.Probe(context.Background(), helperServer("exit1", nil))
	require.NoError(t, err)
	assert.False(t, res.Reachable)
	assert.Contains(t, res.Reason, "handshake failed")
}

func TestDeep_Remote(t *testing.T) {
	server := sdk.NewServer(&sdk.Implementation{Name: "remote-helper", Version: "0.0.1"}, nil)
	addEchoTool(server)
	handler := sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return server }, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	res, err := New(WithDeep(true)).Probe(context.Background(), mcp.NewRemote("remote", srv.URL))
	require.NoError(t, err)
	assert.True(t, res.Reachable, res.String())
	assert.Equal(t, "remote-helper", res.ServerName)
	assert.Equal(t, 1, res.Tools)
}

func TestRemote_AgainstSDKServer(t *testing.T) {
	server := sdk.NewServer(&sdk.Implementation{Name: "remote-helper", Version: "0.0.1"}, nil)
	handler := sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return server }, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	res, err := New().Remote(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, res.Reachable, res.String())
	assert.Equal(t, "remote-helper", res.ServerName)
}
