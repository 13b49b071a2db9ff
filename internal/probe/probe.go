package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thoreinstein/clawmgr/internal/logging"
	"github.com/thoreinstein/clawmgr/internal/mcp"
)

// Defaults for probe timing.
const (
	DefaultGracePeriod = 3 * time.Second
	DefaultHTTPTimeout = 10 * time.Second
)

// ClientName and ClientVersion identify clawmgr in the initialize request.
const (
	ClientName    = "clawmgr"
	ClientVersion = "1.0"
)

// InitializeRequest is the JSON-RPC initialize call sent by both probes.
const InitializeRequest = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"` + ClientName + `","version":"` + ClientVersion + `"}}}`

// Result is the outcome of one probe. Unreachable servers are a result,
// not an error.
type Result struct {
	// Name is the registry name of the probed server, when known.
	Name      string        `json:"name,omitempty"`
	Transport mcp.Transport `json:"transport"`
	Reachable bool          `json:"reachable"`

	// ServerName is the name the server reported in its initialize
	// response, when it could be read.
	ServerName string `json:"server_name,omitempty"`

	// Reason explains an unreachable result.
	Reason string `json:"reason,omitempty"`

	// Detail is a short human note on a reachable result.
	Detail string `json:"detail,omitempty"`

	// Tools is the number of tools listed by a deep probe, or -1.
	Tools int `json:"tools"`

	Duration time.Duration `json:"duration"`
}

func reachable(serverName, detail string) *Result {
	return &Result{Reachable: true, ServerName: serverName, Detail: detail, Tools: -1}
}

func unreachable(format string, args ...any) *Result {
	return &Result{Reason: fmt.Sprintf(format, args...), Tools: -1}
}

// String renders the result on one line.
func (r *Result) String() string {
	if !r.Reachable {
		return "unreachable: " + r.Reason
	}
	s := "reachable"
	if r.ServerName != "" {
		s += ": " + r.ServerName
	}
	if r.Detail != "" {
		s += " (" + r.Detail + ")"
	}
	return s
}

// Prober checks MCP servers with an initialize handshake.
type Prober struct {
	grace       time.Duration
	httpTimeout time.Duration
	httpClient  *http.Client
	pathEnv     string
	deep        bool
	logger      *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithGracePeriod sets how long a local server is watched after the
// initialize request is written.
func WithGracePeriod(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.grace = d
		}
	}
}

// WithHTTPTimeout bounds a remote probe, and the whole of a deep probe.
func WithHTTPTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.httpTimeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client. Its Timeout is left alone.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// WithSearchPath sets the PATH local servers are resolved and run with.
func WithSearchPath(pathEnv string) Option {
	return func(p *Prober) {
		p.pathEnv = pathEnv
	}
}

// WithDeep makes Probe run a full MCP session instead of the baseline
// checks.
func WithDeep(deep bool) Option {
	return func(p *Prober) {
		p.deep = deep
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a Prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		grace:       DefaultGracePeriod,
		httpTimeout: DefaultHTTPTimeout,
		pathEnv:     os.Getenv("PATH"),
		logger:      logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: p.httpTimeout}
	}
	return p
}

// Probe checks s using its transport. The error is non-nil only when ctx
// ends first.
func (p *Prober) Probe(ctx context.Context, s *mcp.Server) (*Result, error) {
	start := time.Now()
	var (
		res *Result
		err error
	)
	switch {
	case s.Transport() == mcp.TransportNone:
		res = unreachable("server has neither a command nor a URL")
	case p.deep:
		res, err = p.Deep(ctx, s)
	case s.IsRemote():
		res, err = p.Remote(ctx, s.URL)
	default:
		res, err = p.Local(ctx, s)
	}
	res.Name = s.Name
	res.Transport = s.Transport()
	res.Duration = time.Since(start)

	p.logger.Debug("probe finished",
		"server", s.Name,
		"reachable", res.Reachable,
		"duration", res.Duration,
	)
	return res, err
}

// ProbeAll probes servers concurrently, at most limit at a time, and
// returns results in input order.
func (p *Prober) ProbeAll(ctx context.Context, servers []*mcp.Server, limit int) ([]*Result, error) {
	results := make([]*Result, len(servers))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, s := range servers {
		g.Go(func() error {
			res, err := p.Probe(gctx, s)
			results[i] = res
			return err
		})
	}
	return results, g.Wait()
}
