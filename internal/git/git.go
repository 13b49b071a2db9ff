// Package git wraps the git CLI for fetching server sources.
package git

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/shell"
)

// ErrInvalidURL indicates a source that git must not be handed.
var ErrInvalidURL = errors.New("invalid git URL")

// scp-like syntax: user@host:path
var scpLike = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^:]`)

var allowedSchemes = map[string]bool{
	"https": true,
	"http":  true,
	"ssh":   true,
	"git":   true,
	"file":  true,
}

// ValidateURL rejects sources that could be read as git options or that
// use a transport other than http(s), ssh, git, file or scp-like syntax.
func ValidateURL(raw string) error {
	switch {
	case raw == "":
		return errors.Wrap(ErrInvalidURL, "empty URL")
	case strings.HasPrefix(raw, "-"):
		return errors.Wrapf(ErrInvalidURL, "%q looks like an option", raw)
	case strings.Contains(raw, "::"):
		return errors.Wrapf(ErrInvalidURL, "%q uses a remote helper transport", raw)
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return errors.Wrapf(ErrInvalidURL, "%q: %v", raw, err)
		}
		if !allowedSchemes[strings.ToLower(u.Scheme)] {
			return errors.Wrapf(ErrInvalidURL, "unsupported scheme %q", u.Scheme)
		}
		if u.Scheme != "file" && u.Host == "" {
			return errors.Wrapf(ErrInvalidURL, "%q has no host", raw)
		}
		return nil
	}

	if scpLike.MatchString(raw) {
		return nil
	}
	return errors.Wrapf(ErrInvalidURL, "%q is neither a URL nor user@host:path", raw)
}

// noPrompt keeps git from blocking on a credential prompt.
var noPrompt = map[string]string{"GIT_TERMINAL_PROMPT": "0"}

// Client runs git through a shell.Runner.
type Client struct {
	runner shell.Runner
}

// New returns a Client.
func New(runner shell.Runner) *Client {
	return &Client{runner: runner}
}

// Clone runs "git clone <url> <dest>". A nonzero exit is returned in the
// Result, not as an error.
func (c *Client) Clone(ctx context.Context, url, dest string) (*shell.Result, error) {
	return c.runner.Run(ctx, shell.Cmd{
		Name: "git",
		Args: []string{"clone", "--depth", "1", "--", url, dest},
		Env:  noPrompt,
	})
}
