package validator

import (
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/redact"
)

// Option configures a Validator.
type Option func(*Validator)

// Validator validates MCP server descriptors.
type Validator struct {
	// lenient downgrades an ambiguous transport to a warning. Registries
	// written by older tools may carry both fields; loading them is fine
	// because command wins.
	lenient bool
}

// New creates a new Validator with the given options.
func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WithLenientTransport reports a descriptor with both a command and a URL
// as a warning instead of an error.
func WithLenientTransport(lenient bool) Option {
	return func(v *Validator) {
		v.lenient = lenient
	}
}

// Validate checks every server in servers. Results are ordered by server
// name. Returns nil if nothing was found.
func (v *Validator) Validate(servers map[string]*mcp.Server) Issues {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	slices.Sort(names)

	var errs Issues
	for _, name := range names {
		errs = append(errs, v.ValidateServer(name, servers[name])...)
	}
	return errs
}

// ValidateServer checks a single descriptor stored under name.
func (v *Validator) ValidateServer(name string, server *mcp.Server) Issues {
	var errs Issues

	if err := ValidateName(name); err != nil {
		errs = append(errs, &ValidationError{
			ServerName: name,
			Field:      "name",
			Message:    err.Error(),
			Severity:   SeverityError,
			Err:        err,
		})
	}

	if server == nil {
		return append(errs, &ValidationError{
			ServerName: name,
			Message:    ErrNoTransport.Error(),
			Severity:   SeverityError,
			Err:        ErrNoTransport,
		})
	}

	errs = append(errs, v.validateTransport(name, server)...)
	errs = append(errs, v.validateEnv(name, server)...)
	errs = append(errs, v.validateArgs(name, server)...)

	return errs
}

// ValidateName checks that name is usable both as a registry key and as a
// directory under the install root.
func ValidateName(name string) error {
	switch {
	case name == "":
		return ErrMissingServerName
	case name == "." || name == "..":
		return ErrInvalidServerName
	case strings.ContainsAny(name, `/\`):
		return ErrInvalidServerName
	case strings.TrimSpace(name) != name || strings.ContainsAny(name, "\t\n\r\x00"):
		return ErrInvalidServerName
	}
	return nil
}

func (v *Validator) validateTransport(name string, server *mcp.Server) []*ValidationError {
	var errs []*ValidationError

	switch {
	case server.Command == "" && server.URL == "":
		errs = append(errs, &ValidationError{
			ServerName: name,
			Field:      "command/url",
			Message:    "server must have a command (stdio) or a URL (remote)",
			Severity:   SeverityError,
			Err:        ErrNoTransport,
		})
	case server.Command != "" && server.URL != "":
		sev := SeverityError
		if v.lenient {
			sev = SeverityWarning
		}
		errs = append(errs, &ValidationError{
			ServerName: name,
			Field:      "command/url",
			Message:    "server has both command and URL; command takes precedence",
			Severity:   sev,
			Err:        ErrAmbiguousTransport,
		})
	}

	if server.URL != "" {
		errs = append(errs, validateURL(name, server.URL)...)
	}

	if server.IsRemote() && (len(server.Args) > 0 || len(server.Env) > 0) {
		errs = append(errs, &ValidationError{
			ServerName: name,
			Field:      "args/env",
			Message:    "args and env are ignored for remote servers",
			Severity:   SeverityWarning,
		})
	}

	return errs
}

func validateURL(name, raw string) []*ValidationError {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []*ValidationError{{
			ServerName: name,
			Field:      "url",
			Message:    "URL must be an absolute http or https URL",
			Severity:   SeverityError,
			Err:        ErrInvalidURL,
		}}
	}

	if u.Scheme == "http" && !isLoopback(u.Hostname()) {
		return []*ValidationError{{
			ServerName: name,
			Field:      "url",
			Message:    "plain http to a non-local host sends requests unencrypted",
			Severity:   SeverityWarning,
		}}
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// validateEnv reports the first malformed key only.
func (v *Validator) validateEnv(name string, server *mcp.Server) []*ValidationError {
	for key := range server.Env {
		switch {
		case key == "":
			return []*ValidationError{{
				ServerName: name,
				Field:      "env",
				Message:    "environment variable key cannot be empty",
				Severity:   SeverityError,
				Err:        ErrEmptyEnvKey,
			}}
		case strings.Contains(key, "="):
			return []*ValidationError{{
				ServerName: name,
				Field:      "env",
				Message:    "environment variable key cannot contain '=': " + key,
				Severity:   SeverityError,
				Err:        ErrInvalidEnvKey,
			}}
		}
	}
	return nil
}

func (v *Validator) validateArgs(name string, server *mcp.Server) []*ValidationError {
	if !server.IsLocal() {
		return nil
	}
	masked := redact.Args(server.Args)
	if slices.Equal(masked, server.Args) {
		return nil
	}
	return []*ValidationError{{
		ServerName: name,
		Field:      "args",
		Message:    "arguments appear to contain a secret; prefer passing it through env",
		Severity:   SeverityWarning,
	}}
}
