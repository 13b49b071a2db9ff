package mcp

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Transport identifies how a server is reached.
type Transport string

const (
	// TransportStdio is a locally spawned process speaking MCP over
	// stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportRemote is an HTTP endpoint accepting JSON-RPC POSTs.
	TransportRemote Transport = "remote"

	// TransportNone marks a descriptor with neither a command nor a URL.
	TransportNone Transport = ""
)

// Server is one MCP server descriptor as kept in the private registry.
//
// Exactly one transport is populated: Command (with Args and Env) for
// stdio servers, URL for remote ones. Disabled servers are kept in the
// registry but never projected to the companion tool.
type Server struct {
	// Name is the registry key. It is not part of the serialized entry.
	Name string `json:"-"`

	// Command is the executable for stdio servers.
	Command string `json:"command,omitempty"`

	// Args are passed to Command.
	Args []string `json:"args"`

	// Env is merged into the spawned process's environment.
	Env map[string]string `json:"env"`

	// URL is the endpoint for remote servers.
	URL string `json:"url,omitempty"`

	// Enabled controls whether the server is projected to the companion tool.
	Enabled bool `json:"enabled"`

	// unknownFields keeps entry keys written by other tools so a rewrite
	// does not drop them.
	unknownFields map[string]json.RawMessage
}

// NewStdio returns an enabled stdio descriptor.
func NewStdio(name, command string, args []string, env map[string]string) *Server {
	return &Server{
		Name:    name,
		Command: command,
		Args:    args,
		Env:     env,
		Enabled: true,
	}
}

// NewRemote returns an enabled remote descriptor.
func NewRemote(name, url string) *Server {
	return &Server{
		Name:    name,
		URL:     url,
		Enabled: true,
	}
}

// Transport reports which transport the descriptor uses. A non-empty
// Command wins over URL.
func (s *Server) Transport() Transport {
	switch {
	case s.Command != "":
		return TransportStdio
	case s.URL != "":
		return TransportRemote
	default:
		return TransportNone
	}
}

// IsLocal returns true if this server uses stdio transport.
func (s *Server) IsLocal() bool {
	return s.Transport() == TransportStdio
}

// IsRemote returns true if this server uses remote transport.
func (s *Server) IsRemote() bool {
	return s.Transport() == TransportRemote
}

// Clone returns a deep copy of s.
func (s *Server) Clone() *Server {
	if s == nil {
		return nil
	}
	c := *s
	c.Args = slices.Clone(s.Args)
	c.Env = maps.Clone(s.Env)
	c.unknownFields = maps.Clone(s.unknownFields)
	return &c
}

// ExternalShape returns the transport-only projection written to the
// companion tool's store: command, args and (non-empty) env for stdio
// servers, url for remote ones. Enabled is deliberately absent because
// presence in that store means enabled.
func (s *Server) ExternalShape() map[string]any {
	switch s.Transport() {
	case TransportStdio:
		shape := map[string]any{
			"command": s.Command,
			"args":    nonNilArgs(s.Args),
		}
		if len(s.Env) > 0 {
			shape["env"] = s.Env
		}
		return shape
	case TransportRemote:
		return map[string]any{"url": s.URL}
	default:
		return map[string]any{}
	}
}

// MarshalJSON writes the registry entry form. Args and env are always
// present, command and url only when set, and unknown keys are carried
// through.
func (s *Server) MarshalJSON() ([]byte, error) {
	result := make(map[string]any, len(s.unknownFields)+5)

	// Unknown fields first so known fields take precedence.
	for k, v := range s.unknownFields {
		result[k] = v
	}

	if s.Command != "" {
		result["command"] = s.Command
	}
	result["args"] = nonNilArgs(s.Args)
	env := s.Env
	if env == nil {
		env = map[string]string{}
	}
	result["env"] = env
	if s.URL != "" {
		result["url"] = s.URL
	}
	result["enabled"] = s.Enabled

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads a registry entry, capturing unrecognized keys.
// A missing "enabled" key means enabled.
func (s *Server) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Enabled = true
	fields := []struct {
		key string
		dst any
	}{
		{"command", &s.Command},
		{"args", &s.Args},
		{"env", &s.Env},
		{"url", &s.URL},
		{"enabled", &s.Enabled},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if string(v) != "null" {
			if err := json.Unmarshal(v, f.dst); err != nil {
				return err
			}
		}
		delete(raw, f.key)
	}

	if len(raw) > 0 {
		s.unknownFields = raw
	}

	return nil
}

func nonNilArgs(args []string) []string {
	if args == nil {
		return []string{}
	}
	return args
}
