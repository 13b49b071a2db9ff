package registry

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/internal/mcp/validator"
	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

// Registry maps server names to descriptors. It is a plain in-memory value;
// callers compose Load, mutations and Save.
type Registry map[string]*mcp.Server

// Upsert validates s and stores it under name, replacing any existing
// entry. The descriptor's Name is set to name.
func (r Registry) Upsert(name string, s *mcp.Server) error {
	if s == nil {
		return errors.Wrap(errors.ErrInvalidConfig, "descriptor is required")
	}
	if err := validator.New().ValidateServer(name, s).First(); err != nil {
		return errors.Mark(err, errors.ErrInvalidConfig)
	}
	s.Name = name
	r[name] = s
	return nil
}

// Remove deletes name and reports whether it was present.
func (r Registry) Remove(name string) bool {
	_, ok := r[name]
	delete(r, name)
	return ok
}

// Get returns the descriptor for name.
func (r Registry) Get(name string) (*mcp.Server, bool) {
	s, ok := r[name]
	return s, ok
}

// Names returns every server name, sorted.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// Enabled returns the sorted names of enabled servers.
func (r Registry) Enabled() []string {
	var names []string
	for _, name := range r.Names() {
		if r[name].Enabled {
			names = append(names, name)
		}
	}
	return names
}

// Servers returns r as the plain map the reconciler consumes.
func (r Registry) Servers() map[string]*mcp.Server {
	return r
}

// Encode renders the registry file contents.
func (r Registry) Encode() ([]byte, error) {
	return fileutil.MarshalJSON(map[string]*mcp.Server(r))
}

// Decode parses registry file contents. Empty input yields an empty
// registry; anything that is not a JSON object of descriptors is marked
// errors.ErrParse.
func Decode(data []byte) (Registry, error) {
	data = fileutil.TrimDocument(data)
	reg := Registry{}
	if len(data) == 0 {
		return reg, nil
	}

	var raw map[string]*mcp.Server
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding registry"), errors.ErrParse)
	}
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		s := raw[name]
		if s == nil {
			return nil, errors.Mark(errors.Newf("decoding registry: entry %q is null", name), errors.ErrParse)
		}
		s.Name = name
		reg[name] = s
	}
	return reg, nil
}
