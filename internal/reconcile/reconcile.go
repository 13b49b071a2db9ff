package reconcile

import (
	"bytes"
	"encoding/json"
	"maps"
	"reflect"
	"slices"

	"github.com/thoreinstein/clawmgr/internal/errors"
	"github.com/thoreinstein/clawmgr/internal/mcp"
	"github.com/thoreinstein/clawmgr/pkg/fileutil"
)

// ServersKey is the top-level field of the companion document holding the
// server map.
const ServersKey = "mcpServers"

var (
	// ErrSyncDegraded marks any failure to bring the companion store in line
	// with the registry. The registry itself is still authoritative.
	ErrSyncDegraded = errors.New("sync degraded")

	// ErrMalformedStore indicates the companion document is not a JSON
	// object or its server map is not an object. Such a file is left alone.
	ErrMalformedStore = errors.New("malformed companion store")
)

// document is the companion file split into its server map and every
// other top-level field, kept as raw JSON.
type document struct {
	fields  map[string]json.RawMessage
	servers map[string]json.RawMessage
}

func parse(raw []byte) (*document, error) {
	raw = fileutil.TrimDocument(raw)
	doc := &document{
		fields:  map[string]json.RawMessage{},
		servers: map[string]json.RawMessage{},
	}
	if len(raw) == 0 {
		return doc, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding companion document"), ErrMalformedStore)
	}
	if fields != nil {
		doc.fields = fields
	}

	serversRaw, ok := doc.fields[ServersKey]
	delete(doc.fields, ServersKey)
	if !ok || string(bytes.TrimSpace(serversRaw)) == "null" {
		return doc, nil
	}
	if err := json.Unmarshal(serversRaw, &doc.servers); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decoding %s", ServersKey), ErrMalformedStore)
	}
	if doc.servers == nil {
		doc.servers = map[string]json.RawMessage{}
	}
	return doc, nil
}

func (d *document) render() ([]byte, error) {
	out := make(map[string]any, len(d.fields)+1)
	for k, v := range d.fields {
		out[k] = v
	}
	out[ServersKey] = d.servers
	return fileutil.MarshalJSON(out)
}

func shapeJSON(s *mcp.Server) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.ExternalShape()); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Apply returns raw with the registry projected into its server map. An
// empty raw document is treated as {}. The output is canonical (sorted
// keys, two-space indent) so applying it again to its own result yields
// identical bytes.
func Apply(servers map[string]*mcp.Server, raw []byte) ([]byte, error) {
	doc, err := parse(raw)
	if err != nil {
		return nil, err
	}
	for name, s := range servers {
		if s == nil || !s.Enabled {
			delete(doc.servers, name)
			continue
		}
		shape, err := shapeJSON(s)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s", name)
		}
		doc.servers[name] = shape
	}
	return doc.render()
}

// Plan lists what Apply would change, by server name. Every slice is
// sorted.
type Plan struct {
	Added     []string `json:"added"`
	Updated   []string `json:"updated"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`

	// Foreign are entries in the companion store the registry does not
	// manage. They are reported, never modified.
	Foreign []string `json:"foreign"`
}

// Changed reports whether applying the plan modifies any server entry.
func (p *Plan) Changed() bool {
	return len(p.Added)+len(p.Updated)+len(p.Removed) > 0
}

// Drift returns every managed name whose companion entry does not match
// the registry.
func (p *Plan) Drift() []string {
	drift := slices.Concat(p.Added, p.Updated, p.Removed)
	slices.Sort(drift)
	return drift
}

// Diff computes the Plan for applying servers to raw.
func Diff(servers map[string]*mcp.Server, raw []byte) (*Plan, error) {
	doc, err := parse(raw)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, name := range slices.Sorted(maps.Keys(servers)) {
		s := servers[name]
		current, present := doc.servers[name]
		if s == nil || !s.Enabled {
			if present {
				plan.Removed = append(plan.Removed, name)
			}
			continue
		}
		if !present {
			plan.Added = append(plan.Added, name)
			continue
		}
		want, err := shapeJSON(s)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s", name)
		}
		if sameJSON(current, want) {
			plan.Unchanged = append(plan.Unchanged, name)
		} else {
			plan.Updated = append(plan.Updated, name)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(doc.servers)) {
		if _, managed := servers[name]; !managed {
			plan.Foreign = append(plan.Foreign, name)
		}
	}
	return plan, nil
}

func sameJSON(a, b json.RawMessage) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
