package propstore

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Source is a named, read-only set of configuration properties.
type Source interface {
	// Name identifies the source inside a Store. Names are unique per store.
	Name() string

	// Property returns the value held under key.
	Property(key string) (any, bool)

	// Keys lists every key the source holds, sorted.
	Keys() []string
}

// MapSource is a Source backed by a map. The map is copied on construction,
// so later changes to the caller's map are not observed.
type MapSource struct {
	name  string
	props map[string]any
	keys  []string
}

// NewMapSource builds a MapSource named name holding a copy of props.
func NewMapSource(name string, props map[string]any) *MapSource {
	copied := make(map[string]any, len(props))
	keys := make([]string, 0, len(props))
	for k, v := range props {
		copied[k] = cloneValue(v)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &MapSource{name: name, props: copied, keys: keys}
}

// Name implements Source.
func (m *MapSource) Name() string { return m.name }

// Property implements Source. Slice values are returned as copies.
func (m *MapSource) Property(key string) (any, bool) {
	v, ok := m.props[key]
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Keys implements Source.
func (m *MapSource) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// ConfigSource flattens a yaml-tagged struct into a MapSource with dotted
// keys. Nested mappings become "section.key"; sequences are kept whole, so
// a []string field named locations under migrations is readable as
// "migrations.locations".
//
// Parameters:
//   - name: Source name inside the store
//   - v: Any value gopkg.in/yaml.v3 can marshal, typically *config.Config
//
// Returns:
//   - *MapSource: Flattened properties
//   - error: If v cannot be round-tripped through YAML
func ConfigSource(name string, v any) (*MapSource, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", name, err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("unmarshalling %s: %w", name, err)
	}

	props := make(map[string]any)
	flatten("", tree, props)
	return NewMapSource(name, props), nil
}

func flatten(prefix string, tree map[string]any, out map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]any, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
