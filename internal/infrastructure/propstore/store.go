package propstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store is an ordered list of property sources. Lookups consult sources
// front to back and the first source holding a key wins.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	sources []Source
}

// New creates a Store holding sources in the given order, strongest first.
func New(sources ...Source) *Store {
	s := &Store{}
	for _, src := range sources {
		s.AddLast(src)
	}
	return s
}

// AddFirst inserts src at the front of the store. A source with the same
// name is removed first, so re-adding a source moves it to the front.
func (s *Store) AddFirst(src Source) {
	if src == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(src.Name())
	s.sources = append([]Source{src}, s.sources...)
}

// AddLast appends src at the back of the store, replacing any source with
// the same name.
func (s *Store) AddLast(src Source) {
	if src == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(src.Name())
	s.sources = append(s.sources, src)
}

// Remove drops the source named name. It reports whether a source was removed.
func (s *Store) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(name)
}

func (s *Store) removeLocked(name string) bool {
	for i, src := range s.sources {
		if src.Name() == name {
			s.sources = append(s.sources[:i], s.sources[i+1:]...)
			return true
		}
	}
	return false
}

// Source returns the source named name.
func (s *Store) Source(name string) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, src := range s.sources {
		if src.Name() == name {
			return src, true
		}
	}
	return nil, false
}

// Names lists source names in precedence order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Name()
	}
	return names
}

// Keys lists every key held by any source, sorted and without duplicates.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, src := range s.sources {
		for _, k := range src.Keys() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the effective value of key: the value held by the first
// source that has it.
func (s *Store) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, src := range s.sources {
		if v, ok := src.Property(key); ok {
			return v, true
		}
	}
	return nil, false
}

// String returns the effective value of key rendered as a string. List
// values are joined with commas.
func (s *Store) String(key string) (string, bool) {
	v, ok := s.Lookup(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []string:
		return strings.Join(t, ","), true
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(t), true
	}
}

// Strings returns the effective value of key as an ordered list. It accepts
// []string, []any, and comma-separated string values.
func (s *Store) Strings(key string) ([]string, bool) {
	v, ok := s.Lookup(key)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, len(t))
		for i, p := range t {
			out[i] = fmt.Sprint(p)
		}
		return out, true
	case string:
		var out []string
		for _, p := range strings.Split(t, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// Snapshot returns the effective value of every key.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any)
	for _, k := range s.Keys() {
		if v, ok := s.Lookup(k); ok {
			out[k] = v
		}
	}
	return out
}

// Trace records how each source contributed to a key lookup.
type Trace struct {
	Key     string       `json:"key"`
	Sources []Provenance `json:"sources"`
}

// Provenance is one source's contribution to a traced key.
type Provenance struct {
	Source    string `json:"source"`
	Value     any    `json:"value,omitempty"`
	Found     bool   `json:"found"`
	Effective bool   `json:"effective"`
}

// Trace reports, in precedence order, which sources hold key and which of
// them supplies the effective value.
func (s *Store) Trace(key string) Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trace := Trace{Key: key, Sources: make([]Provenance, 0, len(s.sources))}
	resolved := false
	for _, src := range s.sources {
		v, ok := src.Property(key)
		p := Provenance{Source: src.Name(), Found: ok}
		if ok {
			p.Value = v
			p.Effective = !resolved
			resolved = true
		}
		trace.Sources = append(trace.Sources, p)
	}
	return trace
}

// Resolved reports whether any source holds the traced key.
func (t Trace) Resolved() bool {
	for _, p := range t.Sources {
		if p.Effective {
			return true
		}
	}
	return false
}

// ToJSON serialises the trace for logging or the status API.
func (t Trace) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}
