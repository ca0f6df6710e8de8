package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Entry is one key/value pair of a filter set.
type Entry struct {
	Key   string
	Value any
}

// Set is an ordered filter mapping. Keys keep the order the client sent them in;
// flat "<key>_min" / "<key>_max" pairs are folded into a single range value for
// "<key>" at the position of the first half seen.
type Set struct {
	entries []Entry
	index   map[string]int
}

// New builds a Set from alternating key/value arguments, mostly for tests.
func New(pairs ...any) *Set {
	s := &Set{}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		s.Add(key, pairs[i+1])
	}
	return s
}

// Add inserts or replaces a key. Range halves are merged into their base key.
func (s *Set) Add(key string, value any) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if base, bound, ok := splitBound(key); ok {
		rng, _ := s.rangeFor(base)
		rng[bound] = value
		return
	}
	if i, ok := s.index[key]; ok {
		s.entries[i].Value = value
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, Entry{Key: key, Value: value})
}

func (s *Set) rangeFor(base string) (map[string]any, bool) {
	if i, ok := s.index[base]; ok {
		if m, ok := s.entries[i].Value.(map[string]any); ok {
			return m, true
		}
		m := map[string]any{}
		s.entries[i].Value = m
		return m, true
	}
	m := map[string]any{}
	s.index[base] = len(s.entries)
	s.entries = append(s.entries, Entry{Key: base, Value: m})
	return m, false
}

// splitBound recognizes "<key>_min" / "<key>_max" for range-capable keys only.
func splitBound(key string) (string, string, bool) {
	for _, suffix := range []string{"_min", "_max"} {
		if !strings.HasSuffix(key, suffix) {
			continue
		}
		if _, defined := definitions[key]; defined {
			return "", "", false
		}
		base := strings.TrimSuffix(key, suffix)
		def, ok := definitions[base]
		if !ok || (def.Strategy != StrategyRange && def.Strategy != StrategyMultiNumber) {
			return "", "", false
		}
		return base, strings.TrimPrefix(suffix, "_"), true
	}
	return "", "", false
}

// Get returns the value stored under key.
func (s *Set) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.entries[i].Value, true
}

// Entries returns the pairs in insertion order.
func (s *Set) Entries() []Entry {
	if s == nil {
		return nil
	}
	return append([]Entry(nil), s.entries...)
}

// Len is the number of keys, present or empty.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Without returns a copy of the set minus the given keys.
func (s *Set) Without(keys ...string) *Set {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := &Set{}
	for _, e := range s.Entries() {
		if !drop[e.Key] {
			out.Add(e.Key, e.Value)
		}
	}
	return out
}

// Active returns the entries whose value is present. Absent values mean
// "filter not applied", never "match nothing".
func (s *Set) Active() []Entry {
	var out []Entry
	for _, e := range s.Entries() {
		if !IsEmpty(e.Value) {
			out = append(out, e)
		}
	}
	return out
}

// UnmarshalJSON decodes a JSON object while keeping key order. Numbers are
// kept as json.Number so prices never pass through float64.
func (s *Set) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read filter set: %w", err)
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("filter set must be a JSON object")
	}

	*s = Set{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read filter key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("filter key must be a string")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode filter %q: %w", key, err)
		}
		s.Add(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close filter set: %w", err)
	}
	return nil
}

// MarshalJSON writes the set in insertion order.
func (s *Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filter %q: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Canonical is the order-independent form used for cache keys: active entries
// only, sorted by key. Two sets that filter the same way share a canonical form.
func (s *Set) Canonical() map[string]any {
	out := make(map[string]any)
	for _, e := range s.Active() {
		out[e.Key] = canonicalValue(e.Value)
	}
	return out
}

// canonicalValue sorts string arrays so ["a","b"] and ["b","a"] agree.
func canonicalValue(v any) any {
	arr, ok := v.([]any)
	if !ok {
		return v
	}
	strs := make([]string, 0, len(arr))
	for _, item := range arr {
		str, ok := item.(string)
		if !ok {
			return v
		}
		strs = append(strs, str)
	}
	sort.Strings(strs)
	return strs
}

// IsEmpty reports whether v counts as "not applied".
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		for _, item := range val {
			if !IsEmpty(item) {
				return false
			}
		}
		return true
	case []string:
		for _, item := range val {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	case map[string]any:
		for _, item := range val {
			if !IsEmpty(item) {
				return false
			}
		}
		return true
	}
	return false
}
