// Package optset provides the immutable option snapshots that back
// configuration profiles.
//
// A Set maps dotted option paths (e.g., "basic.request.timeout") to values.
// Sets are snapshots: constructors deep-copy their input and every operation
// that would change a Set returns a new one, so a Set handed to a reader can
// never change underneath it. Paths are opaque to this package; no validation
// of path legality is performed.
package optset

import (
	"sort"
	"strings"
)

// Set is an immutable snapshot of option paths to values.
//
// The zero value is an empty Set and is ready to use.
type Set struct {
	// data holds values nested by path segment. It is never mutated after
	// construction; operations build fresh maps.
	data map[string]any
}

// New creates a Set from a nested map. The map is deep-copied, so later
// mutations by the caller do not affect the Set.
func New(data map[string]any) Set {
	return Set{data: cloneMap(data)}
}

// Empty returns a Set with no options.
func Empty() Set {
	return Set{}
}

// Get returns the value at the given dot-separated path.
func (s Set) Get(path string) (any, bool) {
	if s.data == nil {
		return nil, false
	}

	current := any(s.data)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		val, exists := m[part]
		if !exists {
			return nil, false
		}

		current = val
	}

	return current, true
}

// Has reports whether the Set contains a value at the given path.
func (s Set) Has(path string) bool {
	_, ok := s.Get(path)
	return ok
}

// With returns a new Set with the value stored at the given path. Intermediate
// segments that hold non-map values are replaced by maps; the new value wins.
func (s Set) With(path string, value any) Set {
	data := cloneMap(s.data)
	if data == nil {
		data = make(map[string]any)
	}

	parts := strings.Split(path, ".")
	current := data
	for i := 0; i < len(parts)-1; i++ {
		next, ok := current[parts[i]].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[parts[i]] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = cloneValue(value)

	return Set{data: data}
}

// WithFallback merges the receiver over base: for every path present in the
// receiver the receiver's value wins, every other path comes from base. Maps
// merge recursively; any other value replaces wholesale. Neither input is
// modified. An empty receiver returns base unchanged.
func (s Set) WithFallback(base Set) Set {
	if len(s.data) == 0 {
		return base
	}
	if len(base.data) == 0 {
		return s
	}
	return Set{data: mergeMaps(base.data, s.data)}
}

// Flatten returns the Set as a single-level map keyed by dotted paths.
func (s Set) Flatten() map[string]any {
	result := make(map[string]any)
	flattenInto(s.data, "", result)
	return result
}

// Paths returns every leaf path in the Set, sorted.
func (s Set) Paths() []string {
	flat := s.Flatten()
	paths := make([]string, 0, len(flat))
	for path := range flat {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// AsMap returns a deep copy of the Set's nested representation.
func (s Set) AsMap() map[string]any {
	if s.data == nil {
		return map[string]any{}
	}
	return cloneMap(s.data)
}

// Len returns the number of leaf paths in the Set.
func (s Set) Len() int {
	return len(s.Flatten())
}

// IsEmpty reports whether the Set holds no options.
func (s Set) IsEmpty() bool {
	return len(s.data) == 0
}

// Equal reports whether two Sets hold the same paths and values.
func (s Set) Equal(other Set) bool {
	return mapsEqual(s.data, other.data)
}

// Diff compares two Sets and returns the leaf paths that were added, changed,
// and removed going from old to new.
func Diff(old, new Set) (added, changed, removed []string) {
	oldFlat := old.Flatten()
	newFlat := new.Flatten()

	for path, newVal := range newFlat {
		if oldVal, exists := oldFlat[path]; exists {
			if !valuesEqual(oldVal, newVal) {
				changed = append(changed, path)
			}
		} else {
			added = append(added, path)
		}
	}

	for path := range oldFlat {
		if _, exists := newFlat[path]; !exists {
			removed = append(removed, path)
		}
	}

	sort.Strings(added)
	sort.Strings(changed)
	sort.Strings(removed)
	return added, changed, removed
}

// mergeMaps builds a new map with values from over taking precedence over
// values from under. Both inputs are treated as read-only.
func mergeMaps(under, over map[string]any) map[string]any {
	result := make(map[string]any, len(under)+len(over))
	for key, val := range under {
		result[key] = cloneValue(val)
	}

	for key, overVal := range over {
		underVal, exists := result[key]
		if !exists {
			result[key] = cloneValue(overVal)
			continue
		}

		overMap, overIsMap := overVal.(map[string]any)
		underMap, underIsMap := underVal.(map[string]any)
		if overIsMap && underIsMap {
			result[key] = mergeMaps(underMap, overMap)
		} else {
			result[key] = cloneValue(overVal)
		}
	}

	return result
}

// flattenInto flattens nested maps into dotted leaf paths.
func flattenInto(data map[string]any, prefix string, result map[string]any) {
	for key, val := range data {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := val.(map[string]any); ok {
			flattenInto(nested, fullKey, result)
		} else {
			result[fullKey] = val
		}
	}
}

// cloneMap creates a deep copy of a nested map.
func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}
	return dst
}

// cloneValue creates a deep copy of a value.
func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		return cloneSlice(v)
	case []string:
		dst := make([]string, len(v))
		copy(dst, v)
		return dst
	default:
		return val
	}
}

// cloneSlice creates a deep copy of a slice.
func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}

	dst := make([]any, len(src))
	for i, val := range src {
		dst[i] = cloneValue(val)
	}
	return dst
}

// valuesEqual compares two values for equality.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch va := a.(type) {
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok {
			return false
		}
		return mapsEqual(va, vb)
	case []any:
		vb, ok := b.([]any)
		if !ok {
			return false
		}
		return slicesEqual(va, vb)
	case []string:
		vb, ok := b.([]string)
		if !ok {
			return false
		}
		if len(va) != len(vb) {
			return false
		}
		for i := range va {
			if va[i] != vb[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !valuesEqual(va, vb) {
			return false
		}
	}
	return true
}

func slicesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
