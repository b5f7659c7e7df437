package profig

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dshills/profig/optset"
)

// view is what the shared accessors read through: the live effective options
// plus the identities needed to derive new profiles.
type view interface {
	// Effective returns the current effective option snapshot.
	Effective() optset.Set
	// root returns the Base this profile is anchored to.
	root() *Base
	// overlay returns the options accumulated by With calls.
	overlay() optset.Set
}

// facade implements the typed getters and With derivation shared by Base and
// Derived. The embedding type wires v to itself at construction.
type facade struct {
	v view
}

// IsDefined reports whether the effective options contain the path.
func (f *facade) IsDefined(path string) bool {
	return f.v.Effective().Has(path)
}

// get returns the raw value at the given path.
func (f *facade) get(path string) (any, error) {
	val, ok := f.v.Effective().Get(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOptionMissing, path)
	}
	return val, nil
}

// GetBoolean returns a boolean value at the given path.
func (f *facade) GetBoolean(path string) (bool, error) {
	val, err := f.get(path)
	if err != nil {
		return false, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, &TypeError{
			Path:     path,
			Expected: "boolean",
			Actual:   fmt.Sprintf("%T", val),
		}
	}

	return b, nil
}

// GetInt returns an integer value at the given path.
func (f *facade) GetInt(path string) (int, error) {
	val, err := f.get(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, &TypeError{
			Path:     path,
			Expected: "integer",
			Actual:   fmt.Sprintf("%T", val),
		}
	}
}

// GetDuration returns a duration value at the given path.
// Accepts time.Duration values, duration strings (e.g., "500ms"), and bare
// numbers, which are read as milliseconds.
func (f *facade) GetDuration(path string) (time.Duration, error) {
	val, err := f.get(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, &TypeError{
				Path:     path,
				Expected: "duration",
				Actual:   fmt.Sprintf("string %q", v),
			}
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v) * time.Millisecond, nil
	default:
		return 0, &TypeError{
			Path:     path,
			Expected: "duration",
			Actual:   fmt.Sprintf("%T", val),
		}
	}
}

// GetString returns a string value at the given path.
func (f *facade) GetString(path string) (string, error) {
	val, err := f.get(path)
	if err != nil {
		return "", err
	}

	s, ok := val.(string)
	if !ok {
		return "", &TypeError{
			Path:     path,
			Expected: "string",
			Actual:   fmt.Sprintf("%T", val),
		}
	}

	return s, nil
}

// GetStringList returns a string list value at the given path.
func (f *facade) GetStringList(path string) ([]string, error) {
	val, err := f.get(path)
	if err != nil {
		return nil, err
	}

	switch v := val.(type) {
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result, nil
	case []any:
		result := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &TypeError{
					Path:     path,
					Expected: "string list",
					Actual:   fmt.Sprintf("list with %T element", item),
				}
			}
			result[i] = s
		}
		return result, nil
	default:
		return nil, &TypeError{
			Path:     path,
			Expected: "string list",
			Actual:   fmt.Sprintf("%T", val),
		}
	}
}

// GetBytes returns a byte-size value at the given path.
// Accepts integers (a byte count) and humanized size strings such as
// "512 kB" or "1MiB".
func (f *facade) GetBytes(path string) (int64, error) {
	val, err := f.get(path)
	if err != nil {
		return 0, err
	}

	switch v := val.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return 0, &TypeError{
				Path:     path,
				Expected: "byte size",
				Actual:   fmt.Sprintf("string %q", v),
			}
		}
		return int64(n), nil
	default:
		return 0, &TypeError{
			Path:     path,
			Expected: "byte size",
			Actual:   fmt.Sprintf("%T", val),
		}
	}
}

// GetConsistency returns a consistency level at the given path. The stored
// value must be a string holding a canonical level name; unknown names fail
// with ErrUnknownConsistency.
func (f *facade) GetConsistency(path string) (Consistency, error) {
	name, err := f.GetString(path)
	if err != nil {
		return 0, err
	}

	level, ok := consistencyByName[name]
	if !ok {
		return 0, &ConsistencyError{Path: path, Name: name}
	}
	return level, nil
}

// WithBoolean returns a derived profile with the boolean stored at path.
func (f *facade) WithBoolean(path string, value bool) Profile {
	return f.with(path, value)
}

// WithInt returns a derived profile with the integer stored at path.
func (f *facade) WithInt(path string, value int) Profile {
	return f.with(path, value)
}

// WithDuration returns a derived profile with the duration stored at path.
func (f *facade) WithDuration(path string, value time.Duration) Profile {
	return f.with(path, value)
}

// WithString returns a derived profile with the string stored at path.
func (f *facade) WithString(path string, value string) Profile {
	return f.with(path, value)
}

// WithStringList returns a derived profile with the string list stored at path.
func (f *facade) WithStringList(path string, value []string) Profile {
	return f.with(path, value)
}

// WithBytes returns a derived profile with the byte count stored at path.
func (f *facade) WithBytes(path string, value int64) Profile {
	return f.with(path, value)
}

// WithConsistency returns a derived profile with the level's canonical name
// stored at path. The name is not validated here; reads validate it.
func (f *facade) WithConsistency(path string, value Consistency) Profile {
	return f.with(path, value.String())
}

// with anchors a new derived profile at the receiver's base, carrying the
// receiver's overlay plus the new option. Deriving from a derived profile
// therefore stays one level deep.
func (f *facade) with(path string, value any) Profile {
	added := f.v.overlay().With(path, value)
	return newDerived(f.v.root(), added)
}
