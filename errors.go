package profig

import (
	"errors"
	"fmt"
)

// Errors returned by profile reads.
var (
	// ErrOptionMissing indicates the option path is absent from the
	// profile's effective options.
	ErrOptionMissing = errors.New("missing option")

	// ErrTypeMismatch indicates the stored value cannot serve the
	// requested type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnknownConsistency indicates a consistency level name that
	// matches no recognized level.
	ErrUnknownConsistency = errors.New("unknown consistency level")

	// ErrProfileNotFound indicates the registry has no profile with the
	// requested name.
	ErrProfileNotFound = errors.New("profile not found")
)

// TypeError is returned when a stored value cannot be converted to the
// requested type.
type TypeError struct {
	// Path is the option path.
	Path string
	// Expected is the requested type name.
	Expected string
	// Actual describes the stored value.
	Actual string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("type error at %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// ConsistencyError is returned when a stored consistency level name matches
// no recognized level.
type ConsistencyError struct {
	// Path is the option path holding the name. Empty when the name was
	// parsed directly rather than read from a profile.
	Path string
	// Name is the unrecognized level name.
	Name string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("unknown consistency level %q at %s", e.Name, e.Path)
	}
	return fmt.Sprintf("unknown consistency level %q", e.Name)
}

// Is implements error matching for ConsistencyError.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrUnknownConsistency
}
