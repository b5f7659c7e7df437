package profig

import (
	"time"

	"github.com/dshills/profig/optset"
)

// Profile is a read view over configuration options plus derivation.
//
// Two implementations exist: *Base, loaded from the configuration source and
// refreshed in place when the source changes, and *Derived, built from a Base
// by With calls. Both are safe for concurrent use.
//
// Getters read the profile's effective options and fail with ErrOptionMissing
// when the path is absent and ErrTypeMismatch when the stored value cannot
// serve the requested type. With* methods never fail: they return a new
// Derived profile with the option set, leaving the receiver untouched. The
// new profile is anchored directly at the receiver's base, so deriving from a
// derived profile does not build chains.
type Profile interface {
	// Name returns the profile's name in the configuration source.
	// Derived profiles report the name of the base they derive from.
	Name() string

	// IsDefined reports whether the effective options contain the path.
	IsDefined(path string) bool

	// Effective returns the current effective option snapshot.
	Effective() optset.Set

	GetBoolean(path string) (bool, error)
	GetInt(path string) (int, error)
	GetDuration(path string) (time.Duration, error)
	GetString(path string) (string, error)
	GetStringList(path string) ([]string, error)
	GetBytes(path string) (int64, error)
	GetConsistency(path string) (Consistency, error)

	WithBoolean(path string, value bool) Profile
	WithInt(path string, value int) Profile
	WithDuration(path string, value time.Duration) Profile
	WithString(path string, value string) Profile
	WithStringList(path string, value []string) Profile
	WithBytes(path string, value int64) Profile
	WithConsistency(path string, value Consistency) Profile
}

var (
	_ Profile = (*Base)(nil)
	_ Profile = (*Derived)(nil)
)
