// Package profig provides layered configuration profiles with live reload.
//
// A profile is a read view over a set of dotted option paths. Base profiles
// come from the configuration source and can be refreshed in place when the
// source changes; derived profiles are built from a base with With* calls and
// layer their added options over it, recomputing lazily when the base moves.
// Option snapshots are immutable, so readers never observe a partially
// updated profile.
//
// The Registry ties the pieces together: it loads profiles from files and the
// environment, watches the files for changes, and publishes change
// notifications on reload.
package profig
