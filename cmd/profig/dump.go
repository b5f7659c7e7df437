package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/profig"
	"github.com/dshills/profig/optset"
)

func getDumpCmd() *cobra.Command {
	var profileName string
	var sets []string

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print a profile's effective options as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := loadRegistry(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			prof, err := resolveProfile(reg, profileName, sets)
			if err != nil {
				return err
			}

			out, err := renderJSON(prof.Effective())
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return nil
		},
	}
	dumpCmd.Flags().StringVarP(&profileName, "profile", "p", "default", "profile to dump")
	dumpCmd.Flags().StringArrayVar(&sets, "set", nil, "override an option as path=value (repeatable)")
	return dumpCmd
}

// resolveProfile looks up the named profile and applies --set overrides as a
// derived profile.
func resolveProfile(reg *profig.Registry, name string, sets []string) (profig.Profile, error) {
	base, err := reg.Profile(name)
	if err != nil {
		return nil, err
	}

	var prof profig.Profile = base
	for _, set := range sets {
		path, value, ok := strings.Cut(set, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("malformed --set %q, want path=value", set)
		}
		prof = withParsedValue(prof, path, value)
	}
	return prof, nil
}

// withParsedValue stores an override with the most specific option kind the
// raw string parses as: integer, boolean, duration, consistency level, then
// plain string.
func withParsedValue(prof profig.Profile, path, raw string) profig.Profile {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return prof.WithInt(path, int(n))
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return prof.WithBoolean(path, b)
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return prof.WithDuration(path, d)
	}
	if c, err := profig.ParseConsistency(raw); err == nil {
		return prof.WithConsistency(path, c)
	}
	return prof.WithString(path, raw)
}

// renderJSON assembles the effective options into a JSON document. Paths are
// written in sorted order so the output is deterministic.
func renderJSON(opts optset.Set) ([]byte, error) {
	flat := opts.Flatten()
	out := []byte("{}")
	for _, path := range opts.Paths() {
		var err error
		out, err = sjson.SetBytes(out, path, jsonValue(flat[path]))
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", path, err)
		}
	}
	return pretty.Pretty(out), nil
}

// jsonValue converts values with no natural JSON form.
func jsonValue(value any) any {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	default:
		return value
	}
}
