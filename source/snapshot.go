package source

import (
	"fmt"
	"sort"

	"github.com/dshills/profig/optset"
)

// DefaultProfileName is the name of the profile holding the top-level
// options. The name is reserved: a block under the profiles table may not
// use it.
const DefaultProfileName = "default"

// ProfilesKey is the top-level key holding named profile blocks.
const ProfilesKey = "profiles"

// Snapshot is the result of one load: the default options plus the resolved
// options of every named profile.
type Snapshot struct {
	// Defaults holds everything outside the profiles table.
	Defaults optset.Set

	// Profiles maps each profile name to its options with the defaults
	// filled in. Always contains DefaultProfileName once built.
	Profiles map[string]optset.Set
}

// Names returns the snapshot's profile names, sorted.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildSnapshot splits a raw option document into the default option set and
// named profiles. Each profile block is resolved against the defaults right
// away: the block's values win, every other path comes from the defaults.
func BuildSnapshot(data map[string]any) (Snapshot, error) {
	base := make(map[string]any, len(data))
	for key, val := range data {
		if key != ProfilesKey {
			base[key] = val
		}
	}
	defaults := optset.New(base)

	snap := Snapshot{
		Defaults: defaults,
		Profiles: map[string]optset.Set{DefaultProfileName: defaults},
	}

	raw, ok := data[ProfilesKey]
	if !ok {
		return snap, nil
	}

	blocks, ok := raw.(map[string]any)
	if !ok {
		return Snapshot{}, fmt.Errorf("%s: expected a table of profiles, got %T", ProfilesKey, raw)
	}

	for name, blockVal := range blocks {
		if name == DefaultProfileName {
			return Snapshot{}, fmt.Errorf("profile name %q is reserved", DefaultProfileName)
		}
		block, ok := blockVal.(map[string]any)
		if !ok {
			return Snapshot{}, fmt.Errorf("profile %s: expected a table, got %T", name, blockVal)
		}
		snap.Profiles[name] = optset.New(block).WithFallback(defaults)
	}

	return snap, nil
}
