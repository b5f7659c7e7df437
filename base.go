package profig

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/profig/optset"
)

// baseState is the unit of atomic publication for a Base: the option
// snapshot and the version that identifies it. States are immutable; Refresh
// builds a new one.
type baseState struct {
	version uint64
	options optset.Set
}

// Base is a profile loaded directly from the configuration source.
//
// A Base can be refreshed in place when the source changes. It keeps no
// references to the profiles derived from it: each Derived carries the
// version of the base state it last merged against and recomputes on its own
// next read. Discarding a Derived therefore needs no deregistration, and the
// cost of a refresh does not grow with the number of derived profiles.
type Base struct {
	facade
	name string

	mu    sync.Mutex // serializes Refresh; readers never take it
	state atomic.Pointer[baseState]
}

// NewBase creates a base profile with the given name and initial options.
func NewBase(name string, options optset.Set) *Base {
	b := &Base{name: name}
	b.state.Store(&baseState{version: 1, options: options})
	b.facade.v = b
	return b
}

// Name returns the profile's name in the configuration source.
func (b *Base) Name() string {
	return b.name
}

// Effective returns the current option snapshot.
func (b *Base) Effective() optset.Set {
	return b.state.Load().options
}

// Version returns the refresh counter. It starts at 1 and increments on
// every Refresh.
func (b *Base) Version() uint64 {
	return b.state.Load().version
}

// Refresh replaces the profile's options with a new snapshot. Reads that
// start after Refresh returns observe the new options, including reads
// through derived profiles.
func (b *Base) Refresh(options optset.Set) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Store(&baseState{
		version: b.state.Load().version + 1,
		options: options,
	})
}

func (b *Base) root() *Base {
	return b
}

func (b *Base) overlay() optset.Set {
	return optset.Empty()
}
