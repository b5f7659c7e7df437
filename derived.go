package profig

import (
	"sync/atomic"

	"github.com/dshills/profig/optset"
)

// derivedView caches the merge of added options over one base state,
// identified by that state's version.
type derivedView struct {
	baseVersion uint64
	effective   optset.Set
}

// Derived is a profile built from a Base by With calls.
//
// Its identity is immutable: the base it anchors to and the added options
// never change. The effective options are a cache keyed by the base's
// version; a read that finds the base has moved on recomputes the merge
// before answering, so derived profiles track base refreshes without the
// base knowing they exist.
type Derived struct {
	facade
	base  *Base
	added optset.Set

	view atomic.Pointer[derivedView]
}

func newDerived(base *Base, added optset.Set) *Derived {
	d := &Derived{base: base, added: added}
	d.facade.v = d
	d.recompute()
	return d
}

// Name returns the name of the base profile this profile derives from.
func (d *Derived) Name() string {
	return d.base.Name()
}

// Base returns the base profile this profile is anchored to. Deriving from a
// derived profile anchors at the same base, so this is always the root.
func (d *Derived) Base() *Base {
	return d.base
}

// Added returns the options layered over the base by With calls.
func (d *Derived) Added() optset.Set {
	return d.added
}

// Effective returns the merged options, recomputing first if the base has
// been refreshed since the cached merge.
func (d *Derived) Effective() optset.Set {
	view := d.view.Load()
	if view != nil && view.baseVersion == d.base.Version() {
		return view.effective
	}
	return d.recompute()
}

// Refresh recomputes the cached merge immediately instead of on the next
// read. Redundant calls are harmless.
func (d *Derived) Refresh() {
	d.recompute()
}

// recompute merges the added options over the base's current state and
// publishes the result. Concurrent recomputes are safe: each builds a
// complete view from a single base state, and the cache only moves forward
// to newer base versions.
func (d *Derived) recompute() optset.Set {
	state := d.base.state.Load()
	next := &derivedView{
		baseVersion: state.version,
		effective:   d.added.WithFallback(state.options),
	}

	for {
		cur := d.view.Load()
		if cur != nil && cur.baseVersion >= next.baseVersion {
			break
		}
		if d.view.CompareAndSwap(cur, next) {
			break
		}
	}

	return next.effective
}

func (d *Derived) root() *Base {
	return d.base
}

func (d *Derived) overlay() optset.Set {
	return d.added
}
