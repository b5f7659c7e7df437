// Package notify provides change notification for profile reloads.
//
// The notify package implements an observer pattern that allows components
// to subscribe to option changes and receive callbacks when a profile's
// options are refreshed from the configuration source.
package notify

import (
	"sync"
)

// ChangeType represents the type of option change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeRemove indicates a value disappeared from the profile.
	ChangeRemove

	// ChangeReload indicates a profile was reloaded from the source.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeRemove:
		return "remove"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents an option change event.
type Change struct {
	// Profile is the name of the profile the change belongs to.
	Profile string

	// Path is the dot-separated path to the changed option.
	// Empty for reload events.
	Path string

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous value (may be nil).
	OldValue any

	// NewValue is the new value (may be nil for removes).
	NewValue any

	// Source identifies where the change came from.
	Source string
}

// Observer is called when option changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	path     string
	observer Observer
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages option change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	// Global observers that receive all changes
	globalObservers map[uint64]Observer

	// Path-specific observers
	pathObservers map[string]map[uint64]Observer

	// Next subscription ID
	nextID uint64

	// Whether to notify synchronously or asynchronously
	async bool

	// Buffer for async notifications
	buffer chan Change

	// Done channel for shutdown
	done chan struct{}

	// Wait group for async goroutine
	wg sync.WaitGroup

	// Closed flag for idempotent Close
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		globalObservers: make(map[uint64]Observer),
		pathObservers:   make(map[string]map[uint64]Observer),
		done:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{
		id:       id,
		observer: observer,
		notifier: n,
	}
}

// SubscribePath registers an observer for changes to a specific path in any
// profile. The observer is called for exact matches and for parent paths:
// subscribing to "basic.request" receives changes to "basic.request.timeout".
// Observers that care about a single profile filter on Change.Profile.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.pathObservers[path] == nil {
		n.pathObservers[path] = make(map[uint64]Observer)
	}
	n.pathObservers[path][id] = observer

	return &Subscription{
		id:       id,
		path:     path,
		observer: observer,
		notifier: n,
	}
}

// Notify sends a change notification to all relevant observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}

	n.deliverChange(change)
}

// NotifySet is a convenience method for set changes.
func (n *Notifier) NotifySet(profile, path string, oldValue, newValue any, source string) {
	n.Notify(Change{
		Profile:  profile,
		Path:     path,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// NotifyRemove is a convenience method for remove changes.
func (n *Notifier) NotifyRemove(profile, path string, oldValue any, source string) {
	n.Notify(Change{
		Profile:  profile,
		Path:     path,
		Type:     ChangeRemove,
		OldValue: oldValue,
		Source:   source,
	})
}

// NotifyReload is a convenience method for reload events.
func (n *Notifier) NotifyReload(profile, source string) {
	n.Notify(Change{
		Profile: profile,
		Type:    ChangeReload,
		Source:  source,
	})
}

// Close shuts down the notifier. It is safe to call Close multiple times.
// Pending async notifications are drained before Close returns.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

// unsubscribe removes an observer by ID.
func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)

	for path, observers := range n.pathObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.pathObservers, path)
		}
	}
}

// deliverChange sends a change to all matching observers.
func (n *Notifier) deliverChange(change Change) {
	n.mu.RLock()

	var observers []Observer

	for _, obs := range n.globalObservers {
		observers = append(observers, obs)
	}

	if change.Path != "" {
		if pathObs, ok := n.pathObservers[change.Path]; ok {
			for _, obs := range pathObs {
				observers = append(observers, obs)
			}
		}

		// Parent paths match too ("basic" matches "basic.request.timeout").
		for path, pathObs := range n.pathObservers {
			if isParentPath(path, change.Path) {
				for _, obs := range pathObs {
					observers = append(observers, obs)
				}
			}
		}
	} else {
		// Reload events reach all path observers.
		for _, pathObs := range n.pathObservers {
			for _, obs := range pathObs {
				observers = append(observers, obs)
			}
		}
	}

	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(change)
	}
}

// processAsync handles asynchronous notification delivery.
func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliverChange(change)
		case <-n.done:
			// Drain remaining buffered changes
			for {
				select {
				case change := <-n.buffer:
					n.deliverChange(change)
				default:
					return
				}
			}
		}
	}
}

// isParentPath checks if parent is a parent path of child.
// e.g., "basic" is parent of "basic.request.timeout".
func isParentPath(parent, child string) bool {
	if len(parent) >= len(child) {
		return false
	}
	if parent == "" {
		return true
	}
	return child[:len(parent)] == parent && child[len(parent)] == '.'
}

// Batch collects multiple changes and delivers them as a group. The registry
// uses a batch so a reload's diff is published only after every profile has
// been swapped.
type Batch struct {
	notifier *Notifier
	changes  []Change
	mu       sync.Mutex
}

// NewBatch creates a new batch for collecting changes.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{
		notifier: n,
		changes:  make([]Change, 0),
	}
}

// Add adds a change to the batch.
func (b *Batch) Add(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, change)
}

// Set adds a set change to the batch.
func (b *Batch) Set(profile, path string, oldValue, newValue any, source string) {
	b.Add(Change{
		Profile:  profile,
		Path:     path,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// Remove adds a remove change to the batch.
func (b *Batch) Remove(profile, path string, oldValue any, source string) {
	b.Add(Change{
		Profile:  profile,
		Path:     path,
		Type:     ChangeRemove,
		OldValue: oldValue,
		Source:   source,
	})
}

// Reload adds a reload event to the batch.
func (b *Batch) Reload(profile, source string) {
	b.Add(Change{
		Profile: profile,
		Type:    ChangeReload,
		Source:  source,
	})
}

// Commit sends all batched changes to observers.
func (b *Batch) Commit() {
	b.mu.Lock()
	changes := b.changes
	b.changes = make([]Change, 0)
	b.mu.Unlock()

	for _, change := range changes {
		b.notifier.Notify(change)
	}
}

// Discard clears the batch without sending notifications.
func (b *Batch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = make([]Change, 0)
}

// Len returns the number of pending changes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}
