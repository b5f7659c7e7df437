package profig

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dshills/profig/notify"
	"github.com/dshills/profig/optset"
	"github.com/dshills/profig/source"
	"github.com/dshills/profig/watch"
)

// reloadSource tags changes published by the registry's reload path.
const reloadSource = "reload"

// Registry owns the named base profiles of a configuration and keeps them
// current across reloads. Profiles are loaded from configuration files and
// optionally overlaid with environment variables; a reload refreshes the
// existing Base pointers in place, so references held by callers stay valid
// and observe the new options on their next read.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Base

	files        []string
	envPrefix    string
	watchFiles   bool
	pollInterval time.Duration
	notifyBuffer int
	logger       *slog.Logger

	watcher  *watch.Watcher
	notifier *notify.Notifier
	closed   bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFile adds a configuration file to load. Files are merged in the order
// given, later files taking precedence. Missing files are skipped.
func WithFile(path string) RegistryOption {
	return func(r *Registry) {
		r.files = append(r.files, path)
	}
}

// WithEnvPrefix overlays environment variables carrying the prefix on top of
// the file contents.
func WithEnvPrefix(prefix string) RegistryOption {
	return func(r *Registry) {
		r.envPrefix = prefix
	}
}

// WithWatcher enables file watching: when a configuration file changes, the
// registry reloads and refreshes its profiles.
func WithWatcher(enabled bool) RegistryOption {
	return func(r *Registry) {
		r.watchFiles = enabled
	}
}

// WithPollInterval sets how often watched files are polled for changes.
func WithPollInterval(interval time.Duration) RegistryOption {
	return func(r *Registry) {
		r.pollInterval = interval
	}
}

// WithLogger sets the logger for reload diagnostics. The default logger
// discards everything.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithNotifyBuffer makes change delivery asynchronous with the given buffer
// size. By default observers are called synchronously.
func WithNotifyBuffer(size int) RegistryOption {
	return func(r *Registry) {
		r.notifyBuffer = size
	}
}

// NewRegistry creates a registry with the given options. Call Load to read
// the configured sources.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		profiles: make(map[string]*Base),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	var nopts []notify.Option
	if r.notifyBuffer > 0 {
		nopts = append(nopts, notify.WithAsync(r.notifyBuffer))
	}
	r.notifier = notify.New(nopts...)

	return r
}

// Load reads the configured files and environment, builds the profiles, and
// starts the file watcher when enabled. No change notifications are emitted
// for the initial load.
func (r *Registry) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := r.loadSources()
	if err != nil {
		return err
	}

	snap, err := source.BuildSnapshot(data)
	if err != nil {
		return err
	}

	r.apply(snap, false)

	if r.watchFiles {
		if err := r.startWatcher(); err != nil {
			return err
		}
	}

	return nil
}

// Profile returns the base profile with the given name.
func (r *Registry) Profile(name string) (*Base, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, nil
}

// Default returns the default profile. A registry that has never been loaded
// gets an empty default profile created on first call.
func (r *Registry) Default() *Base {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[source.DefaultProfileName]
	if !ok {
		p = NewBase(source.DefaultProfileName, optset.Empty())
		r.profiles[source.DefaultProfileName] = p
	}
	return p
}

// Names returns the registry's profile names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reload applies a new snapshot: existing profiles are refreshed in place,
// profiles appearing for the first time are created, and profiles missing
// from the snapshot keep their last known options. Per-path changes and one
// reload event per affected profile are published after every profile has
// been swapped, so observers never see a half-applied reload.
func (r *Registry) Reload(snap source.Snapshot) {
	r.apply(snap, true)
}

// Subscribe registers an observer for changes to any profile.
func (r *Registry) Subscribe(observer notify.Observer) *notify.Subscription {
	return r.notifier.Subscribe(observer)
}

// SubscribePath registers an observer for changes at or below a path in any
// profile.
func (r *Registry) SubscribePath(path string, observer notify.Observer) *notify.Subscription {
	return r.notifier.SubscribePath(path, observer)
}

// Close stops the file watcher and the change notifier. Safe to call more
// than once.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	w := r.watcher
	r.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	r.notifier.Close()
	return nil
}

// loadSources merges the configured files and, when a prefix is set, overlays
// matching environment variables.
func (r *Registry) loadSources() (map[string]any, error) {
	data, err := source.LoadFiles(r.files...)
	if err != nil {
		return nil, err
	}

	if r.envPrefix != "" {
		env, err := source.NewEnvLoader(r.envPrefix).Load()
		if err != nil {
			return nil, err
		}
		data = optset.New(env).WithFallback(optset.New(data)).AsMap()
	}

	return data, nil
}

// apply swaps the registry's profiles to the snapshot's contents. Changes are
// collected into a batch while the registry lock is held and committed after
// release, so observers read a fully applied state.
func (r *Registry) apply(snap source.Snapshot, publish bool) {
	batch := r.notifier.NewBatch()

	r.mu.Lock()
	seen := make(map[string]bool, len(snap.Profiles))
	for name, opts := range snap.Profiles {
		seen[name] = true

		existing, ok := r.profiles[name]
		if !ok {
			r.profiles[name] = NewBase(name, opts)
			if publish {
				recordDiff(batch, name, optset.Empty(), opts)
				batch.Reload(name, reloadSource)
			}
			continue
		}

		old := existing.Effective()
		if old.Equal(opts) {
			continue
		}

		existing.Refresh(opts)
		if publish {
			recordDiff(batch, name, old, opts)
			batch.Reload(name, reloadSource)
		}
	}

	for name := range r.profiles {
		if !seen[name] {
			r.logger.Warn("profile missing after reload, keeping last known options",
				"profile", name)
		}
	}
	r.mu.Unlock()

	batch.Commit()
}

// recordDiff adds one change per differing leaf path between old and new to
// the batch.
func recordDiff(batch *notify.Batch, profile string, old, new optset.Set) {
	added, changed, removed := optset.Diff(old, new)
	oldFlat := old.Flatten()
	newFlat := new.Flatten()

	for _, path := range added {
		batch.Set(profile, path, nil, newFlat[path], reloadSource)
	}
	for _, path := range changed {
		batch.Set(profile, path, oldFlat[path], newFlat[path], reloadSource)
	}
	for _, path := range removed {
		batch.Remove(profile, path, oldFlat[path], reloadSource)
	}
}

// startWatcher begins polling the configured files and wires change events to
// a reload.
func (r *Registry) startWatcher() error {
	wopts := []watch.Option{watch.WithLogger(r.logger)}
	if r.pollInterval > 0 {
		wopts = append(wopts, watch.WithInterval(r.pollInterval))
	}
	w := watch.New(wopts...)

	for _, path := range r.files {
		if err := w.Watch(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	w.OnChange(func(event watch.Event) {
		r.reloadFromSources(event)
	})
	w.Start()

	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()
	return nil
}

// reloadFromSources re-reads the configured sources after a file event. A
// load or layout failure skips the reload and keeps the last good profiles.
func (r *Registry) reloadFromSources(event watch.Event) {
	data, err := r.loadSources()
	if err != nil {
		r.logger.Warn("reload skipped: loading sources failed",
			"file", event.Path, "error", err)
		return
	}

	snap, err := source.BuildSnapshot(data)
	if err != nil {
		r.logger.Warn("reload skipped: invalid profile layout",
			"file", event.Path, "error", err)
		return
	}

	r.logger.Info("configuration changed, reloading",
		"file", event.Path, "op", event.Op)
	r.Reload(snap)
}
