package profig

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/profig/notify"
	"github.com/dshills/profig/source"
)

// syncBuffer is a goroutine-safe log sink for watcher-driven tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

const registryTOML = `session-name = "app"

[basic.request]
timeout = "2s"
retries = 3

[profiles.oltp.basic.request]
timeout = "100ms"

[profiles.olap.basic.request]
timeout = "30s"
retries = 0
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mustSnapshot(t *testing.T, data map[string]any) source.Snapshot {
	t.Helper()
	snap, err := source.BuildSnapshot(data)
	if err != nil {
		t.Fatalf("BuildSnapshot() error = %v", err)
	}
	return snap
}

func TestNewRegistry_LazyDefault(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	def := reg.Default()
	if def.Name() != "default" {
		t.Errorf("Default().Name() = %q, want %q", def.Name(), "default")
	}
	if def.IsDefined("anything") {
		t.Error("empty default profile claims to define an option")
	}

	// Same profile on every call.
	if reg.Default() != def {
		t.Error("Default() returned a different profile on second call")
	}

	names := reg.Names()
	if len(names) != 1 || names[0] != "default" {
		t.Errorf("Names() = %v, want [default]", names)
	}
}

func TestRegistry_Load(t *testing.T) {
	path := writeConfig(t, "profiles.toml", registryTOML)

	reg := NewRegistry(WithFile(path))
	defer reg.Close()

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	names := reg.Names()
	want := []string{"default", "olap", "oltp"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}

	oltp, err := reg.Profile("oltp")
	if err != nil {
		t.Fatalf("Profile(oltp) error = %v", err)
	}

	timeout, err := oltp.GetDuration("basic.request.timeout")
	if err != nil {
		t.Fatalf("GetDuration() error = %v", err)
	}
	if timeout != 100*time.Millisecond {
		t.Errorf("oltp timeout = %v, want 100ms", timeout)
	}

	// Inherited from the defaults.
	retries, err := oltp.GetInt("basic.request.retries")
	if err != nil {
		t.Fatalf("GetInt() error = %v", err)
	}
	if retries != 3 {
		t.Errorf("oltp retries = %d, want 3", retries)
	}

	def, err := reg.Profile("default")
	if err != nil {
		t.Fatalf("Profile(default) error = %v", err)
	}
	if def != reg.Default() {
		t.Error("Profile(default) and Default() returned different profiles")
	}
}

func TestRegistry_ProfileNotFound(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	_, err := reg.Profile("nope")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Profile(nope) error = %v, want ErrProfileNotFound", err)
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error %q does not name the missing profile", err)
	}
}

func TestRegistry_LoadEmpty(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	names := reg.Names()
	if len(names) != 1 || names[0] != "default" {
		t.Errorf("Names() = %v, want [default]", names)
	}
}

func TestRegistry_LoadMergesFiles(t *testing.T) {
	tmpDir := t.TempDir()
	base := filepath.Join(tmpDir, "base.toml")
	override := filepath.Join(tmpDir, "override.yaml")

	if err := os.WriteFile(base, []byte("[basic.request]\ntimeout = \"2s\"\nretries = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(override, []byte("basic:\n  request:\n    timeout: 5s\n"), 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(WithFile(base), WithFile(override))
	defer reg.Close()

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := reg.Default()
	timeout, err := def.GetDuration("basic.request.timeout")
	if err != nil {
		t.Fatalf("GetDuration() error = %v", err)
	}
	if timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s (later file wins)", timeout)
	}

	retries, err := def.GetInt("basic.request.retries")
	if err != nil {
		t.Fatalf("GetInt() error = %v", err)
	}
	if retries != 3 {
		t.Errorf("retries = %d, want 3", retries)
	}
}

func TestRegistry_LoadEnvOverlay(t *testing.T) {
	path := writeConfig(t, "profiles.toml", registryTOML)
	t.Setenv("PROFIGTEST_BASIC_REQUEST_RETRIES", "9")
	t.Setenv("PROFIGTEST_SESSION__NAME", "from-env")

	reg := NewRegistry(WithFile(path), WithEnvPrefix("PROFIGTEST"))
	defer reg.Close()

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := reg.Default()
	retries, err := def.GetInt("basic.request.retries")
	if err != nil {
		t.Fatalf("GetInt() error = %v", err)
	}
	if retries != 9 {
		t.Errorf("retries = %d, want 9 (env wins)", retries)
	}

	name, err := def.GetString("session-name")
	if err != nil {
		t.Fatalf("GetString() error = %v", err)
	}
	if name != "from-env" {
		t.Errorf("session-name = %q, want %q", name, "from-env")
	}

	// The env overlay reaches resolved profiles too.
	oltp, err := reg.Profile("oltp")
	if err != nil {
		t.Fatal(err)
	}
	retries, err = oltp.GetInt("basic.request.retries")
	if err != nil {
		t.Fatalf("GetInt() error = %v", err)
	}
	if retries != 9 {
		t.Errorf("oltp retries = %d, want 9", retries)
	}
}

func TestRegistry_LoadBadFile(t *testing.T) {
	path := writeConfig(t, "bad.toml", "timeout = =\n")

	reg := NewRegistry(WithFile(path))
	defer reg.Close()

	err := reg.Load(context.Background())
	if err == nil {
		t.Fatal("Load() with an unparseable file succeeded")
	}

	var perr *source.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("Load() error = %v, want a *source.ParseError inside", err)
	}
}

func TestRegistry_LoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := NewRegistry()
	defer reg.Close()

	if err := reg.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestRegistry_ReloadRefreshesInPlace(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	reg.Reload(mustSnapshot(t, map[string]any{
		"basic": map[string]any{"request": map[string]any{"timeout": "2s"}},
		"profiles": map[string]any{
			"oltp": map[string]any{
				"basic": map[string]any{"request": map[string]any{"timeout": "100ms"}},
			},
		},
	}))

	oltp, err := reg.Profile("oltp")
	if err != nil {
		t.Fatal(err)
	}
	derived := oltp.WithInt("basic.request.retries", 7)

	reg.Reload(mustSnapshot(t, map[string]any{
		"basic": map[string]any{"request": map[string]any{"timeout": "2s"}},
		"profiles": map[string]any{
			"oltp": map[string]any{
				"basic": map[string]any{"request": map[string]any{"timeout": "250ms"}},
			},
			"fresh": map[string]any{
				"basic": map[string]any{"request": map[string]any{"timeout": "9s"}},
			},
		},
	}))

	// The held pointer observes the new options.
	timeout, err := oltp.GetDuration("basic.request.timeout")
	if err != nil {
		t.Fatal(err)
	}
	if timeout != 250*time.Millisecond {
		t.Errorf("oltp timeout after reload = %v, want 250ms", timeout)
	}

	same, err := reg.Profile("oltp")
	if err != nil {
		t.Fatal(err)
	}
	if same != oltp {
		t.Error("Reload replaced the oltp profile instead of refreshing it")
	}

	// Derived overrides survive and inherit the reload.
	retries, err := derived.GetInt("basic.request.retries")
	if err != nil {
		t.Fatal(err)
	}
	if retries != 7 {
		t.Errorf("derived retries = %d, want 7", retries)
	}
	timeout, err = derived.GetDuration("basic.request.timeout")
	if err != nil {
		t.Fatal(err)
	}
	if timeout != 250*time.Millisecond {
		t.Errorf("derived timeout after reload = %v, want 250ms", timeout)
	}

	// Profiles appearing for the first time are created.
	if _, err := reg.Profile("fresh"); err != nil {
		t.Errorf("Profile(fresh) error = %v", err)
	}
}

func TestRegistry_ReloadKeepsVanishedProfiles(t *testing.T) {
	buf := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))

	reg := NewRegistry(WithLogger(logger))
	defer reg.Close()

	reg.Reload(mustSnapshot(t, map[string]any{
		"profiles": map[string]any{
			"oltp": map[string]any{"retries": 3},
		},
	}))

	oltp, err := reg.Profile("oltp")
	if err != nil {
		t.Fatal(err)
	}

	reg.Reload(mustSnapshot(t, map[string]any{}))

	kept, err := reg.Profile("oltp")
	if err != nil {
		t.Fatalf("vanished profile no longer accessible: %v", err)
	}
	if kept != oltp {
		t.Error("vanished profile was replaced")
	}

	retries, err := kept.GetInt("retries")
	if err != nil {
		t.Fatal(err)
	}
	if retries != 3 {
		t.Errorf("retries = %d, want last known 3", retries)
	}

	if !strings.Contains(buf.String(), "keeping last known options") {
		t.Errorf("expected a warning about the vanished profile, log was: %s", buf.String())
	}
}

func TestRegistry_ReloadNotifies(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	reg.Reload(mustSnapshot(t, map[string]any{
		"a": 1,
		"b": "x",
		"c": "gone",
	}))

	var events []notify.Change
	reg.Subscribe(func(change notify.Change) {
		events = append(events, change)
	})

	reg.Reload(mustSnapshot(t, map[string]any{
		"a": 2,
		"b": "x",
		"d": "new",
	}))

	want := []struct {
		typ      notify.ChangeType
		path     string
		oldValue any
		newValue any
	}{
		{notify.ChangeSet, "d", nil, "new"},
		{notify.ChangeSet, "a", 1, 2},
		{notify.ChangeRemove, "c", "gone", nil},
		{notify.ChangeReload, "", nil, nil},
	}

	if len(events) != len(want) {
		t.Fatalf("received %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, w := range want {
		got := events[i]
		if got.Type != w.typ {
			t.Errorf("events[%d].Type = %v, want %v", i, got.Type, w.typ)
		}
		if got.Path != w.path {
			t.Errorf("events[%d].Path = %q, want %q", i, got.Path, w.path)
		}
		if got.Profile != "default" {
			t.Errorf("events[%d].Profile = %q, want %q", i, got.Profile, "default")
		}
		if got.OldValue != w.oldValue {
			t.Errorf("events[%d].OldValue = %v, want %v", i, got.OldValue, w.oldValue)
		}
		if got.NewValue != w.newValue {
			t.Errorf("events[%d].NewValue = %v, want %v", i, got.NewValue, w.newValue)
		}
		if got.Source != "reload" {
			t.Errorf("events[%d].Source = %q, want %q", i, got.Source, "reload")
		}
	}
}

func TestRegistry_ReloadUnchangedIsQuiet(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	snap := mustSnapshot(t, map[string]any{"a": 1})
	reg.Reload(snap)

	def := reg.Default()
	version := def.Version()

	var count atomic.Int64
	reg.Subscribe(func(change notify.Change) {
		count.Add(1)
	})

	reg.Reload(mustSnapshot(t, map[string]any{"a": 1}))

	if got := count.Load(); got != 0 {
		t.Errorf("unchanged reload published %d events, want 0", got)
	}
	if def.Version() != version {
		t.Errorf("unchanged reload bumped version %d -> %d", version, def.Version())
	}
}

func TestRegistry_SubscribePath(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	reg.Reload(mustSnapshot(t, map[string]any{
		"basic":        map[string]any{"request": map[string]any{"timeout": "2s"}},
		"session-name": "app",
	}))

	var sets, reloads atomic.Int64
	reg.SubscribePath("basic.request", func(change notify.Change) {
		switch change.Type {
		case notify.ChangeReload:
			reloads.Add(1)
		default:
			sets.Add(1)
		}
	})

	reg.Reload(mustSnapshot(t, map[string]any{
		"basic":        map[string]any{"request": map[string]any{"timeout": "5s"}},
		"session-name": "renamed",
	}))

	if got := sets.Load(); got != 1 {
		t.Errorf("path observer saw %d set events, want 1 (timeout only)", got)
	}
	if got := reloads.Load(); got != 1 {
		t.Errorf("path observer saw %d reload events, want 1", got)
	}
}

func TestRegistry_WatchTriggersReload(t *testing.T) {
	path := writeConfig(t, "profiles.toml", registryTOML)

	reg := NewRegistry(
		WithFile(path),
		WithWatcher(true),
		WithPollInterval(20*time.Millisecond),
	)
	defer reg.Close()

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var reloaded atomic.Bool
	var mu sync.Mutex
	var got notify.Change
	reg.Subscribe(func(change notify.Change) {
		if change.Type == notify.ChangeReload {
			mu.Lock()
			got = change
			mu.Unlock()
			reloaded.Store(true)
		}
	})

	def := reg.Default()

	time.Sleep(50 * time.Millisecond)
	updated := strings.Replace(registryTOML, `timeout = "2s"`, `timeout = "7s"`, 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !reloaded.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if !reloaded.Load() {
		t.Fatal("file change did not trigger a reload")
	}

	mu.Lock()
	if got.Source != "reload" {
		t.Errorf("reload event source = %q, want %q", got.Source, "reload")
	}
	mu.Unlock()

	timeout, err := def.GetDuration("basic.request.timeout")
	if err != nil {
		t.Fatal(err)
	}
	if timeout != 7*time.Second {
		t.Errorf("timeout after file change = %v, want 7s", timeout)
	}
}

func TestRegistry_WatchSkipsBrokenReload(t *testing.T) {
	buf := &syncBuffer{}
	path := writeConfig(t, "profiles.toml", registryTOML)

	reg := NewRegistry(
		WithFile(path),
		WithWatcher(true),
		WithPollInterval(20*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(buf, nil))),
	)
	defer reg.Close()

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := reg.Default()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("timeout = =\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "reload skipped") && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if !strings.Contains(buf.String(), "reload skipped") {
		t.Fatal("broken file did not log a skipped reload")
	}

	// Last good options survive.
	timeout, err := def.GetDuration("basic.request.timeout")
	if err != nil {
		t.Fatal(err)
	}
	if timeout != 2*time.Second {
		t.Errorf("timeout after broken reload = %v, want last good 2s", timeout)
	}
}

func TestRegistry_CloseIdempotent(t *testing.T) {
	path := writeConfig(t, "profiles.toml", registryTOML)

	reg := NewRegistry(WithFile(path), WithWatcher(true), WithPollInterval(20*time.Millisecond))
	if err := reg.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := reg.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := reg.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Reload after Close still swaps profiles but publishes nothing.
	var count atomic.Int64
	reg.Subscribe(func(change notify.Change) {
		count.Add(1)
	})
	reg.Reload(mustSnapshot(t, map[string]any{"a": 1}))

	if got := count.Load(); got != 0 {
		t.Errorf("closed registry published %d events, want 0", got)
	}
}
