package source

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
[basic]
session-name = "app"
contact-points = ["127.0.0.1:9042", "127.0.0.2:9042"]

[basic.request]
timeout = "2s"
retries = 3

[advanced]
reconnect = true
`)

	loader := NewTOMLLoaderWithFS(memfs, "/config.toml")
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	basic, ok := config["basic"].(map[string]any)
	if !ok {
		t.Fatalf("basic section missing: %v", config)
	}
	if basic["session-name"] != "app" {
		t.Errorf("session-name = %v, want app", basic["session-name"])
	}

	points, ok := basic["contact-points"].([]any)
	if !ok || len(points) != 2 {
		t.Errorf("contact-points = %v, want 2 entries", basic["contact-points"])
	}

	request := basic["request"].(map[string]any)
	if request["timeout"] != "2s" {
		t.Errorf("timeout = %v, want 2s", request["timeout"])
	}
	if request["retries"] != int64(3) {
		t.Errorf("retries = %v (%T), want int64(3)", request["retries"], request["retries"])
	}

	advanced := config["advanced"].(map[string]any)
	if advanced["reconnect"] != true {
		t.Errorf("reconnect = %v, want true", advanced["reconnect"])
	}
}

func TestTOMLLoader_LoadNonExistent(t *testing.T) {
	loader := NewTOMLLoaderWithFS(NewMemFS(), "/missing.toml")

	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load of missing file should not error: %v", err)
	}
	if config != nil {
		t.Errorf("config = %v, want nil", config)
	}
}

func TestTOMLLoader_LoadInvalid(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", `
[basic
timeout = "2s"
`)

	loader := NewTOMLLoaderWithFS(memfs, "/bad.toml")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("Load of invalid TOML should error")
	}

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error %T is not a *ParseError", err)
	}
	if perr.Path != "/bad.toml" {
		t.Errorf("ParseError.Path = %q, want /bad.toml", perr.Path)
	}
}

func TestTOMLLoader_LoadFromReader(t *testing.T) {
	loader := NewTOMLLoader("")
	config, err := loader.LoadFromReader(strings.NewReader(`
[basic.request]
retries = 7
`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}

	request := config["basic"].(map[string]any)["request"].(map[string]any)
	if request["retries"] != int64(7) {
		t.Errorf("retries = %v, want int64(7)", request["retries"])
	}
}

func TestTOMLLoader_LoadWithIncludes(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/main.toml", `
"@include" = ["shared.toml"]

[basic.request]
timeout = "5s"
`)
	memfs.AddFile("/shared.toml", `
[basic.request]
timeout = "2s"
retries = 3
`)

	loader := NewTOMLLoaderWithFS(memfs, "/main.toml")
	config, err := loader.LoadWithIncludes("/main.toml", 5)
	if err != nil {
		t.Fatalf("LoadWithIncludes failed: %v", err)
	}

	request := config["basic"].(map[string]any)["request"].(map[string]any)
	if request["timeout"] != "5s" {
		t.Errorf("timeout = %v, want 5s (including file wins)", request["timeout"])
	}
	if request["retries"] != int64(3) {
		t.Errorf("retries = %v, want int64(3) (inherited from include)", request["retries"])
	}
	if _, hasDirective := config["@include"]; hasDirective {
		t.Error("@include directive leaked into the result")
	}
}

func TestTOMLLoader_LoadWithIncludes_DepthExceeded(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/a.toml", `"@include" = ["b.toml"]`)
	memfs.AddFile("/b.toml", `"@include" = ["a.toml"]`)

	loader := NewTOMLLoaderWithFS(memfs, "/a.toml")
	_, err := loader.LoadWithIncludes("/a.toml", 3)
	if err == nil {
		t.Fatal("cyclic includes should exceed depth")
	}
	if !strings.Contains(err.Error(), "include depth exceeded") {
		t.Errorf("error = %v, want include depth exceeded", err)
	}
}

func TestMergeInto(t *testing.T) {
	tests := []struct {
		name string
		dst  map[string]any
		src  map[string]any
		want map[string]any
	}{
		{
			name: "src wins on conflict",
			dst:  map[string]any{"a": 1, "b": 2},
			src:  map[string]any{"a": 10},
			want: map[string]any{"a": 10, "b": 2},
		},
		{
			name: "nested maps merge",
			dst: map[string]any{
				"basic": map[string]any{"timeout": "2s", "retries": 3},
			},
			src: map[string]any{
				"basic": map[string]any{"timeout": "5s"},
			},
			want: map[string]any{
				"basic": map[string]any{"timeout": "5s", "retries": 3},
			},
		},
		{
			name: "nil dst",
			dst:  nil,
			src:  map[string]any{"a": 1},
			want: map[string]any{"a": 1},
		},
		{
			name: "non-map replaces map",
			dst: map[string]any{
				"basic": map[string]any{"timeout": "2s"},
			},
			src:  map[string]any{"basic": "flat"},
			want: map[string]any{"basic": "flat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeInto(tt.dst, tt.src)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("mergeInto() = %v, want %v", got, tt.want)
			}
		})
	}
}
