// Package source loads raw option documents for the profile registry.
//
// Loaders parse configuration files (TOML, YAML, JSON) and environment
// variables into nested maps. LoadFiles merges several files with later-file
// precedence, and BuildSnapshot splits the merged document into the default
// option set plus named profiles.
package source

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Loader is the interface for configuration loaders.
type Loader interface {
	// Load reads configuration from the source and returns a map.
	// Returns nil, nil if the source doesn't exist (not an error).
	Load() (map[string]any, error)
}

// FileLoader is the interface for loaders that read from files.
type FileLoader interface {
	Loader
	// LoadFrom reads configuration from a specific path.
	LoadFrom(path string) (map[string]any, error)
}

// ReaderLoader is the interface for loaders that read from io.Reader.
type ReaderLoader interface {
	// LoadFromReader reads configuration from a reader.
	LoadFromReader(r io.Reader) (map[string]any, error)
}

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	fs.FS
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// Open implements fs.FS.
func (OSFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ForFile returns a loader for the path, chosen by file extension.
func ForFile(path string) (FileLoader, error) {
	return ForFileWithFS(DefaultFS(), path)
}

// ForFileWithFS returns a loader for the path backed by a custom file system.
func ForFileWithFS(fsys FileSystem, path string) (FileLoader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return NewTOMLLoaderWithFS(fsys, path), nil
	case ".yaml", ".yml":
		return NewYAMLLoaderWithFS(fsys, path), nil
	case ".json":
		return NewJSONLoaderWithFS(fsys, path), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q in %s", filepath.Ext(path), path)
	}
}

// LoadFiles loads and merges several configuration files in order, with
// later files taking precedence. Files that don't exist are skipped.
// Failures are accumulated per file so one bad file doesn't hide the others;
// the merge of the files that loaded cleanly is returned alongside any error.
func LoadFiles(paths ...string) (map[string]any, error) {
	return LoadFilesWithFS(DefaultFS(), paths...)
}

// LoadFilesWithFS is LoadFiles backed by a custom file system.
func LoadFilesWithFS(fsys FileSystem, paths ...string) (map[string]any, error) {
	var errs *multierror.Error
	merged := make(map[string]any)

	for _, path := range paths {
		loader, err := ForFileWithFS(fsys, path)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		data, err := loader.Load()
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if data == nil {
			continue
		}

		merged = mergeInto(merged, data)
	}

	return merged, errs.ErrorOrNil()
}

// mergeInto recursively merges src into dst and returns dst.
// Values in src override values in dst. Maps are merged recursively; other
// types are replaced. dst is mutated; callers pass maps they own.
func mergeInto(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}

	for key, srcVal := range src {
		dstVal, exists := dst[key]
		if !exists {
			dst[key] = srcVal
			continue
		}

		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dstVal.(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = mergeInto(dstMap, srcMap)
		} else {
			dst[key] = srcVal
		}
	}

	return dst
}
