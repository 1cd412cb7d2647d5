// Package cache manages the local artifact tree and hashes its files.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bianoble/mvnfetch/internal/artifact"
)

// Cache is a directory of downloaded jars arranged by a Layout.
// Snapshot metadata is kept in the hierarchical tree regardless of layout.
type Cache struct {
	dir    string
	layout artifact.Layout
}

// New creates a Cache at the given directory.
// The directory is created if it does not exist.
func New(dir string, layout artifact.Layout) (*Cache, error) {
	if dir == "" {
		return nil, &artifact.ArgumentError{Arg: "cache dir", Reason: "cache directory is required"}
	}
	if layout == "" {
		layout = artifact.LayoutMaven
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving cache directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", abs, err)
	}
	return &Cache{dir: abs, layout: layout}, nil
}

// DefaultDir returns the default cache directory.
// Uses XDG_CACHE_HOME if set, otherwise ~/.cache/mvnfetch.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "mvnfetch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return filepath.Join(os.TempDir(), "mvnfetch-cache")
		}
		return filepath.Join("/tmp", "mvnfetch-cache")
	}
	return filepath.Join(home, ".cache", "mvnfetch")
}

// Layout returns the layout jars are stored in.
func (c *Cache) Layout() artifact.Layout {
	return c.layout
}

// RelPath returns the path of the artifact's jar relative to the cache root.
func (c *Cache) RelPath(a *artifact.Artifact) (string, error) {
	return artifact.RelPath(a, c.layout)
}

// ArtifactPath returns the absolute path of the artifact's jar.
func (c *Cache) ArtifactPath(a *artifact.Artifact) (string, error) {
	return artifact.CachePath(c.dir, a, c.layout)
}

// Has reports whether the artifact's jar is present as a regular file.
func (c *Cache) Has(a *artifact.Artifact) bool {
	path, err := c.ArtifactPath(a)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the total size of the cache in bytes.
func (c *Cache) Size() (int64, error) {
	var total int64
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// Clean removes everything under the cache directory and returns the number
// of bytes freed. The directory itself is kept.
func (c *Cache) Clean() (int64, error) {
	size, err := c.Size()
	if err != nil {
		return 0, fmt.Errorf("measuring cache: %w", err)
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("reading cache directory %s: %w", c.dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return 0, fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return size, nil
}

// Path returns the cache directory path.
func (c *Cache) Path() string {
	return c.dir
}
