package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/bianoble/mvnfetch/internal/artifact"
)

// Config represents the mvnfetch.yaml (or mvnfetch.toml) configuration file.
type Config struct {
	Version     int    `yaml:"version" toml:"version"`
	CacheDir    string `yaml:"cache_dir,omitempty" toml:"cache_dir,omitempty"`
	LibDir      string `yaml:"lib_dir,omitempty" toml:"lib_dir,omitempty"`
	Layout      string `yaml:"layout,omitempty" toml:"layout,omitempty"` // "maven", "flat"
	Force       *bool  `yaml:"force,omitempty" toml:"force,omitempty"`
	IgnoreHash  *bool  `yaml:"ignore_hash,omitempty" toml:"ignore_hash,omitempty"`
	Timeout     string `yaml:"timeout,omitempty" toml:"timeout,omitempty"` // duration, e.g. "5s"
	Concurrency int    `yaml:"concurrency,omitempty" toml:"concurrency,omitempty"`

	// Defaults adds Maven Central and Maven Snapshots after the configured
	// repositories. Unset means true.
	Defaults *bool `yaml:"defaults,omitempty" toml:"defaults,omitempty"`

	Repositories []Repository `yaml:"repositories,omitempty" toml:"repositories,omitempty"`
	Artifacts    []Artifact   `yaml:"artifacts" toml:"artifacts"`
	Relocations  []Relocation `yaml:"relocations,omitempty" toml:"relocations,omitempty"`
	Relocator    Relocator    `yaml:"relocator,omitempty" toml:"relocator,omitempty"`

	// dir is the directory of the file the config was read from. Relative
	// paths in the config resolve against it.
	dir string
}

// Repository is a remote (url) or local (path) artifact repository.
// List order is search priority.
type Repository struct {
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`
	URL  string `yaml:"url,omitempty" toml:"url,omitempty"`
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`
}

// Artifact is a requested group/artifact/version.
type Artifact struct {
	Group    string `yaml:"group" toml:"group"`
	Artifact string `yaml:"artifact" toml:"artifact"`
	Version  string `yaml:"version" toml:"version"`
	SHA1     string `yaml:"sha1,omitempty" toml:"sha1,omitempty"`
	URL      string `yaml:"url,omitempty" toml:"url,omitempty"` // direct download, bypasses repositories
}

// Relocation rewrites a package prefix inside fetched jars.
type Relocation struct {
	Pattern     string `yaml:"pattern" toml:"pattern"`
	Replacement string `yaml:"replacement" toml:"replacement"`
}

// Relocator configures the external relocation command.
type Relocator struct {
	Command  string `yaml:"command,omitempty" toml:"command,omitempty"`
	RuleFlag string `yaml:"rule_flag,omitempty" toml:"rule_flag,omitempty"`
}

// Key identifies a repository for merging: its name, else its url or path.
func (r Repository) Key() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.URL != "":
		return r.URL
	default:
		return r.Path
	}
}

// Resolve converts r to an artifact.Repository. A relative path is taken
// relative to baseDir.
func (r Repository) Resolve(baseDir string) (artifact.Repository, error) {
	p := r.Path
	if r.URL != "" {
		u, err := url.Parse(r.URL)
		if err != nil || u.Scheme != "file" {
			return artifact.NewRemote(r.Name, r.URL)
		}
		p = filepath.FromSlash(u.Path)
	}
	if !filepath.IsAbs(p) && baseDir != "" {
		p = filepath.Join(baseDir, p)
	}
	return artifact.NewLocal(r.Name, p)
}

// Key identifies an artifact for merging and deduplication.
func (a Artifact) Key() string {
	return a.Group + ":" + a.Artifact
}

// Resolve converts a to an artifact.Artifact.
func (a Artifact) Resolve() (*artifact.Artifact, error) {
	out := artifact.New(a.Group, a.Artifact, a.Version)
	out.SHA1 = strings.TrimSpace(a.SHA1)
	if a.URL != "" {
		u, err := url.Parse(a.URL)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: invalid url: %w", a.Key(), err)
		}
		out.SourceURL = u
	}
	return out, nil
}

// Dir returns the directory the config was loaded from, or "" if it was
// built in memory.
func (c *Config) Dir() string {
	return c.dir
}

// UseDefaults reports whether the well-known repositories are appended.
func (c *Config) UseDefaults() bool {
	return c.Defaults == nil || *c.Defaults
}

// ForceEnabled reports whether cached artifacts are re-downloaded.
func (c *Config) ForceEnabled() bool {
	return c.Force != nil && *c.Force
}

// HashCheckDisabled reports whether SHA-1 verification is skipped.
func (c *Config) HashCheckDisabled() bool {
	return c.IgnoreHash != nil && *c.IgnoreHash
}

// LayoutValue returns the parsed cache layout. Invalid values are rejected
// by Validate, so this falls back to the maven layout.
func (c *Config) LayoutValue() artifact.Layout {
	l, err := artifact.ParseLayout(c.Layout)
	if err != nil {
		return artifact.LayoutMaven
	}
	return l
}

// TimeoutDuration returns the connection timeout, or 0 when unset.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ResolveDir returns p made absolute against the config directory.
func (c *Config) ResolveDir(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
