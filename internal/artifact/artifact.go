package artifact

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const snapshotSuffix = "-SNAPSHOT"

// Artifact identifies a jar by its Maven coordinates.
// Coordinates are fixed at construction; the display name may be replaced
// once a snapshot's timestamped file name is resolved.
type Artifact struct {
	groupID    string
	artifactID string
	version    string

	// SHA1 is the expected digest of the jar (hex, any case). Empty skips verification.
	SHA1 string
	// SourceURL, when set, is downloaded directly and repositories are not searched.
	SourceURL *url.URL

	name string
}

// New creates an Artifact from its coordinates.
func New(groupID, artifactID, version string) *Artifact {
	return &Artifact{groupID: groupID, artifactID: artifactID, version: version}
}

// GroupID returns the Maven groupId.
func (a *Artifact) GroupID() string { return a.groupID }

// ArtifactID returns the Maven artifactId.
func (a *Artifact) ArtifactID() string { return a.artifactID }

// Version returns the configured version, -SNAPSHOT qualifier included.
func (a *Artifact) Version() string { return a.version }

// Name returns the file name without extension: artifactId-version unless a
// resolved snapshot name has been set.
func (a *Artifact) Name() string {
	if a.name != "" {
		return a.name
	}
	return a.artifactID + "-" + a.version
}

// SetName replaces the display name.
func (a *Artifact) SetName(name string) {
	a.name = name
}

// WithName returns a copy of a carrying the given display name.
func (a *Artifact) WithName(name string) *Artifact {
	c := *a
	c.name = name
	return &c
}

// Key is the deduplication identity of an artifact.
func (a *Artifact) Key() string {
	return a.groupID + ":" + a.artifactID
}

// IsSnapshot reports whether the version floats on a -SNAPSHOT qualifier.
func (a *Artifact) IsSnapshot() bool {
	return strings.HasSuffix(a.version, snapshotSuffix)
}

func (a *Artifact) String() string {
	return a.groupID + ":" + a.artifactID + ":" + a.version
}

// Repository is either a remote repository reachable by URL or a local
// directory laid out like one.
type Repository struct {
	Name    string
	URL     *url.URL
	BaseDir string
}

// NewRemote creates a repository from a URL string. A file:// URL yields a
// local repository rooted at the URL path.
func NewRemote(name, rawURL string) (Repository, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Repository{}, &ArgumentError{Arg: "url", Reason: fmt.Sprintf("invalid repository url %q: %v", rawURL, err)}
	}
	if u.Scheme == "file" {
		if u.Path == "" {
			return Repository{}, &ArgumentError{Arg: "url", Reason: fmt.Sprintf("repository url %q has no path", rawURL)}
		}
		return NewLocal(name, filepath.FromSlash(u.Path))
	}
	r := Repository{Name: name, URL: u}
	return r, r.Validate()
}

// NewLocal creates a local repository rooted at dir.
func NewLocal(name, dir string) (Repository, error) {
	r := Repository{Name: name, BaseDir: dir}
	return r, r.Validate()
}

// MavenCentral returns the Maven Central repository.
func MavenCentral() Repository {
	u, _ := url.Parse("https://repo1.maven.org/maven2/")
	return Repository{Name: "Maven Central", URL: u}
}

// MavenSnapshots returns the Sonatype OSS snapshots repository.
func MavenSnapshots() Repository {
	u, _ := url.Parse("https://oss.sonatype.org/content/repositories/snapshots/")
	return Repository{Name: "Maven Snapshots", URL: u}
}

// Validate checks that exactly one of URL and BaseDir is set. A file URL
// needs a path instead of a host.
func (r Repository) Validate() error {
	switch {
	case r.URL == nil && r.BaseDir == "":
		return &ArgumentError{Arg: "repository", Reason: "one of url or base directory is required"}
	case r.URL != nil && r.BaseDir != "":
		return &ArgumentError{Arg: "repository", Reason: "url and base directory are mutually exclusive"}
	case r.URL != nil && r.URL.Scheme == "file":
		if r.URL.Path == "" {
			return &ArgumentError{Arg: "url", Reason: fmt.Sprintf("repository url %q has no path", r.URL.String())}
		}
	case r.URL != nil && (r.URL.Scheme == "" || r.URL.Host == ""):
		return &ArgumentError{Arg: "url", Reason: fmt.Sprintf("repository url %q must be absolute", r.URL.String())}
	}
	return nil
}

// IsRemote reports whether the repository is addressed by URL.
func (r Repository) IsRemote() bool { return r.URL != nil }

// IsLocal reports whether the repository is a local directory.
func (r Repository) IsLocal() bool { return r.URL == nil }

// Root returns the repository root as a URL. Local repositories are
// expressed as file:// URLs.
func (r Repository) Root() (*url.URL, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.URL != nil {
		return r.URL, nil
	}
	abs, err := filepath.Abs(r.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving repository directory %s: %w", r.BaseDir, err)
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs) + "/"}, nil
}

// Key is the deduplication identity of a repository.
func (r Repository) Key() string {
	if r.URL != nil {
		return r.URL.String()
	}
	abs, err := filepath.Abs(r.BaseDir)
	if err != nil {
		return filepath.Clean(r.BaseDir)
	}
	return abs
}

func (r Repository) String() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Key()
}
