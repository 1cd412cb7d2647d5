package mvnfetch

import (
	"github.com/bianoble/mvnfetch/internal/artifact"
	"github.com/bianoble/mvnfetch/internal/engine"
	"github.com/bianoble/mvnfetch/internal/metadata"
	"github.com/bianoble/mvnfetch/internal/source"
)

// Type aliases re-export internal types as the public API.
// Users import "github.com/bianoble/mvnfetch/pkg/mvnfetch" and use
// mvnfetch.Artifact, mvnfetch.HashMismatchError, etc.

type Artifact = artifact.Artifact
type Repository = artifact.Repository
type Layout = artifact.Layout
type Connector = source.Connector

type LocatorError = artifact.LocatorError
type ArgumentError = artifact.ArgumentError
type ConnectionError = source.ConnectionError
type MetadataError = metadata.MetadataError
type ArtifactNotFoundError = engine.ArtifactNotFoundError
type HashMismatchError = engine.HashMismatchError
type ArtifactError = engine.ArtifactError

// Cache layouts.
const (
	LayoutMaven = artifact.LayoutMaven
	LayoutFlat  = artifact.LayoutFlat
)

// NewArtifact creates an artifact from its coordinates.
func NewArtifact(groupID, artifactID, version string) *Artifact {
	return artifact.New(groupID, artifactID, version)
}

// NewRemoteRepository creates a repository reachable by URL.
func NewRemoteRepository(name, rawURL string) (Repository, error) {
	return artifact.NewRemote(name, rawURL)
}

// NewLocalRepository creates a repository backed by a local directory laid
// out like a Maven repository.
func NewLocalRepository(name, dir string) (Repository, error) {
	return artifact.NewLocal(name, dir)
}

// MavenCentral returns the Maven Central repository.
func MavenCentral() Repository { return artifact.MavenCentral() }

// MavenSnapshots returns the Sonatype OSS snapshots repository.
func MavenSnapshots() Repository { return artifact.MavenSnapshots() }

// Result is the outcome of fetching one artifact.
type Result struct {
	Artifact *Artifact
	// Path is the absolute location of the jar in the cache.
	Path    string
	RelPath string
	// Name is the resolved file name without extension.
	Name string
	// Repository is the repository the jar came from, "direct" for a URL
	// download and empty for a cache hit.
	Repository string
	// SHA1 is the digest of the stored jar, uppercase hex.
	SHA1       string
	Downloaded bool
	Cached     bool
	Size       int64
}
