package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/inhies/go-bytesize"
	"github.com/rs/zerolog"

	"github.com/bianoble/mvnfetch/internal/artifact"
	"github.com/bianoble/mvnfetch/internal/cache"
	"github.com/bianoble/mvnfetch/internal/metadata"
	"github.com/bianoble/mvnfetch/internal/sandbox"
	"github.com/bianoble/mvnfetch/internal/source"
)

// DirectRepository is the provenance recorded for artifacts downloaded from
// their own URL.
const DirectRepository = "direct"

// Options are the policy flags of a Downloader. They are fixed at
// construction.
type Options struct {
	// Force deletes a cached file and downloads it again.
	Force bool
	// SkipHash disables SHA-1 verification.
	SkipHash bool
	// Layout selects the cache tree shape. Empty means maven.
	Layout artifact.Layout
}

// Downloader places artifacts into a cache, searching repositories in order.
type Downloader struct {
	conn   source.Connector
	cache  *cache.Cache
	opts   Options
	logger zerolog.Logger
}

// FetchResult describes where an artifact ended up and how it got there.
type FetchResult struct {
	Artifact *artifact.Artifact
	// Path is the absolute location of the jar.
	Path string
	// RelPath is Path relative to the cache root.
	RelPath string
	// Repository names the repository the jar came from. It is empty for a
	// cache hit and DirectRepository for a direct download.
	Repository string
	Name       string
	Downloaded bool
	Cached     bool
	Size       int64
}

// ArtifactNotFoundError is returned when no repository serves an artifact.
type ArtifactNotFoundError struct {
	Artifact string
	Tried    int
}

func (e *ArtifactNotFoundError) Error() string {
	if e.Tried == 0 {
		return fmt.Sprintf("artifact %s cannot be downloaded: no url and no repositories", e.Artifact)
	}
	return fmt.Sprintf("artifact %s not found in any of %d repositories", e.Artifact, e.Tried)
}

// HashMismatchError is returned when a stored jar does not match its
// declared digest. The file is left in place.
type HashMismatchError struct {
	Artifact string
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("artifact hash mismatch for file %s: expected %s, got %s", filepath.Base(e.Path), e.Expected, e.Actual)
}

// NewDownloader creates a Downloader writing into cacheDir.
func NewDownloader(conn source.Connector, cacheDir string, opts Options, logger zerolog.Logger) (*Downloader, error) {
	if conn == nil {
		return nil, &artifact.ArgumentError{Arg: "connector", Reason: "connector is required"}
	}
	c, err := cache.New(cacheDir, opts.Layout)
	if err != nil {
		return nil, err
	}
	return &Downloader{conn: conn, cache: c, opts: opts, logger: logger}, nil
}

// Cache returns the cache the Downloader writes to.
func (d *Downloader) Cache() *cache.Cache {
	return d.cache
}

// Fetch makes the artifact's jar present in the cache and verifies it.
//
// A cached jar is reused unless Force is set. An artifact with a SourceURL is
// downloaded from it and repositories are not consulted. Otherwise each
// repository is asked for the jar and, failing that, for maven-metadata.xml
// naming a timestamped snapshot. Per-repository failures are logged and the
// next repository is tried. On success a resolved snapshot name is stored on a.
func (d *Downloader) Fetch(ctx context.Context, a *artifact.Artifact, repos []artifact.Repository) (*FetchResult, error) {
	if a == nil {
		return nil, &artifact.ArgumentError{Arg: "artifact", Reason: "artifact is required"}
	}
	log := d.logger.With().Str("artifact", a.String()).Logger()

	rel, err := d.cache.RelPath(a)
	if err != nil {
		return nil, err
	}
	target := filepath.Join(d.cache.Path(), rel)
	if err := sandbox.EnsureDir(filepath.Dir(target)); err != nil {
		return nil, fmt.Errorf("preparing %s: %w", a, err)
	}

	result := &FetchResult{Artifact: a}

	switch {
	case d.opts.Force:
		if err := sandbox.SafeRemove(d.cache.Path(), rel); err != nil {
			return nil, fmt.Errorf("removing cached %s: %w", a, err)
		}
	case d.cache.Has(a):
		log.Debug().Str("path", target).Msg("cache hit")
		result.Cached = true
	}

	if !result.Cached {
		switch {
		case a.SourceURL != nil:
			n, err := d.download(ctx, a.SourceURL, rel)
			if err != nil {
				return nil, fmt.Errorf("downloading %s: %w", a, err)
			}
			result.Repository = DirectRepository
			result.Downloaded = true
			result.Size = n
		case len(repos) == 0:
			return nil, &ArtifactNotFoundError{Artifact: a.String()}
		default:
			found := false
			for _, repo := range repos {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				att, err := d.fromRepository(ctx, a, repo)
				if err != nil {
					if source.IsNotFound(err) {
						log.Debug().Str("repository", repo.String()).Err(err).Msg("not found")
					} else {
						log.Warn().Str("repository", repo.String()).Err(err).Msg("repository failed")
					}
					continue
				}
				if att == nil {
					log.Debug().Str("repository", repo.String()).Msg("no snapshot jar listed")
					continue
				}
				if att.name != "" {
					a.SetName(att.name)
				}
				result.Repository = repo.String()
				if att.size >= 0 {
					result.Downloaded = true
					result.Size = att.size
				}
				found = true
				break
			}
			if !found {
				return nil, &ArtifactNotFoundError{Artifact: a.String(), Tried: len(repos)}
			}
		}
	}

	// The name may have changed to a resolved snapshot.
	if rel, err = d.cache.RelPath(a); err != nil {
		return nil, err
	}
	result.RelPath = rel
	result.Path = filepath.Join(d.cache.Path(), rel)
	result.Name = a.Name()

	if err := d.verify(a, result.Path); err != nil {
		return result, err
	}
	return result, nil
}

// attempt is a successful repository lookup. name is set when a snapshot was
// resolved; size is -1 when the resolved jar was already cached.
type attempt struct {
	name string
	size int64
}

// fromRepository looks the artifact up in a single repository. It returns
// (nil, nil) when the metadata lists no main jar.
func (d *Downloader) fromRepository(ctx context.Context, a *artifact.Artifact, repo artifact.Repository) (*attempt, error) {
	root, err := repo.Root()
	if err != nil {
		return nil, err
	}

	jarURL, err := artifact.ArtifactURL(root, a)
	if err != nil {
		return nil, err
	}
	rel, err := d.cache.RelPath(a)
	if err != nil {
		return nil, err
	}
	n, err := d.download(ctx, jarURL, rel)
	if err == nil {
		return &attempt{size: n}, nil
	}
	if !source.IsNotFound(err) {
		return nil, err
	}

	metaURL, err := artifact.MetadataURL(root, a)
	if err != nil {
		return nil, err
	}
	metaRel, err := artifact.MetadataRelPath(a)
	if err != nil {
		return nil, err
	}
	if _, err := d.download(ctx, metaURL, metaRel); err != nil {
		return nil, err
	}
	md, err := metadata.ParseFile(filepath.Join(d.cache.Path(), metaRel))
	if err != nil {
		return nil, err
	}
	if !md.IsValid() {
		return nil, &metadata.MetadataError{Source: metaURL.String(), Err: errors.New("missing groupId, artifactId or version")}
	}
	value := md.LatestJarValue()
	if value == "" {
		return nil, nil
	}

	candidate := a.WithName(a.ArtifactID() + "-" + value)
	if !d.opts.Force && d.cache.Has(candidate) {
		return &attempt{name: candidate.Name(), size: -1}, nil
	}
	candURL, err := artifact.ArtifactURL(root, candidate)
	if err != nil {
		return nil, err
	}
	candRel, err := d.cache.RelPath(candidate)
	if err != nil {
		return nil, err
	}
	n, err = d.download(ctx, candURL, candRel)
	if err != nil {
		return nil, err
	}
	return &attempt{name: candidate.Name(), size: n}, nil
}

// download streams u into rel under the cache root. A status-level miss is
// returned as a *source.ConnectionError.
func (d *Downloader) download(ctx context.Context, u *url.URL, rel string) (int64, error) {
	d.logger.Debug().Str("url", u.String()).Msg("requesting")
	resp, err := source.Get(ctx, d.conn, u)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := sandbox.WriteFrom(d.cache.Path(), rel, resp.Body, 0644)
	if err != nil {
		return 0, &source.ConnectionError{URL: u.String(), Err: err}
	}
	d.logger.Info().Str("url", u.String()).Str("path", rel).Str("size", humanBytes(n)).Msg("downloaded")
	return n, nil
}

func (d *Downloader) verify(a *artifact.Artifact, path string) error {
	if d.opts.SkipHash || a.SHA1 == "" {
		return nil
	}
	ok, err := cache.Verify(path, a.SHA1)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", a, err)
	}
	if ok {
		d.logger.Debug().Str("artifact", a.String()).Msg("hash verified")
		return nil
	}
	actual, err := cache.SHA1File(path)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", a, err)
	}
	return &HashMismatchError{Artifact: a.String(), Path: path, Expected: a.SHA1, Actual: actual}
}

func humanBytes(n int64) string {
	return bytesize.New(float64(n)).String()
}
