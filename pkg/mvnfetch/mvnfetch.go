// Package mvnfetch provides the public Go library API for mvnfetch.
//
// mvnfetch resolves Maven artifacts against an ordered list of repositories
// and downloads their jars into a local cache with SHA-1 verification.
// Snapshot versions are resolved to their latest timestamped jar through the
// repository's maven-metadata.xml.
//
// # Basic Usage
//
//	r, err := mvnfetch.New(mvnfetch.Options{CacheDir: "/path/to/cache"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	a := mvnfetch.NewArtifact("com.google.code.gson", "gson", "2.8.6")
//	a.SHA1 = "9180733b7df8542621dc12e21e87557e8c99b8cb"
//	r.AddArtifact(a)
//
//	results, err := r.Resolve(ctx)
//	for _, res := range results {
//	    fmt.Println(res.Path)
//	}
package mvnfetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bianoble/mvnfetch/internal/artifact"
	"github.com/bianoble/mvnfetch/internal/cache"
	"github.com/bianoble/mvnfetch/internal/engine"
	"github.com/bianoble/mvnfetch/internal/source"
)

// Options configures a Resolver.
type Options struct {
	// CacheDir is the cache directory. If empty, uses the default (~/.cache/mvnfetch).
	CacheDir string

	// Layout is "maven" (default) or "flat".
	Layout Layout

	// Force re-downloads artifacts that are already cached.
	Force bool

	// SkipHash disables SHA-1 verification.
	SkipHash bool

	// Concurrency is the number of artifacts fetched at once. Default: 1.
	Concurrency int

	// NoDefaults stops Maven Central and Maven Snapshots from being searched
	// after the added repositories.
	NoDefaults bool

	// Timeout bounds connecting and each idle read. Default: 5s.
	Timeout time.Duration

	// Connector overrides how repository URLs are opened.
	Connector Connector

	// Logger receives progress and per-repository failures. Default: disabled.
	Logger *zerolog.Logger
}

// Resolver holds the repositories and artifacts to resolve and fetches each
// artifact into the cache.
type Resolver struct {
	downloader  *engine.Downloader
	concurrency int
	noDefaults  bool
	logger      zerolog.Logger

	mu           sync.Mutex
	repositories []Repository
	artifacts    []*Artifact
}

// New creates a new Resolver.
func New(opts Options) (*Resolver, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = cache.DefaultDir()
	}

	conn := opts.Connector
	if conn == nil {
		conn = source.NewDefaultRegistry(&source.HTTPConnector{
			ConnectTimeout: opts.Timeout,
			ReadTimeout:    opts.Timeout,
			Logger:         logger,
		})
	}

	d, err := engine.NewDownloader(conn, cacheDir, engine.Options{
		Force:    opts.Force,
		SkipHash: opts.SkipHash,
		Layout:   opts.Layout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Resolver{
		downloader:  d,
		concurrency: concurrency,
		noDefaults:  opts.NoDefaults,
		logger:      logger,
	}, nil
}

// CacheDir returns the absolute cache directory.
func (r *Resolver) CacheDir() string {
	return r.downloader.Cache().Path()
}

// AddRepository appends a repository to the search order. A repository with
// the same URL or directory replaces the earlier one in place.
func (r *Resolver) AddRepository(repo Repository) error {
	if err := repo.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.repositories {
		if existing.Key() == repo.Key() {
			r.repositories[i] = repo
			return nil
		}
	}
	r.repositories = append(r.repositories, repo)
	return nil
}

// AddArtifact requests an artifact. An artifact with the same group and
// artifact id replaces the earlier one in place.
func (r *Resolver) AddArtifact(a *Artifact) error {
	if a == nil {
		return &ArgumentError{Arg: "artifact", Reason: "artifact is required"}
	}
	if a.GroupID() == "" || a.ArtifactID() == "" || a.Version() == "" {
		return &ArgumentError{Arg: "artifact", Reason: fmt.Sprintf("incomplete coordinates %q", a.String())}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.artifacts {
		if existing.Key() == a.Key() {
			r.artifacts[i] = a
			return nil
		}
	}
	r.artifacts = append(r.artifacts, a)
	return nil
}

// Repositories returns the search order: added repositories, then the
// well-known ones unless disabled.
func (r *Resolver) Repositories() []Repository {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]Repository(nil), r.repositories...)
	if r.noDefaults {
		return out
	}
	for _, def := range []Repository{artifact.MavenCentral(), artifact.MavenSnapshots()} {
		dup := false
		for _, existing := range out {
			if existing.Key() == def.Key() {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, def)
		}
	}
	return out
}

// Artifacts returns the requested artifacts in declaration order.
func (r *Resolver) Artifacts() []*Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Artifact(nil), r.artifacts...)
}

// Fetch resolves a single artifact against the search order.
func (r *Resolver) Fetch(ctx context.Context, a *Artifact) (*Result, error) {
	return r.fetch(ctx, a, r.Repositories())
}

func (r *Resolver) fetch(ctx context.Context, a *Artifact, repos []Repository) (*Result, error) {
	fr, err := r.downloader.Fetch(ctx, a, repos)
	if err != nil {
		return nil, err
	}
	sum, err := cache.SHA1File(fr.Path)
	if err != nil {
		return nil, err
	}
	return &Result{
		Artifact:   a,
		Path:       fr.Path,
		RelPath:    fr.RelPath,
		Name:       fr.Name,
		Repository: fr.Repository,
		SHA1:       sum,
		Downloaded: fr.Downloaded,
		Cached:     fr.Cached,
		Size:       fr.Size,
	}, nil
}

// Resolve fetches every requested artifact. Fetches run concurrently up to
// Options.Concurrency; results keep declaration order. A failed artifact has
// a nil entry and its error is part of the returned *multierror.Error.
func (r *Resolver) Resolve(ctx context.Context) ([]*Result, error) {
	artifacts := r.Artifacts()
	repos := r.Repositories()
	results := make([]*Result, len(artifacts))

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, a := range artifacts {
		g.Go(func() error {
			res, err := r.fetch(ctx, a, repos)
			if err != nil {
				r.logger.Error().Str("artifact", a.String()).Err(err).Msg("fetch failed")
				mu.Lock()
				errs = multierror.Append(errs, ArtifactError{Artifact: a.Key(), Err: err})
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, errs.ErrorOrNil()
}
