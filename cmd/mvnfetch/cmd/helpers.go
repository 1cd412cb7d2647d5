package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/spf13/cobra"

	"github.com/bianoble/mvnfetch/internal/artifact"
	"github.com/bianoble/mvnfetch/internal/cache"
	"github.com/bianoble/mvnfetch/internal/config"
	"github.com/bianoble/mvnfetch/internal/lock"
	"github.com/bianoble/mvnfetch/pkg/mvnfetch"
)

// defaultLibDir receives relocated jars when lib_dir is unset.
const defaultLibDir = "lib"

// commandContext returns the command's context, or a background context when
// the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfigHierarchical discovers, merges and validates the config layers.
func loadConfigHierarchical() (*config.HierarchicalResult, error) {
	hr, err := config.LoadHierarchical(config.DiscoverOptions{ProjectPath: configPath})
	if err != nil {
		return hr, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	return hr, nil
}

// loadConfig reads and validates the merged config.
func loadConfig() (*config.Config, error) {
	hr, err := loadConfigHierarchical()
	if err != nil {
		return nil, err
	}
	return hr.Config, nil
}

// loadLockfile reads the lockfile if it exists. Returns an empty lockfile if missing.
func loadLockfile() (*lock.Lockfile, error) {
	lf, err := lock.LoadOrEmpty(lockfilePath)
	if err != nil {
		return nil, fmt.Errorf("loading lockfile %s: %w", lockfilePath, err)
	}
	return lf, nil
}

// cacheDir picks the cache directory: the flag, then the config, then the default.
func cacheDir(cfg *config.Config, flag string) string {
	switch {
	case flag != "":
		return flag
	case cfg != nil && cfg.CacheDir != "":
		return cfg.ResolveDir(cfg.CacheDir)
	default:
		return cache.DefaultDir()
	}
}

// libDir returns where relocated jars are written.
func libDir(cfg *config.Config) string {
	dir := cfg.LibDir
	if dir == "" {
		dir = defaultLibDir
	}
	return cfg.ResolveDir(dir)
}

// newCache opens the cache the config points at.
func newCache(cfg *config.Config, flag string) (*cache.Cache, error) {
	layout := artifact.LayoutMaven
	if cfg != nil {
		layout = cfg.LayoutValue()
	}
	return cache.New(cacheDir(cfg, flag), layout)
}

// repositories returns the search order: configured repositories, then the
// well-known ones unless disabled.
func repositories(cfg *config.Config) ([]artifact.Repository, error) {
	var repos []artifact.Repository
	for _, r := range cfg.Repositories {
		repo, err := r.Resolve(cfg.Dir())
		if err != nil {
			return nil, fmt.Errorf("repository '%s': %w", r.Key(), err)
		}
		repos = append(repos, repo)
	}
	if cfg.UseDefaults() {
		repos = append(repos, artifact.MavenCentral(), artifact.MavenSnapshots())
	}
	return repos, nil
}

// fetchFlags are the config overrides accepted by fetch and update.
type fetchFlags struct {
	force    bool
	skipHash bool
	flat     bool
	jobs     int
	cacheDir string
}

// newResolver builds a Resolver from the config with flag overrides applied.
func newResolver(cfg *config.Config, flags fetchFlags) (*mvnfetch.Resolver, error) {
	layout := cfg.LayoutValue()
	if flags.flat {
		layout = artifact.LayoutFlat
	}
	jobs := cfg.Concurrency
	if flags.jobs > 0 {
		jobs = flags.jobs
	}
	timeout := cfg.TimeoutDuration()
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	r, err := mvnfetch.New(mvnfetch.Options{
		CacheDir:    cacheDir(cfg, flags.cacheDir),
		Layout:      layout,
		Force:       flags.force || cfg.ForceEnabled(),
		SkipHash:    flags.skipHash || cfg.HashCheckDisabled(),
		Concurrency: jobs,
		NoDefaults:  !cfg.UseDefaults(),
		Timeout:     timeout,
		Logger:      &logger,
	})
	if err != nil {
		return nil, err
	}

	for _, cr := range cfg.Repositories {
		repo, err := cr.Resolve(cfg.Dir())
		if err != nil {
			return nil, fmt.Errorf("repository '%s': %w", cr.Key(), err)
		}
		if err := r.AddRepository(repo); err != nil {
			return nil, fmt.Errorf("repository '%s': %w", cr.Key(), err)
		}
	}
	return r, nil
}

// selectArtifacts returns the configured artifacts named by keys (all when
// empty). A key is group:artifact or a bare artifact id.
func selectArtifacts(cfg *config.Config, keys []string) ([]config.Artifact, error) {
	if len(keys) == 0 {
		return cfg.Artifacts, nil
	}
	var out []config.Artifact
	for _, key := range keys {
		found := false
		for _, ca := range cfg.Artifacts {
			if ca.Key() == key || ca.Artifact == key {
				out = append(out, ca)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("artifact '%s' not found in config", key)
		}
	}
	return out, nil
}

func humanSize(bytes int64) string {
	if bytes < int64(bytesize.KB) {
		return fmt.Sprintf("%d B", bytes)
	}
	return bytesize.New(float64(bytes)).Format("%.1f ", "", false)
}

// relPath shortens path for display when it lies under the working directory.
func relPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && !filepath.IsAbs(rel) && len(rel) < len(path) && rel[0] != '.' {
		return rel
	}
	return path
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
