package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bianoble/mvnfetch/internal/cache"
	"github.com/bianoble/mvnfetch/internal/config"
	"github.com/bianoble/mvnfetch/internal/lock"
	"github.com/bianoble/mvnfetch/internal/sandbox"
)

// VerifyEngine re-hashes cached artifacts and compares them with the digest
// declared in the config and the digest recorded in the lockfile.
type VerifyEngine struct {
	Cache *cache.Cache
}

// Verify checks all (or the named) configured artifacts.
func (e *VerifyEngine) Verify(ctx context.Context, lf lock.Lockfile, cfg config.Config, keys []string) (*VerifyResult, error) {
	result := &VerifyResult{}

	selected, errs := selectArtifacts(cfg, keys)
	result.Errors = append(result.Errors, errs...)

	for _, ca := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		la, locked := lf.Find(ca.Key())
		path, err := cachedPath(e.Cache, ca, la, locked)
		if err != nil {
			result.Errors = append(result.Errors, ArtifactError{Artifact: ca.Key(), Err: err})
			continue
		}

		entry := VerifyEntry{Artifact: ca.Key(), Path: path}
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
			entry.State = StateMissing
			result.Missing = append(result.Missing, entry)
			continue
		}
		if err != nil {
			result.Errors = append(result.Errors, ArtifactError{Artifact: ca.Key(), Err: err})
			continue
		}

		actual, err := cache.SHA1File(path)
		if err != nil {
			result.Errors = append(result.Errors, ArtifactError{Artifact: ca.Key(), Err: err})
			continue
		}
		entry.Actual = actual

		// The declared digest wins; the locked one still has to agree.
		for _, expected := range []string{ca.SHA1, la.SHA1} {
			expected = strings.TrimSpace(expected)
			if expected == "" {
				continue
			}
			if entry.Expected == "" {
				entry.Expected = expected
			}
			if !strings.EqualFold(expected, actual) {
				entry.Expected = expected
				entry.State = StateMismatch
				break
			}
		}

		if entry.State == StateMismatch {
			result.Mismatched = append(result.Mismatched, entry)
			continue
		}
		entry.State = StateOK
		result.OK = append(result.OK, entry)
	}

	return result, nil
}

// selectArtifacts returns the configured artifacts matching keys, or all of
// them when keys is empty. A key is group:artifact or a bare artifact id.
func selectArtifacts(cfg config.Config, keys []string) ([]config.Artifact, []ArtifactError) {
	if len(keys) == 0 {
		return cfg.Artifacts, nil
	}

	var selected []config.Artifact
	var errs []ArtifactError
	for _, key := range keys {
		found := false
		for _, ca := range cfg.Artifacts {
			if ca.Key() == key || ca.Artifact == key {
				selected = append(selected, ca)
				found = true
			}
		}
		if !found {
			errs = append(errs, ArtifactError{
				Artifact: key,
				Err:      fmt.Errorf("artifact '%s' not found in config", key),
			})
		}
	}
	return selected, errs
}

// cachedPath locates an artifact's jar: the locked path when there is one,
// otherwise the path derived from its coordinates and locked name.
func cachedPath(c *cache.Cache, ca config.Artifact, la lock.LockedArtifact, locked bool) (string, error) {
	if locked && la.Path != "" {
		return sandbox.ValidatePath(c.Path(), la.Path)
	}
	a, err := ca.Resolve()
	if err != nil {
		return "", err
	}
	if locked && la.Name != "" && la.Version == ca.Version {
		a.SetName(la.Name)
	}
	return c.ArtifactPath(a)
}
