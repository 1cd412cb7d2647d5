package engine

import (
	"context"
	"os"

	"github.com/bianoble/mvnfetch/internal/cache"
	"github.com/bianoble/mvnfetch/internal/config"
	"github.com/bianoble/mvnfetch/internal/lock"
)

// StatusEngine computes the cache state of configured artifacts.
type StatusEngine struct {
	Cache *cache.Cache
}

// ArtifactStatus describes the current state of an artifact.
type ArtifactStatus struct {
	Key        string
	Version    string
	Name       string
	Repository string
	Path       string
	State      string // "cached", "missing", "pending"
}

// Status returns the state of all (or named) artifacts. An artifact is
// pending until a successful fetch of its configured version is locked.
func (e *StatusEngine) Status(ctx context.Context, lf lock.Lockfile, cfg config.Config, keys []string) ([]ArtifactStatus, error) {
	selected, errs := selectArtifacts(cfg, keys)
	if len(errs) > 0 {
		return nil, errs[0]
	}

	var statuses []ArtifactStatus
	for _, ca := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s := ArtifactStatus{Key: ca.Key(), Version: ca.Version}
		la, locked := lf.Find(ca.Key())
		if !locked || la.Status != lock.StatusOK || la.Version != ca.Version {
			s.State = StatePending
			statuses = append(statuses, s)
			continue
		}

		s.Name = la.Name
		s.Repository = la.Repository
		path, err := cachedPath(e.Cache, ca, la, locked)
		if err != nil {
			return nil, ArtifactError{Artifact: ca.Key(), Err: err}
		}
		s.Path = path

		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			s.State = StateCached
		} else {
			s.State = StateMissing
		}
		statuses = append(statuses, s)
	}

	return statuses, nil
}
